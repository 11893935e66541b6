// Package command lists the mutating repository operations the store can
// run. Each command reports which views it invalidates.
package command

import (
	"fmt"
	"strings"

	"github.com/thiagokokada/gitk-core/internal/domain"
)

type Kind uint8

const (
	KindCheckoutBranch Kind = iota
	KindCheckoutRemoteBranch
	KindCheckoutCommit
	KindCreateBranch
	KindDeleteBranch
	KindSetUpstream
	KindCreateTag
	KindDeleteTag
	KindAddRemote
	KindRemoveRemote
	KindStagePaths
	KindUnstagePaths
	KindDiscardWorktreeChanges
	KindStageHunk
	KindUnstageHunk
	KindApplyWorktreePatch
	KindCommit
	KindFetch
	KindPull
	KindPush
	KindReset
	KindRebaseContinue
	KindRebaseAbort
	KindStashCreate
	KindStashApply
	KindStashPop
	KindStashDrop
	KindCheckoutConflictSide
)

var kindNames = [...]string{
	KindCheckoutBranch:         "checkout-branch",
	KindCheckoutRemoteBranch:   "checkout-remote-branch",
	KindCheckoutCommit:         "checkout-commit",
	KindCreateBranch:           "create-branch",
	KindDeleteBranch:           "delete-branch",
	KindSetUpstream:            "set-upstream",
	KindCreateTag:              "create-tag",
	KindDeleteTag:              "delete-tag",
	KindAddRemote:              "add-remote",
	KindRemoveRemote:           "remove-remote",
	KindStagePaths:             "stage-paths",
	KindUnstagePaths:           "unstage-paths",
	KindDiscardWorktreeChanges: "discard-worktree-changes",
	KindStageHunk:              "stage-hunk",
	KindUnstageHunk:            "unstage-hunk",
	KindApplyWorktreePatch:     "apply-worktree-patch",
	KindCommit:                 "commit",
	KindFetch:                  "fetch",
	KindPull:                   "pull",
	KindPush:                   "push",
	KindReset:                  "reset",
	KindRebaseContinue:         "rebase-continue",
	KindRebaseAbort:            "rebase-abort",
	KindStashCreate:            "stash-create",
	KindStashApply:             "stash-apply",
	KindStashPop:               "stash-pop",
	KindStashDrop:              "stash-drop",
	KindCheckoutConflictSide:   "checkout-conflict-side",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("command(%d)", k)
}

// Refresh is a set of repository views to reload.
type Refresh uint16

const (
	RefreshHead Refresh = 1 << iota
	RefreshUpstream
	RefreshBranches
	RefreshRemoteBranches
	RefreshTags
	RefreshRemotes
	RefreshStatus
	RefreshLog
	RefreshStashes
	RefreshReflog
	RefreshRebaseState
	RefreshMergeMessage

	RefreshNone Refresh = 0
	RefreshAll  Refresh = RefreshMergeMessage<<1 - 1
)

// Has reports whether every view in o is in r.
func (r Refresh) Has(o Refresh) bool {
	return r&o == o
}

// Areas is the set of working tree diff areas a command can change.
type Areas uint8

const (
	AreaUnstaged Areas = 1 << iota
	AreaStaged

	AreaNone Areas = 0
	AreaBoth       = AreaUnstaged | AreaStaged
)

// Contains reports whether the diff area a is in the set.
func (s Areas) Contains(a domain.DiffArea) bool {
	if a == domain.DiffAreaStaged {
		return s&AreaStaged != 0
	}
	return s&AreaUnstaged != 0
}

const refreshCheckout = RefreshHead | RefreshUpstream | RefreshBranches | RefreshStatus | RefreshLog | RefreshReflog

var effects = [...]struct {
	refresh Refresh
	areas   Areas
}{
	KindCheckoutBranch:         {refreshCheckout, AreaBoth},
	KindCheckoutRemoteBranch:   {refreshCheckout, AreaBoth},
	KindCheckoutCommit:         {refreshCheckout, AreaBoth},
	KindCreateBranch:           {RefreshBranches | RefreshLog, AreaNone},
	KindDeleteBranch:           {RefreshBranches | RefreshLog, AreaNone},
	KindSetUpstream:            {RefreshBranches | RefreshUpstream, AreaNone},
	KindCreateTag:              {RefreshTags | RefreshLog, AreaNone},
	KindDeleteTag:              {RefreshTags | RefreshLog, AreaNone},
	KindAddRemote:              {RefreshRemotes | RefreshRemoteBranches, AreaNone},
	KindRemoveRemote:           {RefreshRemotes | RefreshRemoteBranches | RefreshUpstream, AreaNone},
	KindStagePaths:             {RefreshStatus, AreaBoth},
	KindUnstagePaths:           {RefreshStatus, AreaBoth},
	KindDiscardWorktreeChanges: {RefreshStatus, AreaUnstaged},
	KindStageHunk:              {RefreshStatus, AreaBoth},
	KindUnstageHunk:            {RefreshStatus, AreaBoth},
	KindApplyWorktreePatch:     {RefreshStatus, AreaUnstaged},
	KindCommit:                 {RefreshAll &^ (RefreshTags | RefreshRemotes | RefreshRemoteBranches | RefreshStashes), AreaStaged},
	KindFetch:                  {RefreshRemoteBranches | RefreshUpstream | RefreshTags | RefreshLog, AreaNone},
	KindPull:                   {RefreshAll, AreaBoth},
	KindPush:                   {RefreshRemoteBranches | RefreshUpstream, AreaNone},
	KindReset:                  {refreshCheckout, AreaBoth},
	KindRebaseContinue:         {RefreshAll, AreaBoth},
	KindRebaseAbort:            {RefreshAll, AreaBoth},
	KindStashCreate:            {RefreshStashes | RefreshStatus, AreaBoth},
	KindStashApply:             {RefreshStashes | RefreshStatus | RefreshMergeMessage, AreaBoth},
	KindStashPop:               {RefreshStashes | RefreshStatus | RefreshMergeMessage, AreaBoth},
	KindStashDrop:              {RefreshStashes, AreaNone},
	KindCheckoutConflictSide:   {RefreshStatus, AreaBoth},
}

// Refresh returns the views to reload after a successful run.
func (k Kind) Refresh() Refresh {
	if int(k) < len(effects) {
		return effects[k].refresh
	}
	return RefreshAll
}

// Areas returns the diff areas a successful run can change.
func (k Kind) Areas() Areas {
	if int(k) < len(effects) {
		return effects[k].areas
	}
	return AreaBoth
}

// Command is one mutating operation. The set of implementations is closed.
type Command interface {
	Kind() Kind
	// Describe returns a short human readable form for logs.
	Describe() string
	isCommand()
}

type CheckoutBranch struct{ Name string }

// CheckoutRemoteBranch creates a local branch tracking the remote one, or
// reuses an existing local branch of the same name, and checks it out.
type CheckoutRemoteBranch struct {
	Remote string
	Name   string
}

type CheckoutCommit struct{ Commit domain.CommitID }

type CreateBranch struct {
	Name   string
	Target string
	// Checkout switches to the branch after creating it.
	Checkout bool
}

type DeleteBranch struct {
	Name  string
	Force bool
}

type SetUpstream struct {
	Branch   string
	Upstream string
}

type CreateTag struct {
	Name   string
	Target domain.CommitID
}

type DeleteTag struct{ Name string }

type AddRemote struct {
	Name string
	URL  string
}

type RemoveRemote struct{ Name string }

type StagePaths struct{ Paths []string }

type UnstagePaths struct{ Paths []string }

type DiscardWorktreeChanges struct{ Paths []string }

// StageHunk applies Patch to the index.
type StageHunk struct{ Patch string }

// UnstageHunk applies Patch to the index in reverse.
type UnstageHunk struct{ Patch string }

// ApplyWorktreePatch applies Patch to the working tree. Discarding a hunk
// is a reverse apply.
type ApplyWorktreePatch struct {
	Patch   string
	Reverse bool
}

type Commit struct {
	Message string
	Amend   bool
}

type Fetch struct{ Prune bool }

type Pull struct{ Mode domain.PullMode }

type Push struct{ Force bool }

type Reset struct {
	Target string
	Mode   domain.ResetMode
}

type RebaseContinue struct{}

type RebaseAbort struct{}

type StashCreate struct {
	Message          string
	IncludeUntracked bool
}

type StashApply struct{ Index int }

type StashPop struct{ Index int }

type StashDrop struct{ Index int }

type CheckoutConflictSide struct {
	Path string
	Side domain.ConflictSide
}

func (CheckoutBranch) Kind() Kind {
	return KindCheckoutBranch
}

func (CheckoutRemoteBranch) Kind() Kind {
	return KindCheckoutRemoteBranch
}

func (CheckoutCommit) Kind() Kind {
	return KindCheckoutCommit
}

func (CreateBranch) Kind() Kind {
	return KindCreateBranch
}

func (DeleteBranch) Kind() Kind {
	return KindDeleteBranch
}

func (SetUpstream) Kind() Kind {
	return KindSetUpstream
}

func (CreateTag) Kind() Kind {
	return KindCreateTag
}

func (DeleteTag) Kind() Kind {
	return KindDeleteTag
}

func (AddRemote) Kind() Kind {
	return KindAddRemote
}

func (RemoveRemote) Kind() Kind {
	return KindRemoveRemote
}

func (StagePaths) Kind() Kind {
	return KindStagePaths
}

func (UnstagePaths) Kind() Kind {
	return KindUnstagePaths
}

func (DiscardWorktreeChanges) Kind() Kind {
	return KindDiscardWorktreeChanges
}

func (StageHunk) Kind() Kind {
	return KindStageHunk
}

func (UnstageHunk) Kind() Kind {
	return KindUnstageHunk
}

func (ApplyWorktreePatch) Kind() Kind {
	return KindApplyWorktreePatch
}

func (Commit) Kind() Kind {
	return KindCommit
}

func (Fetch) Kind() Kind {
	return KindFetch
}

func (Pull) Kind() Kind {
	return KindPull
}

func (Push) Kind() Kind {
	return KindPush
}

func (Reset) Kind() Kind {
	return KindReset
}

func (RebaseContinue) Kind() Kind {
	return KindRebaseContinue
}

func (RebaseAbort) Kind() Kind {
	return KindRebaseAbort
}

func (StashCreate) Kind() Kind {
	return KindStashCreate
}

func (StashApply) Kind() Kind {
	return KindStashApply
}

func (StashPop) Kind() Kind {
	return KindStashPop
}

func (StashDrop) Kind() Kind {
	return KindStashDrop
}

func (CheckoutConflictSide) Kind() Kind {
	return KindCheckoutConflictSide
}

func (c CheckoutBranch) Describe() string {
	return "checkout " + c.Name
}

func (c CheckoutRemoteBranch) Describe() string {
	return fmt.Sprintf("checkout %s/%s", c.Remote, c.Name)
}

func (c CheckoutCommit) Describe() string {
	return "checkout --detach " + c.Commit.Short()
}

func (c CreateBranch) Describe() string {
	return strings.TrimSpace("branch " + c.Name + " " + c.Target)
}

func (c DeleteBranch) Describe() string {
	return "branch -d " + c.Name
}

func (c SetUpstream) Describe() string {
	return fmt.Sprintf("branch --set-upstream-to=%s %s", c.Upstream, c.Branch)
}

func (c CreateTag) Describe() string {
	return strings.TrimSpace("tag " + c.Name + " " + c.Target.Short())
}

func (c DeleteTag) Describe() string {
	return "tag -d " + c.Name
}

func (c AddRemote) Describe() string {
	return "remote add " + c.Name + " " + c.URL
}

func (c RemoveRemote) Describe() string {
	return "remote remove " + c.Name
}

func (c StagePaths) Describe() string {
	return "add " + strings.Join(c.Paths, " ")
}

func (c UnstagePaths) Describe() string {
	return "restore --staged " + strings.Join(c.Paths, " ")
}

func (c DiscardWorktreeChanges) Describe() string {
	return "restore --worktree " + strings.Join(c.Paths, " ")
}

func (StageHunk) Describe() string {
	return "apply --cached"
}

func (UnstageHunk) Describe() string {
	return "apply --cached --reverse"
}

func (c ApplyWorktreePatch) Describe() string {
	if c.Reverse {
		return "apply --reverse"
	}
	return "apply"
}

func (c Commit) Describe() string {
	if c.Amend {
		return "commit --amend"
	}
	return "commit"
}

func (c Fetch) Describe() string {
	if c.Prune {
		return "fetch --all --prune"
	}
	return "fetch --all"
}

func (Pull) Describe() string {
	return "pull"
}

func (c Push) Describe() string {
	if c.Force {
		return "push --force-with-lease"
	}
	return "push"
}

func (c Reset) Describe() string {
	return "reset " + c.Mode.Flag() + " " + c.Target
}

func (RebaseContinue) Describe() string {
	return "rebase --continue"
}

func (RebaseAbort) Describe() string {
	return "rebase --abort"
}

func (StashCreate) Describe() string {
	return "stash push"
}

func (c StashApply) Describe() string {
	return fmt.Sprintf("stash apply stash@{%d}", c.Index)
}

func (c StashPop) Describe() string {
	return fmt.Sprintf("stash pop stash@{%d}", c.Index)
}

func (c StashDrop) Describe() string {
	return fmt.Sprintf("stash drop stash@{%d}", c.Index)
}

func (c CheckoutConflictSide) Describe() string {
	return "checkout " + c.Side.Flag() + " " + c.Path
}

func (CheckoutBranch) isCommand()         {}
func (CheckoutRemoteBranch) isCommand()   {}
func (CheckoutCommit) isCommand()         {}
func (CreateBranch) isCommand()           {}
func (DeleteBranch) isCommand()           {}
func (SetUpstream) isCommand()            {}
func (CreateTag) isCommand()              {}
func (DeleteTag) isCommand()              {}
func (AddRemote) isCommand()              {}
func (RemoveRemote) isCommand()           {}
func (StagePaths) isCommand()             {}
func (UnstagePaths) isCommand()           {}
func (DiscardWorktreeChanges) isCommand() {}
func (StageHunk) isCommand()              {}
func (UnstageHunk) isCommand()            {}
func (ApplyWorktreePatch) isCommand()     {}
func (Commit) isCommand()                 {}
func (Fetch) isCommand()                  {}
func (Pull) isCommand()                   {}
func (Push) isCommand()                   {}
func (Reset) isCommand()                  {}
func (RebaseContinue) isCommand()         {}
func (RebaseAbort) isCommand()            {}
func (StashCreate) isCommand()            {}
func (StashApply) isCommand()             {}
func (StashPop) isCommand()               {}
func (StashDrop) isCommand()              {}
func (CheckoutConflictSide) isCommand()   {}
