// Package msg defines every event the store reacts to: user intents and the
// completions of previously scheduled effects.
package msg

import (
	"github.com/thiagokokada/gitk-core/internal/domain"
	"github.com/thiagokokada/gitk-core/internal/git"
	"github.com/thiagokokada/gitk-core/internal/store/command"
)

// Msg is a closed set; only this package declares implementations.
type Msg interface {
	isMsg()
}

// ChangeKind tells where an external change to a repository happened.
type ChangeKind uint8

const (
	// ChangeWorktree is a change to tracked or untracked files.
	ChangeWorktree ChangeKind = iota
	// ChangeGitState is a change under the git directory: refs, index,
	// HEAD, stash.
	ChangeGitState
)

// PatchAction says what to do with a hunk or line selection of the current
// working tree diff.
type PatchAction uint8

const (
	ActionStage PatchAction = iota
	ActionUnstage
	ActionDiscard
)

func (a PatchAction) String() string {
	switch a {
	case ActionUnstage:
		return "unstage"
	case ActionDiscard:
		return "discard"
	default:
		return "stage"
	}
}

// Intents.

type OpenRepo struct{ Path string }

type CloseRepo struct{ Repo domain.RepoID }

type SetActiveRepo struct{ Repo domain.RepoID }

// ReloadRepo reloads every view that an open fans out.
type ReloadRepo struct{ Repo domain.RepoID }

type RepoExternallyChanged struct {
	Repo domain.RepoID
	Kind ChangeKind
}

type SetLogScope struct {
	Repo  domain.RepoID
	Scope domain.LogScope
}

type LoadMoreHistory struct{ Repo domain.RepoID }

type SelectCommit struct {
	Repo   domain.RepoID
	Commit domain.CommitID
}

type ClearCommitSelection struct{ Repo domain.RepoID }

type SelectDiff struct {
	Repo   domain.RepoID
	Target domain.DiffTarget
}

type ClearDiffSelection struct{ Repo domain.RepoID }

type ShowBlame struct {
	Repo   domain.RepoID
	Target domain.BlameTarget
}

type LoadWorktrees struct{ Repo domain.RepoID }

type LoadSubmodules struct{ Repo domain.RepoID }

// ApplyHunkAt acts on the hunk containing source line SrcIx of the selected
// working tree diff.
type ApplyHunkAt struct {
	Repo   domain.RepoID
	SrcIx  int
	Action PatchAction
}

// ApplyLinesAt acts on the added and removed lines among SrcIxs, which must
// all belong to one hunk of the selected working tree diff.
type ApplyLinesAt struct {
	Repo   domain.RepoID
	SrcIxs []int
	Action PatchAction
}

type RunCommand struct {
	Repo    domain.RepoID
	Command command.Command
}

type CloneRepo struct {
	URL  string
	Dest string
}

type DismissError struct{ Repo domain.RepoID }

type DrainDiagnostics struct{ Repo domain.RepoID }

// Completions.

type RepoOpened struct {
	Repo   domain.RepoID
	Handle git.Repository
	Err    error
}

type HeadLoaded struct {
	Repo   domain.RepoID
	Branch string
	Err    error
}

type UpstreamLoaded struct {
	Repo       domain.RepoID
	Divergence *domain.UpstreamDivergence
	Err        error
}

type BranchesLoaded struct {
	Repo     domain.RepoID
	Branches []domain.Branch
	Err      error
}

type RemoteBranchesLoaded struct {
	Repo     domain.RepoID
	Branches []domain.RemoteBranch
	Err      error
}

type TagsLoaded struct {
	Repo domain.RepoID
	Tags []domain.Tag
	Err  error
}

type RemotesLoaded struct {
	Repo    domain.RepoID
	Remotes []domain.Remote
	Err     error
}

type StatusLoaded struct {
	Repo   domain.RepoID
	Status domain.RepoStatus
	Err    error
}

// LogLoaded carries one page. Cursor is nil for a first page and the
// continuation the page was read from otherwise.
type LogLoaded struct {
	Repo   domain.RepoID
	Scope  domain.LogScope
	Cursor *domain.LogCursor
	Page   domain.LogPage
	Err    error
}

type StashesLoaded struct {
	Repo    domain.RepoID
	Stashes []domain.StashEntry
	Err     error
}

type ReflogLoaded struct {
	Repo    domain.RepoID
	Entries []domain.ReflogEntry
	Err     error
}

type WorktreesLoaded struct {
	Repo      domain.RepoID
	Worktrees []domain.Worktree
	Err       error
}

type SubmodulesLoaded struct {
	Repo       domain.RepoID
	Submodules []domain.Submodule
	Err        error
}

type RebaseStateLoaded struct {
	Repo       domain.RepoID
	InProgress bool
	Err        error
}

type MergeMessageLoaded struct {
	Repo    domain.RepoID
	Message *string
	Err     error
}

type CommitDetailsLoaded struct {
	Repo    domain.RepoID
	Commit  domain.CommitID
	Details domain.CommitDetails
	Err     error
}

type BlameLoaded struct {
	Repo   domain.RepoID
	Target domain.BlameTarget
	Lines  []domain.BlameLine
	Err    error
}

type DiffLoaded struct {
	Repo   domain.RepoID
	Target domain.DiffTarget
	Diff   domain.Diff
	Err    error
}

type DiffFileLoaded struct {
	Repo   domain.RepoID
	Target domain.DiffTarget
	File   domain.FileDiffText
	Err    error
}

type DiffFileImageLoaded struct {
	Repo   domain.RepoID
	Target domain.DiffTarget
	Image  domain.FileDiffImage
	Err    error
}

type RepoCommandFinished struct {
	Repo    domain.RepoID
	Command command.Kind
	Output  domain.CommandOutput
	Err     error
}

type CloneProgress struct {
	Dest string
	Line string
}

type CloneFinished struct {
	Dest   string
	Output domain.CommandOutput
	Err    error
}

func (OpenRepo) isMsg()              {}
func (CloseRepo) isMsg()             {}
func (SetActiveRepo) isMsg()         {}
func (ReloadRepo) isMsg()            {}
func (RepoExternallyChanged) isMsg() {}
func (SetLogScope) isMsg()           {}
func (LoadMoreHistory) isMsg()       {}
func (SelectCommit) isMsg()          {}
func (ClearCommitSelection) isMsg()  {}
func (SelectDiff) isMsg()            {}
func (ClearDiffSelection) isMsg()    {}
func (ShowBlame) isMsg()             {}
func (LoadWorktrees) isMsg()         {}
func (LoadSubmodules) isMsg()        {}
func (ApplyHunkAt) isMsg()           {}
func (ApplyLinesAt) isMsg()          {}
func (RunCommand) isMsg()            {}
func (CloneRepo) isMsg()             {}
func (DismissError) isMsg()          {}
func (DrainDiagnostics) isMsg()      {}

func (RepoOpened) isMsg()           {}
func (HeadLoaded) isMsg()           {}
func (UpstreamLoaded) isMsg()       {}
func (BranchesLoaded) isMsg()       {}
func (RemoteBranchesLoaded) isMsg() {}
func (TagsLoaded) isMsg()           {}
func (RemotesLoaded) isMsg()        {}
func (StatusLoaded) isMsg()         {}
func (LogLoaded) isMsg()            {}
func (StashesLoaded) isMsg()        {}
func (ReflogLoaded) isMsg()         {}
func (WorktreesLoaded) isMsg()      {}
func (SubmodulesLoaded) isMsg()     {}
func (RebaseStateLoaded) isMsg()    {}
func (MergeMessageLoaded) isMsg()   {}
func (CommitDetailsLoaded) isMsg()  {}
func (BlameLoaded) isMsg()          {}
func (DiffLoaded) isMsg()           {}
func (DiffFileLoaded) isMsg()       {}
func (DiffFileImageLoaded) isMsg()  {}
func (RepoCommandFinished) isMsg()  {}
func (CloneProgress) isMsg()        {}
func (CloneFinished) isMsg()        {}
