// Package effect defines the asynchronous work the reducer can request.
// Effects never touch state; each one ends in exactly one completion
// message, plus progress messages for clones.
package effect

import (
	"github.com/thiagokokada/gitk-core/internal/domain"
	"github.com/thiagokokada/gitk-core/internal/store/command"
)

// Effect is a closed set; only this package declares implementations.
type Effect interface {
	// RepoID names the repository the effect runs against, or zero.
	RepoID() domain.RepoID
	isEffect()
}

type OpenRepo struct {
	Repo domain.RepoID
	Path string
}

type LoadHead struct{ Repo domain.RepoID }

type LoadUpstream struct{ Repo domain.RepoID }

type LoadBranches struct{ Repo domain.RepoID }

type LoadRemoteBranches struct{ Repo domain.RepoID }

type LoadTags struct{ Repo domain.RepoID }

type LoadRemotes struct{ Repo domain.RepoID }

type LoadStatus struct{ Repo domain.RepoID }

// LoadLog reads one page. A nil Cursor starts from the tip of Scope.
type LoadLog struct {
	Repo   domain.RepoID
	Scope  domain.LogScope
	Cursor *domain.LogCursor
}

type LoadStashes struct{ Repo domain.RepoID }

type LoadReflog struct{ Repo domain.RepoID }

type LoadWorktrees struct{ Repo domain.RepoID }

type LoadSubmodules struct{ Repo domain.RepoID }

type LoadRebaseState struct{ Repo domain.RepoID }

type LoadMergeMessage struct{ Repo domain.RepoID }

type LoadCommitDetails struct {
	Repo   domain.RepoID
	Commit domain.CommitID
}

type LoadBlame struct {
	Repo   domain.RepoID
	Target domain.BlameTarget
}

type LoadDiff struct {
	Repo   domain.RepoID
	Target domain.DiffTarget
}

type LoadDiffFile struct {
	Repo   domain.RepoID
	Target domain.DiffTarget
}

type LoadDiffFileImage struct {
	Repo   domain.RepoID
	Target domain.DiffTarget
}

type RunCommand struct {
	Repo    domain.RepoID
	Command command.Command
}

type Clone struct {
	URL  string
	Dest string
}

func (OpenRepo) isEffect()           {}
func (LoadHead) isEffect()           {}
func (LoadUpstream) isEffect()       {}
func (LoadBranches) isEffect()       {}
func (LoadRemoteBranches) isEffect() {}
func (LoadTags) isEffect()           {}
func (LoadRemotes) isEffect()        {}
func (LoadStatus) isEffect()         {}
func (LoadLog) isEffect()            {}
func (LoadStashes) isEffect()        {}
func (LoadReflog) isEffect()         {}
func (LoadWorktrees) isEffect()      {}
func (LoadSubmodules) isEffect()     {}
func (LoadRebaseState) isEffect()    {}
func (LoadMergeMessage) isEffect()   {}
func (LoadCommitDetails) isEffect()  {}
func (LoadBlame) isEffect()          {}
func (LoadDiff) isEffect()           {}
func (LoadDiffFile) isEffect()       {}
func (LoadDiffFileImage) isEffect()  {}
func (RunCommand) isEffect()         {}
func (Clone) isEffect()              {}

func (e OpenRepo) RepoID() domain.RepoID           { return e.Repo }
func (e LoadHead) RepoID() domain.RepoID           { return e.Repo }
func (e LoadUpstream) RepoID() domain.RepoID       { return e.Repo }
func (e LoadBranches) RepoID() domain.RepoID       { return e.Repo }
func (e LoadRemoteBranches) RepoID() domain.RepoID { return e.Repo }
func (e LoadTags) RepoID() domain.RepoID           { return e.Repo }
func (e LoadRemotes) RepoID() domain.RepoID        { return e.Repo }
func (e LoadStatus) RepoID() domain.RepoID         { return e.Repo }
func (e LoadLog) RepoID() domain.RepoID            { return e.Repo }
func (e LoadStashes) RepoID() domain.RepoID        { return e.Repo }
func (e LoadReflog) RepoID() domain.RepoID         { return e.Repo }
func (e LoadWorktrees) RepoID() domain.RepoID      { return e.Repo }
func (e LoadSubmodules) RepoID() domain.RepoID     { return e.Repo }
func (e LoadRebaseState) RepoID() domain.RepoID    { return e.Repo }
func (e LoadMergeMessage) RepoID() domain.RepoID   { return e.Repo }
func (e LoadCommitDetails) RepoID() domain.RepoID  { return e.Repo }
func (e LoadBlame) RepoID() domain.RepoID          { return e.Repo }
func (e LoadDiff) RepoID() domain.RepoID           { return e.Repo }
func (e LoadDiffFile) RepoID() domain.RepoID       { return e.Repo }
func (e LoadDiffFileImage) RepoID() domain.RepoID  { return e.Repo }
func (e RunCommand) RepoID() domain.RepoID         { return e.Repo }
func (Clone) RepoID() domain.RepoID                { return 0 }
