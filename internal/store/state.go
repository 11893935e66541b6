package store

import (
	"slices"
	"time"

	"github.com/thiagokokada/gitk-core/internal/domain"
)

type LoadState uint8

const (
	NotLoaded LoadState = iota
	Loading
	Ready
	Failed
)

func (s LoadState) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "error"
	default:
		return "not-loaded"
	}
}

// Loadable is the state of one asynchronously fetched value. While Loading,
// Value still holds the last ready value, if any, so views can keep showing
// it until the refresh lands.
type Loadable[T any] struct {
	State LoadState
	Value T
	Err   string
}

func (l Loadable[T]) IsReady() bool {
	return l.State == Ready
}

func (l Loadable[T]) IsLoading() bool {
	return l.State == Loading
}

func (l *Loadable[T]) startLoading() {
	l.State = Loading
	l.Err = ""
}

func (l *Loadable[T]) reset() {
	*l = Loadable[T]{}
}

// finish moves the loadable to Ready or Failed and reports the error text
// for the diagnostics log.
func (l *Loadable[T]) finish(v T, err error) {
	if err != nil {
		l.State = Failed
		l.Err = err.Error()
		return
	}
	l.State = Ready
	l.Value = v
	l.Err = ""
}

type DiagnosticKind uint8

const (
	DiagnosticInfo DiagnosticKind = iota
	DiagnosticError
)

func (k DiagnosticKind) String() string {
	if k == DiagnosticError {
		return "error"
	}
	return "info"
}

type DiagnosticEntry struct {
	Time    time.Time
	Kind    DiagnosticKind
	Message string
}

// CommandLogEntry records one mutating command whatever its outcome.
type CommandLogEntry struct {
	Time    time.Time
	RunID   string
	Command string
	Success bool
	Stdout  string
	Stderr  string
}

// RepoState is everything the store knows about one open repository.
// Selection pointers and slices inside Loadables are replaced, never
// mutated in place, so snapshots may share them.
type RepoState struct {
	ID   domain.RepoID
	Spec domain.RepoSpec
	Open Loadable[domain.RepoSpec]

	Head           Loadable[string]
	Upstream       Loadable[*domain.UpstreamDivergence]
	Branches       Loadable[[]domain.Branch]
	RemoteBranches Loadable[[]domain.RemoteBranch]
	Tags           Loadable[[]domain.Tag]
	Remotes        Loadable[[]domain.Remote]
	Status         Loadable[domain.RepoStatus]
	Stashes        Loadable[[]domain.StashEntry]
	Reflog         Loadable[[]domain.ReflogEntry]
	Worktrees      Loadable[[]domain.Worktree]
	Submodules     Loadable[[]domain.Submodule]
	RebaseActive   Loadable[bool]
	MergeMessage   Loadable[*string]

	LogScope domain.LogScope
	Log      Loadable[domain.LogPage]
	// LogLoadingMore is set while a continuation page is in flight.
	LogLoadingMore bool

	SelectedCommit *domain.CommitID
	CommitDetails  Loadable[domain.CommitDetails]

	BlameTarget *domain.BlameTarget
	Blame       Loadable[[]domain.BlameLine]

	DiffTarget    *domain.DiffTarget
	Diff          Loadable[domain.Diff]
	DiffFile      Loadable[domain.FileDiffText]
	DiffFileImage Loadable[domain.FileDiffImage]
	DiffRev       uint64
	DiffFileRev   uint64

	LastError   *string
	Diagnostics []DiagnosticEntry
	CommandLog  []CommandLogEntry
}

// CloneState tracks a clone in progress or just finished.
type CloneState struct {
	URL      string
	Dest     string
	Progress []string
	Done     bool
	Err      string
}

type AppState struct {
	Repos []RepoState
	// ActiveRepo is zero when no repository is open.
	ActiveRepo domain.RepoID
	Clones     []CloneState
}

// Repo returns the state of id, or nil.
func (s *AppState) Repo(id domain.RepoID) *RepoState {
	for i := range s.Repos {
		if s.Repos[i].ID == id {
			return &s.Repos[i]
		}
	}
	return nil
}

// Active returns the active repository state, or nil.
func (s *AppState) Active() *RepoState {
	if s.ActiveRepo == 0 {
		return nil
	}
	return s.Repo(s.ActiveRepo)
}

func (s *AppState) clone(dest string) *CloneState {
	for i := range s.Clones {
		if s.Clones[i].Dest == dest {
			return &s.Clones[i]
		}
	}
	return nil
}

// Clone returns a copy that shares no appendable storage with s.
func (s *AppState) Clone() AppState {
	out := AppState{
		ActiveRepo: s.ActiveRepo,
		Repos:      make([]RepoState, len(s.Repos)),
		Clones:     make([]CloneState, len(s.Clones)),
	}
	for i, rs := range s.Repos {
		rs.Diagnostics = slices.Clone(rs.Diagnostics)
		rs.CommandLog = slices.Clone(rs.CommandLog)
		out.Repos[i] = rs
	}
	for i, cs := range s.Clones {
		cs.Progress = slices.Clone(cs.Progress)
		out.Clones[i] = cs
	}
	return out
}
