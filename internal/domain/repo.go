package domain

// RepoID identifies an open repository for the lifetime of a store. Values
// are never reused.
type RepoID uint64

// RepoSpec locates an open repository. GitDir is absolute and need not live
// under Workdir: linked worktrees and submodules point elsewhere through a
// ".git" file.
type RepoSpec struct {
	Workdir string
	GitDir  string
}

type UpstreamDivergence struct {
	Upstream string
	Ahead    int
	Behind   int
}

type Worktree struct {
	Path     string
	Head     CommitID
	Branch   string // empty when detached
	Bare     bool
	Detached bool
	Locked   bool
}

type Submodule struct {
	Path     string
	Head     CommitID
	Status   SubmoduleStatus
	Describe string
}

type SubmoduleStatus uint8

const (
	SubmoduleUpToDate SubmoduleStatus = iota
	SubmoduleNotInitialized
	SubmoduleOutOfSync
	SubmoduleConflicted
)

type BlameLine struct {
	Commit  CommitID
	Author  string
	When    int64 // unix seconds
	LineNo  uint32
	Content string
}

// BlameTarget names a blamed file at a revision. An empty Rev means HEAD.
type BlameTarget struct {
	Path string
	Rev  CommitID
}
