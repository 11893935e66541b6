package domain

import "time"

// CommitID is a full hexadecimal object name.
type CommitID string

func (id CommitID) Short() string {
	if len(id) > 7 {
		return string(id[:7])
	}
	return string(id)
}

type Signature struct {
	Name  string
	Email string
	When  time.Time
}

type Commit struct {
	ID        CommitID
	ParentIDs []CommitID
	Author    Signature
	Committer Signature
	Summary   string
}

type CommitFileChange struct {
	Path string
	Kind FileStatusKind
}

type CommitDetails struct {
	Commit
	Message string
	Files   []CommitFileChange
}

type LogScope uint8

const (
	LogScopeCurrentBranch LogScope = iota
	LogScopeAllBranches
)

func (s LogScope) String() string {
	if s == LogScopeAllBranches {
		return "all"
	}
	return "current"
}

// LogCursor continues a paged log walk. From pins the tip the first page
// started at (empty for all-branches walks) and Skip counts the commits
// already returned.
type LogCursor struct {
	From CommitID
	Skip int
}

type LogPage struct {
	Commits []Commit
	Next    *LogCursor
}

type ReflogEntry struct {
	Index    int
	New      CommitID
	Selector string
	Message  string
}

type StashEntry struct {
	Index   int
	ID      CommitID
	Message string
}
