package domain

type FileStatusKind uint8

const (
	FileStatusUntracked FileStatusKind = iota
	FileStatusModified
	FileStatusAdded
	FileStatusDeleted
	FileStatusRenamed
	FileStatusConflicted
)

func (k FileStatusKind) String() string {
	switch k {
	case FileStatusUntracked:
		return "untracked"
	case FileStatusModified:
		return "modified"
	case FileStatusAdded:
		return "added"
	case FileStatusDeleted:
		return "deleted"
	case FileStatusRenamed:
		return "renamed"
	case FileStatusConflicted:
		return "conflicted"
	default:
		return "unknown"
	}
}

type FileStatus struct {
	Path string
	Kind FileStatusKind
	// OrigPath is set for renames.
	OrigPath string
}

type RepoStatus struct {
	Staged   []FileStatus
	Unstaged []FileStatus
}

func (s RepoStatus) Clean() bool {
	return len(s.Staged) == 0 && len(s.Unstaged) == 0
}
