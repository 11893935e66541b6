package git

import "github.com/thiagokokada/gitk-core/internal/domain"

// Backend opens repositories. Implementations shell out to the git
// executable or use an in-process library; the store receives one at
// construction time and never cares which.
type Backend interface {
	Name() string
	Open(workdir string) (Repository, error)
	// Clone reports each progress line to progress before returning. The
	// callback runs on the calling goroutine.
	Clone(url, dest string, progress func(line string)) (domain.CommandOutput, error)
}

// Repository is a live handle to one repository. Every method blocks and
// must be safe to call from several goroutines at once; implementations
// serialize whatever their storage requires.
type Repository interface {
	Spec() domain.RepoSpec

	LogPage(scope domain.LogScope, limit int, cursor *domain.LogCursor) (domain.LogPage, error)
	CommitDetails(id domain.CommitID) (domain.CommitDetails, error)
	Reflog(limit int) ([]domain.ReflogEntry, error)

	CurrentBranch() (string, error)
	UpstreamDivergence() (*domain.UpstreamDivergence, error)
	ListBranches() ([]domain.Branch, error)
	ListRemoteBranches() ([]domain.RemoteBranch, error)
	ListTags() ([]domain.Tag, error)
	ListRemotes() ([]domain.Remote, error)

	Status() (domain.RepoStatus, error)
	StashList() ([]domain.StashEntry, error)
	Worktrees() ([]domain.Worktree, error)
	Submodules() ([]domain.Submodule, error)
	RebaseInProgress() (bool, error)
	// MergeCommitMessage returns nil when no merge is in progress.
	MergeCommitMessage() (*string, error)

	DiffText(target domain.DiffTarget) (string, error)
	FileText(target domain.DiffTarget) (*domain.FileDiffText, error)
	FileImage(target domain.DiffTarget) (*domain.FileDiffImage, error)
	Blame(path string, rev domain.CommitID) ([]domain.BlameLine, error)

	CreateBranch(name string, target string) (domain.CommandOutput, error)
	DeleteBranch(name string, force bool) (domain.CommandOutput, error)
	CheckoutBranch(name string) (domain.CommandOutput, error)
	CheckoutCommit(id domain.CommitID) (domain.CommandOutput, error)
	SetUpstream(branch, upstream string) (domain.CommandOutput, error)
	CreateTag(name string, target domain.CommitID) (domain.CommandOutput, error)
	DeleteTag(name string) (domain.CommandOutput, error)
	AddRemote(name, url string) (domain.CommandOutput, error)
	RemoveRemote(name string) (domain.CommandOutput, error)

	StagePaths(paths []string) (domain.CommandOutput, error)
	UnstagePaths(paths []string) (domain.CommandOutput, error)
	DiscardWorktreeChanges(paths []string) (domain.CommandOutput, error)
	ApplyPatch(patch string, target PatchTarget, reverse bool) (domain.CommandOutput, error)
	CheckoutConflictSide(path string, side domain.ConflictSide) (domain.CommandOutput, error)

	Commit(message string, amend bool) (domain.CommandOutput, error)
	Fetch(prune bool) (domain.CommandOutput, error)
	Pull(mode domain.PullMode) (domain.CommandOutput, error)
	Push(force bool) (domain.CommandOutput, error)
	Reset(target string, mode domain.ResetMode) (domain.CommandOutput, error)
	RebaseContinue() (domain.CommandOutput, error)
	RebaseAbort() (domain.CommandOutput, error)

	StashCreate(message string, includeUntracked bool) (domain.CommandOutput, error)
	StashApply(index int) (domain.CommandOutput, error)
	StashPop(index int) (domain.CommandOutput, error)
	StashDrop(index int) (domain.CommandOutput, error)
}

// PatchTarget selects where ApplyPatch writes.
type PatchTarget uint8

const (
	PatchToIndex PatchTarget = iota
	PatchToWorktree
)
