package store

import (
	"sync"

	"github.com/thiagokokada/gitk-core/internal/domain"
	"github.com/thiagokokada/gitk-core/internal/git"
)

type appliedPatch struct {
	patch   string
	target  git.PatchTarget
	reverse bool
}

// fakeRepo answers every read with an empty, successful result unless the
// matching func field is set. Mutations are recorded.
type fakeRepo struct {
	workdir string

	logPageFunc       func(scope domain.LogScope, limit int, cursor *domain.LogCursor) (domain.LogPage, error)
	commitDetailsFunc func(id domain.CommitID) (domain.CommitDetails, error)
	listBranchesFunc  func() ([]domain.Branch, error)
	statusFunc        func() (domain.RepoStatus, error)
	diffTextFunc      func(target domain.DiffTarget) (string, error)
	fileTextFunc      func(target domain.DiffTarget) (*domain.FileDiffText, error)
	applyPatchFunc    func(patch string, target git.PatchTarget, reverse bool) (domain.CommandOutput, error)

	mu      sync.Mutex
	calls   []string
	patches []appliedPatch
	details int
}

var _ git.Repository = (*fakeRepo)(nil)

func (f *fakeRepo) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeRepo) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRepo) appliedPatches() []appliedPatch {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]appliedPatch(nil), f.patches...)
}

func (f *fakeRepo) ok(cmd string) (domain.CommandOutput, error) {
	f.record(cmd)
	return domain.CommandOutput{Command: "git " + cmd}, nil
}

func (f *fakeRepo) Spec() domain.RepoSpec { return domain.RepoSpec{Workdir: f.workdir} }

func (f *fakeRepo) LogPage(scope domain.LogScope, limit int, cursor *domain.LogCursor) (domain.LogPage, error) {
	if f.logPageFunc != nil {
		return f.logPageFunc(scope, limit, cursor)
	}
	return domain.LogPage{}, nil
}

func (f *fakeRepo) CommitDetails(id domain.CommitID) (domain.CommitDetails, error) {
	f.mu.Lock()
	f.details++
	f.mu.Unlock()
	if f.commitDetailsFunc != nil {
		return f.commitDetailsFunc(id)
	}
	return domain.CommitDetails{Commit: domain.Commit{ID: id}}, nil
}

func (f *fakeRepo) Reflog(int) ([]domain.ReflogEntry, error) { return nil, nil }

func (f *fakeRepo) CurrentBranch() (string, error) { return "main", nil }

func (f *fakeRepo) UpstreamDivergence() (*domain.UpstreamDivergence, error) { return nil, nil }

func (f *fakeRepo) ListBranches() ([]domain.Branch, error) {
	if f.listBranchesFunc != nil {
		return f.listBranchesFunc()
	}
	return []domain.Branch{{Name: "main", Current: true}}, nil
}

func (f *fakeRepo) ListRemoteBranches() ([]domain.RemoteBranch, error) { return nil, nil }

func (f *fakeRepo) ListTags() ([]domain.Tag, error) { return nil, nil }

func (f *fakeRepo) ListRemotes() ([]domain.Remote, error) { return nil, nil }

func (f *fakeRepo) Status() (domain.RepoStatus, error) {
	if f.statusFunc != nil {
		return f.statusFunc()
	}
	return domain.RepoStatus{}, nil
}

func (f *fakeRepo) StashList() ([]domain.StashEntry, error) { return nil, nil }

func (f *fakeRepo) Worktrees() ([]domain.Worktree, error) { return nil, nil }

func (f *fakeRepo) Submodules() ([]domain.Submodule, error) { return nil, nil }

func (f *fakeRepo) RebaseInProgress() (bool, error) { return false, nil }

func (f *fakeRepo) MergeCommitMessage() (*string, error) { return nil, nil }

func (f *fakeRepo) DiffText(target domain.DiffTarget) (string, error) {
	if f.diffTextFunc != nil {
		return f.diffTextFunc(target)
	}
	return "", nil
}

func (f *fakeRepo) FileText(target domain.DiffTarget) (*domain.FileDiffText, error) {
	if f.fileTextFunc != nil {
		return f.fileTextFunc(target)
	}
	return &domain.FileDiffText{Path: target.Path}, nil
}

func (f *fakeRepo) FileImage(target domain.DiffTarget) (*domain.FileDiffImage, error) {
	return &domain.FileDiffImage{Path: target.Path}, nil
}

func (f *fakeRepo) Blame(string, domain.CommitID) ([]domain.BlameLine, error) { return nil, nil }

func (f *fakeRepo) CreateBranch(name string, target string) (domain.CommandOutput, error) {
	return f.ok("branch " + name + " " + target)
}

func (f *fakeRepo) DeleteBranch(name string, _ bool) (domain.CommandOutput, error) {
	return f.ok("branch -d " + name)
}

func (f *fakeRepo) CheckoutBranch(name string) (domain.CommandOutput, error) {
	return f.ok("checkout " + name)
}

func (f *fakeRepo) CheckoutCommit(id domain.CommitID) (domain.CommandOutput, error) {
	return f.ok("checkout " + string(id))
}

func (f *fakeRepo) SetUpstream(branch, upstream string) (domain.CommandOutput, error) {
	return f.ok("branch --set-upstream-to=" + upstream + " " + branch)
}

func (f *fakeRepo) CreateTag(name string, _ domain.CommitID) (domain.CommandOutput, error) {
	return f.ok("tag " + name)
}

func (f *fakeRepo) DeleteTag(name string) (domain.CommandOutput, error) {
	return f.ok("tag -d " + name)
}

func (f *fakeRepo) AddRemote(name, _ string) (domain.CommandOutput, error) {
	return f.ok("remote add " + name)
}

func (f *fakeRepo) RemoveRemote(name string) (domain.CommandOutput, error) {
	return f.ok("remote remove " + name)
}

func (f *fakeRepo) StagePaths([]string) (domain.CommandOutput, error) { return f.ok("add") }

func (f *fakeRepo) UnstagePaths([]string) (domain.CommandOutput, error) { return f.ok("restore --staged") }

func (f *fakeRepo) DiscardWorktreeChanges([]string) (domain.CommandOutput, error) {
	return f.ok("restore --worktree")
}

func (f *fakeRepo) ApplyPatch(patch string, target git.PatchTarget, reverse bool) (domain.CommandOutput, error) {
	f.mu.Lock()
	f.patches = append(f.patches, appliedPatch{patch: patch, target: target, reverse: reverse})
	f.mu.Unlock()
	if f.applyPatchFunc != nil {
		return f.applyPatchFunc(patch, target, reverse)
	}
	return f.ok("apply")
}

func (f *fakeRepo) CheckoutConflictSide(path string, side domain.ConflictSide) (domain.CommandOutput, error) {
	return f.ok("checkout " + side.Flag() + " " + path)
}

func (f *fakeRepo) Commit(string, bool) (domain.CommandOutput, error) { return f.ok("commit") }

func (f *fakeRepo) Fetch(bool) (domain.CommandOutput, error) { return f.ok("fetch") }

func (f *fakeRepo) Pull(domain.PullMode) (domain.CommandOutput, error) { return f.ok("pull") }

func (f *fakeRepo) Push(bool) (domain.CommandOutput, error) { return f.ok("push") }

func (f *fakeRepo) Reset(target string, mode domain.ResetMode) (domain.CommandOutput, error) {
	return f.ok("reset " + mode.Flag() + " " + target)
}

func (f *fakeRepo) RebaseContinue() (domain.CommandOutput, error) { return f.ok("rebase --continue") }

func (f *fakeRepo) RebaseAbort() (domain.CommandOutput, error) { return f.ok("rebase --abort") }

func (f *fakeRepo) StashCreate(string, bool) (domain.CommandOutput, error) { return f.ok("stash push") }

func (f *fakeRepo) StashApply(int) (domain.CommandOutput, error) { return f.ok("stash apply") }

func (f *fakeRepo) StashPop(int) (domain.CommandOutput, error) { return f.ok("stash pop") }

func (f *fakeRepo) StashDrop(int) (domain.CommandOutput, error) { return f.ok("stash drop") }

type fakeBackend struct {
	repo     *fakeRepo
	openErr  error
	cloneErr error
	progress []string
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Open(workdir string) (git.Repository, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}
	if b.repo.workdir == "" {
		b.repo.workdir = workdir
	}
	return b.repo, nil
}

func (b *fakeBackend) Clone(url, dest string, progress func(line string)) (domain.CommandOutput, error) {
	for _, line := range b.progress {
		progress(line)
	}
	return domain.CommandOutput{Command: "git clone " + url + " " + dest}, b.cloneErr
}
