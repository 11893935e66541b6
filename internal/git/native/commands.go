package native

import (
	"errors"
	"strings"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	gitindex "github.com/go-git/go-git/v5/plumbing/format/index"

	"github.com/thiagokokada/gitk-core/internal/domain"
	"github.com/thiagokokada/gitk-core/internal/git"
)

func (r *repository) CheckoutBranch(name string) (domain.CommandOutput, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := output("checkout " + name)
	wt, err := r.repo.Worktree()
	if err != nil {
		return failed(out, err)
	}
	err = wt.Checkout(&gitlib.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(name), Keep: true})
	if err != nil {
		return failed(out, err)
	}
	return out, nil
}

func (r *repository) CheckoutCommit(id domain.CommitID) (domain.CommandOutput, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := output("checkout --detach " + string(id))
	hash, err := r.repo.ResolveRevision(plumbing.Revision(id))
	if err != nil {
		return failed(out, err)
	}
	wt, err := r.repo.Worktree()
	if err != nil {
		return failed(out, err)
	}
	if err := wt.Checkout(&gitlib.CheckoutOptions{Hash: *hash, Keep: true}); err != nil {
		return failed(out, err)
	}
	return out, nil
}

func (r *repository) StagePaths(paths []string) (domain.CommandOutput, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := output("add -- " + strings.Join(paths, " "))
	wt, err := r.repo.Worktree()
	if err != nil {
		return failed(out, err)
	}
	for _, p := range paths {
		if _, err := wt.Add(p); err != nil {
			return failed(out, err)
		}
	}
	return out, nil
}

func (r *repository) UnstagePaths(paths []string) (domain.CommandOutput, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := output("restore --staged -- " + strings.Join(paths, " "))
	if _, err := r.repo.Head(); errors.Is(err, plumbing.ErrReferenceNotFound) {
		// nothing committed yet: unstaging drops the index entries
		if err := r.dropIndexEntries(paths); err != nil {
			return failed(out, err)
		}
		return out, nil
	}
	wt, err := r.repo.Worktree()
	if err != nil {
		return failed(out, err)
	}
	if err := wt.Restore(&gitlib.RestoreOptions{Staged: true, Files: paths}); err != nil {
		return failed(out, err)
	}
	return out, nil
}

func (r *repository) dropIndexEntries(paths []string) error {
	idx, err := r.repo.Storer.Index()
	if err != nil {
		return err
	}
	for _, p := range paths {
		if _, err := idx.Remove(p); err != nil && !errors.Is(err, gitindex.ErrEntryNotFound) {
			return err
		}
	}
	return r.repo.Storer.SetIndex(idx)
}

func (r *repository) DiscardWorktreeChanges([]string) (domain.CommandOutput, error) {
	return output("restore --worktree"), unsupported("discard worktree changes")
}

func (r *repository) ApplyPatch(string, git.PatchTarget, bool) (domain.CommandOutput, error) {
	return output("apply"), unsupported("apply patch")
}

func (r *repository) CheckoutConflictSide(string, domain.ConflictSide) (domain.CommandOutput, error) {
	return output("checkout conflict side"), unsupported("checkout conflict side")
}

func (r *repository) Commit(message string, amend bool) (domain.CommandOutput, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := output("commit")
	if amend {
		out = output("commit --amend")
	}
	if strings.TrimSpace(message) == "" {
		if !amend {
			return failed(out, errors.New("aborting commit due to empty commit message"))
		}
		head, err := r.commit("HEAD")
		if err != nil {
			return failed(out, err)
		}
		message = head.Message
	}
	wt, err := r.repo.Worktree()
	if err != nil {
		return failed(out, err)
	}
	hash, err := wt.Commit(message, &gitlib.CommitOptions{Amend: amend})
	if err != nil {
		return failed(out, err)
	}
	out.Stdout = hash.String() + "\n"
	return out, nil
}

func (r *repository) Fetch(prune bool) (domain.CommandOutput, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := output("fetch")
	remotes, err := r.repo.Remotes()
	if err != nil {
		return failed(out, err)
	}
	for _, rem := range remotes {
		err := r.repo.Fetch(&gitlib.FetchOptions{RemoteName: rem.Config().Name, Prune: prune})
		if err != nil && !errors.Is(err, gitlib.NoErrAlreadyUpToDate) {
			return failed(out, err)
		}
	}
	return out, nil
}

func (r *repository) Pull(mode domain.PullMode) (domain.CommandOutput, error) {
	if mode == domain.PullRebase || mode == domain.PullMerge {
		return output("pull"), unsupported("pull with rebase or merge")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := output("pull --ff-only")
	wt, err := r.repo.Worktree()
	if err != nil {
		return failed(out, err)
	}
	if err := wt.Pull(&gitlib.PullOptions{}); err != nil && !errors.Is(err, gitlib.NoErrAlreadyUpToDate) {
		return failed(out, err)
	}
	return out, nil
}

func (r *repository) Push(force bool) (domain.CommandOutput, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := output("push")
	opts := &gitlib.PushOptions{}
	if force {
		out = output("push --force-with-lease")
		opts.ForceWithLease = &gitlib.ForceWithLease{}
	}
	if err := r.repo.Push(opts); err != nil && !errors.Is(err, gitlib.NoErrAlreadyUpToDate) {
		return failed(out, err)
	}
	return out, nil
}

func (r *repository) Reset(target string, mode domain.ResetMode) (domain.CommandOutput, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := output("reset " + mode.Flag() + " " + target)
	hash, err := r.repo.ResolveRevision(plumbing.Revision(target))
	if err != nil {
		return failed(out, err)
	}
	wt, err := r.repo.Worktree()
	if err != nil {
		return failed(out, err)
	}
	resetMode := gitlib.MixedReset
	switch mode {
	case domain.ResetSoft:
		resetMode = gitlib.SoftReset
	case domain.ResetHard:
		resetMode = gitlib.HardReset
	}
	if err := wt.Reset(&gitlib.ResetOptions{Commit: *hash, Mode: resetMode}); err != nil {
		return failed(out, err)
	}
	return out, nil
}

func (r *repository) RebaseContinue() (domain.CommandOutput, error) {
	return output("rebase --continue"), unsupported("rebase")
}

func (r *repository) RebaseAbort() (domain.CommandOutput, error) {
	return output("rebase --abort"), unsupported("rebase")
}

func (r *repository) StashCreate(string, bool) (domain.CommandOutput, error) {
	return output("stash push"), unsupported("stash")
}

func (r *repository) StashApply(int) (domain.CommandOutput, error) {
	return output("stash apply"), unsupported("stash")
}

func (r *repository) StashPop(int) (domain.CommandOutput, error) {
	return output("stash pop"), unsupported("stash")
}

func (r *repository) StashDrop(int) (domain.CommandOutput, error) {
	return output("stash drop"), unsupported("stash")
}
