package native

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/thiagokokada/gitk-core/internal/domain"
	"github.com/thiagokokada/gitk-core/internal/git"
)

func (r *repository) Status() (domain.RepoStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wt, err := r.repo.Worktree()
	if err != nil {
		return domain.RepoStatus{}, git.WrapBackend("status", err)
	}
	st, err := wt.Status()
	if err != nil {
		return domain.RepoStatus{}, git.WrapBackend("status", err)
	}
	return convertStatus(st), nil
}

func convertStatus(st gitlib.Status) domain.RepoStatus {
	var res domain.RepoStatus
	for path, fst := range st {
		if fst.Staging == gitlib.UpdatedButUnmerged || fst.Worktree == gitlib.UpdatedButUnmerged {
			res.Unstaged = append(res.Unstaged, domain.FileStatus{Path: path, Kind: domain.FileStatusConflicted})
			continue
		}
		if fst.Worktree == gitlib.Untracked {
			res.Unstaged = append(res.Unstaged, domain.FileStatus{Path: path, Kind: domain.FileStatusUntracked})
			continue
		}
		if kind, ok := statusKind(fst.Staging); ok {
			res.Staged = append(res.Staged, domain.FileStatus{Path: path, Kind: kind, OrigPath: origPath(fst)})
		}
		if kind, ok := statusKind(fst.Worktree); ok {
			res.Unstaged = append(res.Unstaged, domain.FileStatus{Path: path, Kind: kind})
		}
	}
	byPath := func(list []domain.FileStatus) func(i, j int) bool {
		return func(i, j int) bool { return list[i].Path < list[j].Path }
	}
	sort.Slice(res.Staged, byPath(res.Staged))
	sort.Slice(res.Unstaged, byPath(res.Unstaged))
	return res
}

func statusKind(code gitlib.StatusCode) (domain.FileStatusKind, bool) {
	switch code {
	case gitlib.Modified:
		return domain.FileStatusModified, true
	case gitlib.Added:
		return domain.FileStatusAdded, true
	case gitlib.Deleted:
		return domain.FileStatusDeleted, true
	case gitlib.Renamed, gitlib.Copied:
		return domain.FileStatusRenamed, true
	default:
		return 0, false
	}
}

func origPath(fst *gitlib.FileStatus) string {
	if fst.Staging == gitlib.Renamed || fst.Staging == gitlib.Copied {
		return fst.Extra
	}
	return ""
}

func (r *repository) StashList() ([]domain.StashEntry, error) {
	return nil, unsupported("stash list")
}

func (r *repository) Worktrees() ([]domain.Worktree, error) {
	return nil, unsupported("worktree list")
}

func (r *repository) Submodules() ([]domain.Submodule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wt, err := r.repo.Worktree()
	if err != nil {
		return nil, git.WrapBackend("submodules", err)
	}
	subs, err := wt.Submodules()
	if err != nil {
		return nil, git.WrapBackend("submodules", err)
	}
	out := make([]domain.Submodule, 0, len(subs))
	for _, sm := range subs {
		st, err := sm.Status()
		if err != nil {
			return nil, git.WrapBackend("submodule status", err)
		}
		s := domain.Submodule{Path: st.Path, Head: domain.CommitID(st.Expected.String())}
		switch {
		case st.Current == plumbing.ZeroHash:
			s.Status = domain.SubmoduleNotInitialized
		case st.Current != st.Expected:
			s.Status = domain.SubmoduleOutOfSync
			s.Head = domain.CommitID(st.Current.String())
		default:
			s.Status = domain.SubmoduleUpToDate
		}
		s.Describe = st.Branch
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (r *repository) RebaseInProgress() (bool, error) {
	for _, dir := range []string{"rebase-merge", "rebase-apply"} {
		ok, err := exists(filepath.Join(r.gitDir, dir))
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

func (r *repository) MergeCommitMessage() (*string, error) {
	ok, err := exists(filepath.Join(r.gitDir, "MERGE_HEAD"))
	if err != nil || !ok {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(r.gitDir, "MERGE_MSG"))
	if errors.Is(err, fs.ErrNotExist) {
		empty := ""
		return &empty, nil
	}
	if err != nil {
		return nil, git.IOError("read MERGE_MSG", err)
	}
	msg := string(data)
	return &msg, nil
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, git.IOError("stat "+path, err)
}
