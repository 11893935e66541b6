// Package native implements the repository collaborator in-process on top of
// go-git. Operations go-git cannot perform report git.ErrUnsupported.
package native

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/storage/filesystem"

	"github.com/thiagokokada/gitk-core/internal/domain"
	"github.com/thiagokokada/gitk-core/internal/git"
)

var _ git.Backend = Backend{}

type Backend struct{}

func New() Backend {
	return Backend{}
}

func (Backend) Name() string {
	return "native"
}

func (Backend) Open(workdir string) (git.Repository, error) {
	abs, err := filepath.Abs(workdir)
	if err != nil {
		return nil, git.IOError("open repository", err)
	}
	repo, err := gitlib.PlainOpenWithOptions(abs, &gitlib.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, gitlib.ErrRepositoryNotExists) {
			return nil, git.NotARepository(abs)
		}
		return nil, git.WrapBackend("open repository", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		// bare repositories have no worktree to show
		return nil, git.Unsupported("open repository", err.Error())
	}
	root := wt.Filesystem.Root()
	return &repository{
		repo:   repo,
		path:   root,
		gitDir: gitDirOf(repo, root),
	}, nil
}

// gitDirOf returns where the repository keeps its metadata. For a ".git"
// file go-git has already followed the gitdir line.
func gitDirOf(repo *gitlib.Repository, root string) string {
	if st, ok := repo.Storer.(*filesystem.Storage); ok {
		if dir := st.Filesystem().Root(); dir != "" {
			return dir
		}
	}
	return filepath.Join(root, ".git")
}

func (Backend) Clone(url, dest string, progress func(line string)) (domain.CommandOutput, error) {
	out := domain.CommandOutput{Command: "go-git clone " + url + " " + dest}
	w := &progressWriter{emit: progress}
	_, err := gitlib.PlainClone(dest, false, &gitlib.CloneOptions{URL: url, Progress: w})
	w.flush()
	out.Stderr = w.log.String()
	if err != nil {
		out.ExitCode = 1
		return out, git.WrapBackend(out.Command, err)
	}
	return out, nil
}

// progressWriter turns the sideband progress stream into lines.
type progressWriter struct {
	emit    func(string)
	pending strings.Builder
	log     strings.Builder
}

func (w *progressWriter) Write(p []byte) (int, error) {
	for _, b := range p {
		if b == '\r' || b == '\n' {
			w.flush()
			continue
		}
		w.pending.WriteByte(b)
	}
	return len(p), nil
}

func (w *progressWriter) flush() {
	line := strings.TrimSpace(w.pending.String())
	w.pending.Reset()
	if line == "" {
		return
	}
	w.log.WriteString(line)
	w.log.WriteByte('\n')
	if w.emit != nil {
		w.emit(line)
	}
}

type repository struct {
	// go-git repositories are not safe for concurrent use; every call
	// takes mu.
	mu     sync.Mutex
	repo   *gitlib.Repository
	path   string
	gitDir string
}

func (r *repository) Spec() domain.RepoSpec {
	return domain.RepoSpec{Workdir: r.path, GitDir: r.gitDir}
}

func unsupported(op string) error {
	return git.Unsupported(op, "not available in the go-git backend")
}

func output(command string) domain.CommandOutput {
	return domain.CommandOutput{Command: "go-git " + command}
}

func failed(out domain.CommandOutput, err error) (domain.CommandOutput, error) {
	out.ExitCode = 1
	out.Stderr = err.Error()
	return out, git.WrapBackend(out.Command, err)
}
