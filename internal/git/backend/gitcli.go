// Package backend implements the repository collaborator by shelling out to
// the git executable.
package backend

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/thiagokokada/gitk-core/internal/domain"
	"github.com/thiagokokada/gitk-core/internal/git"
)

// CLI is the git.Backend backed by the git binary found in PATH.
type CLI struct{}

func NewCLI() CLI {
	return CLI{}
}

func (CLI) Name() string {
	return "cli"
}

func (CLI) Open(workdir string) (git.Repository, error) {
	if err := ensureMinGitVersion(); err != nil {
		return nil, git.IOError("git --version", err)
	}
	abs, err := filepath.Abs(workdir)
	if err != nil {
		return nil, git.IOError("open repository", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, git.IOError("open repository", err)
	}
	out, err := runGit(abs, "", false, "rev-parse", "--show-toplevel", "--absolute-git-dir")
	if err != nil {
		if errors.Is(err, git.ErrNotARepository) {
			return nil, git.NotARepository(abs)
		}
		return nil, err
	}
	lines := strings.Split(strings.TrimSpace(out.Stdout), "\n")
	if len(lines) != 2 || lines[0] == "" {
		return nil, git.BackendError("open repository", fmt.Sprintf("unexpected rev-parse output %q", out.Stdout))
	}
	return &gitCLI{path: lines[0], gitDir: lines[1]}, nil
}

type gitCLI struct {
	path   string
	gitDir string

	// mu serializes commands that write the index or refs.
	mu sync.Mutex
}

func (g *gitCLI) Spec() domain.RepoSpec {
	return domain.RepoSpec{Workdir: g.path, GitDir: g.gitDir}
}

// read runs a read-only command. Optional locks are disabled so reads never
// race with index writers over index.lock.
func (g *gitCLI) read(allowExit1 bool, args ...string) (string, error) {
	out, err := runGit(g.path, "", allowExit1, append([]string{"--no-optional-locks"}, args...)...)
	return out.Stdout, err
}

func (g *gitCLI) mutate(args ...string) (domain.CommandOutput, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return runGit(g.path, "", false, args...)
}

func (g *gitCLI) mutateWithInput(input string, args ...string) (domain.CommandOutput, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return runGit(g.path, input, false, args...)
}

func runGit(dir, input string, allowExit1 bool, args ...string) (domain.CommandOutput, error) {
	out := domain.CommandOutput{Command: describeCommand(args)}
	if dir == "" {
		return out, git.BackendError(out.Command, "repository root not set")
	}
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "GIT_EDITOR=true", "LC_ALL=C")
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	out.Stdout = stdout.String()
	out.Stderr = stderr.String()
	if err == nil {
		return out, nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return out, git.IOError(out.Command, err)
	}
	out.ExitCode = exitErr.ExitCode()
	if allowExit1 && out.ExitCode == 1 && stderr.Len() == 0 {
		// git diff and friends signal "differences found" this way
		return out, nil
	}
	return out, classifyFailure(dir, out, err)
}

func classifyFailure(dir string, out domain.CommandOutput, err error) error {
	msg := strings.TrimSpace(out.Stderr)
	if strings.Contains(msg, "not a git repository") {
		return git.NotARepository(dir)
	}
	if msg == "" {
		msg = err.Error()
	}
	return git.BackendError(out.Command, msg)
}

// describeCommand renders args the way a user would type them, skipping the
// global flags we add for every read.
func describeCommand(args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, "git")
	for _, arg := range args {
		if arg == "--no-optional-locks" || arg == "--no-pager" {
			continue
		}
		if arg == "" || strings.ContainsAny(arg, " \t\n\"'") {
			arg = fmt.Sprintf("%q", arg)
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

func (g *gitCLI) gitPath(name string) string {
	return filepath.Join(g.gitDir, name)
}
