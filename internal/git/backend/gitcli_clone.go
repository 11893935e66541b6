package backend

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/thiagokokada/gitk-core/internal/domain"
	"github.com/thiagokokada/gitk-core/internal/git"
)

func (CLI) Clone(url, dest string, progress func(line string)) (domain.CommandOutput, error) {
	args := []string{"clone", "--progress", "--", url, dest}
	out := domain.CommandOutput{Command: describeCommand(args)}
	if err := ensureMinGitVersion(); err != nil {
		return out, git.IOError("git --version", err)
	}

	cmd := exec.Command("git", args...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "LC_ALL=C")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return out, git.IOError(out.Command, err)
	}
	if err := cmd.Start(); err != nil {
		return out, git.IOError(out.Command, err)
	}

	var stderr strings.Builder
	scanner := bufio.NewScanner(io.TeeReader(stderrPipe, &stderr))
	scanner.Split(scanProgressLines)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" && progress != nil {
			progress(line)
		}
	}
	// drain whatever the scanner left so Wait does not block on a full pipe
	_, _ = io.Copy(&stderr, stderrPipe)

	err = cmd.Wait()
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
	return out, classifyFailure(dest, out, err)
}

// scanProgressLines splits on both \n and the \r git uses to redraw
// progress counters.
func scanProgressLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
