package backend

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/thiagokokada/gitk-core/internal/domain"
	"github.com/thiagokokada/gitk-core/internal/git"
)

// NUL-delimited records; commit messages cannot contain NUL.
const logFormat = "%H%n%P%n%an%n%ae%n%aI%n%cn%n%ce%n%cI%n%B%x00"

func (g *gitCLI) LogPage(scope domain.LogScope, limit int, cursor *domain.LogCursor) (domain.LogPage, error) {
	if limit <= 0 {
		return domain.LogPage{}, git.BackendError("git log", "page size must be positive")
	}
	var from domain.CommitID
	skip := 0
	if cursor != nil {
		from = cursor.From
		skip = cursor.Skip
	} else if scope == domain.LogScopeCurrentBranch {
		head, err := g.read(true, "rev-parse", "-q", "--verify", "HEAD")
		if err != nil {
			return domain.LogPage{}, err
		}
		from = domain.CommitID(strings.TrimSpace(head))
		if from == "" {
			// unborn branch
			return domain.LogPage{}, nil
		}
	}

	args := []string{"--skip=" + strconv.Itoa(skip), "--max-count=" + strconv.Itoa(limit+1)}
	if scope == domain.LogScopeAllBranches && from == "" {
		args = append(args, "--branches", "--remotes", "--tags", "HEAD")
	} else {
		args = append(args, string(from))
	}
	stream, err := startGitLogStream(g.path, args...)
	if err != nil {
		return domain.LogPage{}, err
	}
	defer stream.Close()

	page := domain.LogPage{Commits: make([]domain.Commit, 0, limit)}
	for {
		commit, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return domain.LogPage{}, err
		}
		if len(page.Commits) == limit {
			page.Next = &domain.LogCursor{From: from, Skip: skip + limit}
			break
		}
		page.Commits = append(page.Commits, commit.Commit)
	}
	return page, nil
}

func (g *gitCLI) CommitDetails(id domain.CommitID) (domain.CommitDetails, error) {
	if id == "" {
		return domain.CommitDetails{}, git.BackendError("git show", "commit not specified")
	}
	out, err := g.read(false, "show", "--no-color", "--no-patch", "--pretty=tformat:"+logFormat, string(id))
	if err != nil {
		return domain.CommitDetails{}, err
	}
	rec := strings.TrimRight(out, "\n")
	rec = strings.TrimSuffix(rec, "\x00")
	details, err := parseGitLogRecord([]byte(rec))
	if err != nil {
		return domain.CommitDetails{}, git.WrapBackend("git show", err)
	}

	args := []string{"diff-tree", "--no-commit-id", "-r", "-z", "--name-status", "-M"}
	if len(details.ParentIDs) == 0 {
		args = append(args, "--root")
	}
	files, err := g.read(false, append(args, string(id))...)
	if err != nil {
		return domain.CommitDetails{}, err
	}
	details.Files = parseNameStatusZ(files)
	return *details, nil
}

func (g *gitCLI) Reflog(limit int) ([]domain.ReflogEntry, error) {
	args := []string{"reflog", "show", "--no-color", "--format=%H%x00%gd%x00%gs"}
	if limit > 0 {
		args = append(args, "--max-count="+strconv.Itoa(limit))
	}
	out, err := g.read(false, append(args, "HEAD")...)
	if err != nil {
		// A repository without commits has no HEAD reflog yet.
		if strings.Contains(err.Error(), "unknown revision") || strings.Contains(err.Error(), "does not have any commits") {
			return nil, nil
		}
		return nil, err
	}
	var entries []domain.ReflogEntry
	for i, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		fields := strings.SplitN(line, "\x00", 3)
		if len(fields) != 3 {
			continue
		}
		entries = append(entries, domain.ReflogEntry{
			Index:    i,
			New:      domain.CommitID(fields[0]),
			Selector: fields[1],
			Message:  fields[2],
		})
	}
	return entries, nil
}

// parseNameStatusZ parses "git diff-tree --name-status -z" output.
func parseNameStatusZ(out string) []domain.CommitFileChange {
	fields := strings.Split(strings.TrimRight(out, "\x00"), "\x00")
	var files []domain.CommitFileChange
	for i := 0; i < len(fields); i++ {
		status := fields[i]
		if status == "" {
			continue
		}
		var kind domain.FileStatusKind
		paths := 1
		switch status[0] {
		case 'A':
			kind = domain.FileStatusAdded
		case 'D':
			kind = domain.FileStatusDeleted
		case 'R', 'C':
			kind = domain.FileStatusRenamed
			paths = 2
		case 'U':
			kind = domain.FileStatusConflicted
		default:
			kind = domain.FileStatusModified
		}
		if i+paths >= len(fields) {
			break
		}
		files = append(files, domain.CommitFileChange{Path: fields[i+paths], Kind: kind})
		i += paths
	}
	return files
}

type gitLogStream struct {
	cancel context.CancelFunc
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer
	r      *bufio.Reader

	waitOnce sync.Once
	waitErr  error
}

func startGitLogStream(repoPath string, revArgs ...string) (*gitLogStream, error) {
	if repoPath == "" {
		return nil, git.BackendError("git log", "repository root not set")
	}
	args := []string{
		"--no-pager",
		"--no-optional-locks",
		"-C",
		repoPath,
		"log",
		"--no-color",
		"--no-decorate",
		"--date-order",
		"--no-patch",
		// tformat keeps git from adding a separator newline after each record
		"--pretty=tformat:" + logFormat,
	}
	args = append(args, revArgs...)
	args = append(args, "--")

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, "git", args...)
	var stream gitLogStream
	stream.cancel = cancel
	stream.cmd = cmd
	cmd.Stderr = &stream.stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, git.IOError("git log", err)
	}
	stream.stdout = stdout
	stream.r = bufio.NewReader(stdout)
	if err := cmd.Start(); err != nil {
		cancel()
		_ = stdout.Close()
		return nil, git.IOError("git log", err)
	}
	return &stream, nil
}

type logRecord struct {
	domain.CommitDetails
}

func (s *gitLogStream) Next() (*logRecord, error) {
	rec, err := s.r.ReadBytes(0)
	if err != nil {
		if err == io.EOF {
			if waitErr := s.wait(); waitErr != nil {
				return nil, waitErr
			}
			return nil, io.EOF
		}
		return nil, git.IOError("git log", err)
	}
	rec = rec[:len(rec)-1]
	// records after the first start with the newline tformat appends
	for len(rec) > 0 && (rec[0] == '\n' || rec[0] == '\r') {
		rec = rec[1:]
	}
	if len(rec) == 0 {
		return nil, git.BackendError("git log", "unexpected empty record")
	}
	details, err := parseGitLogRecord(rec)
	if err != nil {
		return nil, git.WrapBackend("git log", err)
	}
	return &logRecord{CommitDetails: *details}, nil
}

func (s *gitLogStream) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.stdout != nil {
		_ = s.stdout.Close()
	}
	// Wait reports the cancellation as a failure; the page is already read.
	_ = s.wait()
	return nil
}

func (s *gitLogStream) wait() error {
	s.waitOnce.Do(func() {
		s.waitErr = s.cmd.Wait()
	})
	if s.waitErr == nil {
		return nil
	}
	if msg := strings.TrimSpace(s.stderr.String()); msg != "" {
		return git.BackendError("git log", msg)
	}
	return git.WrapBackend("git log", s.waitErr)
}

func parseGitLogRecord(rec []byte) (*domain.CommitDetails, error) {
	parts := strings.Split(string(rec), "\n")
	if len(parts) < 8 {
		return nil, fmt.Errorf("unexpected git log record: got %d lines", len(parts))
	}
	hash := strings.TrimSpace(parts[0])
	if hash == "" {
		return nil, fmt.Errorf("missing commit hash")
	}
	var parents []domain.CommitID
	for _, p := range strings.Fields(parts[1]) {
		parents = append(parents, domain.CommitID(p))
	}
	authorWhen, _ := time.Parse(time.RFC3339, parts[4])
	committerWhen, _ := time.Parse(time.RFC3339, parts[7])
	message := ""
	if len(parts) > 8 {
		message = strings.Join(parts[8:], "\n")
	}
	summary, _, _ := strings.Cut(message, "\n")
	return &domain.CommitDetails{
		Commit: domain.Commit{
			ID:        domain.CommitID(hash),
			ParentIDs: parents,
			Author:    domain.Signature{Name: parts[2], Email: parts[3], When: authorWhen},
			Committer: domain.Signature{Name: parts[5], Email: parts[6], When: committerWhen},
			Summary:   strings.TrimSpace(summary),
		},
		Message: message,
	}, nil
}
