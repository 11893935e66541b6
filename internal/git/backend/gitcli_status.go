package backend

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/thiagokokada/gitk-core/internal/domain"
	"github.com/thiagokokada/gitk-core/internal/git"
)

func (g *gitCLI) Status() (domain.RepoStatus, error) {
	out, err := g.read(false, "status", "--porcelain=v2", "-z", "--untracked-files=all")
	if err != nil {
		return domain.RepoStatus{}, err
	}
	status, err := parseStatusPorcelainV2(strings.NewReader(out))
	if err != nil {
		return domain.RepoStatus{}, git.WrapBackend("parse git status", err)
	}
	return status, nil
}

// parseStatusPorcelainV2 parses "git status --porcelain=v2 -z" output.
func parseStatusPorcelainV2(r io.Reader) (domain.RepoStatus, error) {
	var res domain.RepoStatus
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanNUL)
	for scanner.Scan() {
		entry := scanner.Text()
		if len(entry) < 2 {
			continue
		}
		switch entry[0] {
		case '1':
			fields := strings.SplitN(entry, " ", 9)
			if len(fields) != 9 {
				return res, fmt.Errorf("malformed status entry: %q", entry)
			}
			addTracked(&res, fields[1], fields[8], "")
		case '2':
			fields := strings.SplitN(entry, " ", 10)
			if len(fields) != 10 {
				return res, fmt.Errorf("malformed rename entry: %q", entry)
			}
			// the original path follows as its own NUL-terminated field
			if !scanner.Scan() {
				return res, fmt.Errorf("rename entry without original path: %q", entry)
			}
			addTracked(&res, fields[1], fields[9], scanner.Text())
		case 'u':
			fields := strings.SplitN(entry, " ", 11)
			if len(fields) != 11 {
				return res, fmt.Errorf("malformed unmerged entry: %q", entry)
			}
			res.Unstaged = append(res.Unstaged, domain.FileStatus{Path: fields[10], Kind: domain.FileStatusConflicted})
		case '?':
			res.Unstaged = append(res.Unstaged, domain.FileStatus{Path: entry[2:], Kind: domain.FileStatusUntracked})
		default:
			// '!' ignored and '#' headers
		}
	}
	return res, scanner.Err()
}

func addTracked(res *domain.RepoStatus, xy, path, orig string) {
	if len(xy) != 2 {
		return
	}
	if kind, ok := statusKind(xy[0]); ok {
		res.Staged = append(res.Staged, domain.FileStatus{Path: path, Kind: kind, OrigPath: orig})
	}
	if kind, ok := statusKind(xy[1]); ok {
		st := domain.FileStatus{Path: path, Kind: kind}
		if kind == domain.FileStatusRenamed {
			st.OrigPath = orig
		}
		res.Unstaged = append(res.Unstaged, st)
	}
}

func statusKind(c byte) (domain.FileStatusKind, bool) {
	switch c {
	case 'M', 'T':
		return domain.FileStatusModified, true
	case 'A':
		return domain.FileStatusAdded, true
	case 'D':
		return domain.FileStatusDeleted, true
	case 'R', 'C':
		return domain.FileStatusRenamed, true
	case 'U':
		return domain.FileStatusConflicted, true
	default:
		return 0, false
	}
}

func scanNUL(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, 0); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func (g *gitCLI) StashList() ([]domain.StashEntry, error) {
	out, err := g.read(false, "stash", "list", "--format=%gd%x00%H%x00%gs")
	if err != nil {
		return nil, err
	}
	return parseStashList(out), nil
}

func parseStashList(out string) []domain.StashEntry {
	var entries []domain.StashEntry
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		fields := strings.SplitN(line, "\x00", 3)
		if len(fields) != 3 {
			continue
		}
		idx, ok := stashIndex(fields[0])
		if !ok {
			continue
		}
		entries = append(entries, domain.StashEntry{Index: idx, ID: domain.CommitID(fields[1]), Message: fields[2]})
	}
	return entries
}

// stashIndex extracts N from "stash@{N}".
func stashIndex(selector string) (int, bool) {
	rest, ok := strings.CutPrefix(selector, "stash@{")
	if !ok {
		return 0, false
	}
	num, ok := strings.CutSuffix(rest, "}")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(num)
	return n, err == nil
}

func (g *gitCLI) Worktrees() ([]domain.Worktree, error) {
	out, err := g.read(false, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}
	return parseWorktreeList(out), nil
}

func parseWorktreeList(out string) []domain.Worktree {
	var (
		list []domain.Worktree
		cur  *domain.Worktree
	)
	flush := func() {
		if cur != nil {
			list = append(list, *cur)
			cur = nil
		}
	}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			flush()
			continue
		}
		key, value, _ := strings.Cut(line, " ")
		if key == "worktree" {
			flush()
			cur = &domain.Worktree{Path: value}
			continue
		}
		if cur == nil {
			continue
		}
		switch key {
		case "HEAD":
			cur.Head = domain.CommitID(value)
		case "branch":
			cur.Branch = strings.TrimPrefix(value, "refs/heads/")
		case "detached":
			cur.Detached = true
		case "bare":
			cur.Bare = true
		case "locked":
			cur.Locked = true
		}
	}
	flush()
	return list
}

func (g *gitCLI) Submodules() ([]domain.Submodule, error) {
	if _, err := os.Stat(filepath.Join(g.path, ".gitmodules")); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	out, err := g.read(false, "submodule", "status")
	if err != nil {
		return nil, err
	}
	return parseSubmoduleStatus(out), nil
}

func parseSubmoduleStatus(out string) []domain.Submodule {
	var subs []domain.Submodule
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 2 {
			continue
		}
		var status domain.SubmoduleStatus
		switch line[0] {
		case '-':
			status = domain.SubmoduleNotInitialized
		case '+':
			status = domain.SubmoduleOutOfSync
		case 'U':
			status = domain.SubmoduleConflicted
		default:
			status = domain.SubmoduleUpToDate
		}
		fields := strings.Fields(line[1:])
		if len(fields) < 2 {
			continue
		}
		sub := domain.Submodule{Head: domain.CommitID(fields[0]), Path: fields[1], Status: status}
		if len(fields) > 2 {
			sub.Describe = strings.Trim(strings.Join(fields[2:], " "), "()")
		}
		subs = append(subs, sub)
	}
	return subs
}

func (g *gitCLI) RebaseInProgress() (bool, error) {
	for _, dir := range []string{"rebase-merge", "rebase-apply"} {
		_, err := os.Stat(g.gitPath(dir))
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return false, git.IOError("stat "+dir, err)
		}
	}
	return false, nil
}

func (g *gitCLI) MergeCommitMessage() (*string, error) {
	if _, err := os.Stat(g.gitPath("MERGE_HEAD")); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	data, err := os.ReadFile(g.gitPath("MERGE_MSG"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, git.IOError("read MERGE_MSG", err)
	}
	msg := string(data)
	return &msg, nil
}
