package backend

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/thiagokokada/gitk-core/internal/domain"
	"github.com/thiagokokada/gitk-core/internal/git"
)

func (g *gitCLI) DiffText(target domain.DiffTarget) (string, error) {
	switch target.Kind {
	case domain.DiffTargetCommit:
		return g.commitDiffText(target.Commit, target.Path)
	default:
		return g.worktreeDiffText(target.Path, target.Area == domain.DiffAreaStaged)
	}
}

func (g *gitCLI) worktreeDiffText(path string, staged bool) (string, error) {
	args := []string{"diff", "--no-color", "--no-ext-diff"}
	if staged {
		args = append(args, "--cached")
	}
	args = append(args, "--")
	if path != "" {
		args = append(args, path)
	}
	out, err := g.read(true, args...)
	if err != nil || out != "" || staged || path == "" {
		return out, err
	}
	untracked, err := g.isUntracked(path)
	if err != nil || !untracked {
		return out, err
	}
	// untracked files have no index entry to diff against
	return g.read(true, "diff", "--no-color", "--no-index", "--", os.DevNull, path)
}

func (g *gitCLI) isUntracked(path string) (bool, error) {
	out, err := g.read(false, "ls-files", "--others", "--exclude-standard", "--", path)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

func (g *gitCLI) commitDiffText(id domain.CommitID, path string) (string, error) {
	if id == "" {
		return "", git.BackendError("git show", "commit not specified")
	}
	parent, err := g.firstParent(id)
	if err != nil {
		return "", err
	}
	var args []string
	if parent != "" {
		args = []string{"diff", "--no-color", "--no-ext-diff", "-M", string(parent), string(id), "--"}
	} else {
		args = []string{"show", "--no-color", "--no-ext-diff", "--pretty=format:", string(id), "--"}
	}
	if path != "" {
		args = append(args, path)
	}
	return g.read(true, args...)
}

func (g *gitCLI) firstParent(id domain.CommitID) (domain.CommitID, error) {
	out, err := g.read(false, "rev-list", "--parents", "-n", "1", string(id))
	if err != nil {
		return "", err
	}
	fields := strings.Fields(out)
	if len(fields) < 2 {
		return "", nil
	}
	return domain.CommitID(fields[1]), nil
}

// sides returns the object specs holding the old and new versions of the
// target's path. An empty new spec means the working tree file.
func (g *gitCLI) sides(target domain.DiffTarget) (oldSpec, newSpec string, err error) {
	switch {
	case target.Kind == domain.DiffTargetCommit:
		parent, err := g.firstParent(target.Commit)
		if err != nil {
			return "", "", err
		}
		if parent != "" {
			oldSpec = string(parent) + ":" + target.Path
		}
		return oldSpec, string(target.Commit) + ":" + target.Path, nil
	case target.Area == domain.DiffAreaStaged:
		return "HEAD:" + target.Path, ":" + target.Path, nil
	default:
		return ":" + target.Path, "", nil
	}
}

func (g *gitCLI) fileSides(target domain.DiffTarget) (oldData, newData []byte, err error) {
	if target.Path == "" {
		return nil, nil, git.BackendError("file preview", "target has no path")
	}
	oldSpec, newSpec, err := g.sides(target)
	if err != nil {
		return nil, nil, err
	}
	if oldSpec != "" {
		if oldData, err = g.blob(oldSpec); err != nil {
			return nil, nil, err
		}
	}
	if newSpec != "" {
		newData, err = g.blob(newSpec)
	} else {
		newData, err = g.worktreeFile(target.Path)
	}
	if err != nil {
		return nil, nil, err
	}
	return oldData, newData, nil
}

// blob returns nil when spec names no object.
func (g *gitCLI) blob(spec string) ([]byte, error) {
	if _, err := g.read(false, "cat-file", "-e", spec); err != nil {
		return nil, nil
	}
	out, err := g.read(false, "cat-file", "blob", spec)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

func (g *gitCLI) worktreeFile(path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(g.path, filepath.FromSlash(path)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, git.IOError("read "+path, err)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

func (g *gitCLI) FileText(target domain.DiffTarget) (*domain.FileDiffText, error) {
	oldData, newData, err := g.fileSides(target)
	if err != nil {
		return nil, err
	}
	return &domain.FileDiffText{Path: target.Path, Old: textOrNil(oldData), New: textOrNil(newData)}, nil
}

func (g *gitCLI) FileImage(target domain.DiffTarget) (*domain.FileDiffImage, error) {
	oldData, newData, err := g.fileSides(target)
	if err != nil {
		return nil, err
	}
	return &domain.FileDiffImage{Path: target.Path, Old: oldData, New: newData}, nil
}

func textOrNil(data []byte) *string {
	if data == nil {
		return nil
	}
	s := string(data)
	return &s
}

func (g *gitCLI) Blame(path string, rev domain.CommitID) ([]domain.BlameLine, error) {
	if path == "" {
		return nil, git.BackendError("git blame", "path not specified")
	}
	args := []string{"blame", "--porcelain"}
	if rev != "" {
		args = append(args, string(rev))
	}
	out, err := g.read(false, append(args, "--", path)...)
	if err != nil {
		return nil, err
	}
	return parseBlamePorcelain(out), nil
}

func parseBlamePorcelain(out string) []domain.BlameLine {
	type commitInfo struct {
		author string
		when   int64
	}
	infos := map[string]*commitInfo{}
	var (
		lines   []domain.BlameLine
		current *commitInfo
		sha     string
		lineNo  uint32
	)
	for _, line := range strings.Split(out, "\n") {
		if content, ok := strings.CutPrefix(line, "\t"); ok {
			bl := domain.BlameLine{Commit: domain.CommitID(sha), LineNo: lineNo, Content: content}
			if current != nil {
				bl.Author = current.author
				bl.When = current.when
			}
			lines = append(lines, bl)
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 3 && (len(fields[0]) == 40 || len(fields[0]) == 64) {
			if n, err := strconv.ParseUint(fields[2], 10, 32); err == nil {
				sha = fields[0]
				lineNo = uint32(n)
				if infos[sha] == nil {
					infos[sha] = &commitInfo{}
				}
				current = infos[sha]
				continue
			}
		}
		if current == nil {
			continue
		}
		if v, ok := strings.CutPrefix(line, "author "); ok {
			current.author = v
		} else if v, ok := strings.CutPrefix(line, "author-time "); ok {
			current.when, _ = strconv.ParseInt(v, 10, 64)
		}
	}
	return lines
}
