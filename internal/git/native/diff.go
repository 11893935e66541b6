package native

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	fdiff "github.com/go-git/go-git/v5/plumbing/format/diff"
	gitindex "github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/thiagokokada/gitk-core/internal/domain"
	"github.com/thiagokokada/gitk-core/internal/git"
)

func (r *repository) DiffText(target domain.DiffTarget) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if target.Kind == domain.DiffTargetCommit {
		return r.commitDiffText(target.Commit, target.Path)
	}
	return r.worktreeDiffText(target.Path, target.Area == domain.DiffAreaStaged)
}

func (r *repository) commitDiffText(id domain.CommitID, path string) (string, error) {
	if id == "" {
		return "", git.BackendError("diff commit", "commit not specified")
	}
	c, err := r.commit(id)
	if err != nil {
		return "", err
	}
	changes, err := commitChanges(c)
	if err != nil {
		return "", git.WrapBackend("diff commit", err)
	}
	if path != "" {
		filtered := changes[:0]
		for _, ch := range changes {
			if ch.From.Name == path || ch.To.Name == path {
				filtered = append(filtered, ch)
			}
		}
		changes = filtered
	}
	if len(changes) == 0 {
		return "", nil
	}
	patch, err := changes.Patch()
	if err != nil {
		return "", git.WrapBackend("diff commit", err)
	}
	var b strings.Builder
	if err := fdiff.NewUnifiedEncoder(&b, fdiff.DefaultContextLines).Encode(patch); err != nil {
		return "", git.WrapBackend("encode patch", err)
	}
	return b.String(), nil
}

type localChange struct {
	path string
	from *object.File
	to   *object.File
}

func (r *repository) worktreeDiffText(path string, staged bool) (string, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return "", git.WrapBackend("diff", err)
	}
	status, err := wt.Status()
	if err != nil {
		return "", git.WrapBackend("diff", err)
	}
	headTree, err := r.headTree()
	if err != nil {
		return "", err
	}
	idx, err := r.repo.Storer.Index()
	if err != nil {
		return "", git.WrapBackend("read index", err)
	}
	var paths []string
	for p, st := range status {
		if path != "" && p != path {
			continue
		}
		var include bool
		if staged {
			include = st.Staging != gitlib.Unmodified && st.Staging != gitlib.Untracked
		} else {
			// untracked files are shown only when asked for by name
			include = st.Worktree != gitlib.Unmodified && (st.Worktree != gitlib.Untracked || path != "")
		}
		if include {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	var diffs []localChange
	for _, p := range paths {
		var from, to *object.File
		if staged {
			if from, err = fileFromTree(headTree, p); err == nil {
				to, err = fileFromIndex(idx, r.repo, p)
			}
		} else {
			if from, err = fileFromIndex(idx, r.repo, p); err == nil {
				to, err = fileFromDisk(r.path, p)
			}
		}
		if err != nil {
			return "", git.WrapBackend("diff "+p, err)
		}
		if from == nil && to == nil {
			continue
		}
		diffs = append(diffs, localChange{path: p, from: from, to: to})
	}
	text, err := renderLocalDiff(diffs)
	if err != nil {
		return "", git.WrapBackend("diff", err)
	}
	return text, nil
}

func (r *repository) headTree() (*object.Tree, error) {
	head, err := r.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, git.WrapBackend("read HEAD", err)
	}
	c, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, git.WrapBackend("read HEAD commit", err)
	}
	tree, err := c.Tree()
	if err != nil {
		return nil, git.WrapBackend("read HEAD tree", err)
	}
	return tree, nil
}

func fileFromTree(tree *object.Tree, path string) (*object.File, error) {
	if tree == nil {
		return nil, nil
	}
	f, err := tree.File(path)
	if errors.Is(err, object.ErrFileNotFound) {
		return nil, nil
	}
	return f, err
}

func fileFromIndex(idx *gitindex.Index, repo *gitlib.Repository, path string) (*object.File, error) {
	if idx == nil {
		return nil, nil
	}
	entry, err := idx.Entry(path)
	if errors.Is(err, gitindex.ErrEntryNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	blob, err := object.GetBlob(repo.Storer, entry.Hash)
	if err != nil {
		return nil, err
	}
	return object.NewFile(entry.Name, entry.Mode, blob), nil
}

func fileFromDisk(root, path string) (*object.File, error) {
	full := filepath.Join(root, path)
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	mem := &plumbing.MemoryObject{}
	mem.SetType(plumbing.BlobObject)
	if _, err := mem.Write(data); err != nil {
		return nil, err
	}
	blob, err := object.DecodeBlob(mem)
	if err != nil {
		return nil, err
	}
	mode := filemode.Regular
	if info, err := os.Lstat(full); err == nil {
		if m, err := filemode.NewFromOSFileMode(info.Mode()); err == nil {
			mode = m
		}
	}
	return object.NewFile(path, mode, blob), nil
}

// renderLocalDiff writes the changes in the layout git diff uses so the
// annotation engine treats both backends alike.
func renderLocalDiff(diffs []localChange) (string, error) {
	var b strings.Builder
	for _, d := range diffs {
		fmt.Fprintf(&b, "diff --git a/%s b/%s\n", d.path, d.path)
		fromName, toName := "a/"+d.path, "b/"+d.path
		switch {
		case d.from == nil:
			fmt.Fprintf(&b, "new file mode %o\n", uint32(d.to.Mode))
			fromName = "/dev/null"
		case d.to == nil:
			fmt.Fprintf(&b, "deleted file mode %o\n", uint32(d.from.Mode))
			toName = "/dev/null"
		}
		isBinary, err := binaryChange(d)
		if err != nil {
			return "", err
		}
		if isBinary {
			fmt.Fprintf(&b, "Binary files %s and %s differ\n", fromName, toName)
			continue
		}
		fromLines, err := fileLines(d.from)
		if err != nil {
			return "", err
		}
		toLines, err := fileLines(d.to)
		if err != nil {
			return "", err
		}
		text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        fromLines,
			B:        toLines,
			FromFile: fromName,
			ToFile:   toName,
			Context:  fdiff.DefaultContextLines,
		})
		if err != nil {
			return "", err
		}
		b.WriteString(text)
		if text != "" && !strings.HasSuffix(text, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

func binaryChange(ch localChange) (bool, error) {
	for _, f := range []*object.File{ch.from, ch.to} {
		if f == nil {
			continue
		}
		bin, err := f.IsBinary()
		if err != nil || bin {
			return bin, err
		}
	}
	return false, nil
}

func fileLines(f *object.File) ([]string, error) {
	if f == nil {
		return []string{}, nil
	}
	content, err := f.Contents()
	if err != nil {
		return nil, err
	}
	if content == "" {
		return []string{}, nil
	}
	lines := difflib.SplitLines(content)
	// SplitLines appends an empty trailing element for text ending in a newline
	if n := len(lines); n > 0 && lines[n-1] == "\n" && strings.HasSuffix(content, "\n") {
		lines = lines[:n-1]
	}
	return lines, nil
}

func (r *repository) FileText(target domain.DiffTarget) (*domain.FileDiffText, error) {
	oldData, newData, err := r.fileSides(target)
	if err != nil {
		return nil, err
	}
	return &domain.FileDiffText{Path: target.Path, Old: textOrNil(oldData), New: textOrNil(newData)}, nil
}

func (r *repository) FileImage(target domain.DiffTarget) (*domain.FileDiffImage, error) {
	oldData, newData, err := r.fileSides(target)
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

func (r *repository) fileSides(target domain.DiffTarget) (oldData, newData []byte, err error) {
	if target.Path == "" {
		return nil, nil, git.BackendError("file preview", "target has no path")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var from, to *object.File
	switch {
	case target.Kind == domain.DiffTargetCommit:
		c, err := r.commit(target.Commit)
		if err != nil {
			return nil, nil, err
		}
		tree, err := c.Tree()
		if err != nil {
			return nil, nil, git.WrapBackend("read tree", err)
		}
		ptree, err := parentTree(c)
		if err != nil {
			return nil, nil, git.WrapBackend("read parent tree", err)
		}
		if from, err = fileFromTree(ptree, target.Path); err == nil {
			to, err = fileFromTree(tree, target.Path)
		}
		if err != nil {
			return nil, nil, git.WrapBackend("read "+target.Path, err)
		}
	default:
		idx, err := r.repo.Storer.Index()
		if err != nil {
			return nil, nil, git.WrapBackend("read index", err)
		}
		if target.Area == domain.DiffAreaStaged {
			headTree, err := r.headTree()
			if err != nil {
				return nil, nil, err
			}
			if from, err = fileFromTree(headTree, target.Path); err == nil {
				to, err = fileFromIndex(idx, r.repo, target.Path)
			}
			if err != nil {
				return nil, nil, git.WrapBackend("read "+target.Path, err)
			}
		} else {
			if from, err = fileFromIndex(idx, r.repo, target.Path); err == nil {
				to, err = fileFromDisk(r.path, target.Path)
			}
			if err != nil {
				return nil, nil, git.WrapBackend("read "+target.Path, err)
			}
		}
	}
	if oldData, err = fileBytes(from); err != nil {
		return nil, nil, git.WrapBackend("read "+target.Path, err)
	}
	if newData, err = fileBytes(to); err != nil {
		return nil, nil, git.WrapBackend("read "+target.Path, err)
	}
	return oldData, newData, nil
}

func fileBytes(f *object.File) ([]byte, error) {
	if f == nil {
		return nil, nil
	}
	rd, err := f.Reader()
	if err != nil {
		return nil, err
	}
	defer rd.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rd); err != nil {
		return nil, err
	}
	// an empty file still exists on that side
	return append([]byte{}, buf.Bytes()...), nil
}

func (r *repository) Blame(path string, rev domain.CommitID) ([]domain.BlameLine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rev == "" {
		rev = "HEAD"
	}
	c, err := r.commit(rev)
	if err != nil {
		return nil, err
	}
	res, err := gitlib.Blame(c, path)
	if err != nil {
		return nil, git.WrapBackend("blame "+path, err)
	}
	out := make([]domain.BlameLine, 0, len(res.Lines))
	for i, l := range res.Lines {
		out = append(out, domain.BlameLine{
			Commit:  domain.CommitID(l.Hash.String()),
			Author:  l.AuthorName,
			When:    l.Date.Unix(),
			LineNo:  uint32(i + 1),
			Content: l.Text,
		})
	}
	return out, nil
}
