package domain

import (
	"fmt"
	"strings"
)

type DiffArea uint8

const (
	DiffAreaUnstaged DiffArea = iota
	DiffAreaStaged
)

func (a DiffArea) String() string {
	if a == DiffAreaStaged {
		return "staged"
	}
	return "unstaged"
}

type DiffTargetKind uint8

const (
	DiffTargetWorkingTree DiffTargetKind = iota
	DiffTargetCommit
)

// DiffTarget names what a diff view shows: a working tree path in one area,
// or a commit optionally narrowed to one path. It is comparable and is used
// as the correlation key of diff loads.
type DiffTarget struct {
	Kind   DiffTargetKind
	Path   string
	Area   DiffArea
	Commit CommitID
}

func WorkingTreeTarget(path string, area DiffArea) DiffTarget {
	return DiffTarget{Kind: DiffTargetWorkingTree, Path: path, Area: area}
}

func CommitTarget(id CommitID, path string) DiffTarget {
	return DiffTarget{Kind: DiffTargetCommit, Commit: id, Path: path}
}

func (t DiffTarget) String() string {
	if t.Kind == DiffTargetCommit {
		if t.Path == "" {
			return "commit " + t.Commit.Short()
		}
		return fmt.Sprintf("commit %s:%s", t.Commit.Short(), t.Path)
	}
	return fmt.Sprintf("%s:%s", t.Area, t.Path)
}

var imageExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".bmp": {},
	".webp": {}, ".ico": {}, ".svg": {}, ".tif": {}, ".tiff": {},
}

// HasFilePreview reports whether the target names a single file whose old
// and new contents can be previewed.
func (t DiffTarget) HasFilePreview() bool {
	return t.Path != ""
}

// IsImage reports whether the preview of the target should be an image
// preview rather than a text one. Only the file extension is considered.
func (t DiffTarget) IsImage() bool {
	if !t.HasFilePreview() {
		return false
	}
	ix := strings.LastIndexByte(t.Path, '.')
	if ix < 0 || strings.ContainsRune(t.Path[ix:], '/') {
		return false
	}
	_, ok := imageExtensions[strings.ToLower(t.Path[ix:])]
	return ok
}

type DiffLineKind uint8

const (
	DiffLineHeader DiffLineKind = iota
	DiffLineHunk
	DiffLineAdd
	DiffLineRemove
	DiffLineContext
)

func (k DiffLineKind) String() string {
	switch k {
	case DiffLineHeader:
		return "header"
	case DiffLineHunk:
		return "hunk"
	case DiffLineAdd:
		return "add"
	case DiffLineRemove:
		return "remove"
	default:
		return "context"
	}
}

type DiffLine struct {
	Kind DiffLineKind
	Text string
}

type Diff struct {
	Target DiffTarget
	Lines  []DiffLine
}

// FileDiffText carries both sides of a file for a text preview. A nil side
// means the file does not exist on that side.
type FileDiffText struct {
	Path     string
	Old      *string
	New      *string
	Language string
}

type FileDiffImage struct {
	Path string
	Old  []byte
	New  []byte
}
