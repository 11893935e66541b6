package diff

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/thiagokokada/gitk-core/internal/domain"
)

var (
	ErrNotInHunk    = errors.New("line is not inside a hunk")
	ErrNoFileHeader = errors.New("hunk has no file header")
	ErrMixedHunks   = errors.New("selected lines span more than one hunk")
	ErrNoChanges    = errors.New("selection contains no added or removed lines")
)

// hunkBounds locates the pieces of a diff needed to rebuild a patch around
// one source line: the file header block [fileStart, hunkIx) and the hunk
// [hunkIx, end).
type hunkBounds struct {
	fileStart int
	hunkIx    int
	end       int
}

func isNoNewlineMarker(l domain.DiffLine) bool {
	return strings.HasPrefix(l.Text, `\`)
}

func inHunkBody(l domain.DiffLine) bool {
	switch l.Kind {
	case domain.DiffLineAdd, domain.DiffLineRemove, domain.DiffLineContext:
		return true
	case domain.DiffLineHeader:
		return isNoNewlineMarker(l)
	default:
		return false
	}
}

func locateHunk(lines []domain.DiffLine, srcIx int) (hunkBounds, error) {
	if srcIx < 0 || srcIx >= len(lines) {
		return hunkBounds{}, fmt.Errorf("line %d: %w", srcIx, ErrNotInHunk)
	}
	b := hunkBounds{hunkIx: -1}
	for i := srcIx; i >= 0; i-- {
		if lines[i].Kind == domain.DiffLineHunk {
			b.hunkIx = i
			break
		}
		if !inHunkBody(lines[i]) {
			break
		}
	}
	if b.hunkIx < 0 {
		return hunkBounds{}, fmt.Errorf("line %d: %w", srcIx, ErrNotInHunk)
	}
	b.end = hunkEnd(lines, b.hunkIx)
	if srcIx >= b.end {
		return hunkBounds{}, fmt.Errorf("line %d: %w", srcIx, ErrNotInHunk)
	}
	// the header block runs from the file header to the file's first hunk
	for i := b.hunkIx; i >= 0; i-- {
		if lines[i].Kind == domain.DiffLineHeader && IsFileHeader(lines[i].Text) {
			b.fileStart = i
			break
		}
	}
	headerEnd := b.fileStart
	for headerEnd < b.hunkIx && lines[headerEnd].Kind != domain.DiffLineHunk {
		headerEnd++
	}
	if !hasSideHeaders(lines[b.fileStart:headerEnd]) {
		return hunkBounds{}, fmt.Errorf("line %d: %w", srcIx, ErrNoFileHeader)
	}
	return b, nil
}

// hunkEnd returns the index just past the body of the hunk at hunkIx. The
// header's counts bound the body; a no-newline marker right after its last
// line still belongs to it.
func hunkEnd(lines []domain.DiffLine, hunkIx int) int {
	end := hunkIx + 1
	h, ok := ParseHunkHeader(lines[hunkIx].Text)
	if !ok {
		for end < len(lines) && inHunkBody(lines[end]) {
			end++
		}
		return end
	}
	oldLeft, newLeft := h.OldCount, h.NewCount
	for ; end < len(lines); end++ {
		l := lines[end]
		if l.Kind == domain.DiffLineHeader && isNoNewlineMarker(l) {
			continue
		}
		switch {
		case oldLeft == 0 && newLeft == 0:
			return end
		case l.Kind == domain.DiffLineContext && oldLeft > 0 && newLeft > 0:
			oldLeft--
			newLeft--
		case l.Kind == domain.DiffLineRemove && oldLeft > 0:
			oldLeft--
		case l.Kind == domain.DiffLineAdd && newLeft > 0:
			newLeft--
		default:
			return end
		}
	}
	return end
}

func hasSideHeaders(header []domain.DiffLine) bool {
	var oldSide, newSide bool
	for _, l := range header {
		oldSide = oldSide || strings.HasPrefix(l.Text, "--- ")
		newSide = newSide || strings.HasPrefix(l.Text, "+++ ")
	}
	return oldSide && newSide
}

func writeFileHeader(b *strings.Builder, lines []domain.DiffLine, bounds hunkBounds) {
	for _, l := range lines[bounds.fileStart:bounds.hunkIx] {
		if l.Kind == domain.DiffLineHunk {
			break
		}
		b.WriteString(l.Text)
		b.WriteByte('\n')
	}
}

// HunkPatch returns a patch holding the file header and the whole hunk that
// contains srcIx, ready for git apply in either direction.
func HunkPatch(lines []domain.DiffLine, srcIx int) (string, error) {
	bounds, err := locateHunk(lines, srcIx)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	writeFileHeader(&b, lines, bounds)
	for _, l := range lines[bounds.hunkIx:bounds.end] {
		b.WriteString(l.Text)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// LinesPatch returns a single-hunk patch that applies only the selected
// added and removed lines of one hunk.
//
// A forward patch (staging) keeps the old side intact: unselected removals
// turn into context and unselected additions are dropped. A reverse patch
// (unstaging, discarding) is applied with git apply --reverse, so the new
// side must stay intact instead: unselected additions turn into context and
// unselected removals are dropped.
func LinesPatch(lines []domain.DiffLine, srcIxs []int, reverse bool) (string, error) {
	if len(srcIxs) == 0 {
		return "", ErrNoChanges
	}
	bounds, err := locateHunk(lines, srcIxs[0])
	if err != nil {
		return "", err
	}
	selected := make(map[int]bool, len(srcIxs))
	for _, ix := range srcIxs {
		if ix <= bounds.hunkIx || ix >= bounds.end {
			return "", fmt.Errorf("line %d: %w", ix, ErrMixedHunks)
		}
		selected[ix] = true
	}
	h, ok := ParseHunkHeader(lines[bounds.hunkIx].Text)
	if !ok {
		return "", fmt.Errorf("line %d: malformed hunk header %q", bounds.hunkIx, lines[bounds.hunkIx].Text)
	}

	var body []patchLine
	changes := 0
	kept := false
	for ix := bounds.hunkIx + 1; ix < bounds.end; ix++ {
		l := lines[ix]
		switch l.Kind {
		case domain.DiffLineContext:
			body = append(body, patchLine{op: ' ', text: lineContent(l.Text)})
			kept = true
		case domain.DiffLineRemove:
			switch {
			case selected[ix]:
				body = append(body, patchLine{op: '-', text: l.Text[1:]})
				changes++
				kept = true
			case reverse:
				kept = false
			default:
				body = append(body, patchLine{op: ' ', text: l.Text[1:]})
				kept = true
			}
		case domain.DiffLineAdd:
			switch {
			case selected[ix]:
				body = append(body, patchLine{op: '+', text: l.Text[1:]})
				changes++
				kept = true
			case reverse:
				body = append(body, patchLine{op: ' ', text: l.Text[1:]})
				kept = true
			default:
				kept = false
			}
		default:
			// the no-newline marker follows the line it describes
			if kept && isNoNewlineMarker(l) {
				body[len(body)-1].marker = l.Text
			}
		}
	}
	if changes == 0 {
		return "", ErrNoChanges
	}
	body = settleMissingNewlines(body)

	var oldCount, newCount uint32
	for _, pl := range body {
		if pl.op != '+' {
			oldCount++
		}
		if pl.op != '-' {
			newCount++
		}
	}
	out := HunkHeader{OldCount: oldCount, NewCount: newCount, Heading: h.Heading}
	if reverse {
		out.NewStart = h.NewStart
		out.OldStart = alignStart(h.NewStart, newCount, oldCount)
	} else {
		out.OldStart = h.OldStart
		out.NewStart = alignStart(h.OldStart, oldCount, newCount)
	}

	var b strings.Builder
	writeFileHeader(&b, lines, bounds)
	b.WriteString(out.String())
	b.WriteByte('\n')
	for _, pl := range body {
		b.WriteByte(pl.op)
		b.WriteString(pl.text)
		b.WriteByte('\n')
		if pl.marker != "" {
			b.WriteString(pl.marker)
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

// patchLine is one body line of a rebuilt hunk. marker holds the
// no-newline marker that follows it, if any.
type patchLine struct {
	op     byte
	text   string
	marker string
}

func lineContent(text string) string {
	if text == "" {
		return ""
	}
	return text[1:]
}

// settleMissingNewlines keeps each side of a rebuilt hunk valid: only the
// last line of a side may lack its newline. Dropping unselected changes can
// leave a marked line in the middle of a side. A marked removal or addition
// then gets its newline back, and a marked context line is split so the
// side that still ends there keeps the marker.
func settleMissingNewlines(body []patchLine) []patchLine {
	out := make([]patchLine, 0, len(body)+1)
	for i, pl := range body {
		if pl.marker == "" {
			out = append(out, pl)
			continue
		}
		oldAfter, newAfter := sidesAfter(body[i+1:])
		switch {
		case pl.op == ' ' && newAfter && !oldAfter:
			out = append(out,
				patchLine{op: '-', text: pl.text, marker: pl.marker},
				patchLine{op: '+', text: pl.text},
			)
		case pl.op == ' ' && oldAfter && !newAfter:
			out = append(out,
				patchLine{op: '-', text: pl.text},
				patchLine{op: '+', text: pl.text, marker: pl.marker},
			)
		case pl.op == '-' && oldAfter, pl.op == '+' && newAfter:
			pl.marker = ""
			out = append(out, pl)
		default:
			out = append(out, pl)
		}
	}
	return out
}

func sidesAfter(rest []patchLine) (oldSide, newSide bool) {
	for _, pl := range rest {
		oldSide = oldSide || pl.op != '+'
		newSide = newSide || pl.op != '-'
	}
	return oldSide, newSide
}

// alignStart derives the start of the other side of a lone hunk from the
// anchored side. An empty side names the line before the hunk.
func alignStart(anchor, anchorCount, otherCount uint32) uint32 {
	switch {
	case anchorCount == 0 && otherCount > 0:
		return anchor + 1
	case otherCount == 0 && anchorCount > 0 && anchor > 0:
		return anchor - 1
	default:
		return anchor
	}
}

// ChangedLines returns the indices of added and removed lines among srcIxs,
// sorted. Rows of a split view map to these via SplitRow.Sources.
func ChangedLines(lines []domain.DiffLine, srcIxs []int) []int {
	var out []int
	for _, ix := range srcIxs {
		if ix < 0 || ix >= len(lines) {
			continue
		}
		if k := lines[ix].Kind; k == domain.DiffLineAdd || k == domain.DiffLineRemove {
			out = append(out, ix)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
