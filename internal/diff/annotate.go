package diff

import (
	"strconv"
	"strings"

	"github.com/thiagokokada/gitk-core/internal/domain"
)

// Line is a classified diff line with the line numbers it occupies on each
// side. Zero means the line has no number on that side.
type Line struct {
	Kind    domain.DiffLineKind
	Text    string
	OldLine uint32
	NewLine uint32
}

// HunkHeader is a parsed "@@ -l,s +l,s @@ heading" line. Omitted counts
// default to 1.
type HunkHeader struct {
	OldStart uint32
	OldCount uint32
	NewStart uint32
	NewCount uint32
	Heading  string
}

// ParseHunkHeader parses a hunk header line. Anything after the closing
// "@@" is returned verbatim in Heading.
func ParseHunkHeader(line string) (HunkHeader, bool) {
	rest, ok := strings.CutPrefix(line, "@@ ")
	if !ok {
		return HunkHeader{}, false
	}
	ranges, heading, ok := strings.Cut(rest, " @@")
	if !ok {
		return HunkHeader{}, false
	}
	oldRange, newRange, ok := strings.Cut(ranges, " ")
	if !ok {
		return HunkHeader{}, false
	}
	var h HunkHeader
	if h.OldStart, h.OldCount, ok = parseRange(oldRange, '-'); !ok {
		return HunkHeader{}, false
	}
	if h.NewStart, h.NewCount, ok = parseRange(newRange, '+'); !ok {
		return HunkHeader{}, false
	}
	h.Heading = strings.TrimPrefix(heading, " ")
	return h, true
}

func parseRange(s string, sign byte) (start, count uint32, ok bool) {
	if len(s) < 2 || s[0] != sign {
		return 0, 0, false
	}
	startText, countText, hasCount := strings.Cut(s[1:], ",")
	n, err := strconv.ParseUint(startText, 10, 32)
	if err != nil {
		return 0, 0, false
	}
	count = 1
	if hasCount {
		c, err := strconv.ParseUint(countText, 10, 32)
		if err != nil {
			return 0, 0, false
		}
		count = uint32(c)
	}
	return uint32(n), count, true
}

// String formats the header the way git writes it.
func (h HunkHeader) String() string {
	var b strings.Builder
	b.WriteString("@@ -")
	writeRange(&b, h.OldStart, h.OldCount)
	b.WriteString(" +")
	writeRange(&b, h.NewStart, h.NewCount)
	b.WriteString(" @@")
	if h.Heading != "" {
		b.WriteByte(' ')
		b.WriteString(h.Heading)
	}
	return b.String()
}

func writeRange(b *strings.Builder, start, count uint32) {
	b.WriteString(strconv.FormatUint(uint64(start), 10))
	if count != 1 {
		b.WriteByte(',')
		b.WriteString(strconv.FormatUint(uint64(count), 10))
	}
}

// Annotate walks hunk headers to number every content line. Lines outside a
// recognized hunk get no numbers.
func Annotate(lines []domain.DiffLine) []Line {
	out := make([]Line, len(lines))
	var oldLine, newLine uint32
	inHunk := false
	for i, l := range lines {
		a := Line{Kind: l.Kind, Text: l.Text}
		switch l.Kind {
		case domain.DiffLineHeader:
			if IsFileHeader(l.Text) {
				inHunk = false
			}
		case domain.DiffLineHunk:
			h, ok := ParseHunkHeader(l.Text)
			inHunk = ok
			oldLine, newLine = h.OldStart, h.NewStart
		case domain.DiffLineContext:
			if inHunk {
				a.OldLine, a.NewLine = oldLine, newLine
				oldLine++
				newLine++
			}
		case domain.DiffLineRemove:
			if inHunk {
				a.OldLine = oldLine
				oldLine++
			}
		case domain.DiffLineAdd:
			if inHunk {
				a.NewLine = newLine
				newLine++
			}
		}
		out[i] = a
	}
	return out
}
