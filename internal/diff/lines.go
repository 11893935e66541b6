// Package diff turns unified diff text into line-addressed structures: kinds
// and line numbers per line, side-by-side rows for split views, and minimal
// patches for staging a single hunk or a group of lines.
package diff

import (
	"strings"

	"github.com/thiagokokada/gitk-core/internal/domain"
)

var headerPrefixes = []string{
	"diff ",
	"index ",
	"--- ",
	"+++ ",
	"old mode ",
	"new mode ",
	"deleted file mode ",
	"new file mode ",
	"similarity index ",
	"dissimilarity index ",
	"rename from ",
	"rename to ",
	"copy from ",
	"copy to ",
	"Binary files ",
	"GIT binary patch",
	`\ `,
}

// ClassifyLine assigns a kind to one raw diff line using only its prefix.
// The "\ No newline at end of file" marker is a header: it carries no line
// of either side. Parse refines this inside hunk bodies.
func ClassifyLine(line string) domain.DiffLineKind {
	if strings.HasPrefix(line, "@@") {
		return domain.DiffLineHunk
	}
	for _, p := range headerPrefixes {
		if strings.HasPrefix(line, p) {
			return domain.DiffLineHeader
		}
	}
	if line == "---" || line == "+++" {
		return domain.DiffLineHeader
	}
	switch {
	case strings.HasPrefix(line, "+"):
		return domain.DiffLineAdd
	case strings.HasPrefix(line, "-"):
		return domain.DiffLineRemove
	default:
		return domain.DiffLineContext
	}
}

// Parse splits diff text into classified lines. A trailing newline does not
// produce an empty last line. Inside a hunk the counts from its header decide
// what a line is, so a removed "-- note" reads as a removal and not as a
// "--- " file header. Carriage returns are content and stay in Text.
func Parse(target domain.DiffTarget, text string) domain.Diff {
	d := domain.Diff{Target: target}
	if text == "" {
		return d
	}
	text = strings.TrimSuffix(text, "\n")
	raw := strings.Split(text, "\n")
	d.Lines = make([]domain.DiffLine, 0, len(raw))
	var body hunkBody
	for _, line := range raw {
		d.Lines = append(d.Lines, domain.DiffLine{Kind: body.classify(line), Text: line})
	}
	return d
}

// hunkBody counts the old and new side lines the current hunk still owes.
type hunkBody struct {
	oldLeft, newLeft uint32
}

func (h *hunkBody) classify(line string) domain.DiffLineKind {
	if h.oldLeft > 0 || h.newLeft > 0 {
		if kind, ok := h.consume(line); ok {
			return kind
		}
		*h = hunkBody{}
	}
	kind := ClassifyLine(line)
	if kind == domain.DiffLineHunk {
		if hdr, ok := ParseHunkHeader(line); ok {
			h.oldLeft, h.newLeft = hdr.OldCount, hdr.NewCount
		}
	}
	return kind
}

// consume takes line as the next body line. It fails when line does not fit
// the counts left, which means the header lied or the hunk ended early.
func (h *hunkBody) consume(line string) (domain.DiffLineKind, bool) {
	op := byte(' ')
	if line != "" {
		op = line[0]
	}
	switch {
	case op == '\\':
		return domain.DiffLineHeader, true
	case op == ' ' && h.oldLeft > 0 && h.newLeft > 0:
		h.oldLeft--
		h.newLeft--
		return domain.DiffLineContext, true
	case op == '-' && h.oldLeft > 0:
		h.oldLeft--
		return domain.DiffLineRemove, true
	case op == '+' && h.newLeft > 0:
		h.newLeft--
		return domain.DiffLineAdd, true
	}
	return 0, false
}

// IsFileHeader reports whether line starts the section of one file.
func IsFileHeader(line string) bool {
	return strings.HasPrefix(line, "diff --git ")
}

// FileSection marks where one file's part of a diff begins.
type FileSection struct {
	Path  string
	SrcIx int
}

// Files lists the file sections of a diff in order.
func Files(lines []domain.DiffLine) []FileSection {
	var sections []FileSection
	for i, l := range lines {
		if l.Kind != domain.DiffLineHeader || !IsFileHeader(l.Text) {
			continue
		}
		if path := FilePath(l.Text); path != "" {
			sections = append(sections, FileSection{Path: path, SrcIx: i})
		}
	}
	return sections
}

// FileIndexForLine returns the index of the section containing srcIx, or 0
// when the line precedes every section.
func FileIndexForLine(sections []FileSection, srcIx int) int {
	target := 0
	for i, sec := range sections {
		if srcIx < sec.SrcIx {
			break
		}
		target = i
	}
	return target
}

// FilePath extracts the new-side path of a "diff --git" line, unquoting
// C-style quoted names.
func FilePath(line string) string {
	const prefix = "diff --git "
	if !strings.HasPrefix(line, prefix) {
		return ""
	}
	tokens := diffLineTokens(strings.TrimSpace(line[len(prefix):]))
	if len(tokens) < 2 {
		return ""
	}
	return normalizeDiffPath(tokens[1])
}

func diffLineTokens(s string) []string {
	var tokens []string
	for {
		s = strings.TrimLeft(s, " \t")
		if s == "" {
			break
		}
		if s[0] == '"' {
			var buf strings.Builder
			escaped := false
			i := 1
			for i < len(s) {
				ch := s[i]
				i++
				if escaped {
					buf.WriteByte(unescape(ch))
					escaped = false
					continue
				}
				if ch == '\\' {
					escaped = true
					continue
				}
				if ch == '"' {
					break
				}
				buf.WriteByte(ch)
			}
			tokens = append(tokens, buf.String())
			s = s[i:]
			continue
		}
		j := strings.IndexAny(s, " \t")
		if j < 0 {
			j = len(s)
		}
		tokens = append(tokens, s[:j])
		s = s[j:]
	}
	return tokens
}

func unescape(ch byte) byte {
	switch ch {
	case 't':
		return '\t'
	case 'n':
		return '\n'
	default:
		return ch
	}
}

func normalizeDiffPath(token string) string {
	if rest, ok := strings.CutPrefix(token, "a/"); ok {
		return rest
	}
	return strings.TrimPrefix(token, "b/")
}
