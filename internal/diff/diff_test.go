package diff

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/thiagokokada/gitk-core/internal/domain"
)

const sampleDiff = `diff --git a/file.txt b/file.txt
index 3b18e51..8a1d2c4 100644
--- a/file.txt
+++ b/file.txt
@@ -1,4 +1,3 @@ func main
 one
-two
-three
+TWO
 four
@@ -10,2 +10,3 @@
 ten
+ten and a half
 eleven
`

func parseSample(t *testing.T) domain.Diff {
	t.Helper()
	return Parse(domain.WorkingTreeTarget("file.txt", domain.DiffAreaUnstaged), sampleDiff)
}

func TestClassifyLine(t *testing.T) {
	t.Parallel()
	tests := []struct {
		line string
		want domain.DiffLineKind
	}{
		{"@@ -1 +1 @@", domain.DiffLineHunk},
		{"diff --git a/x b/x", domain.DiffLineHeader},
		{"index 123..456 100644", domain.DiffLineHeader},
		{"--- a/x", domain.DiffLineHeader},
		{"+++ b/x", domain.DiffLineHeader},
		{"new file mode 100644", domain.DiffLineHeader},
		{"similarity index 90%", domain.DiffLineHeader},
		{"rename from a", domain.DiffLineHeader},
		{"Binary files a/x and b/x differ", domain.DiffLineHeader},
		{`\ No newline at end of file`, domain.DiffLineHeader},
		{"+added", domain.DiffLineAdd},
		{"-removed", domain.DiffLineRemove},
		{" context", domain.DiffLineContext},
		{"", domain.DiffLineContext},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ClassifyLine(tc.line), "ClassifyLine(%q)", tc.line)
	}
}

func TestParseDropsTrailingNewline(t *testing.T) {
	t.Parallel()
	d := parseSample(t)
	require.Len(t, d.Lines, 14)
	assert.Equal(t, " eleven", d.Lines[13].Text)
	assert.Empty(t, Parse(domain.DiffTarget{}, "").Lines)
}

func TestParseHunkHeader(t *testing.T) {
	t.Parallel()
	tests := []struct {
		line string
		want HunkHeader
	}{
		{"@@ -1 +2 @@", HunkHeader{OldStart: 1, OldCount: 1, NewStart: 2, NewCount: 1}},
		{"@@ -1,0 +2,10 @@", HunkHeader{OldStart: 1, OldCount: 0, NewStart: 2, NewCount: 10}},
		{"@@ -42,7 +100,8 @@ fn x", HunkHeader{OldStart: 42, OldCount: 7, NewStart: 100, NewCount: 8, Heading: "fn x"}},
		{"@@ -0,0 +1,3 @@", HunkHeader{OldStart: 0, OldCount: 0, NewStart: 1, NewCount: 3}},
	}
	for _, tc := range tests {
		h, ok := ParseHunkHeader(tc.line)
		require.True(t, ok, tc.line)
		assert.Equal(t, tc.want, h, tc.line)
	}
	for _, bad := range []string{"@@", "@@ -1 +2", "@@ 1 2 @@", "@@ -x +2 @@", "@@ -1,y +2 @@", "-1 +2 @@"} {
		_, ok := ParseHunkHeader(bad)
		assert.False(t, ok, bad)
	}
}

func TestHunkHeaderString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "@@ -1 +2,0 @@ fn x", HunkHeader{OldStart: 1, OldCount: 1, NewStart: 2, Heading: "fn x"}.String())
	assert.Equal(t, "@@ -3,2 +3 @@", HunkHeader{OldStart: 3, OldCount: 2, NewStart: 3, NewCount: 1}.String())
}

func TestAnnotate(t *testing.T) {
	t.Parallel()
	got := Annotate(parseSample(t).Lines)
	type nums struct{ old, new uint32 }
	want := []nums{
		{0, 0}, {0, 0}, {0, 0}, {0, 0}, // file header
		{0, 0},         // @@ -1,4 +1,3 @@
		{1, 1},         // one
		{2, 0}, {3, 0}, // two, three
		{0, 2},         // TWO
		{4, 3},         // four
		{0, 0},         // @@ -10,2 +10,3 @@
		{10, 10},       // ten
		{0, 11},        // ten and a half
		{11, 12},       // eleven
	}
	require.Len(t, got, 14)
	for i, w := range want {
		assert.Equal(t, w, nums{got[i].OldLine, got[i].NewLine}, "line %d %q", i, got[i].Text)
	}
}

func TestAnnotateMalformedHunkDropsNumbers(t *testing.T) {
	t.Parallel()
	lines := Parse(domain.DiffTarget{}, "@@ -1 +1 @@\n a\n@@ garbage @@\n b\n+c\n").Lines
	got := Annotate(lines)
	assert.Equal(t, uint32(1), got[1].OldLine)
	assert.Zero(t, got[3].OldLine)
	assert.Zero(t, got[4].NewLine)
}

func TestAnnotateIsDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := genDiff(t)
		lines := Parse(domain.DiffTarget{}, text).Lines
		assert.Equal(t, Annotate(lines), Annotate(lines))
	})
}

func TestAnnotateLineCounts(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := genDiff(t)
		lines := Parse(domain.DiffTarget{}, text).Lines
		annotated := Annotate(lines)
		var wantOld, wantNew, gotOld, gotNew uint32
		for _, l := range annotated {
			switch l.Kind {
			case domain.DiffLineHunk:
				h, ok := ParseHunkHeader(l.Text)
				if !ok {
					t.Fatalf("generated header %q does not parse", l.Text)
				}
				wantOld += h.OldCount
				wantNew += h.NewCount
			case domain.DiffLineContext, domain.DiffLineRemove, domain.DiffLineAdd:
				if l.OldLine != 0 {
					gotOld++
				}
				if l.NewLine != 0 {
					gotNew++
				}
			}
		}
		if gotOld != wantOld || gotNew != wantNew {
			t.Fatalf("old lines = %d, want %d; new lines = %d, want %d\n%s", gotOld, wantOld, gotNew, wantNew, text)
		}
	})
}

func TestHunkPatchCoversWholeHunk(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lines := Parse(domain.DiffTarget{}, genDiff(t)).Lines
		var hunks []int
		for i, l := range lines {
			if l.Kind == domain.DiffLineHunk {
				hunks = append(hunks, i)
			}
		}
		hunkIx := rapid.SampledFrom(hunks).Draw(t, "hunk")
		h, _ := ParseHunkHeader(lines[hunkIx].Text)
		patch, err := HunkPatch(lines, hunkIx+1)
		if err != nil {
			t.Fatalf("HunkPatch: %v", err)
		}
		var oldCount, newCount uint32
		for _, l := range Parse(domain.DiffTarget{}, patch).Lines[3:] {
			switch l.Kind {
			case domain.DiffLineContext:
				oldCount++
				newCount++
			case domain.DiffLineRemove:
				oldCount++
			case domain.DiffLineAdd:
				newCount++
			}
		}
		if oldCount != h.OldCount || newCount != h.NewCount {
			t.Fatalf("patch has %d/%d lines, header says %d/%d\n%s", oldCount, newCount, h.OldCount, h.NewCount, patch)
		}
	})
}

func TestParseBodyLinesThatLookLikeHeaders(t *testing.T) {
	t.Parallel()
	text := "diff --git a/q.sql b/q.sql\n--- a/q.sql\n+++ b/q.sql\n@@ -1,3 +1,3 @@\n select 1;\n--- old comment\n+++ new comment\n select 2;\n"
	lines := Parse(domain.DiffTarget{}, text).Lines
	require.Len(t, lines, 8)
	assert.Equal(t, domain.DiffLineHeader, lines[1].Kind)
	assert.Equal(t, domain.DiffLineHeader, lines[2].Kind)
	assert.Equal(t, domain.DiffLineRemove, lines[5].Kind)
	assert.Equal(t, domain.DiffLineAdd, lines[6].Kind)
	assert.Equal(t, domain.DiffLineContext, lines[7].Kind)

	annotated := Annotate(lines)
	assert.Equal(t, uint32(2), annotated[5].OldLine)
	assert.Equal(t, uint32(2), annotated[6].NewLine)
	assert.Equal(t, uint32(3), annotated[7].OldLine)

	patch, err := HunkPatch(lines, 7)
	require.NoError(t, err)
	assert.Equal(t, text, patch)

	patch, err = LinesPatch(lines, []int{5}, false)
	require.NoError(t, err)
	assert.Equal(t, "diff --git a/q.sql b/q.sql\n--- a/q.sql\n+++ b/q.sql\n@@ -1,3 +1,2 @@\n select 1;\n--- old comment\n select 2;\n", patch)
}

func TestParseFallsBackWhenCountsRunOut(t *testing.T) {
	t.Parallel()
	// the header promises one line, so the second file starts right after
	text := "diff --git a/a b/a\n--- a/a\n+++ b/a\n@@ -1 +1 @@\n-x\n+y\ndiff --git a/b b/b\n--- a/b\n+++ b/b\n"
	lines := Parse(domain.DiffTarget{}, text).Lines
	require.Len(t, lines, 9)
	for _, ix := range []int{6, 7, 8} {
		assert.Equal(t, domain.DiffLineHeader, lines[ix].Kind, "line %d", ix)
	}
	patch, err := HunkPatch(lines, 4)
	require.NoError(t, err)
	assert.Equal(t, "diff --git a/a b/a\n--- a/a\n+++ b/a\n@@ -1 +1 @@\n-x\n+y\n", patch)
}

func TestParseKeepsCarriageReturns(t *testing.T) {
	t.Parallel()
	text := "diff --git a/w.txt b/w.txt\n--- a/w.txt\n+++ b/w.txt\n@@ -1,3 +1,3 @@\n a\r\n-b\r\n+B\r\n c\r\n"
	lines := Parse(domain.DiffTarget{}, text).Lines
	require.Len(t, lines, 8)
	assert.Equal(t, "-b\r", lines[5].Text)

	patch, err := HunkPatch(lines, 5)
	require.NoError(t, err)
	assert.Equal(t, text, patch)

	patch, err = LinesPatch(lines, []int{6}, false)
	require.NoError(t, err)
	assert.Equal(t, "diff --git a/w.txt b/w.txt\n--- a/w.txt\n+++ b/w.txt\n@@ -1,3 +1,4 @@\n a\r\n b\r\n+B\r\n c\r\n", patch)
}

// genDiff builds a well formed single file diff with random hunks. Some body
// lines carry content that looks like a "--- " or "+++ " file header once
// the diff prefix is added.
func genDiff(t *rapid.T) string {
	var b strings.Builder
	b.WriteString("diff --git a/f b/f\n--- a/f\n+++ b/f\n")
	hunks := rapid.IntRange(1, 4).Draw(t, "hunks")
	oldStart, newStart := uint32(1), uint32(1)
	for h := range hunks {
		ops := rapid.SliceOfN(rapid.IntRange(0, 4), 1, 12).Draw(t, fmt.Sprintf("ops-%d", h))
		var body strings.Builder
		var oldCount, newCount uint32
		for i, op := range ops {
			switch op {
			case 0:
				fmt.Fprintf(&body, " ctx %d\n", i)
				oldCount++
				newCount++
			case 1:
				fmt.Fprintf(&body, "-old %d\n", i)
				oldCount++
			case 2:
				fmt.Fprintf(&body, "+new %d\n", i)
				newCount++
			case 3:
				fmt.Fprintf(&body, "--- sql comment %d\n", i)
				oldCount++
			default:
				fmt.Fprintf(&body, "+++ counter %d\n", i)
				newCount++
			}
		}
		oStart, nStart := oldStart, newStart
		if oldCount == 0 {
			oStart--
		}
		if newCount == 0 {
			nStart--
		}
		b.WriteString(HunkHeader{OldStart: oStart, OldCount: oldCount, NewStart: nStart, NewCount: newCount}.String())
		b.WriteByte('\n')
		b.WriteString(body.String())
		gap := uint32(rapid.IntRange(1, 20).Draw(t, fmt.Sprintf("gap-%d", h)))
		oldStart += oldCount + gap
		newStart += newCount + gap
	}
	return b.String()
}

func TestSplitRowsPairsPositionally(t *testing.T) {
	t.Parallel()
	text := "diff --git a/f b/f\n--- a/f\n+++ b/f\n@@ -1,2 +1 @@\n-old1\n-old2\n+new1\n"
	rows := SplitRows(Annotate(Parse(domain.DiffTarget{}, text).Lines))
	want := []SplitRow{
		RawRow{SrcIx: 0, Kind: RawFileHeader},
		RawRow{SrcIx: 1, Kind: RawLine},
		RawRow{SrcIx: 2, Kind: RawLine},
		RawRow{SrcIx: 3, Kind: RawHunkHeader},
		AlignedRow{Kind: RowModify, OldSrcIx: 4, NewSrcIx: 6},
		AlignedRow{Kind: RowRemove, OldSrcIx: 5, NewSrcIx: -1},
	}
	assert.Equal(t, want, rows)
}

func TestSplitRowsContextFlushesRuns(t *testing.T) {
	t.Parallel()
	rows := SplitRows(Annotate(parseSample(t).Lines))
	want := []SplitRow{
		RawRow{SrcIx: 0, Kind: RawFileHeader},
		RawRow{SrcIx: 1, Kind: RawLine},
		RawRow{SrcIx: 2, Kind: RawLine},
		RawRow{SrcIx: 3, Kind: RawLine},
		RawRow{SrcIx: 4, Kind: RawHunkHeader},
		AlignedRow{Kind: RowContext, OldSrcIx: 5, NewSrcIx: 5},
		AlignedRow{Kind: RowModify, OldSrcIx: 6, NewSrcIx: 8},
		AlignedRow{Kind: RowRemove, OldSrcIx: 7, NewSrcIx: -1},
		AlignedRow{Kind: RowContext, OldSrcIx: 9, NewSrcIx: 9},
		RawRow{SrcIx: 10, Kind: RawHunkHeader},
		AlignedRow{Kind: RowContext, OldSrcIx: 11, NewSrcIx: 11},
		AlignedRow{Kind: RowAdd, OldSrcIx: -1, NewSrcIx: 12},
		AlignedRow{Kind: RowContext, OldSrcIx: 13, NewSrcIx: 13},
	}
	assert.Equal(t, want, rows)
	assert.Equal(t, 6, RowForSource(rows, 8))
	assert.Equal(t, -1, RowForSource(rows, 99))
	assert.Equal(t, []int{6, 8}, rows[6].Sources())
}

func TestSplitRowsNoNewlineMarkerIsRaw(t *testing.T) {
	t.Parallel()
	text := "@@ -1 +1 @@\n-a\n\\ No newline at end of file\n+b\n"
	rows := SplitRows(Annotate(Parse(domain.DiffTarget{}, text).Lines))
	want := []SplitRow{
		RawRow{SrcIx: 0, Kind: RawHunkHeader},
		AlignedRow{Kind: RowRemove, OldSrcIx: 1, NewSrcIx: -1},
		RawRow{SrcIx: 2, Kind: RawLine},
		AlignedRow{Kind: RowAdd, OldSrcIx: -1, NewSrcIx: 3},
	}
	assert.Equal(t, want, rows)
}

func TestFiles(t *testing.T) {
	t.Parallel()
	lines := Parse(domain.DiffTarget{}, strings.Join([]string{
		"header line",
		"diff --git a/foo.txt b/foo.txt",
		`diff --git "a/space name.txt" "b/space name.txt"`,
		`diff --git "a/quo\"te.txt" "b/quo\"te.txt"`,
		"diff --git a/onlyone",
		"not a diff line",
	}, "\n")).Lines
	got := Files(lines)
	assert.Equal(t, []FileSection{
		{Path: "foo.txt", SrcIx: 1},
		{Path: "space name.txt", SrcIx: 2},
		{Path: `quo"te.txt`, SrcIx: 3},
	}, got)
	assert.Equal(t, 0, FileIndexForLine(got, 0))
	assert.Equal(t, 1, FileIndexForLine(got, 2))
	assert.Equal(t, 2, FileIndexForLine(got, 99))
}

func TestHunkPatch(t *testing.T) {
	t.Parallel()
	lines := parseSample(t).Lines
	patch, err := HunkPatch(lines, 12)
	require.NoError(t, err)
	assert.Equal(t, `diff --git a/file.txt b/file.txt
index 3b18e51..8a1d2c4 100644
--- a/file.txt
+++ b/file.txt
@@ -10,2 +10,3 @@
 ten
+ten and a half
 eleven
`, patch)

	_, err = HunkPatch(lines, 1)
	assert.ErrorIs(t, err, ErrNotInHunk)
	_, err = HunkPatch(lines, 99)
	assert.ErrorIs(t, err, ErrNotInHunk)
}

func TestHunkPatchNeedsFileHeader(t *testing.T) {
	t.Parallel()
	lines := Parse(domain.DiffTarget{}, "@@ -1 +1 @@\n-a\n+b\n").Lines
	_, err := HunkPatch(lines, 1)
	assert.ErrorIs(t, err, ErrNoFileHeader)
}

func TestLinesPatchForward(t *testing.T) {
	t.Parallel()
	lines := parseSample(t).Lines
	// stage only the removal of "three"
	patch, err := LinesPatch(lines, []int{7}, false)
	require.NoError(t, err)
	assert.Equal(t, `diff --git a/file.txt b/file.txt
index 3b18e51..8a1d2c4 100644
--- a/file.txt
+++ b/file.txt
@@ -1,4 +1,3 @@ func main
 one
 two
-three
 four
`, patch)
}

func TestLinesPatchReverse(t *testing.T) {
	t.Parallel()
	lines := parseSample(t).Lines
	// unstage only the addition of "TWO"
	patch, err := LinesPatch(lines, []int{8}, true)
	require.NoError(t, err)
	assert.Equal(t, `diff --git a/file.txt b/file.txt
index 3b18e51..8a1d2c4 100644
--- a/file.txt
+++ b/file.txt
@@ -1,2 +1,3 @@ func main
 one
+TWO
 four
`, patch)
}

func TestLinesPatchNewFile(t *testing.T) {
	t.Parallel()
	text := "diff --git a/n b/n\nnew file mode 100644\n--- /dev/null\n+++ b/n\n@@ -0,0 +1,3 @@\n+a\n+b\n+c\n"
	lines := Parse(domain.DiffTarget{}, text).Lines
	patch, err := LinesPatch(lines, []int{6}, false)
	require.NoError(t, err)
	assert.Equal(t, "diff --git a/n b/n\nnew file mode 100644\n--- /dev/null\n+++ b/n\n@@ -0,0 +1 @@\n+b\n", patch)
}

func TestLinesPatchKeepsNoNewlineMarker(t *testing.T) {
	t.Parallel()
	text := "diff --git a/f b/f\n--- a/f\n+++ b/f\n@@ -1,2 +1,2 @@\n a\n-b\n\\ No newline at end of file\n+c\n\\ No newline at end of file\n"
	lines := Parse(domain.DiffTarget{}, text).Lines
	patch, err := LinesPatch(lines, []int{5}, false)
	require.NoError(t, err)
	assert.Equal(t, "diff --git a/f b/f\n--- a/f\n+++ b/f\n@@ -1,2 +1 @@\n a\n-b\n\\ No newline at end of file\n", patch)
}

func TestLinesPatchMovesNoNewlineMarker(t *testing.T) {
	t.Parallel()
	// "a\nb" became "a\nb\nc", both without a final newline
	text := "diff --git a/f b/f\n--- a/f\n+++ b/f\n@@ -1,2 +1,3 @@\n a\n-b\n\\ No newline at end of file\n+b\n+c\n\\ No newline at end of file\n"
	lines := Parse(domain.DiffTarget{}, text).Lines
	require.Len(t, lines, 11)

	// staging only "c" keeps the old "b" on both sides, so the marker must
	// split to the old side while the new side goes on to "c"
	patch, err := LinesPatch(lines, []int{9}, false)
	require.NoError(t, err)
	assert.Equal(t, "diff --git a/f b/f\n--- a/f\n+++ b/f\n@@ -1,2 +1,3 @@\n a\n-b\n\\ No newline at end of file\n+b\n+c\n\\ No newline at end of file\n", patch)

	// staging only the added "b" drops "c" and its marker
	patch, err = LinesPatch(lines, []int{8}, false)
	require.NoError(t, err)
	assert.Equal(t, "diff --git a/f b/f\n--- a/f\n+++ b/f\n@@ -1,2 +1,3 @@\n a\n-b\n\\ No newline at end of file\n+b\n+b\n", patch)
}

func TestLinesPatchReverseDropsInnerMarker(t *testing.T) {
	t.Parallel()
	text := "diff --git a/f b/f\n--- a/f\n+++ b/f\n@@ -1,2 +1,2 @@\n a\n-b\n\\ No newline at end of file\n+c\n\\ No newline at end of file\n"
	lines := Parse(domain.DiffTarget{}, text).Lines
	patch, err := LinesPatch(lines, []int{5}, true)
	require.NoError(t, err)
	assert.Equal(t, "diff --git a/f b/f\n--- a/f\n+++ b/f\n@@ -1,3 +1,2 @@\n a\n-b\n c\n\\ No newline at end of file\n", patch)
}

func TestLinesPatchErrors(t *testing.T) {
	t.Parallel()
	lines := parseSample(t).Lines
	_, err := LinesPatch(lines, nil, false)
	assert.ErrorIs(t, err, ErrNoChanges)
	_, err = LinesPatch(lines, []int{5}, false)
	assert.ErrorIs(t, err, ErrNoChanges)
	_, err = LinesPatch(lines, []int{6, 12}, false)
	assert.ErrorIs(t, err, ErrMixedHunks)
}

func TestChangedLines(t *testing.T) {
	t.Parallel()
	lines := parseSample(t).Lines
	assert.Equal(t, []int{6, 8, 12}, ChangedLines(lines, []int{12, 8, 5, 6, 8, -1, 40}))
}

func TestInlineChanges(t *testing.T) {
	t.Parallel()
	oldSpans, newSpans := InlineChanges("return a + b", "return a - b")
	assert.Equal(t, []Span{{Start: 9, End: 10}}, oldSpans)
	assert.Equal(t, []Span{{Start: 9, End: 10}}, newSpans)

	oldSpans, newSpans = InlineChanges("same", "same")
	assert.Nil(t, oldSpans)
	assert.Nil(t, newSpans)

	oldSpans, newSpans = InlineChanges("", "added")
	assert.Nil(t, oldSpans)
	assert.Equal(t, []Span{{Start: 0, End: 5}}, newSpans)
}
