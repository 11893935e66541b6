package diff

import (
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Span is a byte range [Start, End) of a line.
type Span struct {
	Start int
	End   int
}

// InlineChanges finds the parts of a modified line pair that differ. The
// texts are line contents without the leading +/- marker. Spans index into
// old and new respectively.
func InlineChanges(old, new string) (oldSpans, newSpans []Span) {
	if old == new {
		return nil, nil
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(old, new, false))
	var oldPos, newPos int
	for _, d := range diffs {
		n := len(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			oldPos += n
			newPos += n
		case diffmatchpatch.DiffDelete:
			oldSpans = appendSpan(oldSpans, oldPos, oldPos+n)
			oldPos += n
		case diffmatchpatch.DiffInsert:
			newSpans = appendSpan(newSpans, newPos, newPos+n)
			newPos += n
		}
	}
	return oldSpans, newSpans
}

func appendSpan(spans []Span, start, end int) []Span {
	if n := len(spans); n > 0 && spans[n-1].End == start {
		spans[n-1].End = end
		return spans
	}
	return append(spans, Span{Start: start, End: end})
}
