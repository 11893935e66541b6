package diff

import "github.com/thiagokokada/gitk-core/internal/domain"

// RawKind tells what a raw row stands for when clicked.
type RawKind uint8

const (
	RawFileHeader RawKind = iota
	RawHunkHeader
	RawLine
)

// RowKind describes which sides of an aligned row are present.
type RowKind uint8

const (
	RowContext RowKind = iota
	RowModify
	RowRemove
	RowAdd
)

func (k RowKind) String() string {
	switch k {
	case RowModify:
		return "modify"
	case RowRemove:
		return "remove"
	case RowAdd:
		return "add"
	default:
		return "context"
	}
}

// SplitRow is either a RawRow or an AlignedRow.
type SplitRow interface {
	// Sources lists the indices of the source lines the row shows.
	Sources() []int
	isSplitRow()
}

// RawRow spans both columns and shows one source line as is.
type RawRow struct {
	SrcIx int
	Kind  RawKind
}

func (r RawRow) Sources() []int { return []int{r.SrcIx} }
func (RawRow) isSplitRow()      {}

// AlignedRow pairs an old line with a new line. A side index of -1 means
// the side is empty.
type AlignedRow struct {
	Kind     RowKind
	OldSrcIx int
	NewSrcIx int
}

func (r AlignedRow) Sources() []int {
	switch {
	case r.Kind == RowContext:
		return []int{r.OldSrcIx}
	case r.OldSrcIx < 0:
		return []int{r.NewSrcIx}
	case r.NewSrcIx < 0:
		return []int{r.OldSrcIx}
	default:
		return []int{r.OldSrcIx, r.NewSrcIx}
	}
}

func (AlignedRow) isSplitRow() {}

type splitter struct {
	rows    []SplitRow
	removes []int
	adds    []int
}

// flush pairs buffered removes and adds by position. The longer run is
// padded with empty sides at its tail.
func (s *splitter) flush() {
	n := max(len(s.removes), len(s.adds))
	for i := range n {
		row := AlignedRow{OldSrcIx: -1, NewSrcIx: -1}
		if i < len(s.removes) {
			row.OldSrcIx = s.removes[i]
		}
		if i < len(s.adds) {
			row.NewSrcIx = s.adds[i]
		}
		switch {
		case row.OldSrcIx >= 0 && row.NewSrcIx >= 0:
			row.Kind = RowModify
		case row.OldSrcIx >= 0:
			row.Kind = RowRemove
		default:
			row.Kind = RowAdd
		}
		s.rows = append(s.rows, row)
	}
	s.removes = s.removes[:0]
	s.adds = s.adds[:0]
}

// SplitRows regroups annotated lines into rows for a two column view.
func SplitRows(lines []Line) []SplitRow {
	s := &splitter{rows: make([]SplitRow, 0, len(lines))}
	inHunk := false
	for i, l := range lines {
		switch {
		case l.Kind == domain.DiffLineHeader && IsFileHeader(l.Text):
			s.flush()
			s.rows = append(s.rows, RawRow{SrcIx: i, Kind: RawFileHeader})
			inHunk = false
		case l.Kind == domain.DiffLineHunk:
			s.flush()
			s.rows = append(s.rows, RawRow{SrcIx: i, Kind: RawHunkHeader})
			inHunk = true
		case inHunk && l.Kind == domain.DiffLineContext:
			s.flush()
			s.rows = append(s.rows, AlignedRow{Kind: RowContext, OldSrcIx: i, NewSrcIx: i})
		case inHunk && l.Kind == domain.DiffLineRemove:
			s.removes = append(s.removes, i)
		case inHunk && l.Kind == domain.DiffLineAdd:
			s.adds = append(s.adds, i)
		default:
			s.flush()
			s.rows = append(s.rows, RawRow{SrcIx: i, Kind: RawLine})
		}
	}
	s.flush()
	return s.rows
}

// RowForSource returns the index of the row showing srcIx, or -1.
func RowForSource(rows []SplitRow, srcIx int) int {
	for i, row := range rows {
		for _, ix := range row.Sources() {
			if ix == srcIx {
				return i
			}
		}
	}
	return -1
}
