package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitk-core/internal/diff"
	"github.com/thiagokokada/gitk-core/internal/domain"
	"github.com/thiagokokada/gitk-core/internal/store"
	"github.com/thiagokokada/gitk-core/internal/store/msg"
)

var diffCmd = &cobra.Command{
	Use:   "diff [path] <file>",
	Short: "Show the diff of one file with line numbers or side by side",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runDiff,
}

var diffOpts struct {
	staged bool
	split  bool
	commit string
	width  int
}

func init() {
	flags := diffCmd.Flags()
	flags.BoolVar(&diffOpts.staged, "staged", false, "show the staged diff instead of the unstaged one")
	flags.BoolVar(&diffOpts.split, "split", false, "show old and new side by side")
	flags.StringVar(&diffOpts.commit, "commit", "", "show the change the given commit made to the file")
	flags.IntVar(&diffOpts.width, "width", 120, "total width of the side by side view")
	rootCmd.AddCommand(diffCmd)
}

func diffTarget(file string, staged bool, commit string) domain.DiffTarget {
	if commit != "" {
		return domain.CommitTarget(domain.CommitID(commit), file)
	}
	area := domain.DiffAreaUnstaged
	if staged {
		area = domain.DiffAreaStaged
	}
	return domain.WorkingTreeTarget(file, area)
}

// loadDiff selects target in a freshly opened repository and waits for the
// diff to load.
func loadDiff(ctx context.Context, s *store.AppStore, path string, target domain.DiffTarget) (*store.RepoState, error) {
	id, err := openRepo(ctx, s, path)
	if err != nil {
		return nil, err
	}
	s.Dispatch(msg.SelectDiff{Repo: id, Target: target})
	rs, err := waitRepo(ctx, s, id, func(rs *store.RepoState) bool {
		return rs.DiffTarget != nil && *rs.DiffTarget == target && settled(rs.Diff)
	})
	if err != nil {
		return nil, err
	}
	if rs.Diff.State == store.Failed {
		return nil, errors.New(rs.Diff.Err)
	}
	return rs, nil
}

func runDiff(cmd *cobra.Command, args []string) error {
	path, rest := repoAndRest(args, 1)
	target := diffTarget(rest[0], diffOpts.staged, diffOpts.commit)

	s, err := newStore()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), loadTimeout)
	defer cancel()
	rs, err := loadDiff(ctx, s, path, target)
	if err != nil {
		return err
	}
	lines := rs.Diff.Value.Lines
	if len(lines) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No changes in %s\n", target)
		return nil
	}
	annotated := diff.Annotate(lines)
	if diffOpts.split {
		printSplit(cmd.OutOrStdout(), annotated, diffOpts.width)
		return nil
	}
	printUnified(cmd.OutOrStdout(), annotated)
	return nil
}

func lineNo(n uint32) string {
	if n == 0 {
		return ""
	}
	return fmt.Sprint(n)
}

// printUnified prints every source line with its index, which stage-hunk
// takes as input, and its old and new line numbers.
func printUnified(w io.Writer, lines []diff.Line) {
	for i, l := range lines {
		fmt.Fprintf(w, "%4d %5s %5s  %s\n", i, lineNo(l.OldLine), lineNo(l.NewLine), displayText(l.Text))
	}
}

func printSplit(w io.Writer, lines []diff.Line, width int) {
	col := max((width-3)/2, 20)
	for _, row := range diff.SplitRows(lines) {
		switch r := row.(type) {
		case diff.RawRow:
			fmt.Fprintln(w, runewidth.Truncate(displayText(lines[r.SrcIx].Text), width, "…"))
		case diff.AlignedRow:
			left, right := side(lines, r.OldSrcIx), side(lines, r.NewSrcIx)
			if r.Kind == diff.RowModify {
				oldSpans, newSpans := diff.InlineChanges(left, right)
				left = markSpans(left, oldSpans, "[-", "-]")
				right = markSpans(right, newSpans, "{+", "+}")
			}
			fmt.Fprintf(w, "%s %s %s\n", cell(lines, r.OldSrcIx, left, col, true), gutter(r.Kind), cell(lines, r.NewSrcIx, right, col, false))
		}
	}
}

func side(lines []diff.Line, ix int) string {
	if ix < 0 || lines[ix].Text == "" {
		return ""
	}
	return displayText(lines[ix].Text[1:])
}

// displayText drops the carriage return of a CRLF line. Patches are built
// from the untouched text.
func displayText(text string) string {
	return strings.TrimSuffix(text, "\r")
}

func cell(lines []diff.Line, ix int, text string, width int, old bool) string {
	num := ""
	if ix >= 0 {
		if old {
			num = lineNo(lines[ix].OldLine)
		} else {
			num = lineNo(lines[ix].NewLine)
		}
	}
	body := fmt.Sprintf("%5s %s", num, strings.ReplaceAll(text, "\t", "    "))
	return runewidth.FillRight(runewidth.Truncate(body, width, "…"), width)
}

func gutter(kind diff.RowKind) string {
	switch kind {
	case diff.RowModify:
		return "|"
	case diff.RowRemove:
		return "<"
	case diff.RowAdd:
		return ">"
	default:
		return " "
	}
}

func markSpans(text string, spans []diff.Span, begin, end string) string {
	if len(spans) == 0 {
		return text
	}
	var b strings.Builder
	pos := 0
	for _, sp := range spans {
		b.WriteString(text[pos:sp.Start])
		b.WriteString(begin)
		b.WriteString(text[sp.Start:sp.End])
		b.WriteString(end)
		pos = sp.End
	}
	b.WriteString(text[pos:])
	return b.String()
}
