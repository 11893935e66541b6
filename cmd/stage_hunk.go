package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitk-core/internal/diff"
	"github.com/thiagokokada/gitk-core/internal/domain"
	"github.com/thiagokokada/gitk-core/internal/store"
	"github.com/thiagokokada/gitk-core/internal/store/msg"
)

var stageHunkCmd = &cobra.Command{
	Use:   "stage-hunk [path] <file> <line>",
	Short: "Stage, unstage or discard the hunk containing a diff line",
	Long: `Stage, unstage or discard the hunk that contains the given diff line.

Line numbers are the source indices printed in the first column of
"gitk-core diff". With --lines only the listed added and removed lines of
that hunk are used.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runStageHunk,
}

var stageOpts struct {
	unstage bool
	discard bool
	lines   string
}

func init() {
	flags := stageHunkCmd.Flags()
	flags.BoolVar(&stageOpts.unstage, "unstage", false, "unstage from the staged diff")
	flags.BoolVar(&stageOpts.discard, "discard", false, "discard from the working tree")
	flags.StringVar(&stageOpts.lines, "lines", "", "comma separated source lines to use instead of the whole hunk")
	stageHunkCmd.MarkFlagsMutuallyExclusive("unstage", "discard")
	rootCmd.AddCommand(stageHunkCmd)
}

func parseLines(s string) ([]int, error) {
	var out []int
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("invalid line %q: %w", field, err)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, errors.New("no lines given")
	}
	return out, nil
}

func runStageHunk(cmd *cobra.Command, args []string) error {
	path, rest := repoAndRest(args, 2)
	srcIx, err := strconv.Atoi(rest[1])
	if err != nil {
		return fmt.Errorf("invalid line %q: %w", rest[1], err)
	}
	action := msg.ActionStage
	switch {
	case stageOpts.unstage:
		action = msg.ActionUnstage
	case stageOpts.discard:
		action = msg.ActionDiscard
	}
	var m msg.Msg
	target := diffTarget(rest[0], action == msg.ActionUnstage, "")

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
	id := rs.ID
	if stageOpts.lines != "" {
		ixs, err := parseLines(stageOpts.lines)
		if err != nil {
			return err
		}
		m = msg.ApplyLinesAt{Repo: id, SrcIxs: append([]int{srcIx}, ixs...), Action: action}
	} else {
		m = msg.ApplyHunkAt{Repo: id, SrcIx: srcIx, Action: action}
	}

	// a rejected selection only sets a new last error
	commands, lastErr := len(rs.CommandLog), rs.LastError
	s.Dispatch(m)
	rs, err = waitRepo(ctx, s, id, func(rs *store.RepoState) bool {
		return len(rs.CommandLog) > commands || rs.LastError != lastErr
	})
	if err != nil {
		return err
	}
	if len(rs.CommandLog) == commands {
		return errors.New(*rs.LastError)
	}
	entry := rs.CommandLog[len(rs.CommandLog)-1]
	if !entry.Success {
		return fmt.Errorf("%s failed: %s", entry.Command, strings.TrimSpace(entry.Stderr))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: done in %s (%s)\n", action, sectionPath(rs.Diff.Value.Lines, srcIx, rest[0]), entry.RunID)
	return nil
}

// sectionPath names the file whose section of lines holds srcIx.
func sectionPath(lines []domain.DiffLine, srcIx int, fallback string) string {
	sections := diff.Files(lines)
	if len(sections) == 0 {
		return fallback
	}
	return sections[diff.FileIndexForLine(sections, srcIx)].Path
}
