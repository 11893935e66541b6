package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitk-core/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status [path]",
	Short: "Show branch, upstream, local changes and recent history",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

var statusLogLimit int

func init() {
	statusCmd.Flags().IntVarP(&statusLogLimit, "number", "n", 10, "commits of history to show")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	path, _ := repoAndRest(args, 0)
	s, err := newStore()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), loadTimeout)
	defer cancel()
	id, err := openRepo(ctx, s, path)
	if err != nil {
		return err
	}
	rs, err := waitRepo(ctx, s, id, func(rs *store.RepoState) bool {
		return settled(rs.Head) && settled(rs.Upstream) && settled(rs.Branches) &&
			settled(rs.Status) && settled(rs.Log) && settled(rs.RebaseActive) && settled(rs.MergeMessage)
	})
	if err != nil {
		return err
	}
	printStatus(cmd.OutOrStdout(), rs, statusLogLimit)
	return nil
}

func printStatus(w io.Writer, rs *store.RepoState, logLimit int) {
	fmt.Fprintf(w, "Repository: %s\n", rs.Spec.Workdir)
	if rs.Head.IsReady() {
		fmt.Fprintf(w, "On branch %s\n", rs.Head.Value)
	}
	if div := rs.Upstream.Value; rs.Upstream.IsReady() && div != nil {
		fmt.Fprintf(w, "Tracking %s: %d ahead, %d behind\n", div.Upstream, div.Ahead, div.Behind)
	}
	if rs.RebaseActive.IsReady() && rs.RebaseActive.Value {
		fmt.Fprintln(w, "A rebase is in progress")
	}
	if m := rs.MergeMessage.Value; rs.MergeMessage.IsReady() && m != nil {
		fmt.Fprintln(w, "A merge is in progress")
	}

	if rs.Branches.IsReady() {
		fmt.Fprintln(w, "\nBranches:")
		for _, b := range rs.Branches.Value {
			marker := " "
			if b.Current {
				marker = "*"
			}
			line := fmt.Sprintf("%s %s %s", marker, b.Name, b.Target.Short())
			if b.Upstream != "" {
				line += " [" + b.Upstream + "]"
			}
			fmt.Fprintln(w, line)
		}
	}

	if rs.Status.IsReady() {
		st := rs.Status.Value
		if st.Clean() {
			fmt.Fprintln(w, "\nNothing to commit, working tree clean")
		}
		if len(st.Staged) > 0 {
			fmt.Fprintln(w, "\nStaged:")
			for _, f := range st.Staged {
				fmt.Fprintf(w, "  %-10s %s\n", f.Kind, fileLabel(f.Path, f.OrigPath))
			}
		}
		if len(st.Unstaged) > 0 {
			fmt.Fprintln(w, "\nUnstaged:")
			for _, f := range st.Unstaged {
				fmt.Fprintf(w, "  %-10s %s\n", f.Kind, fileLabel(f.Path, f.OrigPath))
			}
		}
	}

	if rs.Log.IsReady() {
		fmt.Fprintln(w, "\nHistory:")
		for i, c := range rs.Log.Value.Commits {
			if i == logLimit {
				break
			}
			fmt.Fprintf(w, "  %s %s  %s\n", c.ID.Short(), c.Author.When.Format("2006-01-02"), c.Summary)
		}
	}

	for _, d := range rs.Diagnostics {
		fmt.Fprintf(w, "\n%s: %s", d.Kind, d.Message)
	}
	if len(rs.Diagnostics) > 0 {
		fmt.Fprintln(w)
	}
}

func fileLabel(path, orig string) string {
	if orig == "" {
		return path
	}
	return orig + " -> " + path
}
