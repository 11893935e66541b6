package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitk-core/internal/buildinfo"
	"github.com/thiagokokada/gitk-core/internal/git/backend"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "gitk-core", buildinfo.Read())
		fmt.Fprintln(cmd.OutOrStdout(), "minimum git for the cli backend:", backend.MinGitVersion())
		if out, err := backend.GitVersion(); err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), "installed git: unavailable:", err)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "installed:", out)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
