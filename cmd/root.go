// Package cmd implements the gitk-core command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/thiagokokada/gitk-core/internal/buildinfo"
	"github.com/thiagokokada/gitk-core/internal/config"
	"github.com/thiagokokada/gitk-core/internal/domain"
	"github.com/thiagokokada/gitk-core/internal/git"
	"github.com/thiagokokada/gitk-core/internal/git/backend"
	"github.com/thiagokokada/gitk-core/internal/git/native"
	"github.com/thiagokokada/gitk-core/internal/store"
	"github.com/thiagokokada/gitk-core/internal/store/msg"
	"github.com/thiagokokada/gitk-core/internal/telemetry"
)

var (
	cfgFile  string
	verbose  bool
	cfg      config.Config
	shutdown func(context.Context) error

	// loadTimeout bounds how long a one-shot command waits for git.
	loadTimeout = 30 * time.Second
)

var rootCmd = &cobra.Command{
	Use:           "gitk-core",
	Short:         "Inspect and stage changes in git repositories",
	Long:          `gitk-core drives a git repository through its application state engine: status, history, diffs and partial staging.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if shutdown == nil {
			return nil
		}
		return shutdown(context.Background())
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default "+config.DefaultPath()+")")
	flags.BoolVar(&verbose, "verbose", false, "enable verbose logging")
	flags.String("backend", config.BackendCLI, "git backend: cli or native")
	flags.Int("workers", 0, "background workers (0 = auto)")
	flags.Bool("trace", false, "print a span per git operation to stderr")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func setup(cmd *cobra.Command) error {
	v := viper.New()
	for _, key := range []string{"backend", "workers", "trace"} {
		if err := v.BindPFlag(key, cmd.Root().PersistentFlags().Lookup(key)); err != nil {
			return err
		}
	}
	path, required := cfgFile, true
	if path == "" {
		path, required = config.DefaultPath(), false
	}
	loaded, err := config.Load(v, path, required)
	if err != nil {
		return err
	}
	cfg = loaded

	level := cfg.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	shutdown, err = telemetry.Setup(cfg.Trace, os.Stderr, buildinfo.Version())
	return err
}

func newBackend() git.Backend {
	if cfg.Backend == config.BackendNative {
		return native.New()
	}
	return backend.NewCLI()
}

func newStore() (*store.AppStore, error) {
	return store.New(store.Options{
		Backend:        newBackend(),
		Workers:        cfg.Workers,
		LogPageSize:    cfg.LogPageSize,
		CommitCacheTTL: cfg.CommitCacheTTL,
	})
}

// openRepo opens path in s and waits for the open to settle.
func openRepo(ctx context.Context, s *store.AppStore, path string) (domain.RepoID, error) {
	before := s.Snapshot()
	s.Dispatch(msg.OpenRepo{Path: path})
	snap, err := s.WaitFor(ctx, func(st *store.AppState) bool {
		rs := newestRepo(st, &before)
		return rs != nil && !rs.Open.IsLoading()
	})
	if err != nil {
		return 0, err
	}
	rs := newestRepo(&snap, &before)
	if rs.Open.State == store.Failed {
		return 0, errors.New(rs.Open.Err)
	}
	return rs.ID, nil
}

func newestRepo(st, before *store.AppState) *store.RepoState {
	if len(st.Repos) == 0 {
		return nil
	}
	rs := &st.Repos[len(st.Repos)-1]
	if before.Repo(rs.ID) != nil {
		return nil
	}
	return rs
}

// waitRepo waits until cond holds for repository id.
func waitRepo(ctx context.Context, s *store.AppStore, id domain.RepoID, cond func(*store.RepoState) bool) (*store.RepoState, error) {
	snap, err := s.WaitFor(ctx, func(st *store.AppState) bool {
		rs := st.Repo(id)
		return rs == nil || cond(rs)
	})
	if err != nil {
		return nil, err
	}
	rs := snap.Repo(id)
	if rs == nil {
		return nil, fmt.Errorf("repository %d was closed", id)
	}
	return rs, nil
}

// repoAndRest splits args into an optional leading repository path and the
// remaining want arguments.
func repoAndRest(args []string, want int) (string, []string) {
	if len(args) > want {
		return args[0], args[1:]
	}
	return ".", args
}

func settled[T any](l store.Loadable[T]) bool {
	return l.State == store.Ready || l.State == store.Failed
}
