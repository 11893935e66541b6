package cmd

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitk-core/internal/domain"
	"github.com/thiagokokada/gitk-core/internal/store"
	"github.com/thiagokokada/gitk-core/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Keep a repository loaded and log every change until interrupted",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	path, _ := repoAndRest(args, 0)
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := newStore()
	if err != nil {
		return err
	}
	defer s.Close()

	openCtx, cancel := context.WithTimeout(ctx, loadTimeout)
	id, err := openRepo(openCtx, s, path)
	cancel()
	if err != nil {
		return err
	}
	snap := s.Snapshot()
	spec := snap.Repo(id).Spec

	if cfg.Watch {
		w, err := watch.New(id, spec, cfg.WatchDebounce, s.Dispatch)
		if err != nil {
			return err
		}
		defer w.Close()
	} else {
		slog.Info("filesystem watching disabled by config")
	}

	slog.Info("watching repository", slog.String("path", spec.Workdir))
	changes, unsubscribe := s.Subscribe()
	defer unsubscribe()
	var last summary
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			rs := s.Snapshot().Repo(id)
			if rs == nil {
				return nil
			}
			if cur := summarize(rs); cur != last {
				cur.log()
				last = cur
			}
		}
	}
}

// summary is what the watch command reports about a repository. It only
// logs when a field changes.
type summary struct {
	head     string
	staged   int
	unstaged int
	commits  int
	tip      domain.CommitID
	loading  bool
	lastErr  string
}

func summarize(rs *store.RepoState) summary {
	s := summary{
		head:     rs.Head.Value,
		staged:   len(rs.Status.Value.Staged),
		unstaged: len(rs.Status.Value.Unstaged),
		commits:  len(rs.Log.Value.Commits),
		loading:  rs.Head.IsLoading() || rs.Status.IsLoading() || rs.Log.IsLoading(),
	}
	if len(rs.Log.Value.Commits) > 0 {
		s.tip = rs.Log.Value.Commits[0].ID
	}
	if rs.LastError != nil {
		s.lastErr = *rs.LastError
	}
	return s
}

func (s summary) log() {
	if s.loading {
		slog.Debug("reloading")
		return
	}
	attrs := []any{
		slog.String("head", s.head),
		slog.String("tip", s.tip.Short()),
		slog.Int("staged", s.staged),
		slog.Int("unstaged", s.unstaged),
		slog.Int("commits", s.commits),
	}
	if s.lastErr != "" {
		attrs = append(attrs, slog.String("last_error", s.lastErr))
	}
	slog.Info("repository state", attrs...)
}
