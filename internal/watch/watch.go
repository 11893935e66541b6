// Package watch turns filesystem activity in a repository into
// RepoExternallyChanged messages.
package watch

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/thiagokokada/gitk-core/internal/debounce"
	"github.com/thiagokokada/gitk-core/internal/domain"
	"github.com/thiagokokada/gitk-core/internal/store/msg"
)

const DefaultDelay = 350 * time.Millisecond

// Watcher watches one repository. Bursts of events are coalesced into at
// most one message per debounce period.
type Watcher struct {
	repo   domain.RepoID
	root   string
	gitDir string
	send   func(msg.Msg)

	delay    time.Duration
	fsw      *fsnotify.Watcher
	debounce *debounce.Debouncer

	mu       sync.Mutex
	worktree bool
	gitState bool

	done chan struct{}
}

// New starts watching the working tree and git directory of spec. Every
// coalesced change is reported through send. Without spec.GitDir the git
// directory is taken to be the ".git" directory of the working tree.
func New(repo domain.RepoID, spec domain.RepoSpec, delay time.Duration, send func(msg.Msg)) (*Watcher, error) {
	if delay <= 0 {
		delay = DefaultDelay
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	gitDir := spec.GitDir
	if gitDir == "" {
		gitDir = filepath.Join(spec.Workdir, ".git")
	}
	w := &Watcher{
		repo:   repo,
		root:   filepath.Clean(spec.Workdir),
		gitDir: filepath.Clean(gitDir),
		send:   send,
		delay:  delay,
		fsw:    fsw,
		done:   make(chan struct{}),
	}
	for _, path := range w.paths() {
		slog.Debug("adding path to FS watcher", slog.String("path", path))
		if err := fsw.Add(path); err != nil {
			err := errors.Join(err, fsw.Close())
			return nil, fmt.Errorf("watch %s: %w", path, err)
		}
	}
	go w.loop()
	return w, nil
}

// Close stops watching and drops a pending notification.
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	<-w.done
	w.mu.Lock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.mu.Unlock()
	return err
}

// paths lists the directories to register: every working tree directory
// outside .git, and the parts of the git directory that move when refs,
// HEAD or the index change.
func (w *Watcher) paths() []string {
	var out []string
	_ = filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path == w.gitDir {
			return filepath.SkipDir
		}
		out = append(out, path)
		return nil
	})
	if info, err := os.Stat(w.gitDir); err == nil && info.IsDir() {
		out = append(out, w.gitDir)
		for _, sub := range []string{"refs", filepath.Join("refs", "heads"), filepath.Join("refs", "remotes"), filepath.Join("refs", "tags")} {
			p := filepath.Join(w.gitDir, sub)
			if info, err := os.Stat(p); err == nil && info.IsDir() {
				out = append(out, p)
			}
		}
	}
	return out
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if shouldIgnore(ev.Name) {
				continue
			}
			slog.Debug("fsnotify event",
				slog.String("op", ev.Op.String()),
				slog.String("path", ev.Name),
			)
			if ev.Op&fsnotify.Create != 0 {
				w.watchNewDir(ev.Name)
			}
			w.note(w.classify(ev.Name))
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Error("fsnotify error", slog.Any("error", err))
		}
	}
}

// watchNewDir registers directories created in the working tree after the
// watcher started.
func (w *Watcher) watchNewDir(path string) {
	if w.classify(path) != msg.ChangeWorktree {
		return
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if err := w.fsw.Add(path); err != nil {
		slog.Debug("cannot watch new directory", slog.String("path", path), slog.Any("error", err))
	}
}

func (w *Watcher) classify(path string) msg.ChangeKind {
	if path == w.gitDir || strings.HasPrefix(path, w.gitDir+string(filepath.Separator)) {
		return msg.ChangeGitState
	}
	return msg.ChangeWorktree
}

func (w *Watcher) note(kind msg.ChangeKind) {
	w.mu.Lock()
	if kind == msg.ChangeGitState {
		w.gitState = true
	} else {
		w.worktree = true
	}
	// the debouncer is created by the first event
	d := debounce.Ensure(&w.debounce, w.delay, w.flush)
	w.mu.Unlock()
	d.Trigger()
}

// flush sends one message for everything noted since the last flush. A git
// state change reloads a superset of what a worktree change does.
func (w *Watcher) flush() {
	w.mu.Lock()
	worktree, gitState := w.worktree, w.gitState
	w.worktree, w.gitState = false, false
	w.mu.Unlock()
	switch {
	case gitState:
		w.send(msg.RepoExternallyChanged{Repo: w.repo, Kind: msg.ChangeGitState})
	case worktree:
		w.send(msg.RepoExternallyChanged{Repo: w.repo, Kind: msg.ChangeWorktree})
	}
}

func shouldIgnore(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".lock" || ext == ".ipc" || ext == ".swp"
}
