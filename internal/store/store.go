// Package store holds the application state of every open repository. All
// mutations go through a single message loop; blocking git work runs on an
// executor and reports back with completion messages.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/thiagokokada/gitk-core/internal/executor"
	"github.com/thiagokokada/gitk-core/internal/git"
	"github.com/thiagokokada/gitk-core/internal/store/effect"
	"github.com/thiagokokada/gitk-core/internal/store/msg"
)

const (
	DefaultLogPageSize    = 200
	DefaultCommitCacheTTL = 10 * time.Minute
)

var ErrClosed = errors.New("store closed")

type Options struct {
	Backend git.Backend
	// Workers is the executor size; zero picks executor.DefaultWorkers.
	Workers        int
	LogPageSize    int
	CommitCacheTTL time.Duration
}

// AppStore owns an AppState and the loop that reduces messages into it.
type AppStore struct {
	mu    sync.RWMutex
	state AppState

	// handles and ids belong to the loop goroutine.
	handles handleTable
	ids     idAllocator

	inbox *mailbox
	exec  *executor.Executor
	disp  *dispatcher

	subsMu sync.Mutex
	subs   []chan struct{}

	done      chan struct{}
	closeOnce sync.Once
}

func New(opts Options) (*AppStore, error) {
	if opts.Backend == nil {
		return nil, errors.New("store: no git backend")
	}
	if opts.Workers <= 0 {
		opts.Workers = executor.DefaultWorkers()
	}
	if opts.LogPageSize <= 0 {
		opts.LogPageSize = DefaultLogPageSize
	}
	if opts.CommitCacheTTL <= 0 {
		opts.CommitCacheTTL = DefaultCommitCacheTTL
	}
	s := &AppStore{
		handles: handleTable{},
		inbox:   newMailbox(),
		exec:    executor.New(opts.Workers),
		done:    make(chan struct{}),
	}
	s.disp = newDispatcher(opts.Backend, s.exec, s.Dispatch, opts.LogPageSize, opts.CommitCacheTTL)
	slog.Debug("store started",
		slog.String("backend", opts.Backend.Name()),
		slog.Int("workers", opts.Workers),
		slog.Int("log_page_size", opts.LogPageSize),
	)
	go s.loop()
	return s, nil
}

// Dispatch queues m for the loop and returns immediately. Messages sent
// after Close are dropped.
func (s *AppStore) Dispatch(m msg.Msg) {
	if m == nil {
		return
	}
	if !s.inbox.push(m) {
		slog.Debug("store closed, dropping message", slog.String("type", fmt.Sprintf("%T", m)))
	}
}

// Snapshot returns a copy of the current state.
func (s *AppStore) Snapshot() AppState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Subscribe returns a channel that receives a value after messages are
// processed. Notifications coalesce: a slow reader sees one pending signal
// no matter how many messages went by. Call cancel to stop receiving.
func (s *AppStore) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.subsMu.Lock()
	s.subs = append(s.subs, ch)
	s.subsMu.Unlock()
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subsMu.Lock()
			s.subs = slices.DeleteFunc(s.subs, func(c chan struct{}) bool { return c == ch })
			s.subsMu.Unlock()
		})
	}
	return ch, cancel
}

// WaitFor blocks until cond holds for a snapshot, ctx is done or the store
// closes. It returns the snapshot cond accepted.
func (s *AppStore) WaitFor(ctx context.Context, cond func(*AppState) bool) (AppState, error) {
	ch, cancel := s.Subscribe()
	defer cancel()
	for {
		snap := s.Snapshot()
		if cond(&snap) {
			return snap, nil
		}
		select {
		case <-ch:
		case <-s.done:
			return snap, ErrClosed
		case <-ctx.Done():
			return snap, ctx.Err()
		}
	}
}

// Close stops the loop, waits for running effects and drops the rest of
// the inbox. It is safe to call more than once.
func (s *AppStore) Close() {
	s.closeOnce.Do(func() {
		if dropped := s.inbox.close(); dropped > 0 {
			slog.Debug("store closed with queued messages", slog.Int("dropped", dropped))
		}
		<-s.done
		s.exec.Close()
		stats := s.exec.Stats()
		slog.Debug("store stopped",
			slog.Uint64("effects", stats.Completed),
			slog.Uint64("panicked", stats.Panicked),
		)
	})
}

func (s *AppStore) loop() {
	defer close(s.done)
	for {
		m, ok := s.inbox.pop()
		if !ok {
			return
		}
		effs := s.apply(m)
		s.notify()
		for _, e := range effs {
			s.disp.dispatch(s.handleFor(e), e)
		}
	}
}

func (s *AppStore) apply(m msg.Msg) []effect.Effect {
	slog.Debug("store: message", slog.String("type", fmt.Sprintf("%T", m)))
	s.mu.Lock()
	defer s.mu.Unlock()
	return reduce(s.handles, &s.ids, &s.state, m)
}

func (s *AppStore) handleFor(e effect.Effect) git.Repository {
	if id := e.RepoID(); id != 0 {
		return s.handles[id]
	}
	return nil
}

func (s *AppStore) notify() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// mailbox is an unbounded FIFO so that Dispatch never blocks, not even
// when called from the loop's own effects.
type mailbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []msg.Msg
	closed bool
}

func newMailbox() *mailbox {
	mb := &mailbox{}
	mb.cond = sync.NewCond(&mb.mu)
	return mb
}

func (mb *mailbox) push(m msg.Msg) bool {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if mb.closed {
		return false
	}
	mb.queue = append(mb.queue, m)
	mb.cond.Signal()
	return true
}

func (mb *mailbox) pop() (msg.Msg, bool) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	for len(mb.queue) == 0 && !mb.closed {
		mb.cond.Wait()
	}
	if mb.closed {
		return nil, false
	}
	m := mb.queue[0]
	mb.queue[0] = nil
	mb.queue = mb.queue[1:]
	return m, true
}

// close wakes the loop and reports how many messages were still queued.
func (mb *mailbox) close() int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if mb.closed {
		return 0
	}
	mb.closed = true
	n := len(mb.queue)
	mb.queue = nil
	mb.cond.Broadcast()
	return n
}
