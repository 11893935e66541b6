// Package executor runs blocking closures on a fixed pool of goroutines.
package executor

import (
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

const maxDefaultWorkers = 8

// DefaultWorkers is the pool size used when none is configured:
// the CPU count clamped to [1, 8].
func DefaultWorkers() int {
	return min(max(runtime.NumCPU(), 1), maxDefaultWorkers)
}

// PanicHandler is called with the recovered value and stack when a task
// panics. The worker keeps running afterwards.
type PanicHandler func(recovered any, stack []byte)

func defaultPanicHandler(recovered any, stack []byte) {
	slog.Error("task panicked",
		slog.String("panic", fmt.Sprint(recovered)),
		slog.String("stack", string(stack)))
}

// Stats is a point-in-time view of the executor counters.
type Stats struct {
	Submitted uint64
	Completed uint64
	Panicked  uint64
	Dropped   uint64
	Queued    int
}

// Executor is a worker pool reading from one shared FIFO queue. The queue is
// unbounded: Spawn never blocks and never rejects work while the pool is
// open.
type Executor struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool
	wg     sync.WaitGroup

	panicHandler PanicHandler

	submitted atomic.Uint64
	completed atomic.Uint64
	panicked  atomic.Uint64
	dropped   atomic.Uint64
}

type Option func(*Executor)

// WithPanicHandler replaces the handler that logs panicking tasks.
func WithPanicHandler(h PanicHandler) Option {
	return func(e *Executor) {
		if h != nil {
			e.panicHandler = h
		}
	}
}

// New starts a pool of the given size. A non-positive size means
// DefaultWorkers.
func New(workers int, opts ...Option) *Executor {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	e := &Executor{panicHandler: defaultPanicHandler}
	e.cond = sync.NewCond(&e.mu)
	for _, opt := range opts {
		opt(e)
	}
	e.wg.Add(workers)
	for range workers {
		go e.worker()
	}
	slog.Debug("executor started", slog.Int("workers", workers))
	return e
}

// Spawn queues task for execution. Tasks spawned after Close are dropped.
func (e *Executor) Spawn(task func()) {
	if task == nil {
		return
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.dropped.Add(1)
		return
	}
	e.queue = append(e.queue, task)
	e.mu.Unlock()
	e.submitted.Add(1)
	e.cond.Signal()
}

// Close stops accepting tasks, lets the workers drain what is queued and
// waits for them to exit. It is safe to call more than once.
func (e *Executor) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.cond.Broadcast()
	e.wg.Wait()
}

func (e *Executor) Stats() Stats {
	e.mu.Lock()
	queued := len(e.queue)
	e.mu.Unlock()
	return Stats{
		Submitted: e.submitted.Load(),
		Completed: e.completed.Load(),
		Panicked:  e.panicked.Load(),
		Dropped:   e.dropped.Load(),
		Queued:    queued,
	}
}

func (e *Executor) next() (func(), bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for len(e.queue) == 0 && !e.closed {
		e.cond.Wait()
	}
	if len(e.queue) == 0 {
		return nil, false
	}
	task := e.queue[0]
	e.queue[0] = nil
	e.queue = e.queue[1:]
	return task, true
}

func (e *Executor) worker() {
	defer e.wg.Done()
	for {
		task, ok := e.next()
		if !ok {
			return
		}
		e.run(task)
	}
}

func (e *Executor) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			e.panicked.Add(1)
			e.panicHandler(r, debug.Stack())
		}
		e.completed.Add(1)
	}()
	task()
}
