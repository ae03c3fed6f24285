// Package loop provides the single-threaded event loop every page runs on.
//
// Tasks posted from any goroutine run one at a time on the goroutine that
// calls Run (or RunPending). After each task the microtask queue is drained,
// which is where the renderer coalesces commits. Timers post their callback
// as a task, so debounce windows never race with DOM access.
package loop

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// DefaultQueueSize is the task queue capacity used when Config.QueueSize is zero.
const DefaultQueueSize = 256

// Config configures a Loop.
type Config struct {
	// QueueSize bounds the number of pending tasks.
	QueueSize int

	// Logger receives task panics and dropped tasks. Defaults to slog.Default().
	Logger *slog.Logger
}

// Loop runs tasks and microtasks sequentially.
type Loop struct {
	tasks  chan func()
	logger *slog.Logger

	microMu sync.Mutex
	micro   []func()

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a loop.
func New(cfg Config) *Loop {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Loop{
		tasks:  make(chan func(), cfg.QueueSize),
		logger: cfg.Logger.With("component", "loop"),
		done:   make(chan struct{}),
	}
}

// Post queues fn as a task. It is safe to call from any goroutine and
// reports false when the loop is closed or the queue is full.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	default:
		l.logger.Warn("task queue full, discarding task")
		return false
	}
}

// PostWait queues fn, blocking while the queue is full. It reports false
// only when the loop is closed or ctx is done before fn was queued.
func (l *Loop) PostWait(ctx context.Context, fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// QueueMicrotask queues fn to run after the current task completes.
func (l *Loop) QueueMicrotask(fn func()) {
	l.microMu.Lock()
	l.micro = append(l.micro, fn)
	l.microMu.Unlock()
}

// RunMicrotasks drains the microtask queue, including microtasks queued
// while draining. It returns the number of microtasks run.
func (l *Loop) RunMicrotasks() int {
	ran := 0
	for {
		l.microMu.Lock()
		batch := l.micro
		l.micro = nil
		l.microMu.Unlock()
		if len(batch) == 0 {
			return ran
		}
		for _, fn := range batch {
			l.safeRun(fn)
			ran++
		}
	}
}

// Timer is a pending AfterFunc callback.
type Timer struct {
	t *time.Timer
}

// Stop cancels the timer. It reports false if the callback was already posted.
func (t *Timer) Stop() bool {
	return t.t.Stop()
}

// AfterFunc posts fn to the loop once d has elapsed. A full queue delays
// the callback rather than dropping it.
func (l *Loop) AfterFunc(d time.Duration, fn func()) *Timer {
	return &Timer{t: time.AfterFunc(d, func() { l.PostWait(context.Background(), fn) })}
}

// Run executes tasks until ctx is cancelled or Close is called.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case fn := <-l.tasks:
			l.execute(fn)
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		}
	}
}

// RunPending executes the tasks that are queued right now without
// blocking, draining microtasks after each. It is meant for synchronous
// embedding and tests; it must not be used while Run is active.
func (l *Loop) RunPending() int {
	ran := l.RunMicrotasks()
	for {
		select {
		case fn := <-l.tasks:
			l.execute(fn)
			ran++
		default:
			return ran
		}
	}
}

// Close stops Run and rejects further tasks.
func (l *Loop) Close() {
	l.closeOnce.Do(func() { close(l.done) })
}

// Done is closed when the loop is closed.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) execute(fn func()) {
	l.safeRun(fn)
	l.RunMicrotasks()
}

// safeRun runs fn with panic recovery so one failing task cannot stop the loop.
func (l *Loop) safeRun(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("task panic",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}
