package async

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Progress is a lightweight progress report emitted by a running task.
type Progress struct {
	Percent float64
	Message string
}

// Task wraps one unit of background work with a cooperative cancellation flag
// and a progress channel. Cancellation is advisory: the work is expected to
// check the flag at safe points, and side effects already committed when the
// flag is observed are not rolled back.
type Task struct {
	cancelled atomic.Bool
	progress  chan Progress
}

func newTask() *Task {
	return &Task{progress: make(chan Progress, 16)}
}

// Cancel sets the cancellation flag. A task cancelled before it emits its
// result reports only completion: the success callback is suppressed.
func (t *Task) Cancel() {
	t.cancelled.Store(true)
}

// Cancelled reports whether cancellation was requested.
func (t *Task) Cancelled() bool {
	return t.cancelled.Load()
}

// Report publishes a progress update without blocking; updates are dropped if
// the consumer lags.
func (t *Task) Report(p Progress) {
	select {
	case t.progress <- p:
	default:
	}
}

// Progress returns the progress channel; it is closed when the task finishes.
func (t *Task) Progress() <-chan Progress {
	return t.progress
}

// Callbacks receives a task's terminal outcome. OnResult and OnError are
// mutually exclusive and invoked at most once; OnDone always runs last.
type Callbacks[T any] struct {
	OnResult func(T)
	OnError  func(error)
	OnDone   func()
}

// Pool bounds the number of concurrently running tasks.
type Pool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

// NewPool creates a pool running at most size tasks at once.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: make(chan struct{}, size)}
}

// Wait blocks until every submitted task has finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Submit schedules fn on the pool and returns its task handle immediately.
// The function runs once a slot frees up; panics are converted to the error
// callback so a misbehaving unit cannot take down the process.
func Submit[T any](p *Pool, ctx context.Context, fn func(ctx context.Context, task *Task) (T, error), cb Callbacks[T]) *Task {
	task := newTask()
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer close(task.progress)
		defer func() {
			if cb.OnDone != nil {
				cb.OnDone()
			}
		}()

		p.sem <- struct{}{}
		defer func() { <-p.sem }()

		result, err := runGuarded(ctx, task, fn)
		if task.Cancelled() {
			return
		}
		if err != nil {
			if cb.OnError != nil {
				cb.OnError(err)
			}
			return
		}
		if cb.OnResult != nil {
			cb.OnResult(result)
		}
	}()
	return task
}

func runGuarded[T any](ctx context.Context, task *Task, fn func(ctx context.Context, task *Task) (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return fn(ctx, task)
}
