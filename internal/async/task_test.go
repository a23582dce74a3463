package async_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"intake/internal/async"
)

func TestSubmitDeliversResultThenDone(t *testing.T) {
	pool := async.NewPool(2)
	var order []string
	var mu sync.Mutex
	done := make(chan struct{})

	async.Submit(pool, context.Background(), func(ctx context.Context, task *async.Task) (int, error) {
		return 42, nil
	}, async.Callbacks[int]{
		OnResult: func(v int) {
			mu.Lock()
			order = append(order, "result")
			mu.Unlock()
			if v != 42 {
				t.Errorf("unexpected result: %d", v)
			}
		},
		OnError: func(err error) {
			t.Errorf("error callback must not fire: %v", err)
		},
		OnDone: func() {
			mu.Lock()
			order = append(order, "done")
			mu.Unlock()
			close(done)
		},
	})

	<-done
	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "result" || order[1] != "done" {
		t.Fatalf("unexpected callback order: %v", order)
	}
}

func TestSubmitDeliversErrorExclusively(t *testing.T) {
	pool := async.NewPool(1)
	wantErr := errors.New("boom")
	done := make(chan struct{})
	var sawError atomic.Bool

	async.Submit(pool, context.Background(), func(ctx context.Context, task *async.Task) (int, error) {
		return 0, wantErr
	}, async.Callbacks[int]{
		OnResult: func(int) { t.Error("result callback must not fire") },
		OnError: func(err error) {
			if !errors.Is(err, wantErr) {
				t.Errorf("unexpected error: %v", err)
			}
			sawError.Store(true)
		},
		OnDone: func() { close(done) },
	})

	<-done
	if !sawError.Load() {
		t.Fatal("error callback never fired")
	}
}

func TestCancelSuppressesResult(t *testing.T) {
	pool := async.NewPool(1)
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	task := async.Submit(pool, context.Background(), func(ctx context.Context, task *async.Task) (string, error) {
		close(started)
		<-release
		return "late success", nil
	}, async.Callbacks[string]{
		OnResult: func(string) { t.Error("cancelled task must not deliver a result") },
		OnError:  func(err error) { t.Errorf("cancelled task must not deliver an error: %v", err) },
		OnDone:   func() { close(done) },
	})

	<-started
	task.Cancel()
	close(release)
	<-done
}

func TestPanicBecomesError(t *testing.T) {
	pool := async.NewPool(1)
	done := make(chan struct{})
	var got atomic.Value

	async.Submit(pool, context.Background(), func(ctx context.Context, task *async.Task) (int, error) {
		panic("unexpected state")
	}, async.Callbacks[int]{
		OnError: func(err error) { got.Store(err.Error()) },
		OnDone:  func() { close(done) },
	})

	<-done
	msg, _ := got.Load().(string)
	if msg == "" {
		t.Fatal("panic was not converted to an error callback")
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	pool := async.NewPool(2)
	var running, peak atomic.Int32

	for i := 0; i < 8; i++ {
		async.Submit(pool, context.Background(), func(ctx context.Context, task *async.Task) (int, error) {
			now := running.Add(1)
			for {
				current := peak.Load()
				if now <= current || peak.CompareAndSwap(current, now) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
			return 0, nil
		}, async.Callbacks[int]{})
	}

	pool.Wait()
	if peak.Load() > 2 {
		t.Fatalf("pool exceeded bound: peak %d", peak.Load())
	}
}

func TestProgressChannelClosesOnFinish(t *testing.T) {
	pool := async.NewPool(1)

	task := async.Submit(pool, context.Background(), func(ctx context.Context, task *async.Task) (int, error) {
		task.Report(async.Progress{Percent: 50, Message: "halfway"})
		return 0, nil
	}, async.Callbacks[int]{})

	var updates []async.Progress
	for p := range task.Progress() {
		updates = append(updates, p)
	}
	if len(updates) != 1 || updates[0].Message != "halfway" {
		t.Fatalf("unexpected progress updates: %v", updates)
	}
}
