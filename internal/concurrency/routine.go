package concurrency

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// Tracker runs background work with panic recovery and lets a shutdown path
// wait for whatever is still in flight.
type Tracker struct {
	wg     sync.WaitGroup
	active atomic.Int64
}

// Go runs fn in a goroutine. A panic is logged with its stack and handed to
// onPanic instead of crashing the process.
func (t *Tracker) Go(label string, fn func(), onPanic func(interface{})) {
	t.wg.Add(1)
	t.active.Add(1)
	go func() {
		defer func() {
			t.active.Add(-1)
			t.wg.Done()
		}()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Panic recovered", "task", label, "panic", r, "stack", string(debug.Stack()))
				if onPanic != nil {
					onPanic(r)
				}
			}
		}()
		fn()
	}()
}

// Active reports how many goroutines started by Go have not returned.
func (t *Tracker) Active() int {
	return int(t.active.Load())
}

// Wait blocks until every tracked goroutine returns or ctx is done.
func (t *Tracker) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%d still in flight: %w", t.Active(), ctx.Err())
	}
}
