package concurrency

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedLocker_SerializesSameKey(t *testing.T) {
	locker := NewKeyedLocker()
	var (
		mu      sync.Mutex
		active  int
		maxSeen int
		wg      sync.WaitGroup
	)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			locker.Lock("meeting-1")
			defer locker.Unlock("meeting-1")

			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, locker.Len(), "idle keys are released")
}

func TestKeyedLocker_IndependentKeys(t *testing.T) {
	locker := NewKeyedLocker()
	locker.Lock("a")
	done := make(chan struct{})
	go func() {
		locker.Lock("b")
		locker.Unlock("b")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked behind a")
	}
	locker.Unlock("a")
	locker.Unlock("missing")
}

func TestTracker_RecoversPanic(t *testing.T) {
	var tracker Tracker
	recovered := make(chan interface{}, 1)
	tracker.Go("boom", func() { panic("boom") }, func(p interface{}) { recovered <- p })

	select {
	case p := <-recovered:
		assert.Equal(t, "boom", p)
	case <-time.After(time.Second):
		t.Fatal("panic was not reported")
	}
	require.NoError(t, tracker.Wait(context.Background()))
	assert.Zero(t, tracker.Active())
}

func TestTracker_WaitHonorsContext(t *testing.T) {
	var tracker Tracker
	release := make(chan struct{})
	tracker.Go("slow", func() { <-release }, nil)
	assert.Equal(t, 1, tracker.Active())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := tracker.Wait(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 still in flight")

	close(release)
	require.NoError(t, tracker.Wait(context.Background()))
}
