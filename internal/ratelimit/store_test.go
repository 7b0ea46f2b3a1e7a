package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock safe for concurrent reads.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestNewStore_Defaults(t *testing.T) {
	s := NewStore(0, -1)

	assert.Equal(t, DefaultSweepInterval, s.sweepInterval)
	assert.Equal(t, DefaultRetentionCeiling, s.retention)
	assert.Equal(t, 0, s.Size())
}

func TestStore_UpdateAndDelete(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(time.Minute, time.Hour, WithClock(clock.Now))

	s.Update("a", func(ts []time.Time) []time.Time {
		assert.Empty(t, ts)
		return append(ts, clock.Now())
	})
	s.Update("b", func(ts []time.Time) []time.Time { return append(ts, clock.Now()) })
	assert.Equal(t, 2, s.Size())

	s.Update("a", func(ts []time.Time) []time.Time {
		assert.Len(t, ts, 1)
		return ts
	})

	s.Delete("a")
	assert.Equal(t, 1, s.Size())
	s.Delete("missing")
	assert.Equal(t, 1, s.Size())
}

func TestStore_SweepEvictsAfterRetentionCeiling(t *testing.T) {
	clock := newFakeClock()
	store := NewStore(time.Minute, 24*time.Hour, WithClock(clock.Now))
	limiter := NewSlidingWindow(DefaultProfiles().Booking, store, nil)

	limiter.Check(context.Background(), "198.51.100.7")
	require.Equal(t, 1, store.Size())

	// Within the ceiling the record survives, even though its window closed.
	clock.Advance(24 * time.Hour)
	assert.Equal(t, 0, store.Sweep())
	assert.Equal(t, 1, store.Size())

	clock.Advance(time.Millisecond)
	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 0, store.Size())
}

func TestStore_SweepKeepsActiveRecords(t *testing.T) {
	clock := newFakeClock()
	store := NewStore(time.Minute, time.Hour, WithClock(clock.Now))
	limiter := NewSlidingWindow(DefaultProfiles().Booking, store, nil)
	ctx := context.Background()

	limiter.Check(ctx, "quiet")
	clock.Advance(50 * time.Minute)
	limiter.Check(ctx, "busy")
	clock.Advance(20 * time.Minute)

	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Size())
	assert.Equal(t, 1, limiter.Stats().TotalKeys)
}

func TestStore_StartRunsPeriodicSweep(t *testing.T) {
	clock := newFakeClock()
	store := NewStore(10*time.Millisecond, time.Hour, WithClock(clock.Now))
	limiter := NewSlidingWindow(DefaultProfiles().API, store, nil)

	for _, id := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		limiter.Check(context.Background(), id)
	}
	require.Equal(t, 3, store.Size())

	store.Start(context.Background())
	defer store.Stop()

	clock.Advance(time.Hour + time.Second)

	assert.Eventually(t, func() bool {
		return store.Size() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestStore_StartIsIdempotent(t *testing.T) {
	store := NewStore(5*time.Millisecond, time.Hour)

	store.Start(context.Background())
	store.Start(context.Background())
	store.Stop()
	store.Stop()
}

func TestStore_StopClearsRecords(t *testing.T) {
	store := NewStore(time.Minute, time.Hour)
	limiter := NewSlidingWindow(DefaultProfiles().Booking, store, nil)

	store.Start(context.Background())
	limiter.Check(context.Background(), "203.0.113.1")
	require.Equal(t, 1, store.Size())

	store.Stop()
	assert.Equal(t, 0, store.Size())
}

func TestStore_StopWithoutStart(t *testing.T) {
	store := NewStore(time.Minute, time.Hour)
	store.Update("k", func(ts []time.Time) []time.Time { return append(ts, time.Now()) })

	store.Stop()
	assert.Equal(t, 0, store.Size())
}

func TestStore_ContextCancellationEndsSweep(t *testing.T) {
	store := NewStore(time.Millisecond, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	store.Start(ctx)
	cancel()

	stopped := make(chan struct{})
	go func() {
		store.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after context cancellation")
	}
}
