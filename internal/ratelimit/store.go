package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Store housekeeping defaults.
const (
	DefaultSweepInterval    = time.Minute
	DefaultRetentionCeiling = 24 * time.Hour
)

// record holds the admitted hit timestamps of one key in chronological order.
type record struct {
	timestamps []time.Time
	updatedAt  time.Time
}

// Store is the in-memory map of client records shared by every limiter of
// the process. A background sweep started with Start evicts records that
// have not been written for longer than the retention ceiling, independent
// of any window length.
//
// The store is per-process: separate instances keep independent limits.
type Store struct {
	sweepInterval time.Duration
	retention     time.Duration
	now           func() time.Time
	logger        *slog.Logger

	mu      sync.Mutex
	records map[string]*record

	lifecycle sync.Mutex
	running   bool
	done      chan struct{}
	wg        sync.WaitGroup
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the logger used for sweep events.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = l
	}
}

// NewStore creates an empty store. Non-positive durations fall back to the
// package defaults. The sweep does not run until Start is called.
func NewStore(sweepInterval, retention time.Duration, opts ...StoreOption) *Store {
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	if retention <= 0 {
		retention = DefaultRetentionCeiling
	}

	s := &Store{
		sweepInterval: sweepInterval,
		retention:     retention,
		now:           time.Now,
		logger:        slog.Default(),
		records:       make(map[string]*record),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the store's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

// Update runs fn on the timestamps of key and stores the slice it returns,
// all under the store lock. fn may modify the slice in place.
func (s *Store) Update(key string, fn func(timestamps []time.Time) []time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		rec = &record{}
		s.records[key] = rec
	}
	rec.timestamps = fn(rec.timestamps)
	rec.updatedAt = s.now()
}

// Delete removes the record of key.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
}

// Size returns the number of tracked keys.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Sweep evicts records idle for longer than the retention ceiling and
// returns how many were removed.
func (s *Store) Sweep() int {
	now := s.now()

	s.mu.Lock()
	evicted := 0
	for key, rec := range s.records {
		if now.Sub(rec.updatedAt) > s.retention {
			delete(s.records, key)
			evicted++
		}
	}
	remaining := len(s.records)
	s.mu.Unlock()

	if evicted > 0 {
		s.logger.Debug("Rate limit store swept",
			"evicted", evicted,
			"remaining", remaining,
		)
	}
	return evicted
}

// Start launches the periodic sweep. It returns immediately; the sweep runs
// until ctx is cancelled or Stop is called. Calling Start on a running store
// does nothing.
func (s *Store) Start(ctx context.Context) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.done = make(chan struct{})

	s.wg.Add(1)
	go s.sweepLoop(ctx, s.done)
}

// Stop halts the sweep, waits for it to exit and drops every record. It is
// safe to call more than once.
func (s *Store) Stop() {
	s.lifecycle.Lock()
	if s.running {
		s.running = false
		close(s.done)
	}
	s.lifecycle.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	s.records = make(map[string]*record)
	s.mu.Unlock()
}

func (s *Store) sweepLoop(ctx context.Context, done <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
