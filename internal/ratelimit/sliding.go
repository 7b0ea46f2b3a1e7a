package ratelimit

import (
	"context"
	"log/slog"
	"time"
)

// SlidingWindow admits at most Config.MaxRequests requests per identifier
// within any trailing Config.Window.
type SlidingWindow struct {
	cfg    Config
	store  *Store
	logger *slog.Logger
}

// NewSlidingWindow creates a limiter backed by store. A nil logger uses
// slog.Default.
func NewSlidingWindow(cfg Config, store *Store, logger *slog.Logger) *SlidingWindow {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlidingWindow{
		cfg:    cfg,
		store:  store,
		logger: logger,
	}
}

// Config returns the limiter settings.
func (l *SlidingWindow) Config() Config {
	return l.cfg
}

// Check records and evaluates one request. Hits at or before now-Window are
// expired. A rejected request is not counted but the pruned list is still
// written back. The read-filter-append-write sequence holds the store lock,
// so concurrent checks for one identifier never admit more than MaxRequests.
func (l *SlidingWindow) Check(ctx context.Context, identifier string, attrs ...any) Result {
	key := l.cfg.storeKey(identifier)

	var (
		now     time.Time
		hits    int
		allowed bool
		oldest  time.Time
	)

	l.store.Update(key, func(timestamps []time.Time) []time.Time {
		now = l.store.Now()
		windowStart := now.Add(-l.cfg.Window)

		kept := timestamps[:0]
		for _, ts := range timestamps {
			if ts.After(windowStart) {
				kept = append(kept, ts)
			}
		}

		hits = len(kept)
		allowed = hits < l.cfg.MaxRequests
		if hits > 0 {
			oldest = kept[0]
		}
		if allowed {
			kept = append(kept, now)
		}
		return kept
	})

	remaining := l.cfg.MaxRequests - hits - 1
	if remaining < 0 {
		remaining = 0
	}

	resetTime := now.Add(l.cfg.Window)
	if hits > 0 {
		resetTime = oldest.Add(l.cfg.Window)
	}

	totalHits := hits
	if allowed {
		totalHits++
	}

	if !allowed {
		args := append([]any{}, attrs...)
		args = append(args,
			"identifier", identifier,
			"limiter", l.cfg.Name,
			"total_hits", hits,
			"max_requests", l.cfg.MaxRequests,
			"window_ms", l.cfg.Window.Milliseconds(),
		)
		l.logger.WarnContext(ctx, "Rate limit exceeded", args...)
	}

	return Result{
		Allowed:   allowed,
		Remaining: remaining,
		ResetTime: resetTime,
		TotalHits: totalHits,
		Limit:     l.cfg.MaxRequests,
	}
}

// Reset clears every hit recorded for identifier.
func (l *SlidingWindow) Reset(identifier string) {
	l.store.Delete(l.cfg.storeKey(identifier))
}

// Stats reports the number of keys held by the shared store.
func (l *SlidingWindow) Stats() Stats {
	return Stats{TotalKeys: l.store.Size()}
}
