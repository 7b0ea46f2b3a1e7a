// Package ratelimit provides per-client admission control using a sliding
// window. Each check recomputes the number of admitted requests inside the
// trailing window, so there is no fixed-interval reset and no drift. State
// lives in a Store shared by every endpoint profile; a background sweep
// reclaims records of clients that went quiet.
package ratelimit

import (
	"context"
	"math"
	"time"

	"bookinggate/internal/models"
)

// Limiter defines the admission contract. Implementations must be safe for
// concurrent use.
type Limiter interface {
	// Check admits or rejects a request attributed to identifier. attrs are
	// extra log attributes emitted on rejection; they never affect the decision.
	Check(ctx context.Context, identifier string, attrs ...any) Result

	// Reset forgets every recorded hit for identifier.
	Reset(identifier string)

	// Config returns the limiter's immutable settings.
	Config() Config
}

// Config is the immutable setting of one protected endpoint class.
type Config struct {
	Name        string        // Store key namespace, e.g. "booking"
	Window      time.Duration // Trailing window length
	MaxRequests int           // Admitted requests per window
	KeyFunc     func(identifier string) string
	Message     string // Shown to rejected clients
}

// storeKey maps an identifier to its record key.
func (c Config) storeKey(identifier string) string {
	key := identifier
	if c.KeyFunc != nil {
		key = c.KeyFunc(identifier)
	}
	if c.Name == "" {
		return key
	}
	return c.Name + ":" + key
}

// ConfigFromWindow builds a named Config from its configuration section.
func ConfigFromWindow(name string, wc models.WindowConfig) Config {
	return Config{
		Name:        name,
		Window:      wc.Window,
		MaxRequests: wc.MaxRequests,
		Message:     wc.Message,
	}
}

// Profiles groups the limiter settings of each endpoint class.
type Profiles struct {
	Booking Config
	API     Config
	Auth    Config
}

// NewProfiles builds the endpoint profiles from configuration.
func NewProfiles(cfg models.RateLimitConfig) Profiles {
	return Profiles{
		Booking: ConfigFromWindow("booking", cfg.Booking),
		API:     ConfigFromWindow("api", cfg.API),
		Auth:    ConfigFromWindow("auth", cfg.Auth),
	}
}

// DefaultProfiles returns booking (3 per 10 minutes), api (100 per 15
// minutes) and auth (5 per 15 minutes).
func DefaultProfiles() Profiles {
	return NewProfiles(models.NewDefaultConfig().RateLimit)
}

// Result is the outcome of one check. It is consumed immediately to build
// response headers and never stored.
type Result struct {
	Allowed   bool
	Remaining int       // Slots left, computed before this request was counted
	ResetTime time.Time // When the oldest counted hit leaves the window
	TotalHits int       // Hits in the window, including this one if admitted
	Limit     int
}

// ResetUnix returns ResetTime as unix seconds, rounded up.
func (r Result) ResetUnix() int64 {
	ms := r.ResetTime.UnixMilli()
	return int64(math.Ceil(float64(ms) / 1000))
}

// RetryAfter returns the whole seconds a rejected client should wait, at
// least one.
func (r Result) RetryAfter(now time.Time) int {
	secs := int(math.Ceil(r.ResetTime.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// Stats summarises store usage.
type Stats struct {
	TotalKeys int `json:"total_keys"`
}
