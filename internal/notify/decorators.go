package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Throttled waits for a token before each send so bursts stay within the
// provider quota. Waiting honours ctx.
type Throttled struct {
	next    Notifier
	limiter *rate.Limiter
}

func NewThrottled(next Notifier, perSecond float64, burst int) *Throttled {
	if burst < 1 {
		burst = 1
	}
	return &Throttled{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (t *Throttled) Send(ctx context.Context, msg Message) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("mail throttle: %w", err)
	}
	return t.next.Send(ctx, msg)
}

// Breaker stops calling the provider after consecutive failures and fails
// fast with ErrCircuitOpen until the open timeout elapses.
type Breaker struct {
	next    Notifier
	breaker *gobreaker.CircuitBreaker
}

func NewBreaker(next Notifier, name string, maxFailures uint32, openTimeout time.Duration, logger *slog.Logger) *Breaker {
	if logger == nil {
		logger = slog.Default()
	}
	if maxFailures == 0 {
		maxFailures = 1
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellations say nothing about provider health.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Mail circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &Breaker{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

func (b *Breaker) Send(ctx context.Context, msg Message) error {
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, b.next.Send(ctx, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("breaker (%s): %w", b.breaker.Name(), ErrCircuitOpen)
	}
	return err
}

// State reports the breaker state, for health output.
func (b *Breaker) State() string {
	return b.breaker.State().String()
}

type fallback struct {
	primary   Notifier
	secondary Notifier
	logger    *slog.Logger
}

// Fallback tries primary once and, when it fails, secondary once. When both
// fail the returned error joins the two causes.
func Fallback(primary, secondary Notifier, logger *slog.Logger) Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &fallback{primary: primary, secondary: secondary, logger: logger}
}

func (f *fallback) Send(ctx context.Context, msg Message) error {
	primaryErr := f.primary.Send(ctx, msg)
	if primaryErr == nil {
		return nil
	}
	if ctx.Err() != nil || errors.Is(primaryErr, ErrNotConfigured) {
		return primaryErr
	}

	f.logger.WarnContext(ctx, "Primary mail send failed, trying fallback", "error", primaryErr)

	if err := f.secondary.Send(ctx, msg); err != nil {
		return errors.Join(primaryErr, fmt.Errorf("fallback: %w", err))
	}
	return nil
}
