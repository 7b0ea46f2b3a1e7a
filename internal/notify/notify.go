// Package notify delivers booking notifications to the business owner.
//
// A Notifier is a single fallible operation: Send returns once the provider
// accepted or refused the message. Decorators in this package add throttling,
// circuit breaking and a degraded second attempt around a base sender.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"bookinggate/internal/models"
)

var (
	// ErrNotConfigured is returned when no provider credentials are set.
	ErrNotConfigured = errors.New("email service not configured")

	// ErrCircuitOpen is returned while the breaker rejects sends.
	ErrCircuitOpen = errors.New("email service unavailable")
)

// Message is one outbound email.
type Message struct {
	From    string
	To      []string
	ReplyTo string
	Subject string
	HTML    string
}

// Notifier sends booking notifications.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, msg Message) error

func (f NotifierFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// Unconfigured fails every send with ErrNotConfigured.
type Unconfigured struct{}

func (Unconfigured) Send(context.Context, Message) error {
	return ErrNotConfigured
}

// LogNotifier writes a summary of each message to the log instead of
// sending it. The body and reply-to address are never logged.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.logger.InfoContext(ctx, "Booking notification (log provider)",
		"from", msg.From,
		"to", msg.To,
		"subject", msg.Subject,
		"html_bytes", len(msg.HTML),
	)
	return nil
}

// WithSender returns a Notifier that rewrites the From address before
// delegating to next.
func WithSender(next Notifier, from string) Notifier {
	return NotifierFunc(func(ctx context.Context, msg Message) error {
		msg.From = from
		return next.Send(ctx, msg)
	})
}

// New builds the notifier pipeline described by cfg:
// throttle, then breaker, then the provider with a fallback sender.
func New(cfg models.MailConfig, logger *slog.Logger) Notifier {
	if logger == nil {
		logger = slog.Default()
	}

	var base Notifier
	switch cfg.Provider {
	case models.MailProviderLog:
		return NewLogNotifier(logger)
	default:
		if cfg.APIKey == "" {
			logger.Warn("RESEND_API_KEY is not set, booking notifications will fail")
			return Unconfigured{}
		}
		base = NewResendNotifier(cfg.APIKey, cfg.Timeout)
	}

	n := base
	if cfg.FallbackFrom != "" && cfg.FallbackFrom != cfg.From {
		n = Fallback(n, WithSender(base, cfg.FallbackFrom), logger)
	}

	n = NewBreaker(n, "mail", cfg.Breaker.MaxFailures, cfg.Breaker.OpenTimeout, logger)

	if cfg.RatePerSecond > 0 {
		n = NewThrottled(n, cfg.RatePerSecond, cfg.Burst)
	}

	return n
}
