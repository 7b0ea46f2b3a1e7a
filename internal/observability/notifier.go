package observability

import (
	"context"
	"errors"
	"time"

	"bookinggate/internal/notify"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedNotifier wraps a notify.Notifier with OpenTelemetry tracing
// and metrics instrumentation.
type InstrumentedNotifier struct {
	inner    notify.Notifier
	tracer   trace.Tracer
	duration metric.Float64Histogram
	errors   metric.Int64Counter
}

// NewInstrumentedNotifier creates a notifier wrapper that records a trace span,
// a latency histogram and an error counter for every send.
func NewInstrumentedNotifier(inner notify.Notifier) (*InstrumentedNotifier, error) {
	tracer := otel.Tracer("bookinggate/notify")
	meter := otel.Meter("bookinggate/notify")

	duration, err := meter.Float64Histogram(
		"notify.send.duration",
		metric.WithDescription("Duration of notification sends in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errCounter, err := meter.Int64Counter(
		"notify.send.errors",
		metric.WithDescription("Number of failed notification sends"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedNotifier{
		inner:    inner,
		tracer:   tracer,
		duration: duration,
		errors:   errCounter,
	}, nil
}

func (n *InstrumentedNotifier) Send(ctx context.Context, msg notify.Message) error {
	ctx, span := n.tracer.Start(ctx, "notify.Send",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.Int("notify.recipients", len(msg.To))),
	)
	defer span.End()

	start := time.Now()
	err := n.inner.Send(ctx, msg)

	n.duration.Record(ctx, time.Since(start).Seconds())

	if err != nil {
		n.errors.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", errorReason(err))))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, notify.ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, notify.ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "provider"
	}
}
