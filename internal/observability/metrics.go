package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsServer serves Prometheus metrics on a separate port.
type MetricsServer struct {
	server *http.Server
}

// NewMetricsServer creates a metrics HTTP server serving the Prometheus handler
// at the given path on the given port.
func NewMetricsServer(port int, path string, provider *Provider) *MetricsServer {
	mux := http.NewServeMux()

	if provider != nil && provider.registry != nil {
		mux.Handle(path, promhttp.HandlerFor(provider.registry, promhttp.HandlerOpts{}))
	}

	return &MetricsServer{
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}
}

// Handler returns the underlying mux.
func (ms *MetricsServer) Handler() http.Handler {
	return ms.server.Handler
}

// Start begins serving metrics in a blocking call.
// Returns http.ErrServerClosed on graceful shutdown.
func (ms *MetricsServer) Start() error {
	slog.Info("Starting metrics server", "addr", ms.server.Addr)
	return ms.server.ListenAndServe()
}

// Shutdown gracefully stops the metrics server.
func (ms *MetricsServer) Shutdown(ctx context.Context) error {
	return ms.server.Shutdown(ctx)
}

// Booking outcomes recorded by AdmissionMetrics.
const (
	OutcomeAccepted       = "accepted"
	OutcomeForbidden      = "forbidden"
	OutcomeRateLimited    = "rate_limited"
	OutcomeTooLarge       = "too_large"
	OutcomeUnreadable     = "unreadable"
	OutcomeInvalidJSON    = "invalid_json"
	OutcomeInvalid        = "invalid"
	OutcomeHoneypot       = "honeypot"
	OutcomeNotConfigured  = "not_configured"
	OutcomeDispatchFailed = "dispatch_failed"
)

// AdmissionMetrics records limiter decisions and booking outcomes.
type AdmissionMetrics struct {
	decisions metric.Int64Counter
	outcomes  metric.Int64Counter
}

// NewAdmissionMetrics creates the admission instruments on the global meter
// provider.
func NewAdmissionMetrics() (*AdmissionMetrics, error) {
	meter := otel.Meter("bookinggate/admission")

	decisions, err := meter.Int64Counter(
		"ratelimit.decisions",
		metric.WithDescription("Rate limiter decisions by limiter and result"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, err
	}

	outcomes, err := meter.Int64Counter(
		"booking.requests",
		metric.WithDescription("Booking submissions by outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &AdmissionMetrics{decisions: decisions, outcomes: outcomes}, nil
}

// RecordDecision counts one limiter check.
func (m *AdmissionMetrics) RecordDecision(ctx context.Context, limiter string, allowed bool) {
	if m == nil {
		return
	}
	result := "allowed"
	if !allowed {
		result = "rejected"
	}
	m.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("limiter", limiter),
		attribute.String("result", result),
	))
}

// RecordOutcome counts one booking submission.
func (m *AdmissionMetrics) RecordOutcome(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RegisterTrackedKeys publishes the number of identifiers held by the rate
// limit store as a gauge.
func RegisterTrackedKeys(size func() int) error {
	meter := otel.Meter("bookinggate/admission")

	_, err := meter.Int64ObservableGauge(
		"ratelimit.tracked_keys",
		metric.WithDescription("Identifiers currently held by the rate limit store"),
		metric.WithUnit("{key}"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(size()))
			return nil
		}),
	)
	return err
}
