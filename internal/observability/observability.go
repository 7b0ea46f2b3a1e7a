// Package observability wires OpenTelemetry into the booking gateway.
//
// Metrics go through the OTel Prometheus exporter into a private registry
// that also carries the Go runtime and process collectors; the registry is
// served by MetricsServer. Traces go to stdout or an OTLP collector.
// Instruments live next to what they measure: admission decisions and
// booking outcomes in metrics.go, notification sends in notifier.go.
package observability

import (
	"context"
	"errors"
	"fmt"

	"bookinggate/internal/models"
	"bookinggate/internal/version"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// DefaultServiceName is reported when the configuration leaves it empty.
const DefaultServiceName = "bookinggate"

// Provider owns the tracer and meter providers installed by Setup.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	promExporter   *prometheus.Exporter
	registry       *promclient.Registry
}

// PrometheusExporter returns the Prometheus exporter, or nil when metrics
// are disabled.
func (p *Provider) PrometheusExporter() *prometheus.Exporter {
	return p.promExporter
}

// Gatherer returns the registry the exporter writes to, or nil when metrics
// are disabled.
func (p *Provider) Gatherer() promclient.Gatherer {
	if p.registry == nil {
		return nil
	}
	return p.registry
}

// Shutdown flushes and stops both providers. Errors from each are joined.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error

	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("observability shutdown errors: %w", errors.Join(errs...))
	}
	return nil
}

// Setup installs the global tracer and meter providers described by the
// configuration. The returned Provider must be shut down on exit. If a later
// step fails, providers created by earlier steps are shut down first.
func Setup(metrics models.MetricsConfig, obs models.ObservabilityConfig, ver version.Info, environment string) (*Provider, error) {
	res, err := newResource(obs.ServiceName, ver, environment)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	p := &Provider{}

	if obs.Tracing.Enabled {
		tp, err := newTracerProvider(res, obs.Tracing)
		if err != nil {
			return nil, fmt.Errorf("failed to setup tracing: %w", err)
		}
		p.tracerProvider = tp
	}

	if metrics.Enabled {
		if err := p.setupMetrics(res); err != nil {
			if shutdownErr := p.Shutdown(context.Background()); shutdownErr != nil {
				err = errors.Join(err, shutdownErr)
			}
			return nil, fmt.Errorf("failed to setup metrics: %w", err)
		}
	}

	if p.tracerProvider != nil {
		otel.SetTracerProvider(p.tracerProvider)
	}
	if p.meterProvider != nil {
		otel.SetMeterProvider(p.meterProvider)
	}

	return p, nil
}

// newResource describes this gateway instance. Every exported series and
// span carries it; Prometheus sees it as the target_info family.
func newResource(serviceName string, ver version.Info, environment string) (*resource.Resource, error) {
	if serviceName == "" {
		serviceName = DefaultServiceName
	}
	if environment == "" {
		environment = models.EnvironmentDevelopment
	}

	return resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(ver.Version),
			attribute.String("service.instance.id", ver.InstanceID),
			attribute.String("host.name", ver.Hostname),
			attribute.String("git.commit", ver.GitCommit),
			attribute.String("build.date", ver.BuildDate),
			attribute.String("deployment.environment", environment),
		),
	)
}

// setupMetrics builds the private registry, the exporter that feeds it and
// the meter provider reading from the exporter.
func (p *Provider) setupMetrics(res *resource.Resource) error {
	registry := promclient.NewRegistry()
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return fmt.Errorf("register go collector: %w", err)
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return fmt.Errorf("register process collector: %w", err)
	}

	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	p.registry = registry
	p.promExporter = exporter
	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	return nil
}

func newTracerProvider(res *resource.Resource, cfg models.TracingConfig) (*sdktrace.TracerProvider, error) {
	exporter, err := newSpanExporter(cfg)
	if err != nil {
		return nil, err
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(newSampler(cfg.SampleRate)),
	), nil
}

func newSpanExporter(cfg models.TracingConfig) (sdktrace.SpanExporter, error) {
	var (
		exporter sdktrace.SpanExporter
		err      error
	)

	switch cfg.Exporter {
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "otlp":
		exporter, err = otlptracegrpc.New(context.Background(),
			otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlptracegrpc.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("unsupported trace exporter: %s", cfg.Exporter)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create %s exporter: %w", cfg.Exporter, err)
	}
	return exporter, nil
}

// newSampler samples everything at rate >= 1 and nothing at rate <= 0.
// Child spans follow their parent's decision.
func newSampler(rate float64) sdktrace.Sampler {
	var root sdktrace.Sampler
	switch {
	case rate >= 1.0:
		root = sdktrace.AlwaysSample()
	case rate <= 0:
		root = sdktrace.NeverSample()
	default:
		root = sdktrace.TraceIDRatioBased(rate)
	}
	return sdktrace.ParentBased(root)
}
