package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookinggate/internal/api"
	"bookinggate/internal/config"
	"bookinggate/internal/logger"
	"bookinggate/internal/notify"
	"bookinggate/internal/observability"
	"bookinggate/internal/ratelimit"
	"bookinggate/internal/version"
)

var (
	configFile  = flag.String("config", "", "Path to configuration file")
	showVersion = flag.Bool("version", false, "Print version information and exit")
)

func main() {
	flag.Parse()

	ver := version.GetInfo()
	if *showVersion {
		fmt.Printf("bookinggate %s (commit %s, built %s)\n", ver.Version, ver.GitCommit, ver.BuildDate)
		return
	}

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize structured logging
	log, closer, err := logger.Setup(cfg.Logging, ver)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer.Close()
	}
	slog.SetDefault(log)

	// Initialize observability (OpenTelemetry)
	otelProvider, err := observability.Setup(cfg.Metrics, cfg.Observability, ver, cfg.Site.Environment)
	if err != nil {
		slog.Error("Failed to initialize observability", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := otelProvider.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shutdown observability", "error", err)
		}
	}()

	// Rate limit store shared by every profile
	store := ratelimit.NewStore(cfg.RateLimit.SweepInterval, cfg.RateLimit.RetentionCeiling,
		ratelimit.WithLogger(log))
	store.Start(context.Background())
	defer store.Stop()

	profiles := ratelimit.NewProfiles(cfg.RateLimit)
	bookingLimiter := ratelimit.NewSlidingWindow(profiles.Booking, store, log)
	apiLimiter := ratelimit.NewSlidingWindow(profiles.API, store, log)

	// Notification pipeline, instrumented when metrics are enabled
	notifier := notify.New(cfg.Mail, log)

	handlerOpts := []api.HandlerOption{
		api.WithStore(store),
		api.WithAPILimiter(apiLimiter),
		api.WithLogger(log),
		api.WithVersion(ver),
	}

	if cfg.Metrics.Enabled {
		instrumented, err := observability.NewInstrumentedNotifier(notifier)
		if err != nil {
			slog.Error("Failed to create instrumented notifier", "error", err)
			os.Exit(1)
		}
		notifier = instrumented

		admission, err := observability.NewAdmissionMetrics()
		if err != nil {
			slog.Error("Failed to create admission metrics", "error", err)
			os.Exit(1)
		}
		handlerOpts = append(handlerOpts, api.WithMetrics(admission))

		if err := observability.RegisterTrackedKeys(store.Size); err != nil {
			slog.Error("Failed to register rate limit gauge", "error", err)
			os.Exit(1)
		}
	}

	handlers := api.NewHandlers(cfg, bookingLimiter, notifier, handlerOpts...)

	// Setup routes with middleware
	routeOpts := []api.RouteOption{}
	if cfg.Observability.Tracing.Enabled {
		routeOpts = append(routeOpts, api.WithOTelMiddleware(cfg.Observability.ServiceName))
	}

	router := api.SetupRoutes(handlers, cfg, routeOpts...)

	// Start metrics server if enabled
	var metricsServer *observability.MetricsServer
	if cfg.Metrics.Enabled {
		metricsServer = observability.NewMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path, otelProvider)
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("Starting server",
			"addr", server.Addr,
			"environment", cfg.Site.Environment,
			"mail_provider", cfg.Mail.Provider,
		)

		var err error
		if cfg.Server.TLSEnabled {
			slog.Info("Starting HTTPS server with TLS")
			err = server.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			slog.Info("Starting HTTP server")
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			slog.Error("Metrics server forced to shutdown", "error", err)
		}
	}

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server shutdown complete")
}
