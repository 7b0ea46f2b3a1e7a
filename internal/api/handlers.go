package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"bookinggate/internal/booking"
	"bookinggate/internal/models"
	"bookinggate/internal/notify"
	"bookinggate/internal/observability"
	"bookinggate/internal/ratelimit"
	"bookinggate/internal/version"
)

// defaultSiteURL is used for robots.txt when no site URL is configured.
const defaultSiteURL = "http://localhost:3000"

// Handlers contains HTTP handlers for the booking gateway
type Handlers struct {
	config     *models.Config
	limiter    ratelimit.Limiter
	apiLimiter ratelimit.Limiter
	store      *ratelimit.Store
	notifier   notify.Notifier
	validator  *booking.Validator
	metrics    *observability.AdmissionMetrics
	logger     *slog.Logger
	version    version.Info
	now        func() time.Time
}

// HandlerOption configures optional Handlers dependencies.
type HandlerOption func(*Handlers)

// WithStore exposes the rate limit store to the health endpoint.
func WithStore(s *ratelimit.Store) HandlerOption {
	return func(h *Handlers) {
		h.store = s
	}
}

// WithAPILimiter guards the read-only API endpoints.
func WithAPILimiter(l ratelimit.Limiter) HandlerOption {
	return func(h *Handlers) {
		h.apiLimiter = l
	}
}

// WithMetrics records admission decisions and booking outcomes.
func WithMetrics(m *observability.AdmissionMetrics) HandlerOption {
	return func(h *Handlers) {
		h.metrics = m
	}
}

// WithLogger replaces slog.Default.
func WithLogger(l *slog.Logger) HandlerOption {
	return func(h *Handlers) {
		h.logger = l
	}
}

// WithVersion sets the build info reported by the health endpoint.
func WithVersion(v version.Info) HandlerOption {
	return func(h *Handlers) {
		h.version = v
	}
}

// WithClock replaces time.Now for validation and Retry-After.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handlers) {
		h.now = now
	}
}

// NewHandlers creates a new handlers instance. limiter guards booking
// submissions and notifier delivers accepted bookings.
func NewHandlers(config *models.Config, limiter ratelimit.Limiter, notifier notify.Notifier, opts ...HandlerOption) *Handlers {
	h := &Handlers{
		config:   config,
		limiter:  limiter,
		notifier: notifier,
		logger:   slog.Default(),
		version:  version.GetInfo(),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(h)
	}

	h.validator = booking.NewValidator(booking.WithClock(h.now))

	return h
}

// HealthCheck handles health check requests
// GET /health, GET /api/health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := models.NewHealthCheckResponse(models.StatusHealthy)
	response.Version = h.version.Version
	response.Uptime = h.version.Uptime().String()

	response.AddComponent("api", models.StatusHealthy, "API is operational")

	if h.store != nil {
		response.AddComponent("ratelimit", models.StatusHealthy, "In-memory store operational")
		response.AddMetric("ratelimit_tracked_keys", h.store.Size())
	}

	if h.notifierConfigured() {
		response.AddComponent("notifier", models.StatusHealthy, fmt.Sprintf("Provider: %s", h.config.Mail.Provider))
	} else {
		response.AddComponent("notifier", models.StatusUnhealthy, "Email service not configured")
	}

	response.AddMetric("environment", h.config.Site.Environment)

	h.writeJSONResponse(w, http.StatusOK, response)
}

// Catalog lists the vehicles and services a booking may reference
// GET /api/catalog
func (h *Handlers) Catalog(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	h.writeJSONResponse(w, http.StatusOK, models.NewCatalogResponse())
}

// Robots serves robots.txt pointing crawlers at the sitemap
// GET /robots.txt
func (h *Handlers) Robots(w http.ResponseWriter, r *http.Request) {
	site := strings.TrimRight(h.config.Site.URL, "/")
	if site == "" {
		site = defaultSiteURL
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "User-agent: *\nAllow: /\n\nSitemap: %s/sitemap.xml\n", site)
}

func (h *Handlers) notifierConfigured() bool {
	return h.config.Mail.Provider == models.MailProviderLog || h.config.Mail.APIKey != ""
}

// writeJSONResponse writes a JSON response
func (h *Handlers) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already written; nothing left to send.
		h.logger.Error("Failed to encode JSON response", "error", err)
	}
}

// writeErrorResponse writes an error response tagged with the request ID
func (h *Handlers) writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, errorCode, message string) {
	errorResp := models.NewErrorResponse(message, errorCode)
	errorResp.RequestID = RequestIDFromContext(r.Context())

	h.writeJSONResponse(w, statusCode, errorResp)
}
