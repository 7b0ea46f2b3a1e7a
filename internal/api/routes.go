package api

import (
	"encoding/json"
	"net/http"

	"bookinggate/internal/models"
	"bookinggate/internal/ratelimit"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
)

// RouteOption configures optional route behavior.
type RouteOption func(*mux.Router)

// WithOTelMiddleware adds OpenTelemetry HTTP instrumentation middleware.
func WithOTelMiddleware(serviceName string) RouteOption {
	return func(r *mux.Router) {
		r.Use(otelmux.Middleware(serviceName,
			otelmux.WithFilter(func(r *http.Request) bool {
				return r.URL.Path != "/health" &&
					r.URL.Path != "/api/health" &&
					r.URL.Path != "/robots.txt"
			}),
		))
	}
}

// SetupRoutes configures the HTTP routes of the gateway
func SetupRoutes(handlers *Handlers, config *models.Config, opts ...RouteOption) *mux.Router {
	router := mux.NewRouter()

	middleware := []mux.MiddlewareFunc{
		requestIDMiddleware,
		loggingMiddleware(handlers.logger),
		recoveryMiddleware(handlers.logger),
		securityHeadersMiddleware(config.IsProduction()),
	}
	router.Use(middleware...)

	for _, opt := range opts {
		opt(router)
	}

	router.HandleFunc("/booking", handlers.SubmitBooking).Methods("POST")
	router.HandleFunc("/api/booking", handlers.SubmitBooking).Methods("POST")

	router.HandleFunc("/health", handlers.HealthCheck).Methods("GET")
	router.Handle("/api/health", handlers.apiGuard(http.HandlerFunc(handlers.HealthCheck))).Methods("GET")
	router.Handle("/api/catalog", handlers.apiGuard(http.HandlerFunc(handlers.Catalog))).Methods("GET")

	router.HandleFunc("/robots.txt", handlers.Robots).Methods("GET")

	// mux skips Use middleware when no route matches.
	router.MethodNotAllowedHandler = chain(http.HandlerFunc(methodNotAllowedHandler), middleware)
	router.NotFoundHandler = chain(http.HandlerFunc(notFoundHandler), middleware)

	return router
}

// apiGuard wraps next with the api rate limit profile when one is configured.
func (h *Handlers) apiGuard(next http.Handler) http.Handler {
	if h.apiLimiter == nil {
		return next
	}
	return ratelimit.Middleware(h.apiLimiter, ratelimit.MiddlewareOptions{
		TrustedHeader: h.config.Site.TrustedProxyHeader,
		Now:           h.now,
		OnDecision: func(r *http.Request, result ratelimit.Result) {
			h.metrics.RecordDecision(r.Context(), h.apiLimiter.Config().Name, result.Allowed)
			if !result.Allowed {
				addLogAttrs(r, "outcome", "rate_limited")
			}
		},
	})(next)
}

// chain wraps h so that middleware[0] runs first.
func chain(h http.Handler, middleware []mux.MiddlewareFunc) http.Handler {
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	return h
}

// methodNotAllowedHandler handles requests with invalid HTTP methods
func methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusMethodNotAllowed)
	errorResp := models.NewErrorResponse("Method not allowed", models.ErrorCodeMethodNotAllowed)
	json.NewEncoder(w).Encode(errorResp)
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	errorResp := models.NewErrorResponse("Not found", models.ErrorCodeNotFound)
	json.NewEncoder(w).Encode(errorResp)
}
