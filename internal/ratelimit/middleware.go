package ratelimit

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bookinggate/internal/models"
)

// DefaultTrustedHeader is the client address header set by the edge proxy.
const DefaultTrustedHeader = "CF-Connecting-IP"

// UnknownClient identifies requests that carry no address header.
const UnknownClient = "unknown"

// ClientIdentifier resolves the rate limit identifier of a request. Priority:
// the trusted proxy header (skipped when empty), the first X-Forwarded-For
// entry, X-Real-IP, then UnknownClient.
func ClientIdentifier(r *http.Request, trustedHeader string) string {
	if trustedHeader != "" {
		if v := strings.TrimSpace(r.Header.Get(trustedHeader)); v != "" {
			return v
		}
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	return UnknownClient
}

// WriteHeaders sets X-RateLimit-Limit, X-RateLimit-Remaining and
// X-RateLimit-Reset (unix seconds, rounded up).
func WriteHeaders(w http.ResponseWriter, result Result) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetUnix(), 10))
}

// WriteRejection answers 429 with the rate limit headers, Retry-After and a
// {error, message, retryAfter} body.
func WriteRejection(w http.ResponseWriter, result Result, message string, now time.Time) {
	retryAfter := result.RetryAfter(now)

	WriteHeaders(w, result)
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	if err := json.NewEncoder(w).Encode(models.NewRateLimitErrorResponse(message, retryAfter)); err != nil {
		slog.Error("Failed to encode rate limit response", "error", err)
	}
}

// MiddlewareOptions tunes Middleware.
type MiddlewareOptions struct {
	// TrustedHeader names the proxy header carrying the client address.
	TrustedHeader string

	// KeyFunc overrides ClientIdentifier.
	KeyFunc func(r *http.Request) string

	// OnDecision is called after every check, for metrics.
	OnDecision func(r *http.Request, result Result)

	// Now replaces time.Now when computing Retry-After.
	Now func() time.Time
}

// Middleware returns HTTP middleware that enforces limiter on every request.
// Rate limit headers are set on admitted and rejected responses alike.
func Middleware(limiter Limiter, opts MiddlewareOptions) func(http.Handler) http.Handler {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identifier := ""
			if opts.KeyFunc != nil {
				identifier = opts.KeyFunc(r)
			} else {
				identifier = ClientIdentifier(r, opts.TrustedHeader)
			}

			result := limiter.Check(r.Context(), identifier,
				"method", r.Method,
				"endpoint", r.URL.Path,
			)

			if opts.OnDecision != nil {
				opts.OnDecision(r, result)
			}

			if !result.Allowed {
				WriteRejection(w, result, limiter.Config().Message, now())
				return
			}

			WriteHeaders(w, result)
			next.ServeHTTP(w, r)
		})
	}
}
