package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"bookinggate/internal/logger"
	"bookinggate/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// RequestIDHeader carries the per-request correlation ID.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLength = 64

type requestIDKey struct{}

type logAttrsKey struct{}

// RequestIDFromContext returns the request ID set by requestIDMiddleware, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestIDMiddleware reuses a short inbound X-Request-ID or generates one,
// and echoes it on the response.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.New().String()
		}

		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// logAttrs collects attributes handlers want on the access log line.
type logAttrs struct {
	mu    sync.Mutex
	attrs []any
}

func (l *logAttrs) add(attrs ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attrs = append(l.attrs, attrs...)
}

func (l *logAttrs) list() []any {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]any(nil), l.attrs...)
}

// addLogAttrs attaches attrs to the access log line of r. It is a no-op
// outside loggingMiddleware.
func addLogAttrs(r *http.Request, attrs ...any) {
	if bag, ok := r.Context().Value(logAttrsKey{}).(*logAttrs); ok {
		bag.add(attrs...)
	}
}

// statusRecorder captures the status code written by the handler.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if !s.wroteHeader {
		s.status = http.StatusOK
		s.wroteHeader = true
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// loggingMiddleware logs one line per request through logger.APIRequest.
func loggingMiddleware(l *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			bag := &logAttrs{}
			r = r.WithContext(context.WithValue(r.Context(), logAttrsKey{}, bag))

			next.ServeHTTP(rec, r)

			attrs := []any{
				"request_id", RequestIDFromContext(r.Context()),
				"remote_addr", r.RemoteAddr,
				logger.UserAgentAttrs(r.UserAgent()),
			}
			attrs = append(attrs, bag.list()...)

			logger.APIRequest(r.Context(), l, r.Method, r.URL.Path, rec.status, time.Since(start), attrs...)
		})
	}
}

// recoveryMiddleware handles panics
func recoveryMiddleware(l *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					l.ErrorContext(r.Context(), "Panic recovered", "error", err, "path", r.URL.Path)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					errorResp := models.NewErrorResponse("Server error", models.ErrorCodeInternalError)
					errorResp.RequestID = RequestIDFromContext(r.Context())
					json.NewEncoder(w).Encode(errorResp)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// securityHeadersMiddleware sets browser hardening headers. HSTS is only sent
// in production, where the site is served over TLS.
func securityHeadersMiddleware(hsts bool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if hsts {
				h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains; preload")
			}
			next.ServeHTTP(w, r)
		})
	}
}
