// Package models - API response types and error handling.
//
// Response Design Principles:
// - Every non-empty response is JSON
// - Error bodies always carry a human-readable "error" and a machine-readable "code"
// - Rate limit rejections add "message" and "retryAfter" so the form can show a countdown
// - Validation failures carry one message per offending field
package models

import (
	"time"
)

// ErrorResponse is the body of every rejected request except rate limiting
// and validation failures.
type ErrorResponse struct {
	Error     string    `json:"error"`             // Short human-readable error
	Code      string    `json:"code,omitempty"`    // Machine-readable error code
	Message   string    `json:"message,omitempty"` // Optional detail
	Timestamp time.Time `json:"timestamp"`         // Error occurrence time
	RequestID string    `json:"request_id,omitempty"`
}

// RateLimitErrorResponse is returned with 429 responses.
type RateLimitErrorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter"` // Seconds until a slot frees up
}

// ValidationErrorResponse lists field-level problems with a booking.
type ValidationErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Issues map[string]string `json:"issues"`
}

// OKResponse acknowledges an accepted booking.
type OKResponse struct {
	OK bool `json:"ok"`
}

type HealthCheckResponse struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Uptime     string                     `json:"uptime,omitempty"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
	Metrics    map[string]interface{}     `json:"metrics,omitempty"`
}

type ComponentHealth struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Health Status Constants
const (
	StatusHealthy   = "healthy"   // All systems operational
	StatusUnhealthy = "unhealthy" // Major system issues
	StatusDegraded  = "degraded"  // Partial functionality
)

// Error codes
const (
	ErrorCodeNotFound          = "NOT_FOUND"           // 404
	ErrorCodeBadRequest        = "BAD_REQUEST"         // 400: malformed body
	ErrorCodeValidation        = "VALIDATION_ERROR"    // 400: field-level violations
	ErrorCodeForbidden         = "FORBIDDEN"           // 403: origin not allowed
	ErrorCodeMethodNotAllowed  = "METHOD_NOT_ALLOWED"  // 405
	ErrorCodePayloadTooLarge   = "PAYLOAD_TOO_LARGE"   // 413
	ErrorCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED" // 429
	ErrorCodeInternalError     = "INTERNAL_ERROR"      // 500
	ErrorCodeNotConfigured     = "NOT_CONFIGURED"      // 500: mail provider missing
)

func NewErrorResponse(message string, code string) *ErrorResponse {
	return &ErrorResponse{
		Error:     message,
		Code:      code,
		Timestamp: time.Now(),
	}
}

func NewRateLimitErrorResponse(message string, retryAfter int) *RateLimitErrorResponse {
	if message == "" {
		message = "Too many requests"
	}
	return &RateLimitErrorResponse{
		Error:      "Rate limit exceeded",
		Message:    message,
		RetryAfter: retryAfter,
	}
}

func NewValidationErrorResponse(issues map[string]string) *ValidationErrorResponse {
	return &ValidationErrorResponse{
		Error:  "Validation error",
		Code:   ErrorCodeValidation,
		Issues: issues,
	}
}

func NewHealthCheckResponse(status string) *HealthCheckResponse {
	return &HealthCheckResponse{
		Status:     status,
		Timestamp:  time.Now(),
		Components: make(map[string]ComponentHealth),
		Metrics:    make(map[string]interface{}),
	}
}

// AddComponent records a component's health. An unhealthy component makes the
// overall status degraded.
func (h *HealthCheckResponse) AddComponent(name, status, message string) {
	h.Components[name] = ComponentHealth{
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	}
	if status != StatusHealthy && h.Status == StatusHealthy {
		h.Status = StatusDegraded
	}
}

func (h *HealthCheckResponse) AddMetric(name string, value interface{}) {
	h.Metrics[name] = value
}
