package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bookinggate/internal/booking"
	"bookinggate/internal/models"
	"bookinggate/internal/notify"
	"bookinggate/internal/observability"
	"bookinggate/internal/ratelimit"
	"bookinggate/internal/sanitize"
)

// SubmitBooking admits, validates and forwards a booking request
// POST /booking, POST /api/booking
//
// Steps run in a fixed order and each one short-circuits: origin check,
// rate limit, body size guard, JSON parse, validation, honeypot,
// sanitization, dispatch. A slot consumed at the rate limit step is never
// given back, whatever happens afterwards.
func (h *Handlers) SubmitBooking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.isAllowedOrigin(r) {
		h.recordOutcome(r, observability.OutcomeForbidden)
		h.writeErrorResponse(w, r, http.StatusForbidden, models.ErrorCodeForbidden, "Forbidden")
		return
	}

	identifier := ratelimit.ClientIdentifier(r, h.config.Site.TrustedProxyHeader)
	result := h.limiter.Check(ctx, identifier,
		"method", r.Method,
		"endpoint", r.URL.Path,
	)
	h.metrics.RecordDecision(ctx, h.limiter.Config().Name, result.Allowed)
	if !result.Allowed {
		h.recordOutcome(r, observability.OutcomeRateLimited)
		ratelimit.WriteRejection(w, result, h.limiter.Config().Message, h.now())
		return
	}
	ratelimit.WriteHeaders(w, result)

	maxBytes := h.config.Server.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = models.DefaultMaxBodyBytes
	}

	if r.ContentLength > maxBytes {
		h.recordOutcome(r, observability.OutcomeTooLarge)
		h.writeErrorResponse(w, r, http.StatusRequestEntityTooLarge, models.ErrorCodePayloadTooLarge, "Payload too large")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
	if err != nil {
		h.logger.WarnContext(ctx, "Failed to read booking body", "error", err)
		h.recordOutcome(r, observability.OutcomeUnreadable)
		h.writeErrorResponse(w, r, http.StatusBadRequest, models.ErrorCodeBadRequest, "Invalid request body")
		return
	}
	if int64(len(body)) > maxBytes {
		h.recordOutcome(r, observability.OutcomeTooLarge)
		h.writeErrorResponse(w, r, http.StatusRequestEntityTooLarge, models.ErrorCodePayloadTooLarge, "Payload too large")
		return
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		h.recordOutcome(r, observability.OutcomeInvalidJSON)
		h.writeErrorResponse(w, r, http.StatusBadRequest, models.ErrorCodeBadRequest, "Invalid JSON")
		return
	}

	req, issues := h.validator.Validate(raw)
	if len(issues) > 0 {
		h.recordOutcome(r, observability.OutcomeInvalid)
		h.writeJSONResponse(w, http.StatusBadRequest, models.NewValidationErrorResponse(issues))
		return
	}

	if req.HoneypotTriggered() {
		h.logger.InfoContext(ctx, "Honeypot triggered", "identifier", identifier)
		h.recordOutcome(r, observability.OutcomeHoneypot)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	clean := sanitizeBooking(req)
	if clean.Email == "" {
		h.recordOutcome(r, observability.OutcomeInvalid)
		h.writeJSONResponse(w, http.StatusBadRequest, models.NewValidationErrorResponse(booking.Issues{
			"email": "Email non valida",
		}))
		return
	}

	msg, err := booking.BuildMessage(clean, h.config.Mail.From, h.config.Mail.To)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to build booking notification", "error", err)
		h.recordOutcome(r, observability.OutcomeDispatchFailed)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, models.ErrorCodeInternalError, "Server error")
		return
	}

	sendStart := time.Now()
	err = h.notifier.Send(ctx, msg)
	sendMs := time.Since(sendStart).Milliseconds()
	if err != nil {
		if errors.Is(err, notify.ErrNotConfigured) {
			h.logger.ErrorContext(ctx, "Booking dropped: email service not configured",
				"service", string(clean.Service),
				"duration_ms", sendMs,
			)
			h.recordOutcome(r, observability.OutcomeNotConfigured)
			h.writeErrorResponse(w, r, http.StatusInternalServerError, models.ErrorCodeNotConfigured, "Email service not configured")
			return
		}

		h.logger.ErrorContext(ctx, "Booking notification failed",
			"error", err,
			"service", string(clean.Service),
			"duration_ms", sendMs,
			"identifier", identifier,
		)
		h.recordOutcome(r, observability.OutcomeDispatchFailed)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, models.ErrorCodeInternalError, "Server error")
		return
	}

	h.recordOutcome(r, observability.OutcomeAccepted)
	h.writeJSONResponse(w, http.StatusOK, models.OKResponse{OK: true})
}

// isAllowedOrigin accepts requests whose Origin is the configured site's
// origin, or whose Referer is a URL on that origin starting with the site
// URL, and requests carrying neither header. Without a site URL every origin is accepted.
func (h *Handlers) isAllowedOrigin(r *http.Request) bool {
	allowed := h.config.Site.URL
	if allowed == "" {
		return true
	}

	origin := r.Header.Get("Origin")
	referer := r.Header.Get("Referer")
	if origin == "" && referer == "" {
		return true
	}

	return sameOrigin(origin, allowed) ||
		(sameOrigin(referer, allowed) && strings.HasPrefix(referer, strings.TrimSuffix(allowed, "/")))
}

// sameOrigin reports whether origin names the scheme and host of siteURL.
func sameOrigin(origin, siteURL string) bool {
	if origin == "" {
		return false
	}
	o, err := url.Parse(origin)
	if err != nil || o.Host == "" {
		return false
	}
	site, err := url.Parse(siteURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(o.Scheme, site.Scheme) && strings.EqualFold(o.Host, site.Host)
}

func (h *Handlers) recordOutcome(r *http.Request, outcome string) {
	addLogAttrs(r, "outcome", outcome)
	h.metrics.RecordOutcome(r.Context(), outcome)
}

// sanitizeBooking applies the output sanitizers to every free-text field.
func sanitizeBooking(req *models.BookingRequest) *models.BookingRequest {
	return &models.BookingRequest{
		Name:    sanitize.Input(req.Name),
		Email:   sanitize.Email(req.Email),
		Phone:   sanitize.Phone(req.Phone),
		Vehicle: req.Vehicle,
		Service: req.Service,
		Date:    sanitize.Input(req.Date),
		Time:    sanitize.Input(req.Time),
		Notes:   sanitize.Input(req.Notes),
		Website: req.Website,
	}
}
