package http

import (
	"errors"
	"io"
	"net/http"

	"rentshare-backend/internal/domain"
	"rentshare-backend/internal/logger"
	"rentshare-backend/internal/metrics"
	"rentshare-backend/internal/service"
)

// Stripe payloads are small; anything larger is not a real event.
const maxWebhookBody = 64 << 10

type PaymentHandler struct {
	svc     service.CheckoutService
	metrics *metrics.Metrics
	decoder
}

func NewPaymentHandler(svc service.CheckoutService, m *metrics.Metrics, d decoder) *PaymentHandler {
	return &PaymentHandler{svc: svc, metrics: m, decoder: d}
}

type checkoutSessionResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

func (h *PaymentHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req rentalActionRequest
	if err := h.decode(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	session, err := h.svc.CreateCheckoutSession(r.Context(), UserIDFromContext(r.Context()), req.RentalID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, checkoutSessionResponse{SessionID: session.ID, URL: session.URL})
}

func (h *PaymentHandler) ConnectOnboarding(w http.ResponseWriter, r *http.Request) {
	url, err := h.svc.CreateConnectOnboarding(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// StripeWebhook verifies and applies one Stripe event. Validation failures,
// including a bad signature, are answered with 400 and nothing is applied.
// Other failures return 500 so Stripe redelivers.
func (h *PaymentHandler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
	if err != nil {
		h.recordWebhook("read_error")
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Failed to read request body")
		return
	}
	if len(payload) > maxWebhookBody {
		h.recordWebhook("too_large")
		writeError(w, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "Request body is too large")
		return
	}

	err = h.svc.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	switch {
	case err == nil:
		h.recordWebhook("ok")
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
	case errors.Is(err, domain.ErrValidation):
		h.recordWebhook("rejected")
		logger.WarnContext(r.Context(), "Stripe webhook rejected", "error", err)
		writeServiceError(w, r, err)
	default:
		h.recordWebhook("error")
		writeServiceError(w, r, err)
	}
}

func (h *PaymentHandler) recordWebhook(result string) {
	if h.metrics != nil {
		h.metrics.RecordWebhook("stripe", result)
	}
}
