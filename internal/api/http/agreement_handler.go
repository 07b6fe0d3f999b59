package http

import (
	"net/http"
	"time"

	"rentshare-backend/internal/domain"
	"rentshare-backend/internal/metrics"
	"rentshare-backend/internal/service"
)

type AgreementHandler struct {
	svc     service.AgreementService
	metrics *metrics.Metrics
	decoder
}

func NewAgreementHandler(svc service.AgreementService, m *metrics.Metrics, d decoder) *AgreementHandler {
	return &AgreementHandler{svc: svc, metrics: m, decoder: d}
}

type agreementResponse struct {
	RentalID         string     `json:"rental_id"`
	AgreementText    string     `json:"agreement_text"`
	AcceptedByOwner  bool       `json:"accepted_by_owner"`
	AcceptedByRenter bool       `json:"accepted_by_renter"`
	Signed           bool       `json:"signed"`
	SignedAt         *time.Time `json:"signed_at,omitempty"`
}

func newAgreementResponse(r *domain.Rental) agreementResponse {
	resp := agreementResponse{
		RentalID:         r.ID,
		AcceptedByOwner:  r.AgreementAcceptedByOwner,
		AcceptedByRenter: r.AgreementAcceptedByRenter,
		Signed:           r.AgreementSignedAt != nil,
		SignedAt:         r.AgreementSignedAt,
	}
	if r.AgreementText != nil {
		resp.AgreementText = *r.AgreementText
	}
	return resp
}

func (h *AgreementHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req rentalActionRequest
	if err := h.decode(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	rental, err := h.svc.Generate(r.Context(), UserIDFromContext(r.Context()), req.RentalID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAgreementResponse(rental))
}

func (h *AgreementHandler) Accept(w http.ResponseWriter, r *http.Request) {
	var req rentalActionRequest
	if err := h.decode(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	rental, err := h.svc.Accept(r.Context(), UserIDFromContext(r.Context()), req.RentalID)
	if h.metrics != nil {
		h.metrics.RecordTransition("accept_agreement", transitionResult(err))
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAgreementResponse(rental))
}
