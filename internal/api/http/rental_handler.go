package http

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"rentshare-backend/internal/domain"
	"rentshare-backend/internal/metrics"
	"rentshare-backend/internal/service"
)

type RentalHandler struct {
	svc     service.RentalService
	metrics *metrics.Metrics
	decoder
}

func NewRentalHandler(svc service.RentalService, m *metrics.Metrics, d decoder) *RentalHandler {
	return &RentalHandler{svc: svc, metrics: m, decoder: d}
}

// rentalResponse adds the display phase to a rental.
type rentalResponse struct {
	*domain.Rental
	Phase string `json:"phase"`
}

func newRentalResponse(r *domain.Rental) rentalResponse {
	return rentalResponse{Rental: r, Phase: r.Phase()}
}

type confirmReturnRequest struct {
	RentalID string `json:"rental_id" validate:"required"`
	domain.ReturnConfirmation
}

type cancelRentalRequest struct {
	RentalID string `json:"rental_id" validate:"required"`
	Reason   string `json:"reason" validate:"max=1000"`
}

func (h *RentalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.NewRentalRequest
	if err := h.decode(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	rental, err := h.svc.CreateRental(r.Context(), UserIDFromContext(r.Context()), req)
	h.record("create", err)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newRentalResponse(rental))
}

func (h *RentalHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rentals, err := h.svc.ListRentals(r.Context(), UserIDFromContext(r.Context()),
		domain.RentalRole(q.Get("role")), domain.RentalStatus(q.Get("status")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]rentalResponse, 0, len(rentals))
	for i := range rentals {
		out = append(out, newRentalResponse(&rentals[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"rentals": out})
}

func (h *RentalHandler) Get(w http.ResponseWriter, r *http.Request) {
	rental, err := h.svc.GetRental(r.Context(), UserIDFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newRentalResponse(rental))
}

func (h *RentalHandler) ConfirmPickup(w http.ResponseWriter, r *http.Request) {
	var req rentalActionRequest
	if err := h.decode(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	rental, err := h.svc.ConfirmPickup(r.Context(), UserIDFromContext(r.Context()), req.RentalID)
	h.respond(w, r, "confirm_pickup", rental, err)
}

func (h *RentalHandler) InitiateReturn(w http.ResponseWriter, r *http.Request) {
	var req rentalActionRequest
	if err := h.decode(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	rental, err := h.svc.InitiateReturn(r.Context(), UserIDFromContext(r.Context()), req.RentalID)
	h.respond(w, r, "initiate_return", rental, err)
}

func (h *RentalHandler) ConfirmReturn(w http.ResponseWriter, r *http.Request) {
	var req confirmReturnRequest
	if err := h.decode(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	rental, err := h.svc.ConfirmReturn(r.Context(), UserIDFromContext(r.Context()), req.RentalID, req.ReturnConfirmation)
	h.respond(w, r, "confirm_return", rental, err)
}

func (h *RentalHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRentalRequest
	if err := h.decode(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	rental, err := h.svc.Cancel(r.Context(), UserIDFromContext(r.Context()), req.RentalID, req.Reason)
	h.respond(w, r, "cancel", rental, err)
}

func (h *RentalHandler) respond(w http.ResponseWriter, r *http.Request, action string, rental *domain.Rental, err error) {
	h.record(action, err)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newRentalResponse(rental))
}

func (h *RentalHandler) record(action string, err error) {
	if h.metrics != nil {
		h.metrics.RecordTransition(action, transitionResult(err))
	}
}

// transitionResult is the metrics label for a transition outcome.
func transitionResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrStateConflict):
		return "state_conflict"
	case errors.Is(err, domain.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	}
	return "error"
}
