package http

import (
	"net/http"

	"rentshare-backend/internal/domain"
	"rentshare-backend/internal/service"
)

type AvailabilityHandler struct {
	svc service.AvailabilityService
	decoder
}

func NewAvailabilityHandler(svc service.AvailabilityService, d decoder) *AvailabilityHandler {
	return &AvailabilityHandler{svc: svc, decoder: d}
}

type checkAvailabilityRequest struct {
	ItemID          string      `json:"item_id" validate:"required"`
	StartDate       domain.Date `json:"start_date" validate:"required"`
	EndDate         domain.Date `json:"end_date" validate:"required"`
	ExcludeRentalID string      `json:"exclude_rental_id"`
}

// Check answers POST (JSON body) and GET (query string) availability checks.
// An unavailable range is a normal 200 response carrying the conflicts.
func (h *AvailabilityHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req checkAvailabilityRequest
	if r.Method == http.MethodGet {
		var err error
		if req.ItemID, err = requireQuery(r, "item_id"); err != nil {
			writeServiceError(w, r, err)
			return
		}
		if req.StartDate, err = queryDate(r, "start_date"); err != nil {
			writeServiceError(w, r, err)
			return
		}
		if req.EndDate, err = queryDate(r, "end_date"); err != nil {
			writeServiceError(w, r, err)
			return
		}
		req.ExcludeRentalID = r.URL.Query().Get("exclude_rental_id")
	} else if err := h.decode(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	result, err := h.svc.Check(r.Context(), req.ItemID, req.StartDate, req.EndDate, req.ExcludeRentalID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AvailabilityHandler) ListBlocks(w http.ResponseWriter, r *http.Request) {
	itemID, err := requireQuery(r, "item_id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	blocks, err := h.svc.ListBlocks(r.Context(), itemID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if blocks == nil {
		blocks = []domain.AvailabilityBlock{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"blocks": blocks})
}

func (h *AvailabilityHandler) CreateBlock(w http.ResponseWriter, r *http.Request) {
	var in domain.AvailabilityBlockInput
	if err := h.decode(r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	block, err := h.svc.CreateBlock(r.Context(), UserIDFromContext(r.Context()), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, block)
}

func (h *AvailabilityHandler) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	id, err := requireQuery(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := h.svc.DeleteBlock(r.Context(), UserIDFromContext(r.Context()), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
