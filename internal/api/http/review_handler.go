package http

import (
	"net/http"

	"rentshare-backend/internal/domain"
	"rentshare-backend/internal/service"
)

type ReviewHandler struct {
	svc service.ReviewService
	decoder
}

func NewReviewHandler(svc service.ReviewService, d decoder) *ReviewHandler {
	return &ReviewHandler{svc: svc, decoder: d}
}

func reviewFilter(r *http.Request) domain.ReviewFilter {
	q := r.URL.Query()
	return domain.ReviewFilter{
		RevieweeID: q.Get("user_id"),
		ItemID:     q.Get("item_id"),
		RentalID:   q.Get("rental_id"),
	}
}

func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in domain.ReviewInput
	if err := h.decode(r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	review, err := h.svc.Create(r.Context(), UserIDFromContext(r.Context()), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.svc.List(r.Context(), reviewFilter(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviews": reviews})
}

func (h *ReviewHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context(), reviewFilter(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
