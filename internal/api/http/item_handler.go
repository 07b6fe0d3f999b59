package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"rentshare-backend/internal/domain"
	"rentshare-backend/internal/service"
)

type ItemHandler struct {
	svc service.ItemService
	decoder
}

func NewItemHandler(svc service.ItemService, d decoder) *ItemHandler {
	return &ItemHandler{svc: svc, decoder: d}
}

type itemListResponse struct {
	Items    []domain.Item `json:"items"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

func (h *ItemHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	search := domain.ItemSearch{
		Query:    q.Get("q"),
		Category: q.Get("category"),
		Location: q.Get("location"),
		OwnerID:  q.Get("owner_id"),
	}

	var err error
	if search.MinPriceCents, err = queryInt64(r, "min_price"); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if search.MaxPriceCents, err = queryInt64(r, "max_price"); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if search.Page, err = queryInt(r, "page", 1); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if search.PageSize, err = queryInt(r, "page_size", 0); err != nil {
		writeServiceError(w, r, err)
		return
	}

	items, total, err := h.svc.Search(r.Context(), search)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []domain.Item{}
	}
	writeJSON(w, http.StatusOK, itemListResponse{
		Items:    items,
		Total:    total,
		Page:     search.Page,
		PageSize: search.PageSize,
	})
}

func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in domain.ItemInput
	if err := h.decode(r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	item, err := h.svc.Create(r.Context(), UserIDFromContext(r.Context()), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in domain.ItemInput
	if err := h.decode(r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	item, err := h.svc.Update(r.Context(), UserIDFromContext(r.Context()), mux.Vars(r)["id"], in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), UserIDFromContext(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
