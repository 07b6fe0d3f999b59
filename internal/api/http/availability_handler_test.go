package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rentshare-backend/internal/domain"
)

func TestAvailabilityHandler_Check(t *testing.T) {
	start := domain.NewDate(2026, 11, 10)
	end := domain.NewDate(2026, 11, 12)

	t.Run("POST body", func(t *testing.T) {
		ts := newTestServer(t)
		ts.availability.On("Check", mock.Anything, "item-1", start, end, "rental-1").
			Return(&domain.AvailabilityResult{ItemID: "item-1", StartDate: start, EndDate: end, Available: true, Conflicts: []domain.Conflict{}}, nil)

		body := `{"item_id":"item-1","start_date":"2026-11-10","end_date":"2026-11-12","exclude_rental_id":"rental-1"}`
		rec := ts.do(t, jsonRequest(http.MethodPost, "/api/check-availability", body), "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"available":true`)
	})

	t.Run("GET query with conflicts is still 200", func(t *testing.T) {
		ts := newTestServer(t)
		next := domain.NewDate(2026, 11, 15)
		ts.availability.On("Check", mock.Anything, "item-1", start, end, "").
			Return(&domain.AvailabilityResult{
				ItemID:            "item-1",
				Available:         false,
				Conflicts:         []domain.Conflict{{Kind: domain.ConflictKindBlock, ID: "block-1"}},
				NextAvailableDate: &next,
			}, nil)

		rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/check-availability?item_id=item-1&start_date=2026-11-10&end_date=2026-11-12", nil), "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"next_available_date":"2026-11-15"`)
		assert.Contains(t, rec.Body.String(), `"kind":"block"`)
	})

	t.Run("GET requires dates", func(t *testing.T) {
		ts := newTestServer(t)
		rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/check-availability?item_id=item-1&start_date=2026-11-10", nil), "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeError(t, rec).Details, "end_date")
	})

	t.Run("bad date format", func(t *testing.T) {
		ts := newTestServer(t)
		rec := ts.do(t, jsonRequest(http.MethodPost, "/api/check-availability",
			`{"item_id":"item-1","start_date":"11/10/2026","end_date":"2026-11-12"}`), "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("inverted range from service", func(t *testing.T) {
		ts := newTestServer(t)
		ts.availability.On("Check", mock.Anything, "item-1", end, start, "").
			Return(nil, domain.NewValidationError("end date must be after start date"))

		rec := ts.do(t, jsonRequest(http.MethodPost, "/api/check-availability",
			`{"item_id":"item-1","start_date":"2026-11-12","end_date":"2026-11-10"}`), "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "end date must be after start date", decodeError(t, rec).Message)
	})
}

func TestAvailabilityHandler_Blocks(t *testing.T) {
	t.Run("list is public", func(t *testing.T) {
		ts := newTestServer(t)
		ts.availability.On("ListBlocks", mock.Anything, "item-1").Return(nil, nil)

		rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/availability-blocks?item_id=item-1", nil), "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"blocks":[]}`, rec.Body.String())
	})

	t.Run("create requires sign in", func(t *testing.T) {
		ts := newTestServer(t)
		rec := ts.do(t, jsonRequest(http.MethodPost, "/api/availability-blocks", `{}`), "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("create overlapping a booking", func(t *testing.T) {
		ts := newTestServer(t)
		in := domain.AvailabilityBlockInput{
			ItemID:    "item-1",
			StartDate: domain.NewDate(2026, 11, 10),
			EndDate:   domain.NewDate(2026, 11, 12),
			Reason:    "maintenance",
		}
		ts.availability.On("CreateBlock", mock.Anything, "owner-1", in).
			Return(nil, &domain.UnavailableError{Conflicts: []domain.Conflict{{Kind: domain.ConflictKindRental, ID: "rental-1", Status: domain.RentalStatusActive}}})

		body := `{"item_id":"item-1","start_date":"2026-11-10","end_date":"2026-11-12","reason":"maintenance"}`
		rec := ts.do(t, jsonRequest(http.MethodPost, "/api/availability-blocks", body), "owner-1")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), `"id":"rental-1"`)
	})

	t.Run("delete", func(t *testing.T) {
		ts := newTestServer(t)
		ts.availability.On("DeleteBlock", mock.Anything, "owner-1", "block-1").Return(nil)

		rec := ts.do(t, httptest.NewRequest(http.MethodDelete, "/api/availability-blocks?id=block-1", nil), "owner-1")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		ts.availability.AssertExpectations(t)
	})

	t.Run("delete by someone else", func(t *testing.T) {
		ts := newTestServer(t)
		ts.availability.On("DeleteBlock", mock.Anything, "user-2", "block-1").Return(domain.ErrForbidden)

		rec := ts.do(t, httptest.NewRequest(http.MethodDelete, "/api/availability-blocks?id=block-1", nil), "user-2")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
