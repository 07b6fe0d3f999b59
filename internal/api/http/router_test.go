package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rentshare-backend/internal/config"
	"rentshare-backend/internal/domain"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestRouter_Operational(t *testing.T) {
	ts := newTestServer(t)

	t.Run("healthz is public", func(t *testing.T) {
		rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil), "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
		assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
	})

	t.Run("request id is echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set(RequestIDHeader, "req-123")
		rec := ts.do(t, req, "")
		assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
	})

	t.Run("metrics expose http counters", func(t *testing.T) {
		ts.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil), "")
		rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil), "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `route="/healthz"`)
	})

	t.Run("unknown route uses the error envelope", func(t *testing.T) {
		rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/nope", nil), "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, ErrCodeNotFound, decodeError(t, rec).Error)
	})
}

func TestRouter_EveryRouteHasSecurityLevel(t *testing.T) {
	ts := newTestServer(t)
	router := NewRouter(Dependencies{
		Tokens:  ts.tokens,
		Metrics: ts.metrics,
	})

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		name := route.GetName()
		if name == "" {
			return nil
		}
		_, ok := config.EndpointSecurityConfig[name]
		assert.True(t, ok, "route %q has no security level", name)
		return nil
	})
	require.NoError(t, err)
}

func TestAuthMiddleware(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		ts := newTestServer(t)
		rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/rentals", nil), "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, ErrCodeUnauthenticated, decodeError(t, rec).Error)
	})

	t.Run("invalid token", func(t *testing.T) {
		ts := newTestServer(t)
		req := httptest.NewRequest(http.MethodGet, "/api/rentals", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := ts.do(t, req, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token reaches handler with user id", func(t *testing.T) {
		ts := newTestServer(t)
		ts.rentals.On("ListRentals", mock.Anything, "user-1", domain.RentalRoleOwner, domain.RentalStatus("")).
			Return([]domain.Rental{}, nil)

		rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/rentals?role=owner", nil), "user-1")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"rentals":[]}`, rec.Body.String())
		ts.rentals.AssertExpectations(t)
	})

	t.Run("admin route", func(t *testing.T) {
		ts := newTestServer(t)
		rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/admin/dashboard", nil), "user-1")
		assert.Equal(t, http.StatusForbidden, rec.Code)

		ts.admin.On("Dashboard", mock.Anything).Return(&domain.AdminDashboard{}, nil)
		req := httptest.NewRequest(http.MethodGet, "/api/admin/dashboard", nil)
		req.Header.Set("Authorization", "Bearer "+ts.token(t, "admin-1", true))
		rec = ts.do(t, req, "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("websocket accepts query token", func(t *testing.T) {
		ts := newTestServer(t)
		ts.ws.On("ServeWS", "user-1").Return()

		req := httptest.NewRequest(http.MethodGet, "/api/messages/ws?access_token="+ts.token(t, "user-1", false), nil)
		rec := ts.do(t, req, "")
		assert.Equal(t, http.StatusSwitchingProtocols, rec.Code)
		ts.ws.AssertExpectations(t)
	})

	t.Run("query token is ignored elsewhere", func(t *testing.T) {
		ts := newTestServer(t)
		req := httptest.NewRequest(http.MethodGet, "/api/rentals?access_token="+ts.token(t, "user-1", false), nil)
		rec := ts.do(t, req, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestCronAuth(t *testing.T) {
	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong secret", "Bearer nope", http.StatusUnauthorized},
		{"user jwt is not a cron secret", "", http.StatusUnauthorized},
		{"correct secret", "Bearer " + testCronSecret, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.rentals.On("NotifyOverdue", mock.Anything).Return([]domain.OverdueRental{}, nil).Maybe()

			req := httptest.NewRequest(http.MethodGet, "/api/overdue-rentals", nil)
			header := tc.header
			if tc.name == "user jwt is not a cron secret" {
				header = "Bearer " + ts.token(t, "user-1", false)
			}
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := ts.do(t, req, "")
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestCronHandlers(t *testing.T) {
	t.Run("overdue rentals lists and notifies", func(t *testing.T) {
		ts := newTestServer(t)
		overdue := []domain.OverdueRental{{
			Rental:             domain.Rental{ID: "rental-1", Status: domain.RentalStatusActive},
			ItemTitle:          "Drill",
			LateDays:           2,
			LateFeeAmountCents: 2000,
		}}
		ts.rentals.On("NotifyOverdue", mock.Anything).Return(overdue, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/overdue-rentals", nil)
		req.Header.Set("Authorization", "Bearer "+testCronSecret)
		rec := ts.do(t, req, "")

		require.Equal(t, http.StatusOK, rec.Code)
		var body overdueResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, 1, body.Count)
		assert.Equal(t, 2, body.Rentals[0].LateDays)
		assert.Equal(t, int64(2000), body.Rentals[0].LateFeeAmountCents)
	})

	t.Run("reminders", func(t *testing.T) {
		ts := newTestServer(t)
		ts.rentals.On("SendReminders", mock.Anything).Return(3, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/cron/telegram-reminders", nil)
		req.Header.Set("Authorization", "Bearer "+testCronSecret)
		rec := ts.do(t, req, "")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"sent":3}`, rec.Body.String())
	})

	t.Run("job failure is an opaque 500", func(t *testing.T) {
		ts := newTestServer(t)
		ts.rentals.On("SendReminders", mock.Anything).Return(0, errors.New("pq: connection refused"))

		req := httptest.NewRequest(http.MethodGet, "/api/cron/telegram-reminders", nil)
		req.Header.Set("Authorization", "Bearer "+testCronSecret)
		rec := ts.do(t, req, "")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "pq:")
	})
}

func TestRateLimiter(t *testing.T) {
	ts := newTestServer(t, func(d *Dependencies) {
		d.Limiter = NewRateLimiter(config.RateLimitConfig{RequestsPerSecond: 1, Burst: 2}, d.Metrics)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		codes = append(codes, ts.do(t, req, "").Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	assert.Equal(t, http.StatusOK, ts.do(t, req, "").Code, "other clients have their own bucket")
}

func TestRecovery(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, strings.Contains(rec.Body.String(), "boom"))
}
