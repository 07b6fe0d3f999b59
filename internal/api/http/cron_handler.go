package http

import (
	"net/http"
	"time"

	"rentshare-backend/internal/domain"
	"rentshare-backend/internal/logger"
	"rentshare-backend/internal/metrics"
	"rentshare-backend/internal/service"
)

// CronHandler exposes the scheduled jobs to an external cron caller.
// Authentication is the shared cron secret checked by the middleware.
type CronHandler struct {
	rentals service.RentalService
	metrics *metrics.Metrics
}

func NewCronHandler(rentals service.RentalService, m *metrics.Metrics) *CronHandler {
	return &CronHandler{rentals: rentals, metrics: m}
}

type overdueResponse struct {
	Count   int                    `json:"count"`
	Rentals []domain.OverdueRental `json:"rentals"`
}

func (h *CronHandler) TelegramReminders(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sent, err := h.rentals.SendReminders(r.Context())
	h.record("send_rental_reminders", start, err)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	logger.InfoContext(r.Context(), "Rental reminders queued", "count", sent)
	writeJSON(w, http.StatusOK, map[string]int{"sent": sent})
}

func (h *CronHandler) OverdueRentals(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	overdue, err := h.rentals.NotifyOverdue(r.Context())
	h.record("notify_overdue_rentals", start, err)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if overdue == nil {
		overdue = []domain.OverdueRental{}
	}
	writeJSON(w, http.StatusOK, overdueResponse{Count: len(overdue), Rentals: overdue})
}

func (h *CronHandler) record(job string, start time.Time, err error) {
	if h.metrics != nil {
		h.metrics.RecordJob(job, time.Since(start), err == nil)
	}
}
