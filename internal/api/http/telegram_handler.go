package http

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"rentshare-backend/internal/logger"
	"rentshare-backend/internal/metrics"
	"rentshare-backend/internal/service"
)

const telegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

type TelegramHandler struct {
	svc           service.TelegramService
	webhookSecret string
	metrics       *metrics.Metrics
}

func NewTelegramHandler(svc service.TelegramService, webhookSecret string, m *metrics.Metrics) *TelegramHandler {
	return &TelegramHandler{svc: svc, webhookSecret: webhookSecret, metrics: m}
}

// Webhook receives bot updates. Once the secret header checks out the
// update is always acknowledged with 200, even if handling failed, so
// Telegram does not redeliver it.
func (h *TelegramHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	got := r.Header.Get(telegramSecretHeader)
	if h.webhookSecret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.webhookSecret)) != 1 {
		h.record("rejected")
		writeError(w, http.StatusUnauthorized, ErrCodeUnauthenticated, "Invalid webhook secret")
		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&update); err != nil {
		h.record("rejected")
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid update payload")
		return
	}

	if err := h.svc.HandleUpdate(r.Context(), update); err != nil {
		h.record("error")
		logger.ErrorContext(r.Context(), "Telegram update failed", "updateID", update.UpdateID, "error", err)
	} else {
		h.record("ok")
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Link issues a one-time deep link that binds the caller's chat to their profile.
func (h *TelegramHandler) Link(w http.ResponseWriter, r *http.Request) {
	link, err := h.svc.CreateLinkToken(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": link})
}

func (h *TelegramHandler) record(result string) {
	if h.metrics != nil {
		h.metrics.RecordWebhook("telegram", result)
	}
}
