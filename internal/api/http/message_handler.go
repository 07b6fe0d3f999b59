package http

import (
	"net/http"

	"rentshare-backend/internal/domain"
	"rentshare-backend/internal/service"
)

// WebsocketServer attaches an upgraded connection to a user. Satisfied by
// *realtime.Hub.
type WebsocketServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, userID string)
}

type MessageHandler struct {
	svc service.MessageService
	ws  WebsocketServer
	decoder
}

func NewMessageHandler(svc service.MessageService, ws WebsocketServer, d decoder) *MessageHandler {
	return &MessageHandler{svc: svc, ws: ws, decoder: d}
}

type markReadRequest struct {
	MessageIDs []string `json:"message_ids" validate:"required,min=1,max=500,dive,required"`
}

func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	q := r.URL.Query()
	messages, err := h.svc.List(r.Context(), UserIDFromContext(r.Context()), domain.MessageFilter{
		WithUserID: q.Get("with_user_id"),
		RentalID:   q.Get("rental_id"),
		Limit:      limit,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var in domain.MessageInput
	if err := h.decode(r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	msg, err := h.svc.Send(r.Context(), UserIDFromContext(r.Context()), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	var req markReadRequest
	if err := h.decode(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	n, err := h.svc.MarkRead(r.Context(), UserIDFromContext(r.Context()), req.MessageIDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": n})
}

// Stream upgrades to a websocket that receives new messages for the caller.
func (h *MessageHandler) Stream(w http.ResponseWriter, r *http.Request) {
	h.ws.ServeWS(w, r, UserIDFromContext(r.Context()))
}
