// Package realtime pushes events to users' open websocket connections.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"rentshare-backend/internal/logger"
)

// Envelope is the frame written to clients.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type directMessage struct {
	userID string
	data   []byte
}

// Hub tracks connections per user and fans messages out to them.
type Hub struct {
	clients    map[string]map[*Client]bool
	direct     chan directMessage
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		direct:     make(chan directMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run is the hub's event loop. It returns when ctx is cancelled, closing every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for userID, set := range h.clients {
				for c := range set {
					close(c.send)
				}
				delete(h.clients, userID)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			if h.clients[c.userID] == nil {
				h.clients[c.userID] = make(map[*Client]bool)
			}
			h.clients[c.userID][c] = true
			h.mu.Unlock()
			logger.Debug("Websocket client connected", "userID", c.userID)

		case c := <-h.unregister:
			h.mu.Lock()
			h.remove(c)
			h.mu.Unlock()
			logger.Debug("Websocket client disconnected", "userID", c.userID)

		case msg := <-h.direct:
			h.mu.Lock()
			for c := range h.clients[msg.userID] {
				select {
				case c.send <- msg.data:
				default:
					// Slow consumer; drop the connection rather than block the hub.
					h.remove(c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with mu held.
func (h *Hub) remove(c *Client) {
	set, ok := h.clients[c.userID]
	if !ok || !set[c] {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
}

// SendToUser queues a typed event for every connection of userID. It never
// blocks; when the queue is full the event is dropped.
func (h *Hub) SendToUser(userID, eventType string, data any) error {
	payload, err := json.Marshal(Envelope{Type: eventType, Data: data})
	if err != nil {
		return fmt.Errorf("encode realtime event: %w", err)
	}
	select {
	case h.direct <- directMessage{userID: userID, data: payload}:
	default:
		logger.Warn("Realtime queue full, dropping event", "userID", userID, "type", eventType)
	}
	return nil
}

// ConnectionCount returns the number of open connections for userID.
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
