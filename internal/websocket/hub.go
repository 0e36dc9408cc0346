package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"backoffice/internal/notify"
)

// envelope is the frame sent to browsers.
type envelope struct {
	Event string         `json:"event"`
	Data  notify.Message `json:"data"`
}

// Hub tracks the websocket connections of this instance by user id. It is
// the local push transport.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		logger:  logger.Named("ws_hub"),
	}
}

func (h *Hub) Register(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*Client]struct{})
	}
	h.clients[userID][client] = struct{}{}
}

func (h *Hub) Unregister(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		return
	}
	delete(h.clients[userID], client)
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
}

// Connected reports how many sockets the user has open on this instance.
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Push queues msg on every socket of msg.UserID. A user without sockets is
// not an error; slow sockets whose buffer is full miss the message.
func (h *Hub) Push(_ context.Context, msg notify.Message) error {
	payload, err := json.Marshal(envelope{Event: "notification", Data: msg})
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[msg.UserID] {
		select {
		case client.send <- payload:
		default:
			h.logger.Debug("socket buffer full, push dropped", zap.String("user_id", msg.UserID))
		}
	}
	return nil
}
