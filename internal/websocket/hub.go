// Package websocket fans out change notifications to connected clients.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Message is a change notification. GroupID scopes it to subscribers of
// one group; zero reaches every client.
type Message struct {
	Type    string         `json:"type"`
	Entity  string         `json:"entity"`
	Action  string         `json:"action"`
	ID      int64          `json:"id,omitempty"`
	GroupID int64          `json:"group_id,omitempty"`
	Extra   map[string]any `json:"extra,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity and action.
func NewMessage(entity, action string, id int64, extra map[string]any) Message {
	return Message{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		ID:     id,
		Extra:  extra,
	}
}

// InGroup returns a copy of m scoped to groupID.
func (m Message) InGroup(groupID int64) Message {
	m.GroupID = groupID
	return m
}

// Hub maintains the set of active clients and broadcasts messages.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
	gauge   prometheus.Gauge
}

type HubOption func(*Hub)

// WithClientGauge tracks the number of connected clients in g.
func WithClientGauge(g prometheus.Gauge) HubOption {
	return func(h *Hub) { h.gauge = g }
}

func NewHub(logger *slog.Logger, opts ...HubOption) *Hub {
	h := &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	if h.gauge != nil {
		h.gauge.Inc()
	}
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	if ok && h.gauge != nil {
		h.gauge.Dec()
	}
}

// Broadcast sends msg to every client whose group filter admits it.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if !c.wants(msg) {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.logger.Warn("dropping broadcast for slow client", "type", msg.Type, "user_id", c.userID)
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
