// Package realtime provides the Operator Channel (C11) push transport
// over gorilla/websocket. It is an adapter implementing port.Broadcaster,
// generalized from the teacher's SSE hub (internal/adapter/realtime/hub.go)
// to a single flat subscriber set: this domain has no per-group
// partitioning (a group_id scoped to an active_group record), every
// connected operator sees every event (spec.md §4.11).
package realtime

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/moto-nrw/fingerprint-edge/internal/core/port"
)

// sendBuffer bounds how many frames a slow subscriber may lag behind
// before being evicted, mirroring the teacher's full-channel skip
// behavior but turning it into an eviction per spec.md §4.11 ("the
// channel manager... removes any subscriber whose send fails").
const sendBuffer = 32

// Client is a single live operator connection. Out is drained by the
// websocket handler's writer goroutine.
type Client struct {
	ID  string
	Out chan []byte
}

// Hub owns the flat set of live operator subscribers and implements
// port.Broadcaster.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	logger  *slog.Logger
}

// NewHub builds an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*Client]bool),
		logger:  logger,
	}
}

var _ port.Broadcaster = (*Hub)(nil)

// Register adds a new subscriber.
func (h *Hub) Register() *Client {
	c := &Client{Out: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = true
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("operator channel client connected", slog.Int("total_clients", count))
	return c
}

// Unregister removes a subscriber and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()
	close(c.Out)
	h.logger.Info("operator channel client disconnected", slog.Int("total_clients", count))
}

// Broadcast implements port.Broadcaster. Decision-request events are
// framed as a structured JSON envelope; every other event is framed as a
// line-formatted log string, per spec.md §4.11. A subscriber whose send
// buffer is full is evicted rather than blocking the broadcaster.
func (h *Hub) Broadcast(event port.Event) {
	frame := frameEvent(event)

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.Out <- frame:
		default:
			h.logger.Warn("operator channel client send buffer full, evicting")
			h.Unregister(c)
		}
	}
}

// ClientCount reports the number of live subscribers, for status reporting.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// envelope is the structured wire shape for decision_request broadcasts.
type envelope struct {
	Type       string `json:"type"`
	StudentUID int    `json:"student_uid,omitempty"`
	DecisionID string `json:"decision_id,omitempty"`
	DeviceID   string `json:"device_id,omitempty"`
	Message    string `json:"message"`
	Timestamp  string `json:"timestamp"`
}

func frameEvent(event port.Event) []byte {
	if event.Type == port.EventDecisionRequest {
		env := envelope{
			Type:       string(event.Type),
			StudentUID: event.StudentUID,
			DecisionID: event.DecisionID,
			DeviceID:   event.DeviceID,
			Message:    event.Message,
			Timestamp:  event.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		}
		b, err := json.Marshal(env)
		if err != nil {
			return []byte(event.Message)
		}
		return b
	}
	return []byte(fmt.Sprintf("[%s] %s: %s",
		event.Timestamp.Format("15:04:05"), event.Type, event.Message))
}
