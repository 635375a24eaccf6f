// Package ws serves the Operator Channel's push surface at /fingerprint/ws:
// it upgrades an HTTP connection to a websocket, registers it with the
// realtime hub as a broadcast subscriber, and routes client-sent decision
// responses to the decision arbiter (spec.md §4.11, §6).
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/moto-nrw/fingerprint-edge/internal/adapter/realtime"
	"github.com/moto-nrw/fingerprint-edge/internal/core/domain/decision"
	decisionSvc "github.com/moto-nrw/fingerprint-edge/internal/core/service/decision"
)

// writeTimeout bounds a single frame write so a stalled client can't wedge
// the writer goroutine forever.
const writeTimeout = 10 * time.Second

// Resource wires the hub and the decision arbiter to an HTTP handler.
type Resource struct {
	hub     *realtime.Hub
	arbiter *decisionSvc.Arbiter
	logger  *slog.Logger
}

// NewResource builds a ws Resource.
func NewResource(hub *realtime.Hub, arbiter *decisionSvc.Arbiter, logger *slog.Logger) *Resource {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resource{hub: hub, arbiter: arbiter, logger: logger}
}

// Router returns a configured router for the push channel.
func (rs *Resource) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/", rs.serveWS)
	return r
}

var upgrader = websocket.Upgrader{
	// The edge has no browser-origin concept to police; every operator
	// client on the local network is trusted (spec.md non-goals: no
	// multi-tenant isolation).
	CheckOrigin: func(r *http.Request) bool { return true },
}

// decisionResponse is the client-to-server frame an operator UI sends to
// resolve a pending decision (spec.md scenario 3).
type decisionResponse struct {
	Type       string `json:"type"`
	DecisionID string `json:"decision_id"`
	Decision   string `json:"decision"`
}

func (rs *Resource) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		rs.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := rs.hub.Register()
	defer rs.hub.Unregister(client)

	done := make(chan struct{})
	go rs.writeLoop(conn, client, done)
	rs.readLoop(r.Context(), conn)
	close(done)
	_ = conn.Close()
}

// writeLoop drains the client's outbound buffer onto the websocket
// connection until the hub closes it (eviction) or the reader exits.
func (rs *Resource) writeLoop(conn *websocket.Conn, client *realtime.Client, done <-chan struct{}) {
	for {
		select {
		case frame, ok := <-client.Out:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// readLoop consumes client-sent decision responses and resolves them
// against the arbiter. It returns when the connection closes.
func (rs *Resource) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg decisionResponse
		if err := json.Unmarshal(payload, &msg); err != nil {
			rs.logger.Warn("dropping malformed operator channel message", slog.Any("error", err))
			continue
		}
		if msg.Type != "decision_response" {
			continue
		}

		var verdict decision.Verdict
		switch msg.Decision {
		case string(decision.VerdictApprove):
			verdict = decision.VerdictApprove
		case string(decision.VerdictReject):
			verdict = decision.VerdictReject
		default:
			rs.logger.Warn("dropping decision response with unknown verdict", slog.String("decision", msg.Decision))
			continue
		}

		if err := rs.arbiter.Resolve(ctx, msg.DecisionID, verdict); err != nil {
			rs.logger.Warn("failed to resolve pending decision", slog.String("decision_id", msg.DecisionID), slog.Any("error", err))
		}
	}
}
