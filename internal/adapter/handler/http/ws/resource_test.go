package ws_test

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/moto-nrw/fingerprint-edge/internal/adapter/handler/http/ws"
	"github.com/moto-nrw/fingerprint-edge/internal/adapter/realtime"
	"github.com/moto-nrw/fingerprint-edge/internal/core/domain/decision"
	"github.com/moto-nrw/fingerprint-edge/internal/core/port"
	decisionSvc "github.com/moto-nrw/fingerprint-edge/internal/core/service/decision"
	"github.com/moto-nrw/fingerprint-edge/internal/testutil"
)

func newTestServer(t *testing.T) (*httptest.Server, *realtime.Hub, *decisionSvc.Arbiter) {
	t.Helper()
	hub := realtime.NewHub(nil)
	store := testutil.NewFakeStore()
	remote := testutil.NewFakeRemoteClient()
	broadcaster := testutil.NewFakeBroadcaster()
	arbiter := decisionSvc.New(store, remote, broadcaster, nil)

	resource := ws.NewResource(hub, arbiter, nil)
	server := httptest.NewServer(resource.Router())
	t.Cleanup(server.Close)
	return server, hub, arbiter
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestResource_ServeWS_RegistersClientAndDeliversBroadcast(t *testing.T) {
	server, hub, _ := newTestServer(t)
	conn := dial(t, server)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.Broadcast(port.Event{
		Type:       port.EventDecisionRequest,
		StudentUID: 1,
		DecisionID: "1_123",
		Timestamp:  time.Now(),
	})

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var env struct {
		Type       string `json:"type"`
		DecisionID string `json:"decision_id"`
	}
	require.NoError(t, json.Unmarshal(payload, &env))
	require.Equal(t, "decision_request", env.Type)
	require.Equal(t, "1_123", env.DecisionID)
}

func TestResource_ServeWS_DecisionResponseResolvesArbiter(t *testing.T) {
	server, _, arbiter := newTestServer(t)
	conn := dial(t, server)

	pending := arbiter.Create(42, "Jane Doe", "Group schedule", "dev-1", "Front Desk", "Lobby", time.Now())

	msg := map[string]string{
		"type":        "decision_response",
		"decision_id": pending.ID,
		"decision":    string(decision.VerdictReject),
	}
	b, err := json.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, b))

	require.Eventually(t, func() bool {
		return len(arbiter.List()) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestResource_ServeWS_UnregistersOnDisconnect(t *testing.T) {
	server, hub, _ := newTestServer(t)
	conn := dial(t, server)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}
