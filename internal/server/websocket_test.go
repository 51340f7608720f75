package server_test

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"

	"github.com/tandemflow/tandem/pkg/api"
)

func dialWebSocket(
	t *testing.T, h *testHarness,
) (*websocket.Conn, func()) {
	t.Helper()

	srv := httptest.NewServer(h.router)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/engine/ws"

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	assert.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}

	return conn, func() {
		_ = conn.Close()
		srv.Close()
	}
}

func TestWebSocketReceivesStepBroadcast(t *testing.T) {
	h := newTestHarness(t, &fakeExecutor{})

	conn, cleanup := dialWebSocket(t, h)
	defer cleanup()

	// Give the server a moment to register the socket
	time.Sleep(50 * time.Millisecond)

	h.server.BroadcastStep("run-1", &api.StepResult{
		Order:   1,
		Name:    "login",
		Success: true,
	})

	assert.NoError(t,
		conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, frame, err := conn.ReadMessage()
	assert.NoError(t, err)

	var event api.StepEvent
	assert.NoError(t, json.Unmarshal(frame, &event))
	assert.Equal(t, api.EventTypeStepResult, event.Type)
	assert.Equal(t, "run-1", event.RunID)
	assert.Equal(t, 1, event.Step.Order)
	assert.True(t, event.Step.Success)
}

func TestBroadcastWithoutSocketsIsNoop(t *testing.T) {
	h := newTestHarness(t, &fakeExecutor{})

	// Must not panic or block
	h.server.BroadcastStep("run-1", &api.StepResult{Order: 1})
}

func TestCloseWebSockets(t *testing.T) {
	h := newTestHarness(t, &fakeExecutor{})

	conn, cleanup := dialWebSocket(t, h)
	defer cleanup()

	time.Sleep(50 * time.Millisecond)
	h.server.CloseWebSockets()

	assert.NoError(t,
		conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
