package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docsmith/internal/interfaces"
	"github.com/ternarybob/docsmith/internal/services/events"
)

func dialWebSocket(t *testing.T, handler *WebSocketHandler) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocket_HelloThenEvents(t *testing.T) {
	hub := events.NewService(arbor.NewNoOpLogger())
	handler := NewWebSocketHandler(hub, arbor.NewNoOpLogger(), nil)
	defer handler.Close()

	conn := dialWebSocket(t, handler)

	hello := readMessage(t, conn)
	assert.Equal(t, "hello", hello.Type)
	payload, ok := hello.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, handler.ServerInstanceID(), payload["server_instance_id"])

	assert.Eventually(t, func() bool { return handler.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.PublishSync(context.Background(), interfaces.Event{
		Type:    interfaces.EventWindowStateChanged,
		Payload: map[string]bool{"maximized": true},
	}))

	msg := readMessage(t, conn)
	assert.Equal(t, "window-state-changed", msg.Type)
	assert.Equal(t, map[string]interface{}{"maximized": true}, msg.Payload)
}

func TestWebSocket_Throttle(t *testing.T) {
	hub := events.NewService(arbor.NewNoOpLogger())
	handler := NewWebSocketHandler(hub, arbor.NewNoOpLogger(), map[interfaces.EventType]time.Duration{
		interfaces.EventCompileProgress: time.Hour,
	})
	defer handler.Close()

	conn := dialWebSocket(t, handler)
	readMessage(t, conn)
	assert.Eventually(t, func() bool { return handler.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	ctx := context.Background()
	require.NoError(t, hub.PublishSync(ctx, interfaces.Event{Type: interfaces.EventCompileProgress, Payload: 1}))
	require.NoError(t, hub.PublishSync(ctx, interfaces.Event{Type: interfaces.EventCompileProgress, Payload: 2}))
	require.NoError(t, hub.PublishSync(ctx, interfaces.Event{Type: interfaces.EventNotice, Payload: "done"}))

	first := readMessage(t, conn)
	assert.Equal(t, "compile_progress", first.Type)
	assert.Equal(t, float64(1), first.Payload)

	second := readMessage(t, conn)
	assert.Equal(t, "notice", second.Type)
}

func TestWebSocket_CloseUnsubscribes(t *testing.T) {
	hub := events.NewService(arbor.NewNoOpLogger())
	handler := NewWebSocketHandler(hub, arbor.NewNoOpLogger(), nil)
	assert.Equal(t, 1, hub.SubscriberCount(interfaces.EventAll))

	handler.Close()
	assert.Equal(t, 0, hub.SubscriberCount(interfaces.EventAll))
}

func TestWebSocket_MultipleClients(t *testing.T) {
	hub := events.NewService(arbor.NewNoOpLogger())
	handler := NewWebSocketHandler(hub, arbor.NewNoOpLogger(), nil)
	defer handler.Close()

	clients := []*websocket.Conn{dialWebSocket(t, handler), dialWebSocket(t, handler), dialWebSocket(t, handler)}
	for _, conn := range clients {
		readMessage(t, conn)
	}
	assert.Eventually(t, func() bool { return handler.ClientCount() == 3 }, time.Second, 10*time.Millisecond)

	handler.Broadcast(WSMessage{Type: "notice", Payload: "hi"})
	for _, conn := range clients {
		msg := readMessage(t, conn)
		assert.Equal(t, "notice", msg.Type)
		assert.Equal(t, "hi", msg.Payload)
	}
}
