package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docsmith/internal/app"
	"github.com/ternarybob/docsmith/internal/common"
	"github.com/ternarybob/docsmith/internal/handlers"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := arbor.NewNoOpLogger()

	application := &app.App{
		Config:      common.NewDefaultConfig(),
		Logger:      logger,
		APIHandler:  handlers.NewAPIHandler(nil, logger),
		IPCHandler:  handlers.NewIPCHandler(nil, nil, nil, nil, nil, "", logger),
		WSHandler:   handlers.NewWebSocketHandler(nil, logger, nil),
		HelpHandler: handlers.NewHelpHandler("", logger),
	}

	server := httptest.NewServer(New(application).Handler())
	t.Cleanup(server.Close)
	return server
}

func noRedirect() *http.Client {
	return &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func TestRoutes_Health(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestRoutes_KeepsRequestID(t *testing.T) {
	server := newTestServer(t)

	req, err := http.NewRequest("GET", server.URL+"/api/version", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "abc-123")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get("X-Request-ID"))
}

func TestRoutes_RootRedirectsToHelp(t *testing.T) {
	server := newTestServer(t)

	resp, err := noRedirect().Get(server.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/help", resp.Header.Get("Location"))
}

func TestRoutes_NotFound(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestRoutes_IPCUnavailableWithoutHost(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/ipc/setup-status")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = http.Post(server.URL+"/ipc/window/minimize", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRoutes_Help(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/help/jobs")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRoutes_Preflight(t *testing.T) {
	server := newTestServer(t)

	req, err := http.NewRequest("OPTIONS", server.URL+"/ipc/open-path", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRoutes_WebSocket(t *testing.T) {
	server := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg handlers.WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "hello", msg.Type)
}

func TestRoutes_IPCRejectsRemoteCallers(t *testing.T) {
	logger := arbor.NewNoOpLogger()
	application := &app.App{
		Config:      common.NewDefaultConfig(),
		Logger:      logger,
		APIHandler:  handlers.NewAPIHandler(nil, logger),
		IPCHandler:  handlers.NewIPCHandler(nil, nil, nil, nil, nil, "", logger),
		WSHandler:   handlers.NewWebSocketHandler(nil, logger, nil),
		HelpHandler: handlers.NewHelpHandler("", logger),
	}
	handler := New(application).Handler()

	req := httptest.NewRequest(http.MethodPost, "/ipc/open-path", strings.NewReader(`{"path":"/etc"}`))
	req.RemoteAddr = "192.168.1.20:50000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.RemoteAddr = "192.168.1.20:50000"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIsLoopback(t *testing.T) {
	assert.True(t, isLoopback("127.0.0.1:1234"))
	assert.True(t, isLoopback("[::1]:1234"))
	assert.True(t, isLoopback("localhost"))
	assert.False(t, isLoopback("10.0.0.1:80"))
	assert.False(t, isLoopback("garbage"))
}
