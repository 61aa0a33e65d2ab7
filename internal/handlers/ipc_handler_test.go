package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docsmith/internal/logs"
	"github.com/ternarybob/docsmith/internal/models"
	"github.com/ternarybob/docsmith/internal/services/cleanup"
	"github.com/ternarybob/docsmith/internal/shell"
)

type fakeSetup struct {
	status models.SetupStatus
	err    error
}

func (f *fakeSetup) Status(ctx context.Context) (*models.SetupStatus, error) {
	status := f.status
	return &status, f.err
}

func (f *fakeSetup) MarkCompleted(ctx context.Context, completed bool) (*models.SetupStatus, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.status.Completed = completed
	status := f.status
	return &status, nil
}

type fakeWindow struct {
	state   models.WindowState
	actions []shell.WindowAction
}

func (f *fakeWindow) State() models.WindowState { return f.state }

func (f *fakeWindow) Apply(ctx context.Context, action shell.WindowAction) (models.WindowState, error) {
	f.actions = append(f.actions, action)
	if action == shell.WindowMaximize {
		f.state.Maximized = true
	}
	return f.state, nil
}

func (f *fakeWindow) SetBounds(ctx context.Context, bounds models.Bounds) (models.WindowState, error) {
	if bounds.Width <= 0 {
		return f.state, errors.New("invalid window bounds")
	}
	f.state.Bounds = bounds
	return f.state, nil
}

type fakeOpener struct {
	opened []string
}

func (f *fakeOpener) Open(ctx context.Context, path string) error {
	if path == "" {
		return shell.ErrPathRequired
	}
	f.opened = append(f.opened, path)
	return nil
}

func (f *fakeOpener) RevealLogs(ctx context.Context, logFilePath, logsDir string) (string, error) {
	f.opened = append(f.opened, logsDir)
	return logsDir, nil
}

type fakeCleaner struct{}

func (fakeCleaner) Run(ctx context.Context) (*cleanup.Result, error) {
	return &cleanup.Result{Dir: "/tmp", Removed: []string{"docsmith-a.pdf"}}, nil
}

type fakeLogs []logs.Entry

func (f fakeLogs) Recent(limit int) []logs.Entry {
	if limit < len(f) {
		return f[len(f)-limit:]
	}
	return f
}

type ipcFixture struct {
	setup   *fakeSetup
	window  *fakeWindow
	opener  *fakeOpener
	handler *IPCHandler
}

func newIPCFixture() *ipcFixture {
	f := &ipcFixture{
		setup:  &fakeSetup{},
		window: &fakeWindow{state: models.DefaultWindowState()},
		opener: &fakeOpener{},
	}
	recent := fakeLogs{{Message: "one"}, {Message: "two"}, {Message: "three"}}
	f.handler = NewIPCHandler(f.setup, f.window, f.opener, fakeCleaner{}, recent, "/var/log/docsmith", arbor.NewNoOpLogger())
	return f
}

func do(handler http.HandlerFunc, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

func TestSetupCompletedHandler(t *testing.T) {
	f := newIPCFixture()

	rec := do(f.handler.SetupCompletedHandler, "POST", "/ipc/setup-completed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, f.setup.status.Completed)

	rec = do(f.handler.SetupStatusHandler, "GET", "/ipc/setup-status", "")
	var status models.SetupStatus
	decode(t, rec, &status)
	assert.True(t, status.Completed)

	rec = do(f.handler.SetupCompletedHandler, "POST", "/ipc/setup-completed", `{"completed":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, f.setup.status.Completed)

	rec = do(f.handler.SetupCompletedHandler, "GET", "/ipc/setup-completed", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = do(f.handler.SetupCompletedHandler, "POST", "/ipc/setup-completed", `{bad`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetupCompletedHandler_StoreError(t *testing.T) {
	f := newIPCFixture()
	f.setup.err = errors.New("db closed")

	rec := do(f.handler.SetupCompletedHandler, "POST", "/ipc/setup-completed", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "db closed")
}

func TestWindowActionHandler(t *testing.T) {
	f := newIPCFixture()

	rec := do(f.handler.WindowActionHandler, "POST", "/ipc/window/maximize", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var state models.WindowState
	decode(t, rec, &state)
	assert.True(t, state.Maximized)

	rec = do(f.handler.WindowActionHandler, "POST", "/ipc/window/explode", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, []shell.WindowAction{shell.WindowMaximize}, f.window.actions)
}

func TestWindowStateHandler(t *testing.T) {
	f := newIPCFixture()

	rec := do(f.handler.WindowStateHandler, "GET", "/ipc/window/state", "")
	var state models.WindowState
	decode(t, rec, &state)
	assert.Equal(t, 1280, state.Bounds.Width)

	rec = do(f.handler.WindowStateHandler, "POST", "/ipc/window/state", `{"x":1,"y":2,"width":800,"height":600}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 800, f.window.state.Bounds.Width)

	rec = do(f.handler.WindowStateHandler, "POST", "/ipc/window/state", `{"width":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(f.handler.WindowStateHandler, "DELETE", "/ipc/window/state", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestOpenPathAndRevealLogs(t *testing.T) {
	f := newIPCFixture()

	rec := do(f.handler.OpenPathHandler, "POST", "/ipc/open-path", `{"path":"/out/report.docx"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(f.handler.OpenPathHandler, "POST", "/ipc/open-path", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(f.handler.RevealLogsHandler, "POST", "/ipc/reveal-logs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "/var/log/docsmith", body["path"])

	assert.Equal(t, []string{"/out/report.docx", "/var/log/docsmith"}, f.opener.opened)
}

func TestCleanupTempFilesHandler(t *testing.T) {
	f := newIPCFixture()

	rec := do(f.handler.CleanupTempFilesHandler, "POST", "/ipc/cleanup-temp-files", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var result cleanup.Result
	decode(t, rec, &result)
	assert.Equal(t, []string{"docsmith-a.pdf"}, result.Removed)
}

func TestRecentLogsHandler(t *testing.T) {
	f := newIPCFixture()

	rec := do(f.handler.RecentLogsHandler, "GET", "/ipc/logs/recent?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Logs []logs.Entry `json:"logs"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Logs, 2)
	assert.Equal(t, "two", body.Logs[0].Message)
}

func TestIPCHandler_MissingDependencies(t *testing.T) {
	handler := NewIPCHandler(nil, nil, nil, nil, nil, "", arbor.NewNoOpLogger())

	assert.Equal(t, http.StatusServiceUnavailable, do(handler.SetupStatusHandler, "GET", "/ipc/setup-status", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(handler.WindowStateHandler, "GET", "/ipc/window/state", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(handler.CleanupTempFilesHandler, "POST", "/ipc/cleanup-temp-files", "").Code)
}
