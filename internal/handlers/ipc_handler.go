package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docsmith/internal/common"
	"github.com/ternarybob/docsmith/internal/models"
	"github.com/ternarybob/docsmith/internal/shell"
)

// IPCHandler exposes the desktop host operations the UI calls
type IPCHandler struct {
	setup   SetupStore
	window  WindowController
	opener  PathOpener
	cleaner TempCleaner
	logs    RecentLogs
	logsDir string
	logger  arbor.ILogger
}

// NewIPCHandler creates the IPC handler. Any dependency may be nil, in which
// case its endpoints answer 503.
func NewIPCHandler(setup SetupStore, window WindowController, opener PathOpener, cleaner TempCleaner, recent RecentLogs, logsDir string, logger arbor.ILogger) *IPCHandler {
	return &IPCHandler{
		setup:   setup,
		window:  window,
		opener:  opener,
		cleaner: cleaner,
		logs:    recent,
		logsDir: logsDir,
		logger:  logger,
	}
}

func unavailable(w http.ResponseWriter, what string) {
	WriteError(w, http.StatusServiceUnavailable, what+" is not available")
}

// SetupCompletedHandler marks setup as completed. Body {"completed": false} resets it.
func (h *IPCHandler) SetupCompletedHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}
	if h.setup == nil {
		unavailable(w, "setup store")
		return
	}

	request := struct {
		Completed *bool `json:"completed"`
	}{}
	if err := DecodeJSON(r, &request); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	completed := true
	if request.Completed != nil {
		completed = *request.Completed
	}

	status, err := h.setup.MarkCompleted(r.Context(), completed)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to save setup flag")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, status)
}

// SetupStatusHandler returns the setup-completed flag
func (h *IPCHandler) SetupStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	if h.setup == nil {
		unavailable(w, "setup store")
		return
	}

	status, err := h.setup.Status(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, status)
}

// WindowActionHandler handles POST /ipc/window/{close|minimize|maximize|restore}
func (h *IPCHandler) WindowActionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}
	if h.window == nil {
		unavailable(w, "window manager")
		return
	}

	name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/ipc/window/"), "/")
	action, err := shell.ParseWindowAction(name)
	if err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	state, err := h.window.Apply(r.Context(), action)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, state)
}

// WindowStateHandler returns the window state on GET and records bounds on POST
func (h *IPCHandler) WindowStateHandler(w http.ResponseWriter, r *http.Request) {
	if h.window == nil {
		unavailable(w, "window manager")
		return
	}

	switch r.Method {
	case "GET":
		WriteJSON(w, http.StatusOK, h.window.State())
	case "POST":
		var bounds models.Bounds
		if err := DecodeJSON(r, &bounds); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		state, err := h.window.SetBounds(r.Context(), bounds)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, state)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// RevealLogsHandler opens the logs directory
func (h *IPCHandler) RevealLogsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}
	if h.opener == nil {
		unavailable(w, "opener")
		return
	}

	dir, err := h.opener.RevealLogs(r.Context(), common.GetLogFilePath(h.logger), h.logsDir)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to reveal logs")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"path": dir})
}

// OpenPathHandler opens {"path": "..."} with the platform file manager
func (h *IPCHandler) OpenPathHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}
	if h.opener == nil {
		unavailable(w, "opener")
		return
	}

	request := struct {
		Path string `json:"path"`
	}{}
	if err := DecodeJSON(r, &request); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.opener.Open(r.Context(), request.Path); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, shell.ErrPathRequired) {
			status = http.StatusBadRequest
		}
		WriteError(w, status, err.Error())
		return
	}

	WriteSuccess(w, "opened "+request.Path)
}

// CleanupTempFilesHandler removes stale docsmith-* temp files now
func (h *IPCHandler) CleanupTempFilesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}
	if h.cleaner == nil {
		unavailable(w, "temp cleanup")
		return
	}

	result, err := h.cleaner.Run(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// RecentLogsHandler returns the newest host log entries
func (h *IPCHandler) RecentLogsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	if h.logs == nil {
		unavailable(w, "log consumer")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"logs": h.logs.Recent(GetLimitParam(r, 100, 1000)),
	})
}
