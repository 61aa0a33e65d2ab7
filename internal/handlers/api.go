package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docsmith/internal/common"
)

// BackendState reports the supervised backend to the health endpoint
type BackendState interface {
	Attached() bool
	Running() bool
	Restarts() int
}

type APIHandler struct {
	logger  arbor.ILogger
	backend BackendState
}

func NewAPIHandler(backend BackendState, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		logger:  logger,
		backend: backend,
	}
}

// VersionHandler returns version information
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version":    common.GetVersion(),
		"build":      common.GetBuild(),
		"git_commit": common.GetGitCommit(),
	})
}

// HealthHandler returns health check status
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	response := map[string]interface{}{
		"status": "ok",
	}
	if h.backend != nil {
		response["backend"] = map[string]interface{}{
			"attached": h.backend.Attached(),
			"running":  h.backend.Running(),
			"restarts": h.backend.Restarts(),
		}
	}

	WriteJSON(w, http.StatusOK, response)
}

// NotFoundHandler handles 404 errors with JSON response
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, map[string]interface{}{
		"error":   "Not Found",
		"path":    r.URL.Path,
		"message": "The requested endpoint does not exist",
	})
}
