package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// IPC routes - setup flag
	mux.HandleFunc("/ipc/setup-completed", s.app.IPCHandler.SetupCompletedHandler) // POST
	mux.HandleFunc("/ipc/setup-status", s.app.IPCHandler.SetupStatusHandler)       // GET

	// IPC routes - window
	mux.HandleFunc("/ipc/window/state", s.app.IPCHandler.WindowStateHandler) // GET, POST bounds
	mux.HandleFunc("/ipc/window/", s.app.IPCHandler.WindowActionHandler)     // POST /{close|minimize|maximize|restore}

	// IPC routes - shell integration
	mux.HandleFunc("/ipc/reveal-logs", s.app.IPCHandler.RevealLogsHandler)              // POST
	mux.HandleFunc("/ipc/open-path", s.app.IPCHandler.OpenPathHandler)                  // POST {"path"}
	mux.HandleFunc("/ipc/cleanup-temp-files", s.app.IPCHandler.CleanupTempFilesHandler) // POST
	mux.HandleFunc("/ipc/logs/recent", s.app.IPCHandler.RecentLogsHandler)              // GET ?limit=

	// Help pages
	mux.HandleFunc("/help", s.app.HelpHandler.ServeHelp)
	mux.HandleFunc("/help/", s.app.HelpHandler.ServeHelp)

	// System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			RouteByMethod(w, r, MethodRouter{
				"GET": func(w http.ResponseWriter, r *http.Request) {
					http.Redirect(w, r, "/help", http.StatusFound)
				},
			})
			return
		}
		s.app.APIHandler.NotFoundHandler(w, r)
	})

	return mux
}
