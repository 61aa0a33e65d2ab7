package handlers

import (
	"context"

	"github.com/ternarybob/docsmith/internal/logs"
	"github.com/ternarybob/docsmith/internal/models"
	"github.com/ternarybob/docsmith/internal/services/cleanup"
	"github.com/ternarybob/docsmith/internal/shell"
)

// SetupStore reads and writes the setup-completed flag.
type SetupStore interface {
	Status(ctx context.Context) (*models.SetupStatus, error)
	MarkCompleted(ctx context.Context, completed bool) (*models.SetupStatus, error)
}

// WindowController applies window actions and reports window state.
type WindowController interface {
	State() models.WindowState
	Apply(ctx context.Context, action shell.WindowAction) (models.WindowState, error)
	SetBounds(ctx context.Context, bounds models.Bounds) (models.WindowState, error)
}

// PathOpener hands paths to the platform file manager.
type PathOpener interface {
	Open(ctx context.Context, path string) error
	RevealLogs(ctx context.Context, logFilePath, logsDir string) (string, error)
}

// TempCleaner removes stale temp files.
type TempCleaner interface {
	Run(ctx context.Context) (*cleanup.Result, error)
}

// RecentLogs returns the newest host log entries.
type RecentLogs interface {
	Recent(limit int) []logs.Entry
}
