package interfaces

import (
	"context"

	"github.com/ternarybob/docsmith/internal/models"
)

// StateStorage persists the small amount of host-local state:
// the setup flag and the last window state.
type StateStorage interface {
	GetSetupStatus(ctx context.Context) (*models.SetupStatus, error)
	SetSetupCompleted(ctx context.Context, completed bool) (*models.SetupStatus, error)
	GetWindowState(ctx context.Context) (*models.WindowState, error)
	SaveWindowState(ctx context.Context, state *models.WindowState) error
	Close() error
}
