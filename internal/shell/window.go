package shell

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docsmith/internal/interfaces"
	"github.com/ternarybob/docsmith/internal/models"
)

// WindowAction is a window control request from the UI
type WindowAction string

const (
	WindowClose    WindowAction = "close"
	WindowMinimize WindowAction = "minimize"
	WindowMaximize WindowAction = "maximize"
	WindowRestore  WindowAction = "restore"
)

// ErrUnknownWindowAction is returned for actions other than the four above
var ErrUnknownWindowAction = errors.New("unknown window action")

// ParseWindowAction validates an action name
func ParseWindowAction(name string) (WindowAction, error) {
	switch action := WindowAction(name); action {
	case WindowClose, WindowMinimize, WindowMaximize, WindowRestore:
		return action, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownWindowAction, name)
}

// WindowManager tracks the main window state, persists it and broadcasts
// every change as window-state-changed.
type WindowManager struct {
	store   interfaces.StateStorage
	events  interfaces.EventService
	logger  arbor.ILogger
	onClose func()

	mu    sync.Mutex
	state models.WindowState
}

// NewWindowManager loads the persisted window state. onClose is invoked
// after a close action has been saved.
func NewWindowManager(ctx context.Context, store interfaces.StateStorage, events interfaces.EventService, logger arbor.ILogger, onClose func()) (*WindowManager, error) {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}

	w := &WindowManager{
		store:   store,
		events:  events,
		logger:  logger,
		onClose: onClose,
		state:   models.DefaultWindowState(),
	}

	if store != nil {
		saved, err := store.GetWindowState(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load window state: %w", err)
		}
		if saved != nil {
			w.state = *saved
		}
	}

	// A closed window reopens visible on the next start
	w.state.Visible = true
	w.state.Minimized = false

	return w, nil
}

// State returns the current window state
func (w *WindowManager) State() models.WindowState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Apply performs a window action
func (w *WindowManager) Apply(ctx context.Context, action WindowAction) (models.WindowState, error) {
	w.mu.Lock()
	next := w.state
	switch action {
	case WindowMinimize:
		next.Minimized = true
	case WindowMaximize:
		next.Maximized = true
		next.Minimized = false
		next.Visible = true
	case WindowRestore:
		next.Maximized = false
		next.Minimized = false
		next.Visible = true
	case WindowClose:
		next.Visible = false
	default:
		w.mu.Unlock()
		return models.WindowState{}, fmt.Errorf("%w: %q", ErrUnknownWindowAction, action)
	}
	w.state = next
	w.mu.Unlock()

	w.logger.Debug().Str("action", string(action)).Msg("Window action")

	if err := w.persist(ctx, next); err != nil {
		return next, err
	}

	if action == WindowClose {
		if w.events != nil {
			_ = w.events.Publish(ctx, interfaces.Event{Type: interfaces.EventShutdownRequested, Payload: map[string]string{"reason": "window closed"}})
		}
		if w.onClose != nil {
			w.onClose()
		}
	}

	return next, nil
}

// SetBounds records a new window rectangle
func (w *WindowManager) SetBounds(ctx context.Context, bounds models.Bounds) (models.WindowState, error) {
	if bounds.Width <= 0 || bounds.Height <= 0 {
		return w.State(), fmt.Errorf("invalid window bounds %dx%d", bounds.Width, bounds.Height)
	}

	w.mu.Lock()
	w.state.Bounds = bounds
	next := w.state
	w.mu.Unlock()

	return next, w.persist(ctx, next)
}

func (w *WindowManager) persist(ctx context.Context, state models.WindowState) error {
	if w.store != nil {
		if err := w.store.SaveWindowState(ctx, &state); err != nil {
			w.logger.Error().Err(err).Msg("Failed to save window state")
			return fmt.Errorf("failed to save window state: %w", err)
		}
	}
	if w.events != nil {
		_ = w.events.Publish(ctx, interfaces.Event{Type: interfaces.EventWindowStateChanged, Payload: state})
	}
	return nil
}
