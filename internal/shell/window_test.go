package shell

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docsmith/internal/interfaces"
	"github.com/ternarybob/docsmith/internal/models"
	"github.com/ternarybob/docsmith/internal/services/events"
)

type memoryStore struct {
	mu     sync.Mutex
	window *models.WindowState
	saves  int
}

func (m *memoryStore) GetSetupStatus(ctx context.Context) (*models.SetupStatus, error) {
	return &models.SetupStatus{}, nil
}

func (m *memoryStore) SetSetupCompleted(ctx context.Context, completed bool) (*models.SetupStatus, error) {
	return &models.SetupStatus{Completed: completed}, nil
}

func (m *memoryStore) GetWindowState(ctx context.Context) (*models.WindowState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.window, nil
}

func (m *memoryStore) SaveWindowState(ctx context.Context, state *models.WindowState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *state
	m.window = &copied
	m.saves++
	return nil
}

func (m *memoryStore) Close() error { return nil }

func TestParseWindowAction(t *testing.T) {
	for _, name := range []string{"close", "minimize", "maximize", "restore"} {
		action, err := ParseWindowAction(name)
		require.NoError(t, err)
		assert.Equal(t, WindowAction(name), action)
	}

	_, err := ParseWindowAction("fullscreen")
	assert.ErrorIs(t, err, ErrUnknownWindowAction)
}

func TestWindowManager_LoadsPersistedState(t *testing.T) {
	store := &memoryStore{window: &models.WindowState{
		Maximized: true,
		Minimized: true,
		Visible:   false,
		Bounds:    models.Bounds{X: 10, Y: 20, Width: 900, Height: 700},
	}}

	manager, err := NewWindowManager(context.Background(), store, nil, arbor.NewNoOpLogger(), nil)
	require.NoError(t, err)

	state := manager.State()
	assert.True(t, state.Maximized)
	assert.True(t, state.Visible)
	assert.False(t, state.Minimized)
	assert.Equal(t, 900, state.Bounds.Width)
}

func TestWindowManager_DefaultsWithoutState(t *testing.T) {
	manager, err := NewWindowManager(context.Background(), &memoryStore{}, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultWindowState(), manager.State())
}

func TestWindowManager_Transitions(t *testing.T) {
	store := &memoryStore{}
	manager, err := NewWindowManager(context.Background(), store, nil, nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	state, err := manager.Apply(ctx, WindowMaximize)
	require.NoError(t, err)
	assert.True(t, state.Maximized)

	state, err = manager.Apply(ctx, WindowMinimize)
	require.NoError(t, err)
	assert.True(t, state.Minimized)
	assert.True(t, state.Maximized)

	state, err = manager.Apply(ctx, WindowRestore)
	require.NoError(t, err)
	assert.False(t, state.Minimized)
	assert.False(t, state.Maximized)

	assert.Equal(t, 3, store.saves)
	assert.Equal(t, state, *store.window)

	_, err = manager.Apply(ctx, WindowAction("spin"))
	assert.ErrorIs(t, err, ErrUnknownWindowAction)
	assert.Equal(t, 3, store.saves)
}

func TestWindowManager_CloseRequestsShutdown(t *testing.T) {
	hub := events.NewService(arbor.NewNoOpLogger())
	changed := make(chan interfaces.Event, 4)
	shutdown := make(chan interfaces.Event, 1)

	_, err := hub.Subscribe(interfaces.EventWindowStateChanged, func(ctx context.Context, event interfaces.Event) error {
		changed <- event
		return nil
	})
	require.NoError(t, err)
	_, err = hub.Subscribe(interfaces.EventShutdownRequested, func(ctx context.Context, event interfaces.Event) error {
		shutdown <- event
		return nil
	})
	require.NoError(t, err)

	closed := make(chan struct{})
	manager, err := NewWindowManager(context.Background(), &memoryStore{}, hub, nil, func() { close(closed) })
	require.NoError(t, err)

	state, err := manager.Apply(context.Background(), WindowClose)
	require.NoError(t, err)
	assert.False(t, state.Visible)

	for _, ch := range []chan interfaces.Event{changed, shutdown} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("expected event was not published")
		}
	}

	select {
	case <-closed:
	default:
		t.Fatal("onClose was not called")
	}
}

func TestWindowManager_SetBounds(t *testing.T) {
	store := &memoryStore{}
	manager, err := NewWindowManager(context.Background(), store, nil, nil, nil)
	require.NoError(t, err)

	_, err = manager.SetBounds(context.Background(), models.Bounds{Width: 0, Height: 10})
	assert.Error(t, err)

	state, err := manager.SetBounds(context.Background(), models.Bounds{X: 5, Y: 5, Width: 1024, Height: 768})
	require.NoError(t, err)
	assert.Equal(t, 1024, state.Bounds.Width)
	assert.Equal(t, 1024, store.window.Bounds.Width)
}
