package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docsmith/internal/interfaces"
	"github.com/ternarybob/docsmith/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

const (
	setupKey  = "setup"
	windowKey = "window"
)

// StateRecord is one persisted host-local value
type StateRecord struct {
	Key       string `badgerhold:"key"`
	Value     []byte
	UpdatedAt time.Time
}

// StateStorage implements interfaces.StateStorage for Badger
type StateStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

var _ interfaces.StateStorage = (*StateStorage)(nil)

// NewStateStorage creates a new StateStorage instance
func NewStateStorage(db *BadgerDB, logger arbor.ILogger) *StateStorage {
	return &StateStorage{
		db:     db,
		logger: logger,
	}
}

// load decodes the record under key into v. found is false when the key is absent.
func (s *StateStorage) load(key string, v interface{}) (found bool, err error) {
	var record StateRecord
	err = s.db.Store().Get(key, &record)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s: %w", key, err)
	}

	if err := json.Unmarshal(record.Value, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (s *StateStorage) save(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	record := StateRecord{Key: key, Value: data, UpdatedAt: time.Now()}
	if err := s.db.Store().Upsert(key, &record); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// GetSetupStatus returns the setup flag, not completed when never set
func (s *StateStorage) GetSetupStatus(ctx context.Context) (*models.SetupStatus, error) {
	var status models.SetupStatus
	if _, err := s.load(setupKey, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// SetSetupCompleted records whether first-run setup has been completed
func (s *StateStorage) SetSetupCompleted(ctx context.Context, completed bool) (*models.SetupStatus, error) {
	status := models.SetupStatus{Completed: completed}
	if completed {
		now := time.Now()
		status.CompletedAt = &now
	}

	if err := s.save(setupKey, &status); err != nil {
		return nil, err
	}

	s.logger.Info().Bool("completed", completed).Msg("Setup status saved")
	return &status, nil
}

// GetWindowState returns the last saved window state or the default
func (s *StateStorage) GetWindowState(ctx context.Context) (*models.WindowState, error) {
	state := models.DefaultWindowState()
	if _, err := s.load(windowKey, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// SaveWindowState persists the window state
func (s *StateStorage) SaveWindowState(ctx context.Context, state *models.WindowState) error {
	return s.save(windowKey, state)
}

// Close closes the underlying database
func (s *StateStorage) Close() error {
	return s.db.Close()
}
