package setup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docsmith/internal/interfaces"
	"github.com/ternarybob/docsmith/internal/models"
	"github.com/ternarybob/docsmith/internal/notify"
)

var (
	// ErrAnythingLLMOffline is returned when the backend cannot reach AnythingLLM
	ErrAnythingLLMOffline = errors.New("AnythingLLM is not reachable")
	// ErrAuthFailed is returned when AnythingLLM rejects the API key
	ErrAuthFailed = errors.New("AnythingLLM rejected the API key")
	// ErrUnknownSetting is returned by UpdateSetting for an empty key
	ErrUnknownSetting = errors.New("setting key is required")
)

// Service implements the setup wizard and settings page
type Service struct {
	api       interfaces.SettingsAPI
	state     interfaces.StateStorage
	events    interfaces.EventService
	notifier  interfaces.Notifier
	logger    arbor.ILogger
	validator *validator.Validate
}

// NewService creates a setup service. state may be nil for clients without a local store.
func NewService(api interfaces.SettingsAPI, state interfaces.StateStorage, events interfaces.EventService, notifier interfaces.Notifier, logger arbor.ILogger) *Service {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	return &Service{
		api:       api,
		state:     state,
		events:    events,
		notifier:  notifier,
		logger:    logger,
		validator: newValidator(),
	}
}

// Validate checks a setup request, returning FieldErrors when invalid
func (s *Service) Validate(req Request) error {
	return s.validate(&req)
}

// Complete validates the request, saves settings, verifies AnythingLLM
// through the backend and marks setup as completed.
func (s *Service) Complete(ctx context.Context, req Request) (*models.SetupStatus, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}

	settings, err := s.api.GetSettings(ctx)
	if err != nil {
		notify.Failed(s.notifier, "Load settings", err)
		return nil, err
	}

	settings.AnythingLLMURL = req.AnythingLLMURL
	settings.AnythingLLMKey = req.AnythingLLMKey
	if req.OutputDir != "" {
		settings.OutputDir = req.OutputDir
	}
	if req.DefaultWorkspace != "" {
		settings.DefaultWorkspace = req.DefaultWorkspace
	}

	if err := s.api.SaveSettings(ctx, settings); err != nil {
		notify.Failed(s.notifier, "Save settings", err)
		return nil, err
	}

	ping, err := s.api.PingAnythingLLM(ctx)
	if err != nil {
		notify.Failed(s.notifier, "Connect", err)
		return nil, err
	}
	if !ping.Online {
		notify.Failed(s.notifier, "Connect", ErrAnythingLLMOffline)
		return nil, fmt.Errorf("%w: %s", ErrAnythingLLMOffline, ping.Message)
	}

	auth, err := s.api.AuthAnythingLLM(ctx, req.AnythingLLMKey)
	if err != nil {
		notify.Failed(s.notifier, "Authenticate", err)
		return nil, err
	}
	if !auth.Authenticated {
		notify.Failed(s.notifier, "Authenticate", ErrAuthFailed)
		return nil, FieldErrors{"anythingLLMKey": ErrAuthFailed.Error()}
	}

	status := &models.SetupStatus{Completed: true}
	if s.state != nil {
		status, err = s.state.SetSetupCompleted(ctx, true)
		if err != nil {
			return nil, err
		}
	}

	if s.events != nil {
		_ = s.events.Publish(ctx, interfaces.Event{Type: interfaces.EventSetupCompleted, Payload: status})
	}

	s.logger.Info().Str("url", req.AnythingLLMURL).Msg("Setup completed")
	notify.Success(s.notifier, "Setup complete")

	return status, nil
}

// Status returns the local setup flag
func (s *Service) Status(ctx context.Context) (*models.SetupStatus, error) {
	if s.state == nil {
		return &models.SetupStatus{}, nil
	}
	return s.state.GetSetupStatus(ctx)
}

// MarkCompleted sets the local setup flag without contacting the backend
func (s *Service) MarkCompleted(ctx context.Context, completed bool) (*models.SetupStatus, error) {
	if s.state == nil {
		return &models.SetupStatus{Completed: completed}, nil
	}
	status, err := s.state.SetSetupCompleted(ctx, completed)
	if err != nil {
		return nil, err
	}
	if completed && s.events != nil {
		_ = s.events.Publish(ctx, interfaces.Event{Type: interfaces.EventSetupCompleted, Payload: status})
	}
	return status, nil
}

// Discover asks the backend to look for a local AnythingLLM instance
func (s *Service) Discover(ctx context.Context) (*models.DiscoveryResult, error) {
	result, err := s.api.DiscoverAnythingLLM(ctx)
	if err != nil {
		notify.Failed(s.notifier, "Discovery", err)
		return nil, err
	}
	if result.Found {
		notify.Info(s.notifier, "Found AnythingLLM at %s", result.URL)
	} else {
		notify.Warning(s.notifier, "No AnythingLLM instance found")
	}
	return result, nil
}

// Settings returns the backend settings document
func (s *Service) Settings(ctx context.Context) (*models.Settings, error) {
	return s.api.GetSettings(ctx)
}

// UpdateSetting changes one setting and saves the document. Unknown keys are
// stored as extra settings. The AnythingLLM fields are validated.
func (s *Service) UpdateSetting(ctx context.Context, key, value string) (*models.Settings, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrUnknownSetting
	}

	settings, err := s.api.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	switch key {
	case "anythingLLMUrl":
		if err := s.validator.Var(value, "required,http_url"); err != nil {
			return nil, FieldErrors{key: "must be an http:// or https:// URL"}
		}
		settings.AnythingLLMURL = value
	case "anythingLLMKey":
		if !IsAnythingLLMKey(value) {
			return nil, FieldErrors{key: "must look like XXXXXXX-XXXXXXX-XXXXXXX-XXXXXXX"}
		}
		settings.AnythingLLMKey = value
	case "outputDir":
		settings.OutputDir = value
	case "defaultWorkspace":
		settings.DefaultWorkspace = value
	default:
		if settings.Extra == nil {
			settings.Extra = make(map[string]any)
		}
		settings.Extra[key] = value
	}

	if err := s.api.SaveSettings(ctx, settings); err != nil {
		notify.Failed(s.notifier, "Save settings", err)
		return nil, err
	}

	s.logger.Info().Str("key", key).Msg("Setting updated")
	return settings, nil
}
