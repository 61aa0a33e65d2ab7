package templates

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docsmith/internal/compile"
	"github.com/ternarybob/docsmith/internal/interfaces"
	"github.com/ternarybob/docsmith/internal/models"
	"github.com/ternarybob/docsmith/internal/notify"
)

var (
	// ErrNoFileSelected is returned by Upload when no file path was given
	ErrNoFileSelected = errors.New("no file selected")
	// ErrUnsupportedFile is returned for files that are not .docx or .xlsx
	ErrUnsupportedFile = errors.New("unsupported template file type")
)

// UploadRequest describes a template upload. Name and Slug are optional.
type UploadRequest struct {
	FilePath string
	Name     string
	Slug     string
}

// UploadResponse carries the new slug and the reloaded template list
type UploadResponse struct {
	Slug      string                `json:"slug" yaml:"slug"`
	Name      string                `json:"name" yaml:"name"`
	Templates []models.TemplateItem `json:"templates" yaml:"templates"`
}

// Service implements the template page actions
type Service struct {
	api      interfaces.TemplatesAPI
	events   interfaces.EventService
	notifier interfaces.Notifier
	logger   arbor.ILogger
}

// NewService creates a template service. events and notifier may be nil.
func NewService(api interfaces.TemplatesAPI, events interfaces.EventService, notifier interfaces.Notifier, logger arbor.ILogger) *Service {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	return &Service{
		api:      api,
		events:   events,
		notifier: notifier,
		logger:   logger,
	}
}

// List returns every template
func (s *Service) List(ctx context.Context) ([]models.TemplateItem, error) {
	templates, err := s.api.ListTemplates(ctx)
	if err != nil {
		notify.Failed(s.notifier, "Load templates", err)
		return nil, err
	}
	return templates, nil
}

// Upload sends a template file and reloads the list. Without a file path
// nothing is sent to the backend.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*UploadResponse, error) {
	if strings.TrimSpace(req.FilePath) == "" {
		notify.Failed(s.notifier, "Upload", ErrNoFileSelected)
		return nil, ErrNoFileSelected
	}

	switch strings.ToLower(filepath.Ext(req.FilePath)) {
	case ".docx", ".xlsx":
	default:
		err := fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Base(req.FilePath))
		notify.Failed(s.notifier, "Upload", err)
		return nil, err
	}

	result, err := s.api.UploadTemplate(ctx, req.FilePath, req.Name, req.Slug)
	if err != nil {
		notify.Failed(s.notifier, "Upload", err)
		return nil, err
	}

	s.logger.Info().
		Str("slug", result.Slug).
		Str("file", filepath.Base(req.FilePath)).
		Msg("Template uploaded")

	templates, err := s.api.ListTemplates(ctx)
	if err != nil {
		notify.Failed(s.notifier, "Load templates", err)
		return nil, err
	}

	notify.Success(s.notifier, "Uploaded %s", result.Slug)

	return &UploadResponse{
		Slug:      result.Slug,
		Name:      result.Name,
		Templates: templates,
	}, nil
}

// Delete removes a template
func (s *Service) Delete(ctx context.Context, slug string) error {
	if err := s.api.DeleteTemplate(ctx, slug); err != nil {
		notify.Failed(s.notifier, "Delete", err)
		return err
	}
	notify.Success(s.notifier, "Deleted %s", slug)
	return nil
}

// Compile starts a compile and follows its progress stream to the end.
// The stream is opened before the compile is requested so early steps are not missed.
func (s *Service) Compile(ctx context.Context, slug string, onProgress func(compile.Progress)) (compile.Progress, error) {
	stream, err := s.api.OpenCompileStream(ctx, slug)
	if err != nil {
		notify.Failed(s.notifier, "Compile", err)
		return compile.Progress{}, err
	}

	if err := s.api.StartCompile(ctx, slug); err != nil {
		_ = stream.Close()
		notify.Failed(s.notifier, "Compile", err)
		return compile.Progress{}, err
	}

	s.logger.Info().Str("slug", slug).Msg("Template compile started")

	progress, err := compile.Watch(ctx, stream, slug, func(p compile.Progress) {
		if s.events != nil {
			_ = s.events.Publish(ctx, interfaces.Event{Type: interfaces.EventCompileProgress, Payload: p})
		}
		if onProgress != nil {
			onProgress(p)
		}
	}, s.logger)
	if err != nil {
		notify.Failed(s.notifier, "Compile", err)
		return progress, err
	}

	notify.Success(s.notifier, "Compiled %s", slug)
	return progress, nil
}

func (s *Service) CompileStatus(ctx context.Context, slug string) (*models.CompileStatus, error) {
	return s.api.GetCompileStatus(ctx, slug)
}

func (s *Service) Preview(ctx context.Context, slug string) (string, error) {
	html, err := s.api.GetPreview(ctx, slug)
	if err != nil {
		notify.Failed(s.notifier, "Preview", err)
		return "", err
	}
	return html, nil
}

func (s *Service) FullGen(ctx context.Context, slug string) (string, error) {
	code, err := s.api.GetFullGen(ctx, slug)
	if err != nil {
		notify.Failed(s.notifier, "Load generator", err)
		return "", err
	}
	return code, nil
}

func (s *Service) OpenFolder(ctx context.Context, slug string) error {
	if err := s.api.OpenTemplateFolder(ctx, slug); err != nil {
		notify.Failed(s.notifier, "Open folder", err)
		return err
	}
	return nil
}

func (s *Service) Reveal(ctx context.Context, slug string) error {
	if err := s.api.RevealTemplate(ctx, slug); err != nil {
		notify.Failed(s.notifier, "Reveal", err)
		return err
	}
	return nil
}
