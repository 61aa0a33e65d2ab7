package interfaces

import (
	"context"

	"github.com/ternarybob/docsmith/internal/models"
	"github.com/ternarybob/docsmith/internal/sse"
)

// StreamOpener opens an SSE stream for a tracking key
type StreamOpener func(ctx context.Context, key string) (*sse.Stream, error)

// JobsAPI is the part of the backend client the jobs monitor uses
type JobsAPI interface {
	ListJobs(ctx context.Context) ([]models.Job, error)
	GetJob(ctx context.Context, id string) (*models.Job, error)
	CancelJob(ctx context.Context, id string) error
	DeleteJob(ctx context.Context, id string) error
	ClearJobs(ctx context.Context) error
}

// TemplatesAPI is the part of the backend client the template service uses
type TemplatesAPI interface {
	ListTemplates(ctx context.Context) ([]models.TemplateItem, error)
	UploadTemplate(ctx context.Context, filePath, name, slug string) (*models.UploadResult, error)
	DeleteTemplate(ctx context.Context, slug string) error
	GetCompileStatus(ctx context.Context, slug string) (*models.CompileStatus, error)
	StartCompile(ctx context.Context, slug string) error
	OpenCompileStream(ctx context.Context, slug string) (*sse.Stream, error)
	GetPreview(ctx context.Context, slug string) (string, error)
	GetFullGen(ctx context.Context, slug string) (string, error)
	OpenTemplateFolder(ctx context.Context, slug string) error
	RevealTemplate(ctx context.Context, slug string) error
}

// SettingsAPI is the part of the backend client the setup service uses
type SettingsAPI interface {
	GetSettings(ctx context.Context) (*models.Settings, error)
	SaveSettings(ctx context.Context, settings *models.Settings) error
	DiscoverAnythingLLM(ctx context.Context) (*models.DiscoveryResult, error)
	PingAnythingLLM(ctx context.Context) (*models.PingResult, error)
	AuthAnythingLLM(ctx context.Context, apiKey string) (*models.AuthResult, error)
}
