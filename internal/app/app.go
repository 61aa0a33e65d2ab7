package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docsmith/internal/backend"
	"github.com/ternarybob/docsmith/internal/common"
	"github.com/ternarybob/docsmith/internal/handlers"
	"github.com/ternarybob/docsmith/internal/interfaces"
	"github.com/ternarybob/docsmith/internal/jobs"
	"github.com/ternarybob/docsmith/internal/logs"
	"github.com/ternarybob/docsmith/internal/notify"
	"github.com/ternarybob/docsmith/internal/services/cleanup"
	"github.com/ternarybob/docsmith/internal/services/events"
	"github.com/ternarybob/docsmith/internal/services/setup"
	"github.com/ternarybob/docsmith/internal/services/templates"
	"github.com/ternarybob/docsmith/internal/shell"
	"github.com/ternarybob/docsmith/internal/sse"
	"github.com/ternarybob/docsmith/internal/storage"
	"github.com/ternarybob/docsmith/internal/tracker"
	"github.com/ternarybob/docsmith/internal/viewer"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	EventService interfaces.EventService
	Notifier     interfaces.Notifier
	Client       *backend.Client

	// Domain services
	SetupService    *setup.Service
	TemplateService *templates.Service
	JobsMonitor     *jobs.Monitor
	MetadataTracker *tracker.Tracker
	TemplateTracker *tracker.Tracker
	Viewer          *viewer.Viewer
	CleanupService  *cleanup.Service

	// Desktop host, nil for CLI-only apps
	StateStorage     interfaces.StateStorage
	Supervisor       *shell.Supervisor
	Window           *shell.WindowManager
	Opener           *shell.Opener
	CleanupScheduler *cleanup.Scheduler
	LogConsumer      *logs.Consumer

	// HTTP handlers
	APIHandler  *handlers.APIHandler
	IPCHandler  *handlers.IPCHandler
	WSHandler   *handlers.WebSocketHandler
	HelpHandler *handlers.HelpHandler

	eventLogSub  interfaces.Subscription
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// New initializes the desktop host with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config:   cfg,
		Logger:   logger,
		shutdown: make(chan struct{}),
	}

	app.EventService = events.NewService(app.Logger)
	app.Notifier = notify.Multi{
		notify.NewLogNotifier(app.Logger),
		notify.NewThrottled(notify.NewEventNotifier(app.EventService), 2*time.Second, 1),
	}

	// Log consumer is attached before anything else logs with a correlation id
	app.LogConsumer = logs.NewConsumer(app.EventService, app.Logger, "info", logs.DefaultCapacity)
	if err := app.LogConsumer.Start(); err != nil {
		return nil, fmt.Errorf("failed to start log consumer: %w", err)
	}
	app.Logger.SetChannel("context", app.LogConsumer.GetChannel())

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app.initClient()

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.initHost(); err != nil {
		return nil, fmt.Errorf("failed to initialize desktop host: %w", err)
	}

	app.initHandlers()

	if strings.EqualFold(cfg.Logging.Level, "debug") {
		if sub, err := events.SubscribeLoggerToAllEvents(app.EventService, app.Logger); err == nil {
			app.eventLogSub = sub
		}
	}

	logger.Info().
		Str("backend", cfg.Backend.BaseURL).
		Bool("attached", app.Supervisor.Attached()).
		Msg("Application initialization complete")

	return app, nil
}

// NewClient initializes the backend client and domain services without the
// desktop host. Notices are written to out.
func NewClient(cfg *common.Config, logger arbor.ILogger, out io.Writer) (*App, error) {
	if out == nil {
		out = os.Stderr
	}

	app := &App{
		Config:   cfg,
		Logger:   logger,
		shutdown: make(chan struct{}),
	}

	app.EventService = events.NewService(app.Logger)
	app.Notifier = notify.Multi{
		notify.NewLogNotifier(app.Logger),
		notify.NewWriterNotifier(out),
	}

	app.initClient()

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.Opener = shell.NewOpener(cfg.Shell.Opener, app.Logger)

	return app, nil
}

func (a *App) initDatabase() error {
	stateStorage, err := storage.NewStateStorage(a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to create state storage: %w", err)
	}

	a.StateStorage = stateStorage
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	return nil
}

func (a *App) initClient() {
	a.Client = backend.NewClient(a.Config.Backend.BaseURL,
		backend.WithTimeout(a.Config.BackendTimeout()),
		backend.WithRateLimit(a.Config.Backend.RateLimit),
		backend.WithLogger(a.Logger),
	)
}

// initServices initializes the domain services in dependency order
func (a *App) initServices() error {
	a.SetupService = setup.NewService(a.Client, a.StateStorage, a.EventService, a.Notifier, a.Logger)
	a.TemplateService = templates.NewService(a.Client, a.EventService, a.Notifier, a.Logger)
	a.JobsMonitor = jobs.NewMonitor(a.Client, a.EventService, a.Notifier, a.Logger, a.Config.JobsPollInterval())

	// Customer document metadata: one stream per customer, the list is
	// reloaded before each document leaves the in-flight set
	a.MetadataTracker = tracker.New("customer-metadata",
		func(ctx context.Context, customerID string) (*sse.Stream, error) {
			return a.Client.OpenMetadataStream(ctx, customerID)
		},
		tracker.WithRefresh(func(ctx context.Context, key string) error {
			_, err := a.Client.ListCustomers(ctx)
			return err
		}),
		tracker.WithNotifier(a.Notifier),
		tracker.WithEventService(a.EventService),
		tracker.WithLogger(a.Logger),
	)

	a.TemplateTracker = tracker.New("template-metadata",
		func(ctx context.Context, _ string) (*sse.Stream, error) {
			return a.Client.OpenTemplateMetadataStream(ctx)
		},
		tracker.WithRefresh(func(ctx context.Context, key string) error {
			_, err := a.TemplateService.List(ctx)
			return err
		}),
		tracker.WithNotifier(a.Notifier),
		tracker.WithEventService(a.EventService),
		tracker.WithLogger(a.Logger),
	)

	a.Viewer = viewer.New(a.Logger, a.Config.Cleanup.TempDir)
	a.CleanupService = cleanup.NewService(a.Config.Cleanup.TempDir, a.Config.Cleanup.Prefix, a.Config.CleanupMaxAge(), a.EventService, a.Logger)

	a.Logger.Debug().Msg("Domain services initialized")
	return nil
}

func (a *App) initHost() error {
	a.Supervisor = shell.NewSupervisor(shell.SupervisorConfigFrom(a.Config), a.EventService, a.Logger)
	a.Opener = shell.NewOpener(a.Config.Shell.Opener, a.Logger)

	window, err := shell.NewWindowManager(context.Background(), a.StateStorage, a.EventService, a.Logger, a.RequestShutdown)
	if err != nil {
		return err
	}
	a.Window = window

	if a.Config.Cleanup.Enabled {
		a.CleanupScheduler = cleanup.NewScheduler(a.CleanupService, a.Logger)
	}

	return nil
}

func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.Supervisor, a.Logger)
	a.IPCHandler = handlers.NewIPCHandler(a.SetupService, a.Window, a.Opener, a.CleanupService, a.LogConsumer, common.LogsDir(a.Config), a.Logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, a.Logger, map[interfaces.EventType]time.Duration{
		interfaces.EventCompileProgress: 100 * time.Millisecond,
	})
	a.HelpHandler = handlers.NewHelpHandler(a.Config.Shell.HelpDir, a.Logger)
}

// Start launches the backend and the background workers of the desktop host
func (a *App) Start(ctx context.Context) error {
	if a.Supervisor == nil {
		return fmt.Errorf("desktop host is not initialized")
	}

	if err := a.Supervisor.Start(ctx); err != nil {
		return fmt.Errorf("failed to start backend: %w", err)
	}

	a.JobsMonitor.Start(ctx)

	if a.CleanupScheduler != nil {
		if err := a.CleanupScheduler.Start(a.Config.Cleanup.Schedule); err != nil {
			return fmt.Errorf("failed to start temp cleanup: %w", err)
		}
	}

	return nil
}

// RequestShutdown asks the host to exit. Safe to call more than once.
func (a *App) RequestShutdown() {
	a.shutdownOnce.Do(func() {
		a.Logger.Info().Msg("Shutdown requested")
		close(a.shutdown)
	})
}

// ShutdownRequested is closed once RequestShutdown has been called
func (a *App) ShutdownRequested() <-chan struct{} {
	return a.shutdown
}

// Close stops background work and releases resources
func (a *App) Close() error {
	if a.MetadataTracker != nil {
		a.MetadataTracker.StopTracking()
	}
	if a.TemplateTracker != nil {
		a.TemplateTracker.StopTracking()
	}

	if a.JobsMonitor != nil {
		a.JobsMonitor.Stop()
	}

	if a.CleanupScheduler != nil {
		a.CleanupScheduler.Stop()
	}

	if a.WSHandler != nil {
		a.WSHandler.Close()
	}

	if a.Supervisor != nil {
		a.Supervisor.Stop()
	}

	if a.eventLogSub != nil {
		a.eventLogSub.Close()
	}

	if a.LogConsumer != nil {
		if err := a.LogConsumer.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop log consumer")
		}
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.StateStorage != nil {
		if err := a.StateStorage.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
