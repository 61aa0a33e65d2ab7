package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/docsmith/internal/app"
	"github.com/ternarybob/docsmith/internal/common"
	"github.com/ternarybob/docsmith/internal/server"
	"github.com/ternarybob/docsmith/internal/shell"
	"github.com/urfave/cli/v3"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the desktop host: supervise the backend and serve the local IPC surface",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Server port (overrides config)",
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "Server host (overrides config)",
			},
		},
		Action: runServe,
	}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	// Startup sequence:
	// 1. Load config (defaults -> files -> env -> flags)
	// 2. Initialize logger
	// 3. Print banner
	// 4. Build the host, bind the local server, then start the backend
	config, configFiles, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if port := cmd.Int("port"); port != 0 {
		config.Server.Port = port
	}
	if host := cmd.String("host"); host != "" {
		config.Server.Host = host
	}

	common.InstallCrashHandler(common.LogsDir(config))
	defer common.RecoverWithCrashFile()

	logger := common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	logger.Info().
		Strs("config_files", configFiles).
		Str("backend", config.Backend.BaseURL).
		Int("port", config.Server.Port).
		Str("host", config.Server.Host).
		Msg("Application configuration loaded")

	application, err := app.New(config, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	srv := server.New(application)
	serverErr := make(chan error, 1)
	common.SafeGo(logger, "http-server", func() {
		if err := srv.Start(); err != nil {
			serverErr <- err
		}
	})

	if err := application.Start(ctx); err != nil {
		shutdownServer(srv, application)
		return err
	}

	logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)).
		Msg("Server ready - Press Ctrl+C to stop")

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("Interrupt signal received")
	case <-application.ShutdownRequested():
		logger.Info().Msg("Shutdown requested via window close")
	case <-application.Supervisor.Done():
		logger.Error().Msg("Backend is no longer running")
		runErr = shell.ErrBackendExited
	case err := <-serverErr:
		logger.Error().Err(err).Msg("Server failed")
		runErr = err
	}

	shutdownServer(srv, application)
	return runErr
}

func shutdownServer(srv *server.Server, application *app.App) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		application.Logger.Error().Err(err).Msg("Server shutdown failed")
	}
	application.Logger.Info().Msg("Server stopped")
}
