package main

import (
	"context"
	"fmt"

	"github.com/ternarybob/docsmith/internal/interfaces"
	"github.com/ternarybob/docsmith/internal/services/setup"
	"github.com/ternarybob/docsmith/internal/storage"
	"github.com/urfave/cli/v3"
)

func setupCommand() *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Configure and verify the AnythingLLM connection",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "url",
				Usage:    "AnythingLLM base URL",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "key",
				Usage:    "AnythingLLM API key (XXXXXXX-XXXXXXX-XXXXXXX-XXXXXXX)",
				Required: true,
				Sources:  cli.EnvVars("DOCSMITH_ANYTHINGLLM_KEY"),
			},
			&cli.StringFlag{
				Name:  "output-dir",
				Usage: "Directory generated documents are written to",
			},
			&cli.StringFlag{
				Name:  "workspace",
				Usage: "Default AnythingLLM workspace slug",
			},
			&cli.BoolFlag{
				Name:  "no-local-state",
				Usage: "Do not record the setup flag in the local store",
			},
		},
		Action: runSetup,
	}
}

func runSetup(ctx context.Context, cmd *cli.Command) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	// The local store is held by a running desktop host; fall back to
	// verifying the backend only.
	var state interfaces.StateStorage
	if !cmd.Bool("no-local-state") {
		store, err := storage.NewStateStorage(s.logger, s.config)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Local store unavailable, setup flag will not be recorded")
		} else {
			state = store
			defer store.Close()
		}
	}

	service := setup.NewService(s.app.Client, state, s.app.EventService, s.app.Notifier, s.logger)
	status, err := service.Complete(ctx, setup.Request{
		AnythingLLMURL:   cmd.String("url"),
		AnythingLLMKey:   cmd.String("key"),
		OutputDir:        cmd.String("output-dir"),
		DefaultWorkspace: cmd.String("workspace"),
	})
	if err != nil {
		return fmt.Errorf("setup failed: %w", err)
	}

	return s.out.result(status, "Setup complete (AnythingLLM at %s)", cmd.String("url"))
}
