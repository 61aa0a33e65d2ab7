package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/docsmith/internal/common"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	common.LoadVersionFromFile()

	if err := newRootCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCommand builds the docsmith command tree. Global flags are inherited
// by every subcommand.
func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "docsmith",
		Usage: "Document generation client and desktop host",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Configuration file path (repeatable, later files override earlier ones)",
				Sources: cli.EnvVars("DOCSMITH_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Environment file loaded before DOCSMITH_* overrides",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:  "base-url",
				Usage: "Backend base URL (overrides config)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output format: table, json or yaml",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn or error",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			versionCommand(),
			setupCommand(),
			pingCommand(),
			templatesCommand(),
			jobsCommand(),
			generateCommand(),
			workspacesCommand(),
			customersCommand(),
			metadataCommand(),
			settingsCommand(),
			viewCommand(),
		},
	}
}
