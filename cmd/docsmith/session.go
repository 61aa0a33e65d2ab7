package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docsmith/internal/app"
	"github.com/ternarybob/docsmith/internal/common"
	"github.com/urfave/cli/v3"
)

const defaultConfigFile = "docsmith.toml"

var errBackendUnreachable = errors.New("backend is not reachable")

// session is the per-command state of a client command
type session struct {
	config *common.Config
	logger arbor.ILogger
	app    *app.App
	out    *printer
}

// loadConfig resolves configuration: defaults -> files -> env -> flags
func loadConfig(cmd *cli.Command) (*common.Config, []string, error) {
	paths := cmd.StringSlice("config")
	if len(paths) == 0 {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			paths = append(paths, defaultConfigFile)
		}
	}

	config, err := common.LoadFromFiles(cmd.String("env-file"), paths...)
	if err != nil {
		return nil, paths, err
	}

	common.ApplyFlagOverrides(config, cmd.String("base-url"), cmd.String("log-level"), cmd.String("output"))
	if err := config.Validate(); err != nil {
		return nil, paths, err
	}

	return config, paths, nil
}

// clientLogger keeps client command output clean: logs only go to the
// log file unless debug logging was requested.
func clientLogger(config *common.Config) arbor.ILogger {
	if !strings.EqualFold(config.Logging.Level, "debug") {
		outputs := make([]string, 0, len(config.Logging.Output))
		for _, output := range config.Logging.Output {
			if output == "stdout" || output == "console" {
				continue
			}
			outputs = append(outputs, output)
		}
		config.Logging.Output = outputs
	}
	return common.InitLogger(config)
}

func openSession(cmd *cli.Command) (*session, error) {
	config, _, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger := clientLogger(config)

	application, err := app.NewClient(config, logger, errWriter(cmd))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize client: %w", err)
	}

	return &session{
		config: config,
		logger: logger,
		app:    application,
		out:    newPrinter(outWriter(cmd), config.Output.Format),
	}, nil
}

func (s *session) Close() {
	if err := s.app.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to close client")
	}
}

func outWriter(cmd *cli.Command) io.Writer {
	if root := cmd.Root(); root != nil && root.Writer != nil {
		return root.Writer
	}
	return os.Stdout
}

func errWriter(cmd *cli.Command) io.Writer {
	if root := cmd.Root(); root != nil && root.ErrWriter != nil {
		return root.ErrWriter
	}
	return os.Stderr
}

// requireArgs returns the first n positional arguments
func requireArgs(cmd *cli.Command, names ...string) ([]string, error) {
	if cmd.Args().Len() < len(names) {
		return nil, fmt.Errorf("%s requires %s", cmd.Name, strings.Join(names, " "))
	}
	args := make([]string, len(names))
	for i := range names {
		args[i] = strings.TrimSpace(cmd.Args().Get(i))
		if args[i] == "" {
			return nil, fmt.Errorf("%s must not be empty", names[i])
		}
	}
	return args, nil
}
