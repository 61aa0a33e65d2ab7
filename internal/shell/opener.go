package shell

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/ternarybob/arbor"
)

// ErrPathRequired is returned when no path is given to open
var ErrPathRequired = errors.New("path is required")

// Launcher starts an external program without waiting for it
type Launcher func(ctx context.Context, name string, args ...string) error

// Opener hands paths to the platform file manager
type Opener struct {
	command string
	launch  Launcher
	logger  arbor.ILogger
}

// OpenerOption configures an Opener
type OpenerOption func(*Opener)

// WithLauncher replaces the process launcher
func WithLauncher(launch Launcher) OpenerOption {
	return func(o *Opener) {
		o.launch = launch
	}
}

// NewOpener creates an opener. An empty command selects the platform default.
func NewOpener(command string, logger arbor.ILogger, opts ...OpenerOption) *Opener {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	o := &Opener{
		command: command,
		launch:  startDetached,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Open opens a file or directory
func (o *Opener) Open(ctx context.Context, path string) error {
	if path == "" {
		return ErrPathRequired
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("cannot open %s: %w", abs, err)
	}

	name, args := o.commandFor(abs)
	if err := o.launch(ctx, name, args...); err != nil {
		return fmt.Errorf("failed to open %s: %w", abs, err)
	}

	o.logger.Debug().Str("path", abs).Str("command", name).Msg("Opened path")
	return nil
}

// RevealLogs opens the directory holding the log file
func (o *Opener) RevealLogs(ctx context.Context, logFilePath, logsDir string) (string, error) {
	dir := logsDir
	if logFilePath != "" {
		dir = filepath.Dir(logFilePath)
	}
	if dir == "" {
		return "", ErrPathRequired
	}
	return dir, o.Open(ctx, dir)
}

func (o *Opener) commandFor(path string) (string, []string) {
	if o.command != "" {
		return o.command, []string{path}
	}
	switch runtime.GOOS {
	case "darwin":
		return "open", []string{path}
	case "windows":
		return "explorer", []string{path}
	default:
		return "xdg-open", []string{path}
	}
}

func startDetached(ctx context.Context, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}
