package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docsmith/internal/common"
	"github.com/ternarybob/docsmith/internal/interfaces"
)

// Backend process states published as backend_status events
const (
	BackendStarting   = "starting"
	BackendReady      = "ready"
	BackendExited     = "exited"
	BackendRestarting = "restarting"
	BackendFailed     = "failed"
	BackendStopped    = "stopped"
	BackendAttached   = "attached"
)

var (
	// ErrBackendNotHealthy is returned when the health endpoint never answers
	ErrBackendNotHealthy = errors.New("backend did not become healthy")
	// ErrBackendExited is returned when the process exits during startup
	ErrBackendExited = errors.New("backend exited during startup")
)

// BackendStatus is the payload of backend_status events
type BackendStatus struct {
	State    string `json:"state"`
	PID      int    `json:"pid,omitempty"`
	Restarts int    `json:"restarts"`
	Error    string `json:"error,omitempty"`
}

// SupervisorConfig describes how the backend process is launched and watched
type SupervisorConfig struct {
	Command     string
	Args        []string
	WorkDir     string
	Env         []string
	BaseURL     string
	HealthPath  string
	StartupWait time.Duration
	StopTimeout time.Duration
	MaxRestarts int
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// SupervisorConfigFrom builds a supervisor config from the application config
func SupervisorConfigFrom(config *common.Config) SupervisorConfig {
	return SupervisorConfig{
		Command:     config.Backend.Command,
		Args:        config.Backend.Args,
		WorkDir:     config.Backend.WorkDir,
		Env:         config.Backend.Env,
		BaseURL:     config.Backend.BaseURL,
		HealthPath:  config.Backend.HealthPath,
		StartupWait: config.StartupWait(),
		StopTimeout: config.StopTimeout(),
		MaxRestarts: config.Backend.MaxRestarts,
	}
}

type process struct {
	cmd    *exec.Cmd
	exited chan struct{}
	err    error
}

// Supervisor runs the backend as a child process. With an empty command it
// only waits for an externally managed backend to become healthy.
type Supervisor struct {
	config SupervisorConfig
	events interfaces.EventService
	logger arbor.ILogger
	client *http.Client

	mu       sync.Mutex
	current  *process
	restarts int
	started  bool
	stopping bool
	stopCh   chan struct{}
	done     chan struct{}
}

// NewSupervisor creates a new backend supervisor
func NewSupervisor(config SupervisorConfig, events interfaces.EventService, logger arbor.ILogger) *Supervisor {
	if config.HealthPath == "" {
		config.HealthPath = "/api/health"
	}
	if config.StartupWait <= 0 {
		config.StartupWait = 30 * time.Second
	}
	if config.StopTimeout <= 0 {
		config.StopTimeout = 5 * time.Second
	}
	if config.BackoffBase <= 0 {
		config.BackoffBase = 500 * time.Millisecond
	}
	if config.BackoffMax <= 0 {
		config.BackoffMax = 10 * time.Second
	}
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}

	return &Supervisor{
		config: config,
		events: events,
		logger: logger,
		client: &http.Client{Timeout: 2 * time.Second},
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Attached reports whether the backend is managed outside this process
func (s *Supervisor) Attached() bool {
	return strings.TrimSpace(s.config.Command) == ""
}

// Start launches the backend and blocks until its health endpoint answers
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	if s.Attached() {
		s.logger.Info().Str("url", s.config.BaseURL).Msg("Attaching to external backend")
		if err := s.WaitHealthy(ctx, nil); err != nil {
			return err
		}
		s.publish(ctx, BackendStatus{State: BackendAttached})
		return nil
	}

	s.publish(ctx, BackendStatus{State: BackendStarting})

	p, err := s.spawn()
	if err != nil {
		s.publish(ctx, BackendStatus{State: BackendFailed, Error: err.Error()})
		return err
	}

	if err := s.WaitHealthy(ctx, p.exited); err != nil {
		s.Stop()
		return err
	}

	s.publish(ctx, BackendStatus{State: BackendReady, PID: p.cmd.Process.Pid})

	common.SafeGo(s.logger, "backend-supervisor", func() {
		s.supervise(p)
	})
	return nil
}

// WaitHealthy polls the health endpoint until it returns 200, the startup
// wait elapses, ctx ends or exited is closed.
func (s *Supervisor) WaitHealthy(ctx context.Context, exited <-chan struct{}) error {
	healthURL := strings.TrimRight(s.config.BaseURL, "/") + s.config.HealthPath
	deadline := time.Now().Add(s.config.StartupWait)
	attempts := 0

	for {
		attempts++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create health request: %w", err)
		}
		resp, err := s.client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				s.logger.Info().
					Str("url", healthURL).
					Int("attempts", attempts).
					Msg("Backend ready and responding")
				return nil
			}
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w within %s (%d attempts)", ErrBackendNotHealthy, s.config.StartupWait, attempts)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-exited:
			return ErrBackendExited
		case <-time.After(250 * time.Millisecond):
		}
	}
}

// Stop interrupts the backend and kills it after the stop timeout
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		return
	}
	s.stopping = true
	close(s.stopCh)
	p := s.current
	s.mu.Unlock()

	defer s.closeDone()

	if p == nil {
		return
	}

	select {
	case <-p.exited:
		return
	default:
	}

	s.logger.Info().Int("pid", p.cmd.Process.Pid).Msg("Stopping backend")

	if err := p.cmd.Process.Signal(os.Interrupt); err != nil {
		_ = p.cmd.Process.Kill()
	}

	select {
	case <-p.exited:
	case <-time.After(s.config.StopTimeout):
		s.logger.Warn().
			Dur("timeout", s.config.StopTimeout).
			Msg("Backend did not stop in time, killing")
		_ = p.cmd.Process.Kill()
		<-p.exited
	}

	s.publish(context.Background(), BackendStatus{State: BackendStopped, Restarts: s.Restarts()})
	s.logger.Info().Msg("Backend stopped")
}

// Done is closed once the supervisor has stopped or given up restarting
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

// Restarts returns how many times the backend has been restarted
func (s *Supervisor) Restarts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restarts
}

// Running reports whether a backend child process is alive
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	p := s.current
	s.mu.Unlock()
	if p == nil {
		return false
	}
	select {
	case <-p.exited:
		return false
	default:
		return true
	}
}

// PID returns the current child pid, 0 when none is running
func (s *Supervisor) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.cmd.Process == nil {
		return 0
	}
	return s.current.cmd.Process.Pid
}

func (s *Supervisor) supervise(p *process) {
	for {
		select {
		case <-p.exited:
		case <-s.stopCh:
			return
		}

		s.mu.Lock()
		if s.stopping {
			s.mu.Unlock()
			return
		}
		if s.restarts >= s.config.MaxRestarts {
			restarts := s.restarts
			s.mu.Unlock()

			s.logger.Error().
				Err(p.err).
				Int("restarts", restarts).
				Msg("Backend exited too many times, giving up")
			s.publish(context.Background(), BackendStatus{State: BackendFailed, Restarts: restarts, Error: errString(p.err)})
			s.closeDone()
			return
		}
		s.restarts++
		attempt := s.restarts
		s.mu.Unlock()

		delay := s.backoff(attempt)
		s.logger.Warn().
			Err(p.err).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("Backend exited unexpectedly, restarting")
		s.publish(context.Background(), BackendStatus{State: BackendRestarting, Restarts: attempt, Error: errString(p.err)})

		select {
		case <-time.After(delay):
		case <-s.stopCh:
			return
		}

		next, err := s.spawn()
		if err != nil {
			next = &process{exited: make(chan struct{}), err: err}
			close(next.exited)
		}
		p = next
	}
}

// backoff doubles from BackoffBase up to BackoffMax
func (s *Supervisor) backoff(attempt int) time.Duration {
	delay := s.config.BackoffBase
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= s.config.BackoffMax {
			return s.config.BackoffMax
		}
	}
	return delay
}

func (s *Supervisor) spawn() (*process, error) {
	cmd := exec.Command(s.config.Command, s.config.Args...)
	cmd.Dir = s.config.WorkDir
	cmd.Env = s.environment()
	// Backend output is correlated so the log consumer can show it in the UI
	backendLogger := s.logger.WithCorrelationId("backend")
	cmd.Stdout = newLineWriter(func(line string) {
		backendLogger.Info().Str("stream", "stdout").Msg(line)
	})
	cmd.Stderr = newLineWriter(func(line string) {
		backendLogger.Warn().Str("stream", "stderr").Msg(line)
	})
	cmd.WaitDelay = s.config.StopTimeout

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start backend process: %w", err)
	}

	p := &process{cmd: cmd, exited: make(chan struct{})}
	go func() {
		p.err = cmd.Wait()
		cmd.Stdout.(*lineWriter).Flush()
		cmd.Stderr.(*lineWriter).Flush()
		close(p.exited)
	}()

	s.mu.Lock()
	s.current = p
	s.mu.Unlock()

	s.logger.Info().
		Str("command", s.config.Command).
		Str("args", strings.Join(s.config.Args, " ")).
		Int("pid", cmd.Process.Pid).
		Msg("Backend process started")

	return p, nil
}

// environment passes the parent environment plus PORT and configured extras
func (s *Supervisor) environment() []string {
	env := os.Environ()
	if u, err := url.Parse(s.config.BaseURL); err == nil && u.Port() != "" {
		env = append(env, "PORT="+u.Port())
	}
	return append(env, s.config.Env...)
}

func (s *Supervisor) closeDone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

func (s *Supervisor) publish(ctx context.Context, status BackendStatus) {
	if s.events == nil {
		return
	}
	_ = s.events.Publish(ctx, interfaces.Event{Type: interfaces.EventBackendStatus, Payload: status})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// lineWriter splits process output into lines
type lineWriter struct {
	mu   sync.Mutex
	buf  bytes.Buffer
	emit func(string)
}

func newLineWriter(emit func(string)) *lineWriter {
	return &lineWriter{emit: emit}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		idx := bytes.IndexByte(w.buf.Bytes(), '\n')
		if idx < 0 {
			break
		}
		line := strings.TrimRight(string(w.buf.Next(idx+1)), "\r\n")
		if line != "" {
			w.emit(line)
		}
	}
	return len(p), nil
}

// Flush emits any trailing partial line
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if line := strings.TrimSpace(w.buf.String()); line != "" {
		w.emit(line)
	}
	w.buf.Reset()
}
