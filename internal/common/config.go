package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string        `toml:"environment"` // "development" or "production"
	Server      ServerConfig  `toml:"server"`
	Backend     BackendConfig `toml:"backend"`
	Polling     PollingConfig `toml:"polling"`
	Storage     StorageConfig `toml:"storage"`
	Logging     LoggingConfig `toml:"logging"`
	Cleanup     CleanupConfig `toml:"cleanup"`
	Shell       ShellConfig   `toml:"shell"`
	Output      OutputConfig  `toml:"output"`
}

// ServerConfig is the local control surface (IPC endpoints, websocket, help pages)
type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// BackendConfig describes the DocSmith backend the client talks to and,
// optionally, how the desktop host spawns it.
type BackendConfig struct {
	BaseURL     string   `toml:"base_url"`     // e.g. "http://localhost:3001"
	Timeout     string   `toml:"timeout"`      // HTTP timeout for REST calls (streams are not bounded)
	RateLimit   int      `toml:"rate_limit"`   // Requests per second, 0 disables limiting
	Command     string   `toml:"command"`      // Backend executable (e.g. "node"). Empty = attach to external backend
	Args        []string `toml:"args"`         // Backend arguments (e.g. ["server/index.js"])
	WorkDir     string   `toml:"workdir"`      // Working directory for the backend process
	Env         []string `toml:"env"`          // Extra KEY=VALUE pairs
	HealthPath  string   `toml:"health_path"`  // Health endpoint polled after spawn
	StartupWait string   `toml:"startup_wait"` // Max time to wait for the health endpoint
	StopTimeout string   `toml:"stop_timeout"` // Grace period between interrupt and kill
	MaxRestarts int      `toml:"max_restarts"` // Restarts after unexpected exit before giving up
}

// PollingConfig controls the coarse-grained pull that backs the SSE streams
type PollingConfig struct {
	JobsInterval string `toml:"jobs_interval"` // 2s..5s
	JobInterval  string `toml:"job_interval"`  // single-job watch interval
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	Dir        string   `toml:"dir"`         // Log directory, empty = <exe dir>/logs
	TimeFormat string   `toml:"time_format"` // default "15:04:05"
}

// CleanupConfig controls removal of docsmith-* temp files
type CleanupConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // Cron schedule with seconds field
	MaxAge   string `toml:"max_age"`
	TempDir  string `toml:"temp_dir"` // empty = os.TempDir()
	Prefix   string `toml:"prefix"`
}

// ShellConfig holds desktop-host integration settings
type ShellConfig struct {
	Opener  string `toml:"opener"`   // Command used to open paths; empty = platform default
	HelpDir string `toml:"help_dir"` // Directory with help topic overrides (*.md)
}

// OutputConfig controls CLI rendering
type OutputConfig struct {
	Format string `toml:"format"` // "table", "json" or "yaml"
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 3030,
			Host: "localhost",
		},
		Backend: BackendConfig{
			BaseURL:     "http://localhost:3001",
			Timeout:     "30s",
			RateLimit:   20,
			HealthPath:  "/api/health",
			StartupWait: "30s",
			StopTimeout: "5s",
			MaxRestarts: 3,
		},
		Polling: PollingConfig{
			JobsInterval: "3s",
			JobInterval:  "2s",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
		},
		Cleanup: CleanupConfig{
			Enabled:  true,
			Schedule: "0 0 * * * *", // hourly
			MaxAge:   "24h",
			Prefix:   "docsmith-",
		},
		Output: OutputConfig{
			Format: "table",
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env.
// envFile, when set, is loaded into the process environment first; a missing
// env file is not an error.
func LoadFromFiles(envFile string, paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("DOCSMITH_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("DOCSMITH_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("DOCSMITH_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Backend configuration
	if baseURL := os.Getenv("DOCSMITH_BACKEND_URL"); baseURL != "" {
		config.Backend.BaseURL = baseURL
	}
	if timeout := os.Getenv("DOCSMITH_BACKEND_TIMEOUT"); timeout != "" {
		config.Backend.Timeout = timeout
	}
	if command := os.Getenv("DOCSMITH_BACKEND_COMMAND"); command != "" {
		config.Backend.Command = command
	}
	if args := os.Getenv("DOCSMITH_BACKEND_ARGS"); args != "" {
		config.Backend.Args = splitList(args, " ")
	}
	if workDir := os.Getenv("DOCSMITH_BACKEND_WORKDIR"); workDir != "" {
		config.Backend.WorkDir = workDir
	}

	// Polling configuration
	if interval := os.Getenv("DOCSMITH_POLL_INTERVAL"); interval != "" {
		config.Polling.JobsInterval = interval
	}

	// Storage configuration
	if badgerPath := os.Getenv("DOCSMITH_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("DOCSMITH_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("DOCSMITH_LOG_OUTPUT"); output != "" {
		if outputs := splitList(output, ","); len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
	if dir := os.Getenv("DOCSMITH_LOG_DIR"); dir != "" {
		config.Logging.Dir = dir
	}

	if format := os.Getenv("DOCSMITH_OUTPUT"); format != "" {
		config.Output.Format = format
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, baseURL string, logLevel string, output string) {
	if baseURL != "" {
		config.Backend.BaseURL = baseURL
	}
	if logLevel != "" {
		config.Logging.Level = logLevel
	}
	if output != "" {
		config.Output.Format = output
	}
}

// Validate checks values that would otherwise fail later at a less helpful place
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return fmt.Errorf("backend.base_url is required")
	}

	for name, value := range map[string]string{
		"backend.timeout":       c.Backend.Timeout,
		"backend.startup_wait":  c.Backend.StartupWait,
		"backend.stop_timeout":  c.Backend.StopTimeout,
		"polling.job_interval":  c.Polling.JobInterval,
		"polling.jobs_interval": c.Polling.JobsInterval,
		"cleanup.max_age":       c.Cleanup.MaxAge,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", name, err)
		}
	}

	if interval := c.JobsPollInterval(); interval < 2*time.Second || interval > 5*time.Second {
		return fmt.Errorf("polling.jobs_interval must be between 2s and 5s, got %s", interval)
	}

	if c.Cleanup.Enabled && c.Cleanup.Schedule != "" {
		if err := ValidateSchedule(c.Cleanup.Schedule); err != nil {
			return err
		}
	}

	switch c.Output.Format {
	case "", "table", "json", "yaml":
	default:
		return fmt.Errorf("unsupported output format %q (table|json|yaml)", c.Output.Format)
	}

	return nil
}

// ValidateSchedule validates a cron schedule expression (seconds field included)
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return strings.ToLower(c.Environment) == "production"
}

// BackendTimeout returns the parsed REST timeout
func (c *Config) BackendTimeout() time.Duration {
	return parseDurationOr(c.Backend.Timeout, 30*time.Second)
}

// StartupWait returns how long the supervisor waits for the backend health check
func (c *Config) StartupWait() time.Duration {
	return parseDurationOr(c.Backend.StartupWait, 30*time.Second)
}

// StopTimeout returns the grace period before the backend is killed
func (c *Config) StopTimeout() time.Duration {
	return parseDurationOr(c.Backend.StopTimeout, 5*time.Second)
}

// JobsPollInterval returns the jobs list polling interval
func (c *Config) JobsPollInterval() time.Duration {
	return parseDurationOr(c.Polling.JobsInterval, 3*time.Second)
}

// JobPollInterval returns the single-job watch interval
func (c *Config) JobPollInterval() time.Duration {
	return parseDurationOr(c.Polling.JobInterval, 2*time.Second)
}

// CleanupMaxAge returns the minimum age of temp files removed by cleanup
func (c *Config) CleanupMaxAge() time.Duration {
	return parseDurationOr(c.Cleanup.MaxAge, 24*time.Hour)
}

func parseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(s, sep string) []string {
	var result []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
