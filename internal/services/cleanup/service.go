package cleanup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docsmith/internal/interfaces"
)

// DefaultPrefix is shared by every temp file DocSmith writes
const DefaultPrefix = "docsmith-"

// Result summarizes one cleanup run
type Result struct {
	Dir      string        `json:"dir"`
	Removed  []string      `json:"removed"`
	Skipped  int           `json:"skipped"`
	Errors   []string      `json:"errors,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Service removes stale docsmith-* entries from the temp directory
type Service struct {
	dir    string
	prefix string
	maxAge time.Duration
	events interfaces.EventService
	logger arbor.ILogger
	now    func() time.Time
}

// NewService creates a cleanup service. An empty dir means os.TempDir().
func NewService(dir, prefix string, maxAge time.Duration, events interfaces.EventService, logger arbor.ILogger) *Service {
	if dir == "" {
		dir = os.TempDir()
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	return &Service{
		dir:    dir,
		prefix: prefix,
		maxAge: maxAge,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// Run removes every prefixed entry older than the max age. Entries that fail
// to delete are reported in Result.Errors and do not stop the run.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	start := s.now()
	result := &Result{Dir: s.dir, Removed: []string{}}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read temp dir %s: %w", s.dir, err)
	}

	cutoff := start.Add(-s.maxAge)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !strings.HasPrefix(entry.Name(), s.prefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", entry.Name(), err))
			continue
		}
		if info.ModTime().After(cutoff) {
			result.Skipped++
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("Failed to remove temp entry")
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", entry.Name(), err))
			continue
		}
		result.Removed = append(result.Removed, entry.Name())
	}

	result.Duration = time.Since(start)

	s.logger.Info().
		Str("dir", s.dir).
		Int("removed", len(result.Removed)).
		Int("skipped", result.Skipped).
		Int("errors", len(result.Errors)).
		Dur("duration", result.Duration).
		Msg("Temp file cleanup completed")

	if s.events != nil {
		_ = s.events.Publish(ctx, interfaces.Event{Type: interfaces.EventTempFilesCleaned, Payload: result})
	}

	return result, nil
}
