// Package jobs keeps a polled view of generation jobs. Polling is the
// authority for job state; the monitor diffs consecutive snapshots and
// publishes job_created, job_status_changed and job_removed events.
package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docsmith/internal/common"
	"github.com/ternarybob/docsmith/internal/interfaces"
	"github.com/ternarybob/docsmith/internal/models"
	"github.com/ternarybob/docsmith/internal/notify"
)

const (
	DefaultInterval = 3 * time.Second
	MinInterval     = 2 * time.Second
	MaxInterval     = 5 * time.Second
)

// Change describes one difference between two job snapshots
type Change struct {
	Type     interfaces.EventType `json:"type"`
	Job      models.Job           `json:"job"`
	Previous models.JobStatus     `json:"previous,omitempty"`
}

// Monitor polls the jobs list
type Monitor struct {
	api      interfaces.JobsAPI
	events   interfaces.EventService
	notifier interfaces.Notifier
	logger   arbor.ILogger
	interval time.Duration

	mu       sync.RWMutex
	jobs     map[string]models.Job
	loaded   bool
	lastErr  error
	lastPoll time.Time

	refreshMu sync.Mutex
	runMu     sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewMonitor creates a monitor. interval is clamped to the 2s..5s range, zero selects the default.
func NewMonitor(api interfaces.JobsAPI, events interfaces.EventService, notifier interfaces.Notifier, logger arbor.ILogger, interval time.Duration) *Monitor {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	return &Monitor{
		api:      api,
		events:   events,
		notifier: notifier,
		logger:   logger,
		interval: ClampInterval(interval),
		jobs:     make(map[string]models.Job),
	}
}

// ClampInterval limits a polling interval to the supported range
func ClampInterval(interval time.Duration) time.Duration {
	switch {
	case interval <= 0:
		return DefaultInterval
	case interval < MinInterval:
		return MinInterval
	case interval > MaxInterval:
		return MaxInterval
	}
	return interval
}

// Interval returns the effective polling interval
func (m *Monitor) Interval() time.Duration {
	return m.interval
}

// Start begins polling in the background. Calling Start twice is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	if m.cancel != nil {
		return
	}

	pollCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	done := m.done

	common.SafeGo(m.logger, "jobs-monitor", func() {
		defer close(done)
		m.run(pollCtx)
	})

	m.logger.Debug().Dur("interval", m.interval).Msg("Jobs monitor started")
}

// Stop ends polling and waits for the poll loop to exit
func (m *Monitor) Stop() {
	m.runMu.Lock()
	cancel := m.cancel
	done := m.done
	m.cancel = nil
	m.done = nil
	m.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	m.logger.Debug().Msg("Jobs monitor stopped")
}

func (m *Monitor) run(ctx context.Context) {
	if _, err := m.Refresh(ctx); err != nil && ctx.Err() == nil {
		m.logger.Warn().Err(err).Msg("Initial jobs poll failed")
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Refresh(ctx); err != nil && ctx.Err() == nil {
				m.logger.Warn().Err(err).Msg("Jobs poll failed")
			}
		}
	}
}

// Refresh fetches the jobs list now, applies it and publishes the changes
func (m *Monitor) Refresh(ctx context.Context) ([]Change, error) {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	list, err := m.api.ListJobs(ctx)

	m.mu.Lock()
	m.lastPoll = time.Now()
	m.lastErr = err
	if err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	next := make(map[string]models.Job, len(list))
	for _, job := range list {
		next[job.ID] = job
	}
	var changes []Change
	if m.loaded {
		changes = Diff(m.jobs, next)
	}
	m.jobs = next
	m.loaded = true
	m.mu.Unlock()

	for _, change := range changes {
		m.publish(ctx, change)
	}

	return changes, nil
}

func (m *Monitor) publish(ctx context.Context, change Change) {
	m.logger.Debug().
		Str("event_type", string(change.Type)).
		Str("job_id", change.Job.ID).
		Str("status", string(change.Job.Status)).
		Msg("Job change detected")

	if m.events != nil {
		_ = m.events.Publish(ctx, interfaces.Event{Type: change.Type, Payload: change})
	}

	if change.Type != interfaces.EventJobStatusChanged {
		return
	}
	switch change.Job.Status {
	case models.JobStatusDone:
		notify.Success(m.notifier, "Job %s finished", change.Job.ID)
	case models.JobStatusError:
		if change.Job.Error != "" {
			notify.Error(m.notifier, "Job %s failed: %s", change.Job.ID, change.Job.Error)
		} else {
			notify.Error(m.notifier, "Job %s failed", change.Job.ID)
		}
	}
}

// Diff compares two snapshots keyed by job id. Changes are ordered by job id
// within each kind: created, status changed, removed.
func Diff(previous, next map[string]models.Job) []Change {
	var created, changed, removed []Change

	for id, job := range next {
		old, ok := previous[id]
		switch {
		case !ok:
			created = append(created, Change{Type: interfaces.EventJobCreated, Job: job})
		case old.Status != job.Status:
			changed = append(changed, Change{Type: interfaces.EventJobStatusChanged, Job: job, Previous: old.Status})
		}
	}
	for id, job := range previous {
		if _, ok := next[id]; !ok {
			removed = append(removed, Change{Type: interfaces.EventJobRemoved, Job: job})
		}
	}

	byID := func(changes []Change) {
		sort.Slice(changes, func(i, j int) bool { return changes[i].Job.ID < changes[j].Job.ID })
	}
	byID(created)
	byID(changed)
	byID(removed)

	result := append(created, changed...)
	return append(result, removed...)
}

// Jobs returns the last snapshot, newest first
func (m *Monitor) Jobs() []models.Job {
	m.mu.RLock()
	result := make([]models.Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		result = append(result, job)
	}
	m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// Job returns a job from the last snapshot
func (m *Monitor) Job(id string) (models.Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	return job, ok
}

// LastError returns the error of the most recent poll, nil on success
func (m *Monitor) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// Cancel asks the backend to cancel a job and re-polls immediately.
// The job's state only changes when the server reports it.
func (m *Monitor) Cancel(ctx context.Context, id string) error {
	if err := m.api.CancelJob(ctx, id); err != nil {
		notify.Failed(m.notifier, "Cancel", err)
		return fmt.Errorf("failed to cancel job %s: %w", id, err)
	}
	m.logger.Info().Str("job_id", id).Msg("Job cancel requested")
	m.refreshAfterAction(ctx)
	return nil
}

// Delete removes a job record and re-polls immediately
func (m *Monitor) Delete(ctx context.Context, id string) error {
	if err := m.api.DeleteJob(ctx, id); err != nil {
		notify.Failed(m.notifier, "Delete", err)
		return fmt.Errorf("failed to delete job %s: %w", id, err)
	}
	m.logger.Info().Str("job_id", id).Msg("Job deleted")
	m.refreshAfterAction(ctx)
	return nil
}

// Clear removes all finished job records and re-polls immediately
func (m *Monitor) Clear(ctx context.Context) error {
	if err := m.api.ClearJobs(ctx); err != nil {
		notify.Failed(m.notifier, "Clear", err)
		return fmt.Errorf("failed to clear jobs: %w", err)
	}
	m.refreshAfterAction(ctx)
	return nil
}

func (m *Monitor) refreshAfterAction(ctx context.Context) {
	if _, err := m.Refresh(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("Jobs refresh after action failed")
	}
}
