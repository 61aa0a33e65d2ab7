package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/docsmith/internal/interfaces"
	"github.com/ternarybob/docsmith/internal/models"
)

// WaitForJob polls one job until it reaches a terminal status. onUpdate is
// called whenever the status, step count or log length changes.
func WaitForJob(ctx context.Context, api interfaces.JobsAPI, id string, interval time.Duration, onUpdate func(*models.Job)) (*models.Job, error) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last *models.Job
	for {
		job, err := api.GetJob(ctx, id)
		if err != nil {
			return last, fmt.Errorf("failed to get job %s: %w", id, err)
		}

		if onUpdate != nil && changed(last, job) {
			onUpdate(job)
		}
		last = job

		if job.IsTerminal() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
		}
	}
}

func changed(previous, current *models.Job) bool {
	if previous == nil {
		return true
	}
	return previous.Status != current.Status ||
		len(previous.Steps) != len(current.Steps) ||
		len(previous.Logs) != len(current.Logs)
}
