// -----------------------------------------------------------------------
// Generation Job - Snapshot of a server-side job record
// -----------------------------------------------------------------------

package models

import (
	"time"
)

// JobStatus is the server-side lifecycle state of a generation job.
//
// Lifecycle: running -> done | error | cancelled
type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusDone      JobStatus = "done"
	JobStatusError     JobStatus = "error"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal returns true once the server will no longer change the job
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusDone, JobStatusError, JobStatusCancelled:
		return true
	}
	return false
}

// Job mirrors a server job record. The client never mutates persisted job
// state; it renders snapshots and issues cancel/delete requests.
type Job struct {
	ID          string     `json:"id" yaml:"id"`
	CustomerID  string     `json:"customerId" yaml:"customerId"`
	Template    string     `json:"template" yaml:"template"`
	Status      JobStatus  `json:"status" yaml:"status"`
	Logs        []string   `json:"logs,omitempty" yaml:"logs,omitempty"`
	Steps       []JobStep  `json:"steps,omitempty" yaml:"steps,omitempty"`
	File        string     `json:"file,omitempty" yaml:"file,omitempty"`
	Error       string     `json:"error,omitempty" yaml:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty" yaml:"completedAt,omitempty"`
}

// IsTerminal reports whether the job reached done, error or cancelled
func (j *Job) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// Duration returns elapsed time, up to completion for finished jobs
func (j *Job) Duration(now time.Time) time.Duration {
	if j.CreatedAt.IsZero() {
		return 0
	}
	if j.CompletedAt != nil {
		return j.CompletedAt.Sub(j.CreatedAt)
	}
	return now.Sub(j.CreatedAt)
}

// JobStep is one named phase of a job or compile run
type JobStep struct {
	Name     string `json:"name" yaml:"name"`
	Status   string `json:"status" yaml:"status"` // start, ok, error
	Progress *int   `json:"progress,omitempty" yaml:"progress,omitempty"`
	Message  string `json:"message,omitempty" yaml:"message,omitempty"`
}

// GenerateRequest starts a full document generation
type GenerateRequest struct {
	CustomerID   string `json:"customerId"`
	Template     string `json:"template"`
	Instructions string `json:"instructions,omitempty"`
}
