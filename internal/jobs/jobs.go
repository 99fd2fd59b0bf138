// Package jobs tracks the state of ingestion jobs.
package jobs

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a job ID is unknown.
var ErrNotFound = errors.New("job not found")

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Job is one ingestion run over a batch of documents.
type Job struct {
	JobID         string     `json:"job_id"`
	Status        Status     `json:"status"`
	TotalDocs     int        `json:"total_docs"`
	ProcessedDocs int        `json:"processed_docs"`
	FailedDocs    int        `json:"failed_docs"`
	Error         string     `json:"error,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// Progress reports the fraction of documents processed successfully.
// Failed documents do not advance it.
func (j *Job) Progress() float64 {
	if j.TotalDocs == 0 {
		return 0
	}
	return float64(j.ProcessedDocs) / float64(j.TotalDocs)
}

// Done reports whether the job reached a terminal state.
func (j *Job) Done() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// JobStore persists jobs.
type JobStore interface {
	Create(ctx context.Context, job *Job) error
	Update(ctx context.Context, job *Job) error
	Get(ctx context.Context, jobID string) (*Job, error)
	List(ctx context.Context, limit int) ([]Job, error)
	// DeleteBefore removes terminal jobs older than the cutoff and
	// returns how many were deleted.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
	Close(ctx context.Context) error
}
