// Package evalstore persists evaluation results, reviewer overrides
// and evaluation job records. A result row is written once per
// (interview, evaluation version) and is immutable afterwards;
// corrections land in override records beside it.
package evalstore

import (
	"context"
	"time"

	"github.com/okian/parley/internal/domain/evaluation"
)

// JobStatus is the lifecycle of one evaluation run.
type JobStatus string

const (
	// JobPending means the run is queued.
	JobPending JobStatus = "pending"
	// JobRunning means a worker picked the run up.
	JobRunning JobStatus = "running"
	// JobCompleted means the result row was persisted.
	JobCompleted JobStatus = "completed"
	// JobFailed means the run terminated with a captured message. A
	// failed run never leaves a dangling running row.
	JobFailed JobStatus = "failed"
)

// Job is one evaluation run's record.
type Job struct {
	ID          string
	InterviewID string
	Version     string
	Status      JobStatus
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Store is the evaluation persistence contract.
type Store interface {
	// SaveResult inserts the immutable result row. Returns
	// ErrAlreadyExists when the (interview, version) pair is taken;
	// callers treat that as "read the existing row", not a failure.
	SaveResult(ctx context.Context, out evaluation.Output) error

	// GetResult returns the stored result or ErrNotFound.
	GetResult(ctx context.Context, interviewID, version string) (evaluation.Output, error)

	// SaveOverride records a reviewer correction beside the result.
	SaveOverride(ctx context.Context, o evaluation.Override) error

	// Overrides lists corrections for a result, oldest first.
	Overrides(ctx context.Context, interviewID, version string) ([]evaluation.Override, error)

	// CreateJob records a pending run.
	CreateJob(ctx context.Context, job Job) error

	// UpdateJob transitions a run's status and captures its error.
	UpdateJob(ctx context.Context, id string, status JobStatus, errMsg string) error

	// GetJob returns a run record or ErrNotFound.
	GetJob(ctx context.Context, id string) (Job, error)
}
