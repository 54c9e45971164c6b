package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Default values for job polling.
const (
	DefaultJobTimeout   = 60 * time.Second
	DefaultPollInterval = 500 * time.Millisecond
)

// Runner submits SQL statements and tracks their jobs to completion.
type Runner struct {
	backend Backend
	logger  *slog.Logger
}

// NewRunner creates a Runner over the given backend.
func NewRunner(backend Backend, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{backend: backend, logger: logger}
}

// Submit submits one SQL statement and returns the backend-assigned job id.
func (r *Runner) Submit(ctx context.Context, sql string) (string, error) {
	return r.backend.SubmitSQL(ctx, sql, nil)
}

// AwaitCompletion polls the job at pollInterval cadence until it reaches a
// terminal state or timeout elapses. On timeout the returned error wraps
// ErrTimeout and the returned Job carries the last observed state; the remote
// job may keep running after the caller stops waiting.
//
// Zero timeout or pollInterval fall back to the package defaults.
func (r *Runner) AwaitCompletion(ctx context.Context, jobID string, timeout, pollInterval time.Duration) (Job, error) {
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	deadline := time.Now().Add(timeout)

	var last Job
	for {
		job, err := r.backend.Job(ctx, jobID)
		if err != nil {
			return last, err
		}
		last = job

		if job.State.Terminal() {
			return job, nil
		}

		if time.Now().After(deadline) {
			return last, fmt.Errorf("%w: job %s still %s after %s",
				ErrTimeout, jobID, job.State, timeout)
		}

		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// FetchResults fetches one page of results for a completed job.
func (r *Runner) FetchResults(ctx context.Context, jobID string, offset, limit int) (ResultPage, error) {
	return r.backend.JobResults(ctx, jobID, offset, limit)
}
