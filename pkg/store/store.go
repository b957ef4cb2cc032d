// Package store persists per-job scheduling state: enabled flag, interval,
// last/next run timestamps, parameters and the last error.
package store

import (
	"context"

	"github.com/cockroachdb/errors"
)

var (
	// ErrNotFound is returned when no row exists for a job name
	ErrNotFound = errors.New("job config not found")
	// ErrInvalidInterval is returned for non-positive intervals
	ErrInvalidInterval = errors.New("schedule interval must be a positive number of minutes")
)

// ConfigStore is the repository surface the scheduler consumes
type ConfigStore interface {
	// FetchDueJobs returns enabled rows whose next_run_at is null or has
	// passed according to the store's clock, ordered by job_name.
	FetchDueJobs(ctx context.Context) ([]JobConfig, error)

	// MarkExecuted sets last_run_at to now and recomputes next_run_at as
	// last_run_at + interval. A failure stores errMsg as the last error.
	MarkExecuted(ctx context.Context, jobName string, success bool, errMsg string) error

	GetConfig(ctx context.Context, jobName string) (*JobConfig, error)
	SetEnabled(ctx context.Context, jobName string, enabled bool) error
	SetInterval(ctx context.Context, jobName string, minutes int) error

	// Upsert creates a row or refreshes its interval and parameters. Run
	// timestamps and the enabled flag of existing rows are left alone.
	Upsert(ctx context.Context, cfg JobConfig) error
}

func validateInterval(minutes int) error {
	if minutes <= 0 {
		return errors.Wrapf(ErrInvalidInterval, "got %d", minutes)
	}
	return nil
}
