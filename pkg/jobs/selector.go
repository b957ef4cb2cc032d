package jobs

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/localpulse/jobs/pkg/logger"
	"github.com/localpulse/jobs/pkg/store"
)

// Selector returns the rows due for execution. The comparison against "now"
// happens inside the store so the database clock is the only clock.
type Selector struct {
	store  store.ConfigStore
	logger *logger.Logger
}

func NewSelector(s store.ConfigStore, log *logger.Logger) *Selector {
	if log == nil {
		log = logger.New("due-job-selector")
	}
	return &Selector{store: s, logger: log}
}

// Due returns enabled rows with next_run_at unset or passed, ordered by name
func (s *Selector) Due(ctx context.Context) ([]store.JobConfig, error) {
	start := time.Now()
	due, err := s.store.FetchDueJobs(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to select due jobs")
	}

	s.logger.Debug().
		Str("action", "select_due").
		Int("due_count", len(due)).
		Dur("duration", time.Since(start)).
		Msg("Selected due jobs")
	return due, nil
}
