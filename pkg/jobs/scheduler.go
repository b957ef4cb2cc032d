package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robfig/cron/v3"

	"github.com/localpulse/jobs/pkg/logger"
)

// Scheduler triggers the batch runner every poll interval for daemon mode.
// A poll that fires while the previous batch is still running is skipped.
type Scheduler struct {
	cron     *cron.Cron
	job      cron.Job
	runner   *Runner
	interval time.Duration
	logger   *logger.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	initial sync.WaitGroup
}

func NewScheduler(runner *Runner, interval time.Duration) (*Scheduler, error) {
	if interval <= 0 {
		return nil, errors.Newf("poll interval must be positive, got %s", interval)
	}

	log := logger.New("scheduler")
	cronLog := logger.CronAdapter{L: log}
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC), cron.WithLogger(cronLog)),
		runner:   runner,
		interval: interval,
		logger:   log,
		ctx:      ctx,
		cancel:   cancel,
	}

	// The chain is shared by the startup run and the cron ticks so the two
	// can never overlap.
	s.job = cron.NewChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)).
		Then(cron.FuncJob(s.poll))
	s.cron.Schedule(cron.Every(interval), s.job)
	return s, nil
}

func (s *Scheduler) poll() {
	if _, err := s.runner.RunBatch(s.ctx); err != nil {
		s.logger.Error().
			Err(err).
			Str("action", "poll_failed").
			Msg("Batch could not start, retrying next poll")
	}
}

// Start runs one batch right away and then polls on the interval
func (s *Scheduler) Start() {
	s.logger.Info().
		Str("action", "start").
		Dur("poll_interval", s.interval).
		Msg("Starting scheduler")

	s.initial.Add(1)
	go func() {
		defer s.initial.Done()
		s.job.Run()
	}()
	s.cron.Start()
}

// Stop stops polling, cancels a running batch and waits for it to return
func (s *Scheduler) Stop() {
	s.logger.Info().
		Str("action", "stop").
		Msg("Stopping scheduler...")
	done := s.cron.Stop()
	s.cancel()
	<-done.Done()
	s.initial.Wait()
	s.logger.Info().
		Str("action", "stopped").
		Msg("Scheduler stopped")
}
