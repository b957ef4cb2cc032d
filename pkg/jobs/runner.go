package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/localpulse/jobs/pkg/alerts"
	"github.com/localpulse/jobs/pkg/logger"
	"github.com/localpulse/jobs/pkg/store"
)

// DefaultJobTimeout bounds a single job invocation in the batch path
const DefaultJobTimeout = 30 * time.Minute

type RunnerConfig struct {
	// JobTimeout bounds each invocation; zero disables the bound
	JobTimeout time.Duration
	// NotifyOnSuccess sends a silent summary for batches without failures
	NotifyOnSuccess bool
}

// Runner executes every due job of one poll sequentially and records each
// run in the config store
type Runner struct {
	registry *Registry
	store    store.ConfigStore
	selector *Selector
	sink     alerts.Sink
	metrics  *Metrics
	cfg      RunnerConfig
	logger   *logger.Logger
	now      func() time.Time

	mu   sync.Mutex
	last *Summary
}

// NewRunner wires a runner. sink and metrics may be nil.
func NewRunner(registry *Registry, s store.ConfigStore, sink alerts.Sink, metrics *Metrics, cfg RunnerConfig) *Runner {
	log := logger.New("batch-runner")
	return &Runner{
		registry: registry,
		store:    s,
		selector: NewSelector(s, log),
		sink:     sink,
		metrics:  metrics,
		cfg:      cfg,
		logger:   log,
		now:      time.Now,
	}
}

// RunBatch runs one batch. The returned error is only about selecting the
// due set; job failures are reported in the summary.
func (r *Runner) RunBatch(ctx context.Context) (*Summary, error) {
	batchID := uuid.New().String()
	log := r.logger.WithBatch(batchID)
	summary := newSummary(batchID, r.now())

	due, err := r.selector.Due(ctx)
	if err != nil {
		log.Error().
			Err(err).
			Str("action", "batch_select_failed").
			Msg("Failed to fetch due jobs")
		return nil, err
	}

	if len(due) == 0 {
		log.Info().
			Str("action", "batch_empty").
			Msg("No jobs due")
		r.finish(summary, log)
		return summary, nil
	}

	log.Info().
		Str("action", "batch_start").
		Int("due_count", len(due)).
		Msg("Starting batch")

	for i, cfg := range due {
		// Jobs not yet started keep their schedule so they run on the next
		// poll instead of being recorded as failed without doing any work.
		if ctx.Err() != nil {
			log.Warn().
				Str("action", "batch_cancelled").
				Int("remaining", len(due)-i).
				Str("next_job", cfg.JobName).
				Msg("Batch cancelled, leaving remaining jobs due")
			break
		}

		fn, ok := r.registry.Resolve(cfg.JobName)
		if !ok {
			log.Warn().
				Str("action", "job_skipped_unresolved").
				Str("job_name", cfg.JobName).
				Msg("Due job has no registered entry point, leaving its schedule untouched")
			summary.Skipped = append(summary.Skipped, cfg.JobName)
			r.metrics.observeSkipped(cfg.JobName)
			continue
		}

		r.runOne(ctx, log, cfg.JobName, fn, summary)
	}

	r.finish(summary, log)
	r.report(ctx, summary, log)
	return summary, nil
}

func (r *Runner) runOne(ctx context.Context, batchLog *logger.Logger, name string, fn Func, summary *Summary) {
	log := batchLog.WithJob(name, "batch")
	jobCtx := log.ToContext(ctx)

	log.LogJobStart()
	start := time.Now()
	res, err := Invoke(jobCtx, name, fn, r.cfg.JobTimeout)
	duration := time.Since(start)
	r.metrics.observeJob(name, err == nil, duration)

	// The job did start, so it is recorded even when the batch context was
	// cancelled while it ran.
	markCtx := context.WithoutCancel(ctx)

	if err != nil {
		msg := TruncateError(err)
		log.Error().
			Err(err).
			Str("action", "job_failed").
			Dur("duration", duration).
			Bool("timeout", errors.Is(err, ErrJobTimeout)).
			Bool("panic", errors.Is(err, ErrJobPanicked)).
			Msg("Job failed")
		summary.recordFailure(name, msg, res)

		if markErr := r.store.MarkExecuted(markCtx, name, false, msg); markErr != nil {
			log.Error().
				Err(markErr).
				Str("action", "mark_executed_failed").
				Msg("Failed to record job failure")
		}
		return
	}

	processed, failed := 0, 0
	if res != nil {
		processed, failed = res.Processed, res.Failed
	}
	log.LogJobComplete(duration, processed, failed)
	summary.recordSuccess(name, res)

	if markErr := r.store.MarkExecuted(markCtx, name, true, ""); markErr != nil {
		log.Error().
			Err(markErr).
			Str("action", "mark_executed_failed").
			Msg("Failed to record job run")
	}
}

func (r *Runner) finish(summary *Summary, log *logger.Logger) {
	finished := r.now()
	summary.Duration = finished.Sub(summary.StartedAt)
	r.metrics.observeBatch(summary, finished)

	r.mu.Lock()
	r.last = summary
	r.mu.Unlock()

	log.Info().
		Str("action", "batch_complete").
		Int("attempted", summary.Attempted).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("skipped", len(summary.Skipped)).
		Dur("duration", summary.Duration).
		Msg("Batch finished")
}

// report delivers the summary. Every step is best-effort.
func (r *Runner) report(ctx context.Context, summary *Summary, log *logger.Logger) {
	if r.sink == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	if summary.Failed == 0 {
		if r.cfg.NotifyOnSuccess && summary.Attempted > 0 {
			r.sink.SendNotification(ctx, summary.Message(), true)
		}
		return
	}

	if !r.sink.SendNotification(ctx, summary.Message(), false) {
		log.Warn().
			Str("action", "batch_notify_failed").
			Msg("Batch summary notification was not delivered")
	}

	priority := alerts.PriorityMedium
	if summary.AllFailed() {
		priority = alerts.PriorityHigh
	}

	failures := summary.FailureMap()
	data := make(map[string]any, 3)
	data["batch_id"] = summary.BatchID
	data["attempted"] = summary.Attempted
	data["failures"] = failures

	alert := alerts.New(
		"Scheduled jobs failed",
		"job_failure",
		alerts.SystemTenant,
		summary.Message(),
		data,
		priority,
	)
	if err := r.sink.RaiseAlert(ctx, alert); err != nil {
		log.Warn().
			Err(err).
			Str("action", "batch_alert_failed").
			Msg("Failed to raise batch failure alert")
	}
}

// LastSummary returns the most recent batch summary, or nil before the first
func (r *Runner) LastSummary() *Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}
