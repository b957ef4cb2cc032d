package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/localpulse/jobs/pkg/database/pool"
	"github.com/localpulse/jobs/pkg/jobs"
	"github.com/localpulse/jobs/pkg/logger"
	"github.com/localpulse/jobs/pkg/models/api"
)

// JobLister is satisfied by *jobs.Registry
type JobLister interface {
	Names() []string
}

// BatchSource is satisfied by *jobs.Runner
type BatchSource interface {
	LastSummary() *jobs.Summary
}

// Pinger checks the database; nil skips the check
type Pinger func(ctx context.Context) error

// BreakerReporter is satisfied by *services.HTTPClient
type BreakerReporter interface {
	BreakerState() gobreaker.State
}

// Handler handles health check requests
type Handler struct {
	logger    *logger.Logger
	jobs      JobLister
	batches   BatchSource
	ping      Pinger
	poolStats func() pool.Stats
	breakers  map[string]BreakerReporter
}

// NewHandler creates a new health handler
func NewHandler(log *logger.Logger, lister JobLister, batches BatchSource, ping Pinger) *Handler {
	return &Handler{
		logger:  log,
		jobs:    lister,
		batches: batches,
		ping:    ping,
	}
}

// WithPoolStats adds connection pool counters to the response
func (h *Handler) WithPoolStats(stats func() pool.Stats) *Handler {
	h.poolStats = stats
	return h
}

// WithBreaker adds the state of one platform's circuit breaker
func (h *Handler) WithBreaker(name string, b BreakerReporter) *Handler {
	if h.breakers == nil {
		h.breakers = make(map[string]BreakerReporter)
	}
	h.breakers[name] = b
	return h
}

// HealthCheck handles the /health endpoint. A failed database ping answers
// 503 with status "degraded".
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	response := api.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Jobs:      h.jobs.Names(),
	}
	statusCode := http.StatusOK

	if h.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		err := h.ping(ctx)
		cancel()
		if err != nil {
			response.Status = "degraded"
			response.Database = "unreachable"
			statusCode = http.StatusServiceUnavailable
			h.logger.Warn().
				Err(err).
				Str("action", "health_db_ping_failed").
				Msg("Database ping failed")
		} else {
			response.Database = "ok"
		}
	}

	if h.poolStats != nil {
		stats := h.poolStats()
		response.Pool = &api.PoolStatus{
			AcquireCount:  stats.AcquireCount,
			AcquiredConns: stats.AcquiredConns,
			IdleConns:     stats.IdleConns,
			MaxConns:      stats.MaxConns,
			TotalConns:    stats.TotalConns,
		}
	}

	if len(h.breakers) > 0 {
		response.Breakers = make(map[string]string, len(h.breakers))
		for name, b := range h.breakers {
			response.Breakers[name] = b.BreakerState().String()
		}
	}

	if h.batches != nil {
		response.LastBatch = batchStatus(h.batches.LastSummary())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error().
			Err(err).
			Str("action", "health_check_failed").
			Str("endpoint", "/health").
			Msg("Failed to encode health response")
		return
	}

	h.logger.Debug().
		Str("action", "health_check").
		Str("endpoint", "/health").
		Str("method", r.Method).
		Str("remote_addr", r.RemoteAddr).
		Int("status_code", statusCode).
		Dur("duration", time.Since(start)).
		Msg("Health check completed")
}

func batchStatus(s *jobs.Summary) *api.BatchStatus {
	if s == nil {
		return nil
	}
	status := &api.BatchStatus{
		BatchID:         s.BatchID,
		StartedAt:       s.StartedAt,
		DurationSeconds: s.Duration.Seconds(),
		Attempted:       s.Attempted,
		Succeeded:       s.Succeeded,
		Failed:          s.Failed,
		Skipped:         s.Skipped,
	}
	for _, f := range s.Failures {
		status.Failures = append(status.Failures, api.FailureStatus{Job: f.Job, Error: f.Error})
	}
	return status
}
