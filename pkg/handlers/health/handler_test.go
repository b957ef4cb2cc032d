package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localpulse/jobs/pkg/database/pool"
	"github.com/localpulse/jobs/pkg/jobs"
	"github.com/localpulse/jobs/pkg/logger"
	"github.com/localpulse/jobs/pkg/models/api"
)

type staticJobs []string

func (s staticJobs) Names() []string { return s }

type staticBatch struct{ summary *jobs.Summary }

func (s staticBatch) LastSummary() *jobs.Summary { return s.summary }

func TestHealthCheck(t *testing.T) {
	summary := &jobs.Summary{
		BatchID:   "b-1",
		StartedAt: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
		Attempted: 2,
		Succeeded: 1,
		Failed:    1,
		Failures:  []jobs.Failure{{Job: "b.sync", Error: "boom"}},
	}

	tests := []struct {
		name       string
		ping       Pinger
		batch      *jobs.Summary
		wantCode   int
		wantStatus string
	}{
		{"no batch yet", nil, nil, http.StatusOK, "ok"},
		{"with batch", func(context.Context) error { return nil }, summary, http.StatusOK, "ok"},
		{"database down", func(context.Context) error { return errors.New("refused") }, nil, http.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(logger.Nop(), staticJobs{"a.sync", "b.sync"}, staticBatch{tt.batch}, tt.ping)
			rec := httptest.NewRecorder()

			h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			var body api.HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.Equal(t, []string{"a.sync", "b.sync"}, body.Jobs)

			if tt.batch == nil {
				assert.Nil(t, body.LastBatch)
				return
			}
			require.NotNil(t, body.LastBatch)
			assert.Equal(t, 1.5, body.LastBatch.DurationSeconds)
			assert.Equal(t, []api.FailureStatus{{Job: "b.sync", Error: "boom"}}, body.LastBatch.Failures)
		})
	}
}

type staticBreaker gobreaker.State

func (s staticBreaker) BreakerState() gobreaker.State { return gobreaker.State(s) }

func TestHealthCheck_PoolAndBreakers(t *testing.T) {
	h := NewHandler(logger.Nop(), staticJobs{"a.sync"}, nil, nil).
		WithPoolStats(func() pool.Stats {
			return pool.Stats{AcquireCount: 7, AcquiredConns: 1, IdleConns: 2, MaxConns: 5, TotalConns: 3}
		}).
		WithBreaker("ads", staticBreaker(gobreaker.StateOpen)).
		WithBreaker("chat", staticBreaker(gobreaker.StateClosed))
	rec := httptest.NewRecorder()

	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body api.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Pool)
	assert.Equal(t, api.PoolStatus{AcquireCount: 7, AcquiredConns: 1, IdleConns: 2, MaxConns: 5, TotalConns: 3}, *body.Pool)
	assert.Equal(t, map[string]string{"ads": "open", "chat": "closed"}, body.Breakers)
}
