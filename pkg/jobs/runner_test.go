package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localpulse/jobs/pkg/alerts"
	"github.com/localpulse/jobs/pkg/store"
)

func newTestRunner(reg *Registry, s store.ConfigStore, sink alerts.Sink, cfg RunnerConfig) *Runner {
	r := NewRunner(reg, s, sink, nil, cfg)
	r.now = func() time.Time { return testNow }
	return r
}

func TestRunBatch_FailureDoesNotStopBatch(t *testing.T) {
	s := newRecordingStore(dueRow("a.sync", 30), dueRow("b.sync", 30), dueRow("c.sync", 30))
	reg := newTestRegistry()

	var a, c, b int
	require.NoError(t, reg.Register("a.sync", ok(&a)))
	require.NoError(t, reg.Register("b.sync", func(ctx context.Context) (*Result, error) {
		b++
		return nil, errors.New("boom")
	}))
	require.NoError(t, reg.Register("c.sync", ok(&c)))

	summary, err := newTestRunner(reg, s, nil, RunnerConfig{}).RunBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)
	assert.Equal(t, 1, c)
	assert.Equal(t, 3, summary.Attempted)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, map[string]string{"b.sync": "boom"}, summary.FailureMap())
	assert.Len(t, s.marks, 3)
}

func TestRunBatch_DemoSyncTimeoutScenario(t *testing.T) {
	s := newRecordingStore(dueRow("demo.sync", 30))
	reg := newTestRegistry()
	require.NoError(t, reg.Register("demo.sync", func(ctx context.Context) (*Result, error) {
		return nil, errors.New("upstream unreachable")
	}))

	summary, err := newTestRunner(reg, s, nil, RunnerConfig{}).RunBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []markCall{{Job: "demo.sync", Success: false, Message: "upstream unreachable"}}, s.marks)
	assert.Equal(t, map[string]string{"demo.sync": "upstream unreachable"}, summary.FailureMap())

	cfg, err := s.GetConfig(context.Background(), "demo.sync")
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(30*time.Minute), *cfg.NextRunAt)
	assert.Equal(t, store.StatusFailed, cfg.LastStatus)
	require.NotNil(t, cfg.LastError)
	assert.Equal(t, "upstream unreachable", cfg.LastError.Message)
}

func TestRunBatch_TwoJobsSucceed(t *testing.T) {
	s := newRecordingStore(dueRow("a.sync", 15), dueRow("b.sync", 15))
	reg := newTestRegistry()
	var a, b int
	require.NoError(t, reg.Register("a.sync", ok(&a)))
	require.NoError(t, reg.Register("b.sync", ok(&b)))

	summary, err := newTestRunner(reg, s, nil, RunnerConfig{}).RunBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Attempted)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, []markCall{{Job: "a.sync", Success: true}, {Job: "b.sync", Success: true}}, s.marks)
}

func TestRunBatch_NotReselectedAfterRun(t *testing.T) {
	s := newRecordingStore(dueRow("a.sync", 30))
	reg := newTestRegistry()
	var a int
	require.NoError(t, reg.Register("a.sync", ok(&a)))
	runner := newTestRunner(reg, s, nil, RunnerConfig{})

	_, err := runner.RunBatch(context.Background())
	require.NoError(t, err)

	s.Now = func() time.Time { return testNow.Add(time.Second) }
	summary, err := runner.RunBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, a)
	assert.Zero(t, summary.Attempted)
}

func TestRunBatch_SkipsUnregistered(t *testing.T) {
	s := newRecordingStore(dueRow("orphan.sync", 30))

	summary, err := newTestRunner(newTestRegistry(), s, nil, RunnerConfig{}).RunBatch(context.Background())
	require.NoError(t, err)

	assert.Zero(t, summary.Attempted)
	assert.Equal(t, []string{"orphan.sync"}, summary.Skipped)
	assert.Empty(t, s.marks)

	cfg, err := s.GetConfig(context.Background(), "orphan.sync")
	require.NoError(t, err)
	assert.Nil(t, cfg.NextRunAt)
}

func TestRunBatch_DisabledNeverRuns(t *testing.T) {
	row := dueRow("a.sync", 30)
	row.Enabled = false
	s := newRecordingStore(row)
	reg := newTestRegistry()
	var a int
	require.NoError(t, reg.Register("a.sync", ok(&a)))

	summary, err := newTestRunner(reg, s, nil, RunnerConfig{}).RunBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, a)
	assert.Zero(t, summary.Attempted)
}

func TestRunBatch_MarkFailureDoesNotMaskJobError(t *testing.T) {
	s := newRecordingStore(dueRow("a.sync", 30))
	s.markErr = errors.New("store unavailable")
	reg := newTestRegistry()
	require.NoError(t, reg.Register("a.sync", func(ctx context.Context) (*Result, error) {
		return nil, errors.New("token expired")
	}))

	summary, err := newTestRunner(reg, s, nil, RunnerConfig{}).RunBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a.sync": "token expired"}, summary.FailureMap())
}

func TestRunBatch_TimeoutAndPanicAreFailures(t *testing.T) {
	s := newRecordingStore(dueRow("panics.sync", 30), dueRow("slow.sync", 30))
	reg := newTestRegistry()
	require.NoError(t, reg.Register("slow.sync", func(ctx context.Context) (*Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}))
	require.NoError(t, reg.Register("panics.sync", func(ctx context.Context) (*Result, error) {
		panic("nil map")
	}))

	summary, err := newTestRunner(reg, s, nil, RunnerConfig{JobTimeout: 20 * time.Millisecond}).RunBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Failed)
	failures := summary.FailureMap()
	assert.Contains(t, failures["panics.sync"], "nil map")
	assert.Contains(t, failures["slow.sync"], "exceeded")
}

func TestRunBatch_SelectError(t *testing.T) {
	s := newRecordingStore()
	runner := newTestRunner(newTestRegistry(), s, nil, RunnerConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := runner.RunBatch(ctx)
	assert.Error(t, err)
	assert.Nil(t, summary)
}

func TestRunBatch_CancelLeavesRemainingJobsDue(t *testing.T) {
	s := newRecordingStore(dueRow("a.sync", 30), dueRow("b.daily", 1440), dueRow("c.daily", 1440))
	reg := newTestRegistry()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var b, c int
	require.NoError(t, reg.Register("a.sync", func(ctx context.Context) (*Result, error) {
		cancel()
		return nil, nil
	}))
	require.NoError(t, reg.Register("b.daily", ok(&b)))
	require.NoError(t, reg.Register("c.daily", ok(&c)))
	sink := &fakeSink{deliver: true}

	summary, err := newTestRunner(reg, s, sink, RunnerConfig{}).RunBatch(ctx)
	require.NoError(t, err)

	assert.Zero(t, b)
	assert.Zero(t, c)
	assert.Equal(t, []markCall{{Job: "a.sync", Success: true}}, s.marks)
	assert.Equal(t, 1, summary.Attempted)
	assert.Zero(t, summary.Failed)
	assert.Empty(t, sink.notifications)
	assert.Empty(t, sink.alerts)

	for _, name := range []string{"b.daily", "c.daily"} {
		cfg, err := s.GetConfig(context.Background(), name)
		require.NoError(t, err)
		assert.Nil(t, cfg.NextRunAt, name)
		assert.Nil(t, cfg.LastRunAt, name)
	}
}

func TestRunBatch_ReportsFailures(t *testing.T) {
	s := newRecordingStore(dueRow("a.sync", 30), dueRow("b.sync", 30))
	reg := newTestRegistry()
	var a int
	require.NoError(t, reg.Register("a.sync", ok(&a)))
	require.NoError(t, reg.Register("b.sync", func(ctx context.Context) (*Result, error) {
		return nil, errors.New("rate limited")
	}))
	sink := &fakeSink{deliver: true}

	_, err := newTestRunner(reg, s, sink, RunnerConfig{}).RunBatch(context.Background())
	require.NoError(t, err)

	require.Len(t, sink.notifications, 1)
	assert.False(t, sink.silent[0])
	assert.Contains(t, sink.notifications[0], "b.sync: rate limited")

	require.Len(t, sink.alerts, 1)
	assert.Equal(t, "job_failure", sink.alerts[0].Category)
	assert.Equal(t, alerts.SystemTenant, sink.alerts[0].Tenant)
	assert.Equal(t, alerts.PriorityMedium, sink.alerts[0].Priority)
}

func TestRunBatch_AllFailedIsHighPriority(t *testing.T) {
	s := newRecordingStore(dueRow("a.sync", 30))
	reg := newTestRegistry()
	require.NoError(t, reg.Register("a.sync", func(ctx context.Context) (*Result, error) {
		return nil, errors.New("down")
	}))
	sink := &fakeSink{}

	_, err := newTestRunner(reg, s, sink, RunnerConfig{}).RunBatch(context.Background())
	require.NoError(t, err)

	require.Len(t, sink.alerts, 1)
	assert.Equal(t, alerts.PriorityHigh, sink.alerts[0].Priority)
}

func TestRunBatch_SuccessNotification(t *testing.T) {
	tests := []struct {
		name            string
		notifyOnSuccess bool
		want            int
	}{
		{"quiet by default", false, 0},
		{"silent summary when enabled", true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newRecordingStore(dueRow("a.sync", 30))
			reg := newTestRegistry()
			var a int
			require.NoError(t, reg.Register("a.sync", ok(&a)))
			sink := &fakeSink{deliver: true}

			_, err := newTestRunner(reg, s, sink, RunnerConfig{NotifyOnSuccess: tt.notifyOnSuccess}).RunBatch(context.Background())
			require.NoError(t, err)

			assert.Len(t, sink.notifications, tt.want)
			for _, silent := range sink.silent {
				assert.True(t, silent)
			}
			assert.Empty(t, sink.alerts)
		})
	}
}

func TestRunBatch_LastSummaryAndMetrics(t *testing.T) {
	s := newRecordingStore(dueRow("a.sync", 30), dueRow("orphan.sync", 30))
	reg := newTestRegistry()
	var a int
	require.NoError(t, reg.Register("a.sync", ok(&a)))

	promReg := prometheus.NewRegistry()
	runner := NewRunner(reg, s, nil, NewMetrics(promReg), RunnerConfig{})
	assert.Nil(t, runner.LastSummary())

	summary, err := runner.RunBatch(context.Background())
	require.NoError(t, err)

	assert.Same(t, summary, runner.LastSummary())
	assert.Equal(t, float64(1), metricValue(t, runner.metrics.jobRuns.WithLabelValues("a.sync", "success")))
	assert.Equal(t, float64(1), metricValue(t, runner.metrics.jobSkipped.WithLabelValues("orphan.sync")))
	assert.Equal(t, float64(1), metricValue(t, runner.metrics.batchJobs.WithLabelValues("skipped")))
}

func metricValue(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	switch {
	case out.Counter != nil:
		return out.Counter.GetValue()
	case out.Gauge != nil:
		return out.Gauge.GetValue()
	}
	t.Fatalf("unsupported metric type")
	return 0
}
