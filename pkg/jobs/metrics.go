package jobs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes batch and job outcomes to Prometheus. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	jobRuns       *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
	jobSkipped    *prometheus.CounterVec
	batchJobs     *prometheus.GaugeVec
	batchDuration prometheus.Gauge
	lastBatch     prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "localpulse",
			Subsystem: "jobs",
			Name:      "runs_total",
			Help:      "Job invocations by outcome.",
		}, []string{"job", "status"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "localpulse",
			Subsystem: "jobs",
			Name:      "duration_seconds",
			Help:      "Job invocation duration.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 300, 900, 1800},
		}, []string{"job"}),
		jobSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "localpulse",
			Subsystem: "jobs",
			Name:      "skipped_total",
			Help:      "Due jobs skipped because no entry point is registered.",
		}, []string{"job"}),
		batchJobs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "localpulse",
			Subsystem: "batch",
			Name:      "jobs",
			Help:      "Jobs of the last batch by outcome.",
		}, []string{"outcome"}),
		batchDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "localpulse",
			Subsystem: "batch",
			Name:      "duration_seconds",
			Help:      "Duration of the last batch.",
		}),
		lastBatch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "localpulse",
			Subsystem: "batch",
			Name:      "last_completed_timestamp_seconds",
			Help:      "Unix time the last batch finished.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.jobRuns, m.jobDuration, m.jobSkipped, m.batchJobs, m.batchDuration, m.lastBatch)
	}
	return m
}

func (m *Metrics) observeJob(name string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "failed"
	}
	m.jobRuns.WithLabelValues(name, status).Inc()
	m.jobDuration.WithLabelValues(name).Observe(d.Seconds())
}

func (m *Metrics) observeSkipped(name string) {
	if m == nil {
		return
	}
	m.jobSkipped.WithLabelValues(name).Inc()
}

func (m *Metrics) observeBatch(s *Summary, finished time.Time) {
	if m == nil {
		return
	}
	m.batchJobs.WithLabelValues("attempted").Set(float64(s.Attempted))
	m.batchJobs.WithLabelValues("succeeded").Set(float64(s.Succeeded))
	m.batchJobs.WithLabelValues("failed").Set(float64(s.Failed))
	m.batchJobs.WithLabelValues("skipped").Set(float64(len(s.Skipped)))
	m.batchDuration.Set(s.Duration.Seconds())
	m.lastBatch.Set(float64(finished.Unix()))
}
