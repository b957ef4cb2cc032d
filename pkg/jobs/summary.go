package jobs

import (
	"fmt"
	"strings"
	"time"
)

// Failure is one failed job of a batch
type Failure struct {
	Job   string `json:"job"`
	Error string `json:"error"`
}

// Summary describes one batch run. Skipped jobs were due but not registered
// and do not count as attempted.
type Summary struct {
	BatchID   string             `json:"batch_id"`
	StartedAt time.Time          `json:"started_at"`
	Duration  time.Duration      `json:"duration"`
	Attempted int                `json:"attempted"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
	Skipped   []string           `json:"skipped,omitempty"`
	Failures  []Failure          `json:"failures,omitempty"`
	Results   map[string]*Result `json:"results,omitempty"`
}

func newSummary(batchID string, startedAt time.Time) *Summary {
	return &Summary{
		BatchID:   batchID,
		StartedAt: startedAt,
		Results:   make(map[string]*Result),
	}
}

func (s *Summary) recordSuccess(name string, res *Result) {
	s.Attempted++
	s.Succeeded++
	if res != nil {
		s.Results[name] = res
	}
}

func (s *Summary) recordFailure(name, message string, res *Result) {
	s.Attempted++
	s.Failed++
	s.Failures = append(s.Failures, Failure{Job: name, Error: message})
	if res != nil {
		s.Results[name] = res
	}
}

// FailureMap maps failed job names to their truncated error text
func (s *Summary) FailureMap() map[string]string {
	m := make(map[string]string, len(s.Failures))
	for _, f := range s.Failures {
		m[f.Job] = f.Error
	}
	return m
}

// AllFailed is true when at least one job ran and none succeeded
func (s *Summary) AllFailed() bool {
	return s.Attempted > 0 && s.Succeeded == 0
}

// Message renders the summary as a single chat message
func (s *Summary) Message() string {
	var b strings.Builder

	if s.Failed > 0 {
		fmt.Fprintf(&b, "⚠️ Batch %s: %d/%d jobs failed", shortID(s.BatchID), s.Failed, s.Attempted)
	} else {
		fmt.Fprintf(&b, "✅ Batch %s: %d jobs succeeded", shortID(s.BatchID), s.Succeeded)
	}
	fmt.Fprintf(&b, " (%s)", s.Duration.Round(time.Second))

	for _, f := range s.Failures {
		fmt.Fprintf(&b, "\n• %s: %s", f.Job, f.Error)
	}
	if len(s.Skipped) > 0 {
		fmt.Fprintf(&b, "\nSkipped (not registered): %s", strings.Join(s.Skipped, ", "))
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
