package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSummary_Message(t *testing.T) {
	s := newSummary("0f8fad5b-d9cb-469f-a165-70867728950e", testNow)
	s.recordSuccess("a.sync", &Result{Processed: 2, Succeeded: 2})
	s.recordFailure("b.sync", "upstream unreachable", nil)
	s.Skipped = []string{"orphan.sync"}
	s.Duration = 3 * time.Second

	msg := s.Message()
	assert.Contains(t, msg, "Batch 0f8fad5b: 1/2 jobs failed (3s)")
	assert.Contains(t, msg, "• b.sync: upstream unreachable")
	assert.Contains(t, msg, "Skipped (not registered): orphan.sync")
	assert.False(t, s.AllFailed())
	assert.Equal(t, 2, s.Results["a.sync"].Processed)
}

func TestSummary_AllSucceeded(t *testing.T) {
	s := newSummary("batch", testNow)
	s.recordSuccess("a.sync", nil)

	assert.Contains(t, s.Message(), "1 jobs succeeded")
	assert.Empty(t, s.FailureMap())
	assert.NotContains(t, s.Results, "a.sync")
}

func TestResult_Add(t *testing.T) {
	total := &Result{}
	total.Add(&Result{Processed: 2, Succeeded: 1, Failed: 1})
	total.Add(nil)
	total.Add(&Result{Processed: 1, Succeeded: 1})

	assert.Equal(t, &Result{Processed: 3, Succeeded: 2, Failed: 1}, total)
}
