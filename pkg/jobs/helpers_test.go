package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/localpulse/jobs/pkg/alerts"
	"github.com/localpulse/jobs/pkg/logger"
	"github.com/localpulse/jobs/pkg/store"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type markCall struct {
	Job     string
	Success bool
	Message string
}

// recordingStore counts MarkExecuted calls on top of a MemoryStore
type recordingStore struct {
	*store.MemoryStore
	mu      sync.Mutex
	marks   []markCall
	markErr error
}

func newRecordingStore(rows ...store.JobConfig) *recordingStore {
	mem := store.NewMemoryStore()
	mem.Now = func() time.Time { return testNow }
	for _, r := range rows {
		mem.Put(r)
	}
	return &recordingStore{MemoryStore: mem}
}

func (s *recordingStore) MarkExecuted(ctx context.Context, name string, success bool, msg string) error {
	s.mu.Lock()
	s.marks = append(s.marks, markCall{Job: name, Success: success, Message: msg})
	s.mu.Unlock()
	if s.markErr != nil {
		return s.markErr
	}
	return s.MemoryStore.MarkExecuted(ctx, name, success, msg)
}

func dueRow(name string, interval int) store.JobConfig {
	return store.JobConfig{JobName: name, Enabled: true, ScheduleIntervalMinutes: interval}
}

type fakeSink struct {
	mu            sync.Mutex
	alerts        []alerts.Alert
	notifications []string
	silent        []bool
	deliver       bool
}

func (f *fakeSink) RaiseAlert(ctx context.Context, a alerts.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, a)
	return nil
}

func (f *fakeSink) SendNotification(ctx context.Context, message string, silent bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, message)
	f.silent = append(f.silent, silent)
	return f.deliver
}

func newTestRegistry() *Registry {
	return NewRegistry(logger.Nop())
}

func ok(calls *int) Func {
	return func(ctx context.Context) (*Result, error) {
		*calls++
		return nil, nil
	}
}
