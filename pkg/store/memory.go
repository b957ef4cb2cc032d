package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps job configs in process. It backs local runs
// (STORE_DRIVER=memory) and tests; Now doubles as the store clock.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]*JobConfig
	Now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows: make(map[string]*JobConfig),
		Now:  func() time.Time { return time.Now().UTC() },
	}
}

// Put inserts or replaces a row verbatim
func (m *MemoryStore) Put(cfg JobConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[cfg.JobName] = cfg.clone()
}

func (m *MemoryStore) FetchDueJobs(ctx context.Context) ([]JobConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.Now()
	due := make([]JobConfig, 0)
	for _, row := range m.rows {
		if row.IsDue(now) {
			due = append(due, *row.clone())
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].JobName < due[j].JobName })
	return due, nil
}

func (m *MemoryStore) MarkExecuted(ctx context.Context, jobName string, success bool, errMsg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[jobName]
	if !ok {
		return ErrNotFound
	}

	now := m.Now()
	next := now.Add(row.Interval())
	row.LastRunAt = &now
	row.NextRunAt = &next
	row.UpdatedAt = now
	if success {
		row.LastStatus = StatusSuccess
		row.LastError = nil
	} else {
		row.LastStatus = StatusFailed
		row.LastError = &LastError{Message: errMsg, At: now}
	}
	return nil
}

func (m *MemoryStore) GetConfig(ctx context.Context, jobName string) (*JobConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[jobName]
	if !ok {
		return nil, ErrNotFound
	}
	return row.clone(), nil
}

func (m *MemoryStore) SetEnabled(ctx context.Context, jobName string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[jobName]
	if !ok {
		return ErrNotFound
	}
	row.Enabled = enabled
	row.UpdatedAt = m.Now()
	return nil
}

func (m *MemoryStore) SetInterval(ctx context.Context, jobName string, minutes int) error {
	if err := validateInterval(minutes); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[jobName]
	if !ok {
		return ErrNotFound
	}
	row.ScheduleIntervalMinutes = minutes
	row.UpdatedAt = m.Now()
	return nil
}

func (m *MemoryStore) Upsert(ctx context.Context, cfg JobConfig) error {
	if err := validateInterval(cfg.ScheduleIntervalMinutes); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.Now()
	if row, ok := m.rows[cfg.JobName]; ok {
		row.ScheduleIntervalMinutes = cfg.ScheduleIntervalMinutes
		row.Parameters = cfg.clone().Parameters
		row.UpdatedAt = now
		return nil
	}

	row := cfg.clone()
	row.LastRunAt, row.NextRunAt, row.LastError = nil, nil, nil
	row.CreatedAt, row.UpdatedAt = now, now
	m.rows[cfg.JobName] = row
	return nil
}
