package store

import "time"

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// JobConfig is the persisted scheduling row for one job
type JobConfig struct {
	JobName                 string         `json:"job_name"`
	Enabled                 bool           `json:"enabled"`
	ScheduleIntervalMinutes int            `json:"schedule_interval_minutes"`
	LastRunAt               *time.Time     `json:"last_run_at,omitempty"`
	NextRunAt               *time.Time     `json:"next_run_at,omitempty"`
	Parameters              map[string]any `json:"parameters,omitempty"`
	LastStatus              string         `json:"last_status,omitempty"`
	LastError               *LastError     `json:"last_error,omitempty"`
	CreatedAt               time.Time      `json:"created_at"`
	UpdatedAt               time.Time      `json:"updated_at"`
}

// LastError is kept apart from Parameters so error bookkeeping never
// overwrites operational settings.
type LastError struct {
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Interval returns the schedule interval as a duration
func (c *JobConfig) Interval() time.Duration {
	return time.Duration(c.ScheduleIntervalMinutes) * time.Minute
}

// IsDue reports whether the row is eligible at now. next_run_at == now is due.
func (c *JobConfig) IsDue(now time.Time) bool {
	if !c.Enabled {
		return false
	}
	return c.NextRunAt == nil || !c.NextRunAt.After(now)
}

func (c *JobConfig) clone() *JobConfig {
	cp := *c
	if c.LastRunAt != nil {
		t := *c.LastRunAt
		cp.LastRunAt = &t
	}
	if c.NextRunAt != nil {
		t := *c.NextRunAt
		cp.NextRunAt = &t
	}
	if c.LastError != nil {
		le := *c.LastError
		cp.LastError = &le
	}
	if c.Parameters != nil {
		cp.Parameters = make(map[string]any, len(c.Parameters))
		for k, v := range c.Parameters {
			cp.Parameters[k] = v
		}
	}
	return &cp
}
