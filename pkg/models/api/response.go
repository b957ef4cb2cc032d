package api

import "time"

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Database  string            `json:"database,omitempty"`
	Pool      *PoolStatus       `json:"pool,omitempty"`
	Breakers  map[string]string `json:"breakers,omitempty"`
	Jobs      []string          `json:"jobs"`
	LastBatch *BatchStatus      `json:"last_batch,omitempty"`
}

// PoolStatus reports database connection pool usage
type PoolStatus struct {
	AcquireCount  int64 `json:"acquire_count"`
	AcquiredConns int32 `json:"acquired_conns"`
	IdleConns     int32 `json:"idle_conns"`
	MaxConns      int32 `json:"max_conns"`
	TotalConns    int32 `json:"total_conns"`
}

// BatchStatus summarizes the most recent batch run
type BatchStatus struct {
	BatchID         string          `json:"batch_id"`
	StartedAt       time.Time       `json:"started_at"`
	DurationSeconds float64         `json:"duration_seconds"`
	Attempted       int             `json:"attempted"`
	Succeeded       int             `json:"succeeded"`
	Failed          int             `json:"failed"`
	Skipped         []string        `json:"skipped,omitempty"`
	Failures        []FailureStatus `json:"failures,omitempty"`
}

// FailureStatus is one failed job of a batch
type FailureStatus struct {
	Job   string `json:"job"`
	Error string `json:"error"`
}
