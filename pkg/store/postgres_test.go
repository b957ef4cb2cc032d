package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localpulse/jobs/pkg/database/dbtest"
)

func configRow(name string, next *time.Time, params string, errMsg *string) []interface{} {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return []interface{}{
		name, true, 30, nil, next,
		[]byte(params), "", errMsg, nil, created, created,
	}
}

func TestPostgresStore_FetchDueJobs(t *testing.T) {
	next := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	db := &dbtest.MockDB{
		QueryFunc: func(query string, args []interface{}) (pgx.Rows, error) {
			return dbtest.NewRows(
				configRow("a.sync", nil, `{"batch_size": 20}`, nil),
				configRow("b.sync", &next, `{}`, nil),
			), nil
		},
	}
	s := NewPostgresStore(db, "")

	due, err := s.FetchDueJobs(context.Background())
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "a.sync", due[0].JobName)
	assert.EqualValues(t, 20, due[0].Parameters["batch_size"])
	assert.Equal(t, next, *due[1].NextRunAt)

	calls := db.Calls()
	require.Len(t, calls, 1)
	q := calls[0].Query
	assert.Contains(t, q, `FROM "job_configs"`)
	assert.Contains(t, q, "enabled = TRUE AND (next_run_at IS NULL OR next_run_at <= now())")
	assert.Contains(t, q, "ORDER BY job_name ASC")
}

func TestPostgresStore_FetchDueJobs_QueryError(t *testing.T) {
	db := &dbtest.MockDB{
		QueryFunc: func(string, []interface{}) (pgx.Rows, error) {
			return nil, errors.New("connection refused")
		},
	}

	_, err := NewPostgresStore(db, "").FetchDueJobs(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestPostgresStore_MarkExecuted(t *testing.T) {
	db := &dbtest.MockDB{}
	s := NewPostgresStore(db, "scheduler jobs")

	require.NoError(t, s.MarkExecuted(context.Background(), "demo.sync", false, "upstream unreachable"))
	require.NoError(t, s.MarkExecuted(context.Background(), "demo.sync", true, "ignored"))

	calls := db.CallsMatching("UPDATE")
	require.Len(t, calls, 2)
	assert.Contains(t, calls[0].Query, `UPDATE "scheduler jobs" SET`)
	assert.Contains(t, calls[0].Query, "next_run_at = now() + make_interval(mins => schedule_interval_minutes)")

	assert.Equal(t, "demo.sync", calls[0].Args[0])
	assert.Equal(t, StatusFailed, calls[0].Args[1])
	require.NotNil(t, calls[0].Args[2])
	assert.Equal(t, "upstream unreachable", *calls[0].Args[2].(*string))

	assert.Equal(t, StatusSuccess, calls[1].Args[1])
	assert.Nil(t, calls[1].Args[2].(*string))
}

func TestPostgresStore_MarkExecuted_NotFound(t *testing.T) {
	db := &dbtest.MockDB{
		ExecFunc: func(string, []interface{}) (pgconn.CommandTag, error) {
			return dbtest.Tag(0), nil
		},
	}

	err := NewPostgresStore(db, "").MarkExecuted(context.Background(), "ghost", true, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_GetConfig(t *testing.T) {
	msg := "token expired"
	db := &dbtest.MockDB{
		QueryRowFunc: func(query string, args []interface{}) pgx.Row {
			if args[0] == "demo.sync" {
				return &dbtest.Row{Values: configRow("demo.sync", nil, `{"cutoff_days": 3}`, &msg)}
			}
			return &dbtest.Row{Err: pgx.ErrNoRows}
		},
	}
	s := NewPostgresStore(db, "")

	cfg, err := s.GetConfig(context.Background(), "demo.sync")
	require.NoError(t, err)
	assert.EqualValues(t, 3, cfg.Parameters["cutoff_days"])
	require.NotNil(t, cfg.LastError)
	assert.Equal(t, "token expired", cfg.LastError.Message)

	_, err = s.GetConfig(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_SetInterval_Validates(t *testing.T) {
	db := &dbtest.MockDB{}
	s := NewPostgresStore(db, "")

	assert.ErrorIs(t, s.SetInterval(context.Background(), "a.sync", -5), ErrInvalidInterval)
	assert.Empty(t, db.Calls())

	require.NoError(t, s.SetInterval(context.Background(), "a.sync", 15))
	require.NoError(t, s.SetEnabled(context.Background(), "a.sync", false))
	assert.Len(t, db.Calls(), 2)
}

func TestPostgresStore_Upsert(t *testing.T) {
	db := &dbtest.MockDB{}
	s := NewPostgresStore(db, "")

	err := s.Upsert(context.Background(), JobConfig{JobName: "a.sync", Enabled: true, ScheduleIntervalMinutes: 10})
	require.NoError(t, err)

	calls := db.Calls()
	require.Len(t, calls, 1)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(calls[0].Query), `INSERT INTO "job_configs"`))
	assert.NotContains(t, calls[0].Query, "enabled = EXCLUDED.enabled")
	assert.Equal(t, []byte("{}"), calls[0].Args[3])
}

func TestSchema_CustomTable(t *testing.T) {
	ddl := Schema("sched_jobs")
	assert.Contains(t, ddl, `CREATE TABLE IF NOT EXISTS "sched_jobs"`)
	assert.Contains(t, ddl, `CREATE INDEX IF NOT EXISTS "sched_jobs_due_idx" ON "sched_jobs"`)
	assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS alertas")
	assert.Contains(t, Schema(""), "CREATE TABLE IF NOT EXISTS job_configs")
}
