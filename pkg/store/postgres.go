package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/localpulse/jobs/pkg/database"
	"github.com/localpulse/jobs/pkg/logger"
)

const configColumns = `job_name, enabled, schedule_interval_minutes, last_run_at, next_run_at,
	parameters, last_status, last_error_message, last_error_at, created_at, updated_at`

// PostgresStore implements ConfigStore on a pgx connection. All timestamps
// come from the database clock (now()), never the application host.
type PostgresStore struct {
	db     database.DBTX
	table  string
	logger *logger.Logger
}

// NewPostgresStore creates a store over the given table; an empty table
// name means "job_configs".
func NewPostgresStore(db database.DBTX, table string) *PostgresStore {
	if table == "" {
		table = "job_configs"
	}
	return &PostgresStore{
		db:     db,
		table:  pq.QuoteIdentifier(table),
		logger: logger.New("job-config-store"),
	}
}

func (s *PostgresStore) FetchDueJobs(ctx context.Context) ([]JobConfig, error) {
	start := time.Now()
	query := fmt.Sprintf(`SELECT %s FROM %s
		WHERE enabled = TRUE AND (next_run_at IS NULL OR next_run_at <= now())
		ORDER BY job_name ASC`, configColumns, s.table)

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		s.logger.LogDatabaseOperation("select_due", s.table, 0, time.Since(start), err)
		return nil, errors.Wrap(err, "failed to query due jobs")
	}
	defer rows.Close()

	due := make([]JobConfig, 0)
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		due = append(due, *cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate due jobs")
	}

	s.logger.LogDatabaseOperation("select_due", s.table, len(due), time.Since(start), nil)
	return due, nil
}

func (s *PostgresStore) MarkExecuted(ctx context.Context, jobName string, success bool, errMsg string) error {
	status := StatusSuccess
	var message *string
	if !success {
		status = StatusFailed
		message = &errMsg
	}

	query := fmt.Sprintf(`UPDATE %s SET
			last_run_at = now(),
			next_run_at = now() + make_interval(mins => schedule_interval_minutes),
			last_status = $2,
			last_error_message = $3,
			last_error_at = CASE WHEN $3::text IS NULL THEN NULL ELSE now() END,
			updated_at = now()
		WHERE job_name = $1`, s.table)

	return s.execOne(ctx, "mark_executed", query, jobName, status, message)
}

func (s *PostgresStore) GetConfig(ctx context.Context, jobName string) (*JobConfig, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE job_name = $1`, configColumns, s.table)

	cfg, err := scanConfig(s.db.QueryRow(ctx, query, jobName))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *PostgresStore) SetEnabled(ctx context.Context, jobName string, enabled bool) error {
	query := fmt.Sprintf(`UPDATE %s SET enabled = $2, updated_at = now() WHERE job_name = $1`, s.table)
	return s.execOne(ctx, "set_enabled", query, jobName, enabled)
}

func (s *PostgresStore) SetInterval(ctx context.Context, jobName string, minutes int) error {
	if err := validateInterval(minutes); err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE %s SET schedule_interval_minutes = $2, updated_at = now() WHERE job_name = $1`, s.table)
	return s.execOne(ctx, "set_interval", query, jobName, minutes)
}

func (s *PostgresStore) Upsert(ctx context.Context, cfg JobConfig) error {
	if err := validateInterval(cfg.ScheduleIntervalMinutes); err != nil {
		return err
	}

	params, err := json.Marshal(cfg.Parameters)
	if err != nil {
		return errors.Wrapf(err, "failed to encode parameters for %s", cfg.JobName)
	}
	if cfg.Parameters == nil {
		params = []byte("{}")
	}

	query := fmt.Sprintf(`INSERT INTO %s (job_name, enabled, schedule_interval_minutes, parameters)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (job_name) DO UPDATE SET
			schedule_interval_minutes = EXCLUDED.schedule_interval_minutes,
			parameters = EXCLUDED.parameters,
			updated_at = now()`, s.table)

	start := time.Now()
	_, err = s.db.Exec(ctx, query, cfg.JobName, cfg.Enabled, cfg.ScheduleIntervalMinutes, params)
	s.logger.LogDatabaseOperation("upsert", s.table, 1, time.Since(start), err)
	if err != nil {
		return errors.Wrapf(err, "failed to upsert job config %s", cfg.JobName)
	}
	return nil
}

// execOne runs an UPDATE that must touch exactly one row
func (s *PostgresStore) execOne(ctx context.Context, op, query string, args ...interface{}) error {
	start := time.Now()
	tag, err := s.db.Exec(ctx, query, args...)
	s.logger.LogDatabaseOperation(op, s.table, int(tag.RowsAffected()), time.Since(start), err)
	if err != nil {
		return errors.Wrapf(err, "%s failed for %v", op, args[0])
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(ErrNotFound, "%s: %v", op, args[0])
	}
	return nil
}

func scanConfig(row pgx.Row) (*JobConfig, error) {
	var (
		cfg        JobConfig
		params     []byte
		errMessage *string
		errAt      *time.Time
	)

	err := row.Scan(
		&cfg.JobName, &cfg.Enabled, &cfg.ScheduleIntervalMinutes, &cfg.LastRunAt, &cfg.NextRunAt,
		&params, &cfg.LastStatus, &errMessage, &errAt, &cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan job config")
	}

	if len(params) > 0 {
		if err := json.Unmarshal(params, &cfg.Parameters); err != nil {
			return nil, errors.Wrapf(err, "invalid parameters for job %s", cfg.JobName)
		}
	}
	if errMessage != nil {
		cfg.LastError = &LastError{Message: *errMessage}
		if errAt != nil {
			cfg.LastError.At = *errAt
		}
	}

	return &cfg, nil
}
