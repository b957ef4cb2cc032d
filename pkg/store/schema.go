package store

import (
	"context"
	_ "embed"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/lib/pq"

	"github.com/localpulse/jobs/pkg/database"
)

//go:embed schema.sql
var schemaSQL string

// Schema returns the DDL for the scheduler tables with the job config table
// renamed to table.
func Schema(table string) string {
	if table == "" || table == "job_configs" {
		return schemaSQL
	}
	return strings.NewReplacer(
		"job_configs_due_idx", pq.QuoteIdentifier(table+"_due_idx"),
		"job_configs", pq.QuoteIdentifier(table),
	).Replace(schemaSQL)
}

// Migrate applies the schema. Statements are idempotent.
func Migrate(ctx context.Context, db database.DBTX, table string) error {
	if _, err := db.Exec(ctx, Schema(table)); err != nil {
		return errors.Wrap(err, "failed to apply scheduler schema")
	}
	return nil
}
