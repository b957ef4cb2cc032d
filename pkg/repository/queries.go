// Package repository holds the hand-written queries the concrete jobs run
// against the tenant tables.
package repository

import (
	"time"

	"github.com/localpulse/jobs/pkg/database"
	"github.com/localpulse/jobs/pkg/logger"
)

type Queries struct {
	db     database.DBTX
	logger *logger.Logger
}

func New(db database.DBTX) *Queries {
	return &Queries{db: db, logger: logger.New("repository")}
}

func (q *Queries) observe(operation, table string, rows int, start time.Time, err error) {
	q.logger.LogDatabaseOperation(operation, table, rows, time.Since(start), err)
}
