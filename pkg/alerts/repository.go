package alerts

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lib/pq"

	"github.com/localpulse/jobs/pkg/logger"
)

// Repository stores alerts through database/sql with the lib/pq driver
type Repository struct {
	db     *sql.DB
	logger *logger.Logger
}

// Open connects with the "postgres" driver registered by lib/pq. The pool is
// lazy, so no connection is made until the first query.
func Open(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open alerts database")
	}
	db.SetMaxOpenConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, logger: logger.New("alerts-repository")}
}

func (r *Repository) Insert(ctx context.Context, a Alert) error {
	if err := a.validate(); err != nil {
		return err
	}

	data := []byte("{}")
	if a.Data != nil {
		var err error
		if data, err = json.Marshal(a.Data); err != nil {
			return errors.Wrap(err, "failed to encode alert data")
		}
	}

	const query = `INSERT INTO alertas
		(id, nombre, tipo, tenant, descripcion, data, prioridad, activa, vista, resuelta)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	start := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		a.ID.String(), a.Title, a.Category, a.Tenant, a.Description, string(data),
		string(a.Priority), a.Active, a.Seen, a.Resolved,
	)
	r.logger.LogDatabaseOperation("insert", "alertas", 1, time.Since(start), err)
	if err != nil {
		return errors.Wrapf(err, "failed to insert alert %q", a.Title)
	}
	return nil
}

// CountUnseenByTenant groups active, unseen, unresolved alerts by tenant.
// An empty tenants slice means every tenant.
func (r *Repository) CountUnseenByTenant(ctx context.Context, tenants []string) ([]TenantCount, error) {
	const query = `SELECT tenant, COUNT(*), COUNT(*) FILTER (WHERE prioridad = 'high')
		FROM alertas
		WHERE activa AND NOT vista AND NOT resuelta
		  AND (cardinality($1::text[]) = 0 OR tenant = ANY($1))
		GROUP BY tenant
		ORDER BY tenant`

	if tenants == nil {
		tenants = []string{}
	}

	rows, err := r.db.QueryContext(ctx, query, pq.Array(tenants))
	if err != nil {
		return nil, errors.Wrap(err, "failed to count unseen alerts")
	}
	defer func() { _ = rows.Close() }()

	var counts []TenantCount
	for rows.Next() {
		var c TenantCount
		if err := rows.Scan(&c.Tenant, &c.Count, &c.High); err != nil {
			return nil, errors.Wrap(err, "failed to scan alert count")
		}
		counts = append(counts, c)
	}
	return counts, errors.Wrap(rows.Err(), "failed to iterate alert counts")
}
