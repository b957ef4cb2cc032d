package repository

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/localpulse/jobs/pkg/models"
)

func (q *Queries) ActiveCalendarLinks(ctx context.Context, limit int) ([]models.CalendarLink, error) {
	const query = `SELECT calendar_id, tenant, sync_token FROM calendar_links
		WHERE active ORDER BY calendar_id LIMIT $1`

	rows, err := q.db.Query(ctx, query, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query calendar links")
	}
	defer rows.Close()

	var links []models.CalendarLink
	for rows.Next() {
		var l models.CalendarLink
		if err := rows.Scan(&l.CalendarID, &l.Tenant, &l.SyncToken); err != nil {
			return nil, errors.Wrap(err, "failed to scan calendar link")
		}
		links = append(links, l)
	}
	return links, errors.Wrap(rows.Err(), "failed to iterate calendar links")
}

func (q *Queries) UpsertCalendarEvent(ctx context.Context, e models.CalendarEvent) error {
	const query = `INSERT INTO calendar_events
			(calendar_id, event_id, tenant, summary, status, starts_at, ends_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (calendar_id, event_id) DO UPDATE SET
			summary = EXCLUDED.summary,
			status = EXCLUDED.status,
			starts_at = EXCLUDED.starts_at,
			ends_at = EXCLUDED.ends_at,
			updated_at = now()`

	start := time.Now()
	_, err := q.db.Exec(ctx, query, e.CalendarID, e.EventID, e.Tenant, e.Summary, e.Status, e.StartsAt, e.EndsAt)
	q.observe("upsert", "calendar_events", 1, start, err)
	return errors.Wrapf(err, "failed to upsert event %s", e.EventID)
}

// SetSyncToken stores the token for the next incremental sync; nil clears it
// and forces a full resync
func (q *Queries) SetSyncToken(ctx context.Context, calendarID string, token *string) error {
	_, err := q.db.Exec(ctx, `UPDATE calendar_links SET sync_token = $2 WHERE calendar_id = $1`, calendarID, token)
	return errors.Wrapf(err, "failed to store sync token for %s", calendarID)
}
