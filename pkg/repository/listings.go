package repository

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/localpulse/jobs/pkg/models"
)

// FetchUnpublishedPosts returns posts that are neither published nor rejected,
// have a message, and were created after createdAfter. Oldest first.
func (q *Queries) FetchUnpublishedPosts(ctx context.Context, createdAfter time.Time, limit int) ([]models.ListingPost, error) {
	const query = `SELECT p.id, p.tenant, l.account_id, p.location_id, p.message,
			p.media_url, p.call_to_action_url, p.published, p.rejected, p.created_at
		FROM listing_posts p
		JOIN listing_locations l ON l.location_id = p.location_id
		WHERE NOT p.published AND NOT p.rejected
		  AND btrim(p.message) <> ''
		  AND p.created_at > $1
		ORDER BY p.created_at ASC
		LIMIT $2`

	start := time.Now()
	rows, err := q.db.Query(ctx, query, createdAfter, limit)
	if err != nil {
		q.observe("select_unpublished", "listing_posts", 0, start, err)
		return nil, errors.Wrap(err, "failed to query unpublished posts")
	}
	defer rows.Close()

	var posts []models.ListingPost
	for rows.Next() {
		var p models.ListingPost
		if err := rows.Scan(&p.ID, &p.Tenant, &p.AccountID, &p.LocationID, &p.Message,
			&p.MediaURL, &p.CallToActionURL, &p.Published, &p.Rejected, &p.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan listing post")
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate listing posts")
	}

	q.observe("select_unpublished", "listing_posts", len(posts), start, nil)
	return posts, nil
}

func (q *Queries) MarkPostPublished(ctx context.Context, id uuid.UUID, externalID string) error {
	const query = `UPDATE listing_posts
		SET published = TRUE, published_at = now(), external_id = $2
		WHERE id = $1`

	start := time.Now()
	tag, err := q.db.Exec(ctx, query, id, externalID)
	q.observe("mark_published", "listing_posts", int(tag.RowsAffected()), start, err)
	return errors.Wrapf(err, "failed to mark post %s published", id)
}

func (q *Queries) MarkPostRejected(ctx context.Context, id uuid.UUID, reason string) error {
	const query = `UPDATE listing_posts SET rejected = TRUE, rejection_reason = $2 WHERE id = $1`

	start := time.Now()
	tag, err := q.db.Exec(ctx, query, id, reason)
	q.observe("mark_rejected", "listing_posts", int(tag.RowsAffected()), start, err)
	return errors.Wrapf(err, "failed to mark post %s rejected", id)
}

func (q *Queries) ActiveLocations(ctx context.Context, limit int) ([]models.Location, error) {
	const query = `SELECT location_id, account_id, tenant
		FROM listing_locations WHERE active ORDER BY location_id LIMIT $1`

	rows, err := q.db.Query(ctx, query, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query active locations")
	}
	defer rows.Close()

	var locations []models.Location
	for rows.Next() {
		var l models.Location
		if err := rows.Scan(&l.LocationID, &l.AccountID, &l.Tenant); err != nil {
			return nil, errors.Wrap(err, "failed to scan location")
		}
		locations = append(locations, l)
	}
	return locations, errors.Wrap(rows.Err(), "failed to iterate locations")
}

// UpsertReview stores a review and reports whether it was new. Updates keep
// the alerted flag.
func (q *Queries) UpsertReview(ctx context.Context, r models.Review) (bool, error) {
	const query = `INSERT INTO listing_reviews
			(review_id, location_id, tenant, rating, comment, reviewer, review_time, reply)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (review_id) DO UPDATE SET
			rating = EXCLUDED.rating,
			comment = EXCLUDED.comment,
			reply = EXCLUDED.reply,
			synced_at = now()
		RETURNING (xmax = 0)`

	start := time.Now()
	var inserted bool
	err := q.db.QueryRow(ctx, query, r.ReviewID, r.LocationID, r.Tenant, r.Rating,
		r.Comment, r.Reviewer, r.ReviewTime, r.Reply).Scan(&inserted)
	q.observe("upsert", "listing_reviews", 1, start, err)
	if err != nil {
		return false, errors.Wrapf(err, "failed to upsert review %s", r.ReviewID)
	}
	return inserted, nil
}

// PendingNegativeReviews lists reviews at or below maxRating that have not
// been alerted yet
func (q *Queries) PendingNegativeReviews(ctx context.Context, locationID string, maxRating int) ([]models.Review, error) {
	const query = `SELECT review_id, location_id, tenant, rating, comment, reviewer, review_time, reply, alerted
		FROM listing_reviews
		WHERE location_id = $1 AND rating <= $2 AND NOT alerted
		ORDER BY review_time ASC`

	rows, err := q.db.Query(ctx, query, locationID, maxRating)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query negative reviews")
	}
	defer rows.Close()

	var reviews []models.Review
	for rows.Next() {
		var r models.Review
		if err := rows.Scan(&r.ReviewID, &r.LocationID, &r.Tenant, &r.Rating, &r.Comment,
			&r.Reviewer, &r.ReviewTime, &r.Reply, &r.Alerted); err != nil {
			return nil, errors.Wrap(err, "failed to scan review")
		}
		reviews = append(reviews, r)
	}
	return reviews, errors.Wrap(rows.Err(), "failed to iterate reviews")
}

func (q *Queries) MarkReviewAlerted(ctx context.Context, reviewID string) error {
	_, err := q.db.Exec(ctx, `UPDATE listing_reviews SET alerted = TRUE WHERE review_id = $1`, reviewID)
	return errors.Wrapf(err, "failed to mark review %s alerted", reviewID)
}
