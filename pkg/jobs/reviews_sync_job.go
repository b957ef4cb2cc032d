package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/localpulse/jobs/pkg/alerts"
	"github.com/localpulse/jobs/pkg/logger"
	"github.com/localpulse/jobs/pkg/models"
	"github.com/localpulse/jobs/pkg/store"
)

const ReviewsSyncJobName = "listings.reviews.sync"

const maxReviewPages = 10

type ReviewsRepository interface {
	ActiveLocations(ctx context.Context, limit int) ([]models.Location, error)
	UpsertReview(ctx context.Context, r models.Review) (bool, error)
	PendingNegativeReviews(ctx context.Context, locationID string, maxRating int) ([]models.Review, error)
	MarkReviewAlerted(ctx context.Context, reviewID string) error
}

type ReviewLister interface {
	ListReviews(ctx context.Context, accountID, locationID, pageToken string) (*models.ReviewsPage, error)
}

// ReviewsSyncJob mirrors platform reviews per location and alerts once on
// each low-rated review
type ReviewsSyncJob struct {
	repo   ReviewsRepository
	lister ReviewLister
	store  store.ConfigStore
	sink   alerts.Sink
}

func NewReviewsSyncJob(repo ReviewsRepository, lister ReviewLister, s store.ConfigStore, sink alerts.Sink) *ReviewsSyncJob {
	return &ReviewsSyncJob{repo: repo, lister: lister, store: s, sink: sink}
}

func (j *ReviewsSyncJob) Name() string {
	return ReviewsSyncJobName
}

func (j *ReviewsSyncJob) Execute(ctx context.Context) (*Result, error) {
	params, err := LoadParams(ctx, j.store, j.Name())
	if err != nil {
		return nil, err
	}
	maxRating := params.Int("alert_max_rating", 2)
	limit := params.BatchSize()

	return Pipeline[models.Location]{
		Name: j.Name(),
		Fetch: func(ctx context.Context) ([]models.Location, error) {
			return j.repo.ActiveLocations(ctx, limit)
		},
		Effect: func(ctx context.Context, loc models.Location) error {
			return j.syncLocation(ctx, loc, maxRating)
		},
		Key: func(l models.Location) string { return l.LocationID },
	}.Run(ctx)
}

func (j *ReviewsSyncJob) syncLocation(ctx context.Context, loc models.Location, maxRating int) error {
	log := logger.WithContext(ctx, j.Name()).WithTenant(loc.Tenant)

	inserted, skipped := 0, 0
	pageToken := ""
	for page := 0; page < maxReviewPages; page++ {
		resp, err := j.lister.ListReviews(ctx, loc.AccountID, loc.LocationID, pageToken)
		if err != nil {
			return err
		}

		for _, pr := range resp.Reviews {
			review, err := toReview(loc, pr)
			if err != nil {
				skipped++
				log.Warn().
					Err(err).
					Str("action", "review_skipped").
					Str("review_id", pr.ReviewID).
					Msg("Skipping malformed review")
				continue
			}
			isNew, err := j.repo.UpsertReview(ctx, review)
			if err != nil {
				return err
			}
			if isNew {
				inserted++
			}
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	alerted, err := j.alertNegative(ctx, loc, maxRating)
	if err != nil {
		return err
	}

	log.Info().
		Str("action", "reviews_synced").
		Str("location_id", loc.LocationID).
		Int("inserted", inserted).
		Int("skipped", skipped).
		Int("alerted", alerted).
		Msg("Location reviews synced")
	return nil
}

// alertNegative raises one alert per pending low rating, then flags it so the
// next run does not alert again
func (j *ReviewsSyncJob) alertNegative(ctx context.Context, loc models.Location, maxRating int) (int, error) {
	if j.sink == nil {
		return 0, nil
	}
	pending, err := j.repo.PendingNegativeReviews(ctx, loc.LocationID, maxRating)
	if err != nil {
		return 0, err
	}

	alerted := 0
	for _, r := range pending {
		priority := alerts.PriorityMedium
		if r.Rating <= 1 {
			priority = alerts.PriorityHigh
		}
		alert := alerts.New(
			fmt.Sprintf("Reseña de %d estrella(s)", r.Rating),
			"negative_review",
			r.Tenant,
			TruncateMessage(r.Comment, MaxErrorLength),
			map[string]any{
				"review_id":   r.ReviewID,
				"location_id": r.LocationID,
				"rating":      r.Rating,
				"reviewer":    r.Reviewer,
			},
			priority,
		)
		if err := j.sink.RaiseAlert(ctx, alert); err != nil {
			return alerted, err
		}
		if err := j.repo.MarkReviewAlerted(ctx, r.ReviewID); err != nil {
			return alerted, err
		}
		alerted++
	}
	return alerted, nil
}

func toReview(loc models.Location, pr models.PlatformReview) (models.Review, error) {
	stars := pr.Stars()
	if pr.ReviewID == "" || stars == 0 {
		return models.Review{}, errors.Newf("review %q has no id or rating %q", pr.ReviewID, pr.StarRating)
	}
	at, err := time.Parse(time.RFC3339Nano, pr.CreateTime)
	if err != nil {
		return models.Review{}, errors.Wrapf(err, "review %s create time", pr.ReviewID)
	}

	r := models.Review{
		ReviewID:   pr.ReviewID,
		LocationID: loc.LocationID,
		Tenant:     loc.Tenant,
		Rating:     stars,
		Comment:    pr.Comment,
		Reviewer:   pr.Reviewer.DisplayName,
		ReviewTime: at,
	}
	if pr.ReviewReply != nil {
		reply := pr.ReviewReply.Comment
		r.Reply = &reply
	}
	return r, nil
}
