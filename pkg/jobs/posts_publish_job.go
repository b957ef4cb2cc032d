package jobs

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/localpulse/jobs/pkg/alerts"
	"github.com/localpulse/jobs/pkg/logger"
	"github.com/localpulse/jobs/pkg/models"
	"github.com/localpulse/jobs/pkg/services"
	"github.com/localpulse/jobs/pkg/store"
)

const PostsPublishJobName = "listings.posts.publish"

// PostsRepository is the slice of the repository the publish job needs
type PostsRepository interface {
	FetchUnpublishedPosts(ctx context.Context, createdAfter time.Time, limit int) ([]models.ListingPost, error)
	MarkPostPublished(ctx context.Context, id uuid.UUID, externalID string) error
	MarkPostRejected(ctx context.Context, id uuid.UUID, reason string) error
}

// PostPublisher creates posts on the listings platform
type PostPublisher interface {
	CreateLocalPost(ctx context.Context, accountID, locationID string, req models.LocalPostRequest) (*models.LocalPost, error)
}

// PostsPublishJob publishes drafted posts to the listings platform. A post
// leaves the candidate set once it is marked published or rejected.
type PostsPublishJob struct {
	repo      PostsRepository
	publisher PostPublisher
	store     store.ConfigStore
	sink      alerts.Sink
	now       func() time.Time
}

func NewPostsPublishJob(repo PostsRepository, publisher PostPublisher, s store.ConfigStore, sink alerts.Sink) *PostsPublishJob {
	return &PostsPublishJob{repo: repo, publisher: publisher, store: s, sink: sink, now: time.Now}
}

func (j *PostsPublishJob) Name() string {
	return PostsPublishJobName
}

func (j *PostsPublishJob) Execute(ctx context.Context) (*Result, error) {
	params, err := LoadParams(ctx, j.store, j.Name())
	if err != nil {
		return nil, err
	}
	cutoff := j.now().AddDate(0, 0, -params.Int("cutoff_days", 7))
	limit := params.BatchSize()

	return Pipeline[models.ListingPost]{
		Name: j.Name(),
		Fetch: func(ctx context.Context) ([]models.ListingPost, error) {
			return j.repo.FetchUnpublishedPosts(ctx, cutoff, limit)
		},
		Filter: func(p models.ListingPost) bool {
			return !p.Published && !p.Rejected &&
				strings.TrimSpace(p.Message) != "" &&
				p.CreatedAt.After(cutoff)
		},
		Effect: j.publish,
		Key:    func(p models.ListingPost) string { return p.ID.String() },
	}.Run(ctx)
}

func (j *PostsPublishJob) publish(ctx context.Context, p models.ListingPost) error {
	log := logger.WithContext(ctx, j.Name()).WithTenant(p.Tenant)

	created, err := j.publisher.CreateLocalPost(ctx, p.AccountID, p.LocationID, buildLocalPost(p))
	if err != nil {
		// Only a refused payload is final; any other failure leaves the post
		// eligible for the next run.
		if apiErr, ok := services.AsAPIError(err); ok && apiErr.IsContentRefusal() {
			return j.reject(ctx, p, apiErr.Body, err)
		}
		return err
	}
	if created.State == models.LocalPostStateRejected {
		return j.reject(ctx, p, "post rejected by platform review", errors.Newf("post %s rejected", p.ID))
	}

	if err := j.repo.MarkPostPublished(ctx, p.ID, created.Name); err != nil {
		return err
	}

	log.Info().
		Str("action", "post_published").
		Str("post_id", p.ID.String()).
		Str("external_id", created.Name).
		Msg("Post published")
	return nil
}

// reject marks the post so it is not retried and alerts the tenant. cause is
// returned so the row still counts as failed.
func (j *PostsPublishJob) reject(ctx context.Context, p models.ListingPost, reason string, cause error) error {
	reason = TruncateMessage(reason, MaxErrorLength)
	if err := j.repo.MarkPostRejected(ctx, p.ID, reason); err != nil {
		return errors.CombineErrors(cause, err)
	}

	if j.sink != nil {
		alert := alerts.New(
			"Publicación rechazada",
			"post_rejected",
			p.Tenant,
			reason,
			map[string]any{"post_id": p.ID.String(), "location_id": p.LocationID},
			alerts.PriorityHigh,
		)
		if err := j.sink.RaiseAlert(ctx, alert); err != nil {
			logger.WithContext(ctx, j.Name()).Warn().
				Err(err).
				Str("action", "alert_failed").
				Str("post_id", p.ID.String()).
				Msg("Failed to raise rejection alert")
		}
	}
	return cause
}

func buildLocalPost(p models.ListingPost) models.LocalPostRequest {
	req := models.LocalPostRequest{
		LanguageCode: "es",
		Summary:      strings.TrimSpace(p.Message),
		TopicType:    "STANDARD",
	}
	if p.MediaURL != "" {
		req.Media = []models.LocalPostMedia{{MediaFormat: "PHOTO", SourceURL: p.MediaURL}}
	}
	if p.CallToActionURL != "" {
		req.CallToAction = &models.LocalPostCTA{ActionType: "LEARN_MORE", URL: p.CallToActionURL}
	}
	return req
}
