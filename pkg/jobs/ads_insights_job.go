package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/localpulse/jobs/pkg/alerts"
	"github.com/localpulse/jobs/pkg/logger"
	"github.com/localpulse/jobs/pkg/models"
	"github.com/localpulse/jobs/pkg/store"
)

const AdsInsightsJobName = "ads.insights.daily"

type InsightsRepository interface {
	ActiveAdAccounts(ctx context.Context, limit int) ([]models.AdAccount, error)
	UpsertInsight(ctx context.Context, in models.AdInsight) error
}

type InsightsFetcher interface {
	GetDailyInsights(ctx context.Context, accountID string, day time.Time) ([]models.AdInsight, error)
}

// AdsInsightsJob stores yesterday's campaign numbers for every active ad
// account. Re-running a day overwrites it.
type AdsInsightsJob struct {
	repo    InsightsRepository
	fetcher InsightsFetcher
	store   store.ConfigStore
	sink    alerts.Sink
	now     func() time.Time
}

func NewAdsInsightsJob(repo InsightsRepository, fetcher InsightsFetcher, s store.ConfigStore, sink alerts.Sink) *AdsInsightsJob {
	return &AdsInsightsJob{repo: repo, fetcher: fetcher, store: s, sink: sink, now: time.Now}
}

func (j *AdsInsightsJob) Name() string {
	return AdsInsightsJobName
}

func (j *AdsInsightsJob) Execute(ctx context.Context) (*Result, error) {
	params, err := LoadParams(ctx, j.store, j.Name())
	if err != nil {
		return nil, err
	}
	limit := params.BatchSize()
	maxErrorRate := params.Float("max_error_rate", 0.5)
	day := reportDay(j.now(), params.Int("days_back", 1))

	res, err := Pipeline[models.AdAccount]{
		Name: j.Name(),
		Fetch: func(ctx context.Context) ([]models.AdAccount, error) {
			return j.repo.ActiveAdAccounts(ctx, limit)
		},
		Effect: func(ctx context.Context, acc models.AdAccount) error {
			return j.syncAccount(ctx, acc, day)
		},
		Key: func(a models.AdAccount) string { return a.AccountID },
	}.Run(ctx)
	if err != nil {
		return res, err
	}

	if res.Processed > 0 {
		rate := float64(res.Failed) / float64(res.Processed)
		if rate > maxErrorRate {
			j.alertErrorRate(ctx, res, rate, day)
		}
	}
	return res, nil
}

func (j *AdsInsightsJob) syncAccount(ctx context.Context, acc models.AdAccount, day time.Time) error {
	insights, err := j.fetcher.GetDailyInsights(ctx, acc.AccountID, day)
	if err != nil {
		return err
	}

	for _, in := range insights {
		in.Tenant = acc.Tenant
		if err := j.repo.UpsertInsight(ctx, in); err != nil {
			return err
		}
	}

	logger.WithContext(ctx, j.Name()).WithTenant(acc.Tenant).Debug().
		Str("action", "insights_synced").
		Str("account_id", acc.AccountID).
		Int("campaigns", len(insights)).
		Msg("Account insights synced")
	return nil
}

func (j *AdsInsightsJob) alertErrorRate(ctx context.Context, res *Result, rate float64, day time.Time) {
	if j.sink == nil {
		return
	}
	alert := alerts.New(
		"Error elevado sincronizando anuncios",
		"ads_sync_errors",
		alerts.SystemTenant,
		fmt.Sprintf("%d de %d cuentas fallaron (%.0f%%) para %s", res.Failed, res.Processed, rate*100, day.Format("2006-01-02")),
		map[string]any{"failed": res.Failed, "processed": res.Processed, "day": day.Format("2006-01-02")},
		alerts.PriorityHigh,
	)
	if err := j.sink.RaiseAlert(ctx, alert); err != nil {
		logger.WithContext(ctx, j.Name()).Warn().
			Err(err).
			Str("action", "alert_failed").
			Msg("Failed to raise ads error-rate alert")
	}
}

// reportDay is the UTC calendar day daysBack days before now
func reportDay(now time.Time, daysBack int) time.Time {
	if daysBack < 0 {
		daysBack = 1
	}
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -daysBack)
}
