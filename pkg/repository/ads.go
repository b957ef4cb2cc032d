package repository

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/localpulse/jobs/pkg/models"
)

func (q *Queries) ActiveAdAccounts(ctx context.Context, limit int) ([]models.AdAccount, error) {
	const query = `SELECT account_id, tenant FROM ad_accounts WHERE active ORDER BY account_id LIMIT $1`

	rows, err := q.db.Query(ctx, query, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query ad accounts")
	}
	defer rows.Close()

	var accounts []models.AdAccount
	for rows.Next() {
		var a models.AdAccount
		if err := rows.Scan(&a.AccountID, &a.Tenant); err != nil {
			return nil, errors.Wrap(err, "failed to scan ad account")
		}
		accounts = append(accounts, a)
	}
	return accounts, errors.Wrap(rows.Err(), "failed to iterate ad accounts")
}

// UpsertInsight writes one (account, campaign, day) row; re-running a day
// overwrites its numbers
func (q *Queries) UpsertInsight(ctx context.Context, in models.AdInsight) error {
	const query = `INSERT INTO ad_insights
			(account_id, campaign_id, date, tenant, campaign, impressions, clicks, spend, conversions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (account_id, campaign_id, date) DO UPDATE SET
			campaign = EXCLUDED.campaign,
			impressions = EXCLUDED.impressions,
			clicks = EXCLUDED.clicks,
			spend = EXCLUDED.spend,
			conversions = EXCLUDED.conversions,
			synced_at = now()`

	start := time.Now()
	_, err := q.db.Exec(ctx, query, in.AccountID, in.CampaignID, in.Date, in.Tenant, in.Campaign,
		in.Impressions, in.Clicks, in.Spend, in.Conversions)
	q.observe("upsert", "ad_insights", 1, start, err)
	return errors.Wrapf(err, "failed to upsert insight %s/%s", in.AccountID, in.CampaignID)
}
