package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/localpulse/jobs/pkg/models"
)

// maxInsightPages guards against a paging cursor that never ends
const maxInsightPages = 20

// conversionActions are the action types counted as conversions
var conversionActions = map[string]bool{
	"lead":     true,
	"purchase": true,
	"onsite_conversion.messaging_conversation_started_7d": true,
	"offsite_conversion.fb_pixel_lead":                    true,
}

// AdsClient reads campaign insights from the social-ads platform
type AdsClient struct {
	http        *HTTPClient
	baseURL     string
	apiVersion  string
	accessToken string
}

func NewAdsClient(client *HTTPClient, baseURL, apiVersion, accessToken string) *AdsClient {
	client.Redact(accessToken)
	return &AdsClient{http: client, baseURL: baseURL, apiVersion: apiVersion, accessToken: accessToken}
}

// GetDailyInsights returns campaign-level rows for one day, following paging
func (c *AdsClient) GetDailyInsights(ctx context.Context, accountID string, day time.Time) ([]models.AdInsight, error) {
	if err := RequireSetting("ADS_ACCESS_TOKEN", c.accessToken); err != nil {
		return nil, err
	}

	date := day.Format("2006-01-02")
	timeRange, _ := json.Marshal(map[string]string{"since": date, "until": date})

	q := url.Values{}
	q.Set("level", "campaign")
	q.Set("fields", "campaign_id,campaign_name,impressions,clicks,spend,actions")
	q.Set("time_range", string(timeRange))
	q.Set("limit", "100")
	q.Set("access_token", c.accessToken)

	next := fmt.Sprintf("%s/%s/act_%s/insights?%s", c.baseURL, c.apiVersion, url.PathEscape(strings.TrimPrefix(accountID, "act_")), q.Encode())

	var out []models.AdInsight
	for page := 0; next != "" && page < maxInsightPages; page++ {
		var resp models.InsightsResponse
		if err := c.http.DoJSON(ctx, http.MethodGet, next, nil, nil, &resp); err != nil {
			return nil, err
		}
		for _, row := range resp.Data {
			insight, err := toInsight(accountID, day, row)
			if err != nil {
				return nil, err
			}
			out = append(out, insight)
		}
		next = resp.Paging.Next
	}
	return out, nil
}

func toInsight(accountID string, day time.Time, row models.InsightRow) (models.AdInsight, error) {
	insight := models.AdInsight{
		AccountID:  accountID,
		CampaignID: row.CampaignID,
		Campaign:   row.CampaignName,
		Date:       time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC),
	}
	if row.CampaignID == "" {
		return insight, errors.Newf("insight row without campaign_id for account %s", accountID)
	}

	var err error
	if insight.Impressions, err = parseCount(row.Impressions); err != nil {
		return insight, errors.Wrapf(err, "campaign %s impressions", row.CampaignID)
	}
	if insight.Clicks, err = parseCount(row.Clicks); err != nil {
		return insight, errors.Wrapf(err, "campaign %s clicks", row.CampaignID)
	}
	if row.Spend != "" {
		if insight.Spend, err = strconv.ParseFloat(row.Spend, 64); err != nil {
			return insight, errors.Wrapf(err, "campaign %s spend", row.CampaignID)
		}
	}
	for _, action := range row.Actions {
		if !conversionActions[action.ActionType] {
			continue
		}
		n, err := parseCount(action.Value)
		if err != nil {
			return insight, errors.Wrapf(err, "campaign %s action %s", row.CampaignID, action.ActionType)
		}
		insight.Conversions += n
	}
	return insight, nil
}

func parseCount(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
