package models

// InsightsResponse is one page of the ads insights edge
type InsightsResponse struct {
	Data   []InsightRow `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

// InsightRow holds numeric fields as strings, the way the ads API sends them
type InsightRow struct {
	CampaignID   string          `json:"campaign_id"`
	CampaignName string          `json:"campaign_name"`
	Impressions  string          `json:"impressions"`
	Clicks       string          `json:"clicks"`
	Spend        string          `json:"spend"`
	Actions      []InsightAction `json:"actions"`
	DateStart    string          `json:"date_start"`
}

type InsightAction struct {
	ActionType string `json:"action_type"`
	Value      string `json:"value"`
}
