package models

import (
	"time"

	"github.com/google/uuid"
)

// Location is a business listing the tenant manages on the listings platform
type Location struct {
	LocationID string
	AccountID  string
	Tenant     string
}

// ListingPost is a post drafted in the backoffice waiting to be published
type ListingPost struct {
	ID              uuid.UUID
	Tenant          string
	AccountID       string
	LocationID      string
	Message         string
	MediaURL        string
	CallToActionURL string
	Published       bool
	Rejected        bool
	CreatedAt       time.Time
}

// Review is a customer review pulled from the listings platform
type Review struct {
	ReviewID   string
	LocationID string
	Tenant     string
	Rating     int
	Comment    string
	Reviewer   string
	ReviewTime time.Time
	Reply      *string
	Alerted    bool
}

// AdAccount is an ads platform account linked to a tenant
type AdAccount struct {
	AccountID string
	Tenant    string
}

// AdInsight is one campaign's daily performance row
type AdInsight struct {
	AccountID   string
	CampaignID  string
	Date        time.Time
	Tenant      string
	Campaign    string
	Impressions int64
	Clicks      int64
	Spend       float64
	Conversions int64
}

// CalendarLink is a calendar the tenant connected for syncing
type CalendarLink struct {
	CalendarID string
	Tenant     string
	SyncToken  *string
}

// CalendarEvent mirrors one event of a linked calendar
type CalendarEvent struct {
	CalendarID string
	EventID    string
	Tenant     string
	Summary    string
	Status     string
	StartsAt   *time.Time
	EndsAt     *time.Time
}
