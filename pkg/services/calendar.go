package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/cockroachdb/errors"

	"github.com/localpulse/jobs/pkg/models"
)

// CalendarClient lists events from the calendar service
type CalendarClient struct {
	http        *HTTPClient
	baseURL     string
	accessToken string
}

func NewCalendarClient(client *HTTPClient, baseURL, accessToken string) *CalendarClient {
	return &CalendarClient{http: client, baseURL: baseURL, accessToken: accessToken}
}

// ListEvents returns one page of events. With a syncToken only changes since
// the token was issued are returned; an expired token yields
// ErrSyncTokenExpired and the caller should restart with a full sync.
func (c *CalendarClient) ListEvents(ctx context.Context, calendarID, syncToken, pageToken string) (*models.CalendarEventsPage, error) {
	if err := RequireSetting("CALENDAR_ACCESS_TOKEN", c.accessToken); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("singleEvents", "true")
	q.Set("maxResults", "250")
	q.Set("showDeleted", "true")
	if syncToken != "" {
		q.Set("syncToken", syncToken)
	}
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}

	var page models.CalendarEventsPage
	endpoint := fmt.Sprintf("%s/calendars/%s/events?%s", c.baseURL, url.PathEscape(calendarID), q.Encode())
	err := c.http.DoJSON(ctx, http.MethodGet, endpoint, bearer(c.accessToken), nil, &page)
	if apiErr, ok := AsAPIError(err); ok && apiErr.StatusCode == http.StatusGone {
		return nil, errors.Mark(err, ErrSyncTokenExpired)
	}
	if err != nil {
		return nil, err
	}
	return &page, nil
}
