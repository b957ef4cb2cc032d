package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/cockroachdb/errors"

	"github.com/localpulse/jobs/pkg/models"
)

// ListingsClient talks to the business-listings platform (posts, reviews)
type ListingsClient struct {
	http        *HTTPClient
	baseURL     string
	accessToken string
}

func NewListingsClient(client *HTTPClient, baseURL, accessToken string) *ListingsClient {
	return &ListingsClient{http: client, baseURL: baseURL, accessToken: accessToken}
}

func (c *ListingsClient) locationURL(accountID, locationID string) string {
	return fmt.Sprintf("%s/accounts/%s/locations/%s", c.baseURL, url.PathEscape(accountID), url.PathEscape(locationID))
}

// CreateLocalPost publishes a post on a location. A post the platform
// refuses outright comes back as a 4xx *APIError; a post it accepts but
// flags comes back with State REJECTED.
func (c *ListingsClient) CreateLocalPost(ctx context.Context, accountID, locationID string, req models.LocalPostRequest) (*models.LocalPost, error) {
	if err := RequireSetting("LISTINGS_ACCESS_TOKEN", c.accessToken); err != nil {
		return nil, err
	}

	var post models.LocalPost
	endpoint := c.locationURL(accountID, locationID) + "/localPosts"
	if err := c.http.DoJSON(ctx, http.MethodPost, endpoint, bearer(c.accessToken), req, &post); err != nil {
		return nil, err
	}
	if post.Name == "" {
		return nil, errors.Newf("create local post for %s returned no post name", locationID)
	}
	return &post, nil
}

// ListReviews returns one page of reviews for a location
func (c *ListingsClient) ListReviews(ctx context.Context, accountID, locationID, pageToken string) (*models.ReviewsPage, error) {
	if err := RequireSetting("LISTINGS_ACCESS_TOKEN", c.accessToken); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("pageSize", "50")
	q.Set("orderBy", "updateTime desc")
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}

	var page models.ReviewsPage
	endpoint := c.locationURL(accountID, locationID) + "/reviews?" + q.Encode()
	if err := c.http.DoJSON(ctx, http.MethodGet, endpoint, bearer(c.accessToken), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}
