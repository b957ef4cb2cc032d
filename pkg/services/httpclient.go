package services

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sony/gobreaker"

	"github.com/localpulse/jobs/pkg/logger"
)

const maxResponseBody = 8 << 20

// HTTPConfig configures the shared JSON client used by every platform client
type HTTPConfig struct {
	Name            string
	Timeout         time.Duration
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// HTTPClient sends JSON requests through a per-platform circuit breaker.
// Only transport errors and 5xx responses count as breaker failures.
type HTTPClient struct {
	name    string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *logger.Logger
	secrets []string
}

func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = time.Minute
	}

	log := logger.New(cfg.Name + "-client")
	failures := cfg.BreakerFailures

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    cfg.Name,
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			apiErr, ok := AsAPIError(err)
			return ok && apiErr.IsClientError() && !apiErr.IsRateLimit()
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("action", "breaker_state_change").
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker changed state")
		},
	})

	return &HTTPClient{
		name:    cfg.Name,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
		logger:  log,
	}
}

// Redact masks secret in logged URLs and error endpoints
func (c *HTTPClient) Redact(secret string) {
	if secret != "" {
		c.secrets = append(c.secrets, secret)
	}
}

// BreakerState exposes the breaker state for diagnostics
func (c *HTTPClient) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// DoJSON sends body (if non-nil) as JSON and decodes a 2xx response into out
// (if non-nil). Non-2xx responses become *APIError.
func (c *HTTPClient) DoJSON(ctx context.Context, method, rawURL string, headers map[string]string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to encode request body")
		}
	}

	endpoint := c.endpoint(rawURL)
	start := time.Now()
	status := 0

	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(payload))
		if err != nil {
			return nil, errors.Wrap(err, "failed to build request")
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, errors.Wrapf(err, "request to %s failed", endpoint)
		}
		defer func() { _ = resp.Body.Close() }()
		status = resp.StatusCode

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		if err != nil {
			return nil, errors.Wrap(err, "failed to read response body")
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, errors.WithStack(&APIError{
				Method:     method,
				Endpoint:   endpoint,
				StatusCode: resp.StatusCode,
				Body:       c.redact(truncate(string(data), maxErrorBody)),
			})
		}
		return data, nil
	})

	c.logger.LogAPICall(method, endpoint, status, time.Since(start), err)

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.Mark(errors.Wrapf(err, "%s unavailable", c.name), ErrCircuitOpen)
	}
	if err != nil {
		return err
	}

	data, _ := result.([]byte)
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "failed to decode response from %s: %s", endpoint, truncate(string(data), maxErrorBody))
	}
	return nil
}

// endpoint strips the query string and masks secrets for logs and errors
func (c *HTTPClient) endpoint(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		u.RawQuery = ""
		u.Fragment = ""
		rawURL = u.String()
	}
	return c.redact(rawURL)
}

func (c *HTTPClient) redact(s string) string {
	for _, secret := range c.secrets {
		s = strings.ReplaceAll(s, secret, "***")
	}
	return s
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}
