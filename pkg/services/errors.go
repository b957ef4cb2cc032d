package services

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
)

// maxErrorBody bounds how much of an upstream response ends up in errors and logs
const maxErrorBody = 512

var (
	// ErrCircuitOpen is returned when the breaker for a platform rejects a call
	ErrCircuitOpen = errors.New("circuit breaker open")
	// ErrSyncTokenExpired is returned by the calendar API (410 Gone) when an
	// incremental sync token is no longer valid
	ErrSyncTokenExpired = errors.New("sync token expired")
)

// ConfigError reports a missing credential or setting. It is raised before
// any network call is made.
type ConfigError struct {
	Setting string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing required setting %s", e.Setting)
}

// RequireSetting returns a ConfigError when value is blank
func RequireSetting(setting, value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.WithStack(&ConfigError{Setting: setting})
	}
	return nil
}

// IsConfigError reports whether err carries a ConfigError
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// APIError is a non-2xx response from a third-party API
type APIError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d) from %s %s: %s", e.StatusCode, e.Method, e.Endpoint, e.Body)
}

// IsClientError reports a 4xx response; those mean the request itself was
// refused and retrying the same payload will not help.
func (e *APIError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// IsRateLimit reports a 429 response
func (e *APIError) IsRateLimit() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsAuthError reports a 401 or 403: the credential was refused, not the
// payload, so every other call made with it will fail the same way.
func (e *APIError) IsAuthError() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsContentRefusal reports a 400 or 422: the platform refused this payload
func (e *APIError) IsContentRefusal() bool {
	return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity
}

// AsAPIError extracts an APIError from err
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsAuthError reports whether err carries an APIError with a refused credential
func IsAuthError(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.IsAuthError()
}

// truncate clips s to n runes so a multi-byte character is never split
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
