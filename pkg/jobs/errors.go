package jobs

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// MaxErrorLength caps error text stored in last_error and sent to chat
const MaxErrorLength = 300

var (
	// ErrUnknownJob means a name did not resolve in the registry
	ErrUnknownJob = errors.New("unknown job")
	// ErrJobTimeout marks a job whose context deadline expired
	ErrJobTimeout = errors.New("job timed out")
	// ErrJobPanicked marks a job that panicked instead of returning
	ErrJobPanicked = errors.New("job panicked")
)

// TruncateError returns the error message clipped to MaxErrorLength runes
func TruncateError(err error) string {
	if err == nil {
		return ""
	}
	return TruncateMessage(err.Error(), MaxErrorLength)
}

// TruncateMessage clips s to n runes, marking the cut with "..."
func TruncateMessage(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
