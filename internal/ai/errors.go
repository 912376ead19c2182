package ai

import (
	"errors"
	"fmt"
	"strings"
)

// APIError is a non-2xx response from the LLM provider. Keeping the
// status code lets callers decide which failures are worth retrying.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm api status %d: %s", e.StatusCode, e.Body)
}

// IsRetryable reports whether err looks like a transient provider
// failure: rate limiting, overload, or quota pressure. Anything else
// (bad request, auth, parse errors) should propagate immediately.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 500, 502, 503, 529:
			return true
		}
		body := strings.ToLower(apiErr.Body)
		return strings.Contains(body, "rate limit") ||
			strings.Contains(body, "overloaded") ||
			strings.Contains(body, "quota")
	}
	return false
}
