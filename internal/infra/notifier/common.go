package notifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

var (
	// ErrMissingAppID is returned by Validate when no application id is configured.
	ErrMissingAppID = errors.New("push provider app id not configured")
	// ErrMissingAPIKey is returned by Validate when no API key is configured.
	ErrMissingAPIKey = errors.New("push provider api key not configured")
	// ErrEmptyTargeting is returned for a filtered notification without filters.
	ErrEmptyTargeting = errors.New("notification has neither broadcast nor filters")
)

// RateLimitError represents a 429 response from the provider.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (retry after %v)", e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded (retry after %v)", e.RetryAfter)
}

// Retryable reports that a rate limited request may be repeated.
func (e *RateLimitError) Retryable() bool { return true }

// RetryAfterHint returns the wait requested by the provider.
func (e *RateLimitError) RetryAfterHint() time.Duration { return e.RetryAfter }

// ClientError represents a 4xx response other than 429.
type ClientError struct {
	StatusCode int
	Message    string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("client error %d: %s", e.StatusCode, e.Message)
}

// Retryable reports true only for 408 Request Timeout.
func (e *ClientError) Retryable() bool {
	return e.StatusCode == http.StatusRequestTimeout
}

// ServerError represents a 5xx response.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Message)
}

// Retryable reports true for provider side failures.
func (e *ServerError) Retryable() bool { return true }

// ResponseError is a 2xx response that could not be parsed or that reports
// provider errors instead of a notification id.
type ResponseError struct {
	StatusCode int
	Message    string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("malformed provider response (status %d): %s", e.StatusCode, e.Message)
}

// Retryable reports false; repeating the request would create duplicates.
func (e *ResponseError) Retryable() bool { return false }

// IsClientFault reports whether err was caused by the request rather than by
// provider availability. Such errors must not trip circuit breakers.
func IsClientFault(err error) bool {
	var clientErr *ClientError
	var respErr *ResponseError
	return errors.As(err, &clientErr) || errors.As(err, &respErr) || errors.Is(err, ErrEmptyTargeting)
}

const defaultRetryAfter = 5 * time.Second

// extractRetryAfter reads the wait from the Retry-After header (seconds or
// HTTP date), then from a JSON retry_after field, defaulting to 5s.
func extractRetryAfter(resp *http.Response, body []byte, now time.Time) time.Duration {
	if h := resp.Header.Get("Retry-After"); h != "" {
		if seconds, err := strconv.Atoi(h); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
		if at, err := http.ParseTime(h); err == nil && at.After(now) {
			return at.Sub(now)
		}
	}

	var payload struct {
		RetryAfter float64 `json:"retry_after"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.RetryAfter > 0 {
		return time.Duration(payload.RetryAfter * float64(time.Second))
	}

	return defaultRetryAfter
}

// truncate shortens provider response bodies kept in error messages.
func truncate(text string, maxLength int) string {
	const suffix = "..."
	if len(text) <= maxLength {
		return text
	}
	cut := maxLength - len(suffix)
	if cut < 0 {
		cut = 0
	}
	return text[:cut] + suffix
}
