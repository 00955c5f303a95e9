package ai

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrRateLimited indicates that a provider throttled the request (HTTP 429).
// It is the only provider condition treated as transient.
var ErrRateLimited = errors.New("rate limited")

// StatusError is returned by HTTP-backed providers for any non-success response.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Is reports 429 responses as ErrRateLimited.
func (e *StatusError) Is(target error) bool {
	return target == ErrRateLimited && e.StatusCode == http.StatusTooManyRequests
}

// IsRateLimited reports whether err signals provider throttling.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
