package graph

import (
	"errors"
	"fmt"
	"net/http"
)

// AuthenticationError means a bearer token could not be acquired for a
// resource audience, or the identity layer handed back an empty token.
// Always fatal to the run; never retried.
type AuthenticationError struct {
	Audience string
	Err      error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to authenticate for %s: %v", e.Audience, e.Err)
	}
	return fmt.Sprintf("failed to authenticate for %s", e.Audience)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// RequestError is the terminal outcome of an HTTP exchange. Retryable
// records how the status was classified at the HTTP boundary: true for
// throttling and server errors (the request was retried until the policy ran
// out), false for everything else (failed on the first attempt). A zero
// StatusCode means the failure happened below HTTP, e.g. a connection error.
type RequestError struct {
	StatusCode int
	Message    string
	Retryable  bool
	Attempts   int
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("request failed: %s", e.Message)
	}
	if e.Attempts > 1 {
		return fmt.Sprintf("request failed with status %d after %d attempts: %s", e.StatusCode, e.Attempts, e.Message)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
}

func (e *RequestError) Unwrap() error { return e.Err }

// PageFetchError wraps a failure on one page of a paginated collection. A
// missing page would silently under-report the working set, so any page
// failure aborts the whole collection.
type PageFetchError struct {
	Page int
	URI  string
	Err  error
}

func (e *PageFetchError) Error() string {
	return fmt.Sprintf("failed to fetch page %d: %v", e.Page, e.Err)
}

func (e *PageFetchError) Unwrap() error { return e.Err }

// IsThrottled reports whether err carries an HTTP 429 from the upstream API.
func IsThrottled(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.StatusCode == http.StatusTooManyRequests
}

// IsNotFound reports whether err carries an HTTP 404.
func IsNotFound(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.StatusCode == http.StatusNotFound
}

// retryableStatus classifies a status once, where the response is received.
// Throttling and server errors retry; everything else fails immediately.
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
