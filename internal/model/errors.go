package model

import (
	"errors"
	"fmt"
	"net/http"
)

// Error taxonomy for per-URL fetch outcomes. The worker classifies every
// fetch error into one of these types; the classification decides whether
// the attempt is retried, skipped, or terminally failed. All of them are
// local to one URL and never abort the crawl.

// NetworkError wraps a transport-level failure: DNS resolution, connect,
// TLS, or timeout. Network errors are retryable up to the configured
// retry budget.
type NetworkError struct {
	// URL is the URL whose fetch failed.
	URL string

	// Err is the underlying transport error.
	Err error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error fetching %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError reports a non-2xx HTTP response.
type HTTPError struct {
	// URL is the fetched URL.
	URL string

	// StatusCode is the HTTP status of the response.
	StatusCode int
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d fetching %s", e.StatusCode, e.URL)
}

// Retryable reports whether the status is worth another attempt.
// Server errors and throttling responses (429) retry; other client
// errors are terminal on first sight.
func (e *HTTPError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// ContentTypeError reports a response whose content type is not HTML.
// It maps to a skipped result, not a failure.
type ContentTypeError struct {
	// URL is the fetched URL.
	URL string

	// ContentType is the media type the server returned.
	ContentType string
}

// Error implements the error interface.
func (e *ContentTypeError) Error() string {
	return fmt.Sprintf("unsupported content type %q at %s", e.ContentType, e.URL)
}

// OversizeError reports a response body that exceeded the configured page
// size limit. The fetch is aborted as soon as the limit is crossed; the
// result is a skip, not a failure.
type OversizeError struct {
	// URL is the fetched URL.
	URL string

	// Limit is the configured maximum body size in bytes.
	Limit int64
}

// Error implements the error interface.
func (e *OversizeError) Error() string {
	return fmt.Sprintf("response body for %s exceeds %d bytes", e.URL, e.Limit)
}

// ParseError reports malformed HTML. Link extraction degrades to zero
// links; the page itself still counts as a success.
type ParseError struct {
	// URL is the page whose HTML failed to parse.
	URL string

	// Err is the underlying parser error.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error for %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying parser error.
func (e *ParseError) Unwrap() error { return e.Err }

// IsRetryableError reports whether a fetch attempt that returned err may
// be retried within the worker's retry budget.
func IsRetryableError(err error) bool {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Retryable()
	}
	return false
}
