package service

import (
	"errors"
	"fmt"
)

// ErrUpstream indicates that a downstream service (CKAN or the dataset age
// endpoint) failed or returned an error status.
// API layer should map this to HTTP 502 Bad Gateway.
var ErrUpstream = errors.New("upstream request failed")

// UpstreamError describes a failed call to a downstream service.
type UpstreamError struct {
	// Operation is the call that failed (e.g., "package_list", "update_age")
	Operation string
	// URL is the request target
	URL string
	// StatusCode is the HTTP status received, or 0 when no response arrived
	StatusCode int
	// Err is the transport error, if any
	Err error
}

// Error implements the error interface for UpstreamError.
func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream %s failed: %s: %v", e.Operation, e.URL, e.Err)
	}
	return fmt.Sprintf("upstream %s failed: %s: status %d", e.Operation, e.URL, e.StatusCode)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is reports every UpstreamError as ErrUpstream.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}
