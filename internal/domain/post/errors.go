package post

import (
	"fmt"
	"time"
)

// AdapterErrorKind classifies platform adapter failures.
type AdapterErrorKind string

const (
	// AdapterRateLimited means the remote platform throttled us.
	// The caller must back off at least until RetryAfter.
	AdapterRateLimited AdapterErrorKind = "rate_limited"

	// AdapterAuthFailed means credentials were rejected. Requires
	// operator intervention; the adapter is disabled until refreshed.
	AdapterAuthFailed AdapterErrorKind = "auth_failed"

	// AdapterUnavailable means the platform returned a server error
	// or the call timed out. Retried at the next scheduled tick.
	AdapterUnavailable AdapterErrorKind = "unavailable"

	// AdapterMalformed means a payload could not be mapped. The
	// offending item is skipped and counted, never raised.
	AdapterMalformed AdapterErrorKind = "malformed"
)

// AdapterError is a typed failure from a platform adapter.
type AdapterError struct {
	Platform   Platform
	Kind       AdapterErrorKind
	RetryAfter time.Duration // set when Kind == AdapterRateLimited
	Err        error
}

// Error implements the error interface.
func (e *AdapterError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("adapter %s: %s: %v", e.Platform, e.Kind, e.Err)
	}
	return fmt.Sprintf("adapter %s: %s", e.Platform, e.Kind)
}

// Unwrap returns the underlying error.
func (e *AdapterError) Unwrap() error {
	return e.Err
}

// NewAdapterError creates a typed adapter error.
func NewAdapterError(platform Platform, kind AdapterErrorKind, err error) *AdapterError {
	return &AdapterError{Platform: platform, Kind: kind, Err: err}
}
