package models

import "errors"

// Error taxonomy shared across the engine. Callers branch with errors.Is;
// none of these is fatal to the process.
var (
	// ErrValidation covers conditions rejected locally before any network
	// call: empty cart submission, illegal status transitions, unknown
	// products.
	ErrValidation = errors.New("validation failed")

	// ErrStaleState means the server rejected a mutation because the order
	// changed concurrently. Recovery is a full refresh, never a blind retry.
	ErrStaleState = errors.New("stale state conflict")

	// ErrTransient covers timeouts and connectivity failures. The push
	// channel retries these with backoff; one-shot requests surface them
	// with local state untouched.
	ErrTransient = errors.New("transient network failure")

	// ErrNotFound means the requested record does not exist upstream.
	ErrNotFound = errors.New("not found")

	// ErrUnknownStatus flags a status outside the closed enumeration. It
	// disables status-dependent actions for that record but is never fatal.
	ErrUnknownStatus = errors.New("unknown order status")
)
