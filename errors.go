package demoproxy

import "errors"

var (
	// ErrNoSession is returned by a TokenSource when the caller has no session
	ErrNoSession = errors.New("no session token")

	// ErrRequestInProgress is returned when a request with the same idempotency key is still being processed
	ErrRequestInProgress = errors.New("request with this idempotency key is already in progress")

	// ErrNotFound is returned when no stored response exists for a key
	ErrNotFound = errors.New("stored response not found")

	// ErrLockFailed is returned when the store cannot take a lock for reasons other than contention
	ErrLockFailed = errors.New("failed to acquire lock")
)
