package demoproxy

import (
	"context"
	"net/http"
	"time"
)

// Store defines the interface for storing and replaying responses to
// idempotent requests
type Store interface {
	// Get retrieves a stored response by key, or ErrNotFound
	Get(ctx context.Context, key string) (*StoredResponse, error)

	// Set stores a response with the given key and TTL
	Set(ctx context.Context, key string, response *StoredResponse, ttl time.Duration) error

	// Lock acquires a lock for the given key to prevent concurrent processing.
	// It returns ErrRequestInProgress when the key is already held.
	// The returned unlock function must be called to release the lock
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// StoredResponse represents a response kept for replay
type StoredResponse struct {
	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers"`
	Body       []byte      `json:"body"`
	StoredAt   time.Time   `json:"stored_at"`
}
