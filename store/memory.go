// Package store provides Store implementations for the idempotency middleware.
package store

import (
	"context"
	"sync"
	"time"

	demoproxy "github.com/AnandSundar/go-demoproxy"
)

// DefaultCleanupInterval is how often the memory store drops expired entries.
const DefaultCleanupInterval = time.Minute

// MemoryStore is an in-memory implementation of Store
type MemoryStore struct {
	mu    sync.RWMutex
	data  map[string]*entry
	locks map[string]struct{}
	// locksMu guards locks
	locksMu sync.Mutex

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

type entry struct {
	response  *demoproxy.StoredResponse
	expiresAt time.Time
}

// NewMemoryStore creates a new in-memory store. Call Close to stop its
// cleanup goroutine.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithInterval(DefaultCleanupInterval)
}

// NewMemoryStoreWithInterval creates an in-memory store that sweeps expired
// entries every interval.
func NewMemoryStoreWithInterval(interval time.Duration) *MemoryStore {
	s := &MemoryStore{
		data:  make(map[string]*entry),
		locks: make(map[string]struct{}),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}

	go s.cleanup(interval)

	return s
}

// Get retrieves a stored response
func (s *MemoryStore) Get(_ context.Context, key string) (*demoproxy.StoredResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.data[key]
	if !exists || time.Now().After(e.expiresAt) {
		return nil, demoproxy.ErrNotFound
	}

	return e.response, nil
}

// Set stores a response with TTL
func (s *MemoryStore) Set(_ context.Context, key string, response *demoproxy.StoredResponse, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = &entry{
		response:  response,
		expiresAt: time.Now().Add(ttl),
	}

	return nil
}

// Lock acquires a lock for the given key. It never blocks: a key that is
// already held yields ErrRequestInProgress.
func (s *MemoryStore) Lock(_ context.Context, key string) (func(), error) {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	if _, held := s.locks[key]; held {
		return nil, demoproxy.ErrRequestInProgress
	}
	s.locks[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.locksMu.Lock()
			delete(s.locks, key)
			s.locksMu.Unlock()
		})
	}, nil
}

// Close stops the cleanup goroutine and waits for it to exit
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
	})
	<-s.done
	return nil
}

// cleanup periodically removes expired entries
func (s *MemoryStore) cleanup(interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep(time.Now())
		}
	}
}

func (s *MemoryStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, e := range s.data {
		if now.After(e.expiresAt) {
			delete(s.data, key)
		}
	}
}
