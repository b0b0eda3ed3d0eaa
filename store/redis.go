package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	demoproxy "github.com/AnandSundar/go-demoproxy"
)

const (
	// DefaultKeyPrefix namespaces every key the Redis store writes
	DefaultKeyPrefix = "demoproxy:"
	// LockTTL bounds how long a crashed request can hold a key. A live
	// holder keeps renewing its lock, so slow requests are not affected.
	LockTTL = 30 * time.Second
)

// unlockScript deletes the lock only if it still holds our token, so an
// expired lock re-acquired by another request is left alone.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// refreshScript extends the lock only while it still holds our token.
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisStore is a Redis-backed implementation of Store, shared by every
// proxy replica pointing at the same Redis
type RedisStore struct {
	client  redis.UniversalClient
	prefix  string
	lockTTL time.Duration
}

// RedisOption configures a RedisStore
type RedisOption func(*RedisStore)

// WithLockTTL sets how long a lock survives without renewal. Held locks are
// renewed every third of ttl.
func WithLockTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// NewRedisStore creates a new Redis store
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client:  client,
		prefix:  DefaultKeyPrefix,
		lockTTL: LockTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) replayKey(key string) string { return s.prefix + "replay:" + key }

func (s *RedisStore) lockKey(key string) string { return s.prefix + "lock:" + key }

// Get retrieves a stored response from Redis
func (s *RedisStore) Get(ctx context.Context, key string) (*demoproxy.StoredResponse, error) {
	data, err := s.client.Get(ctx, s.replayKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, demoproxy.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var response demoproxy.StoredResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("decoding stored response: %w", err)
	}

	return &response, nil
}

// Set stores a response in Redis with TTL
func (s *RedisStore) Set(ctx context.Context, key string, response *demoproxy.StoredResponse, ttl time.Duration) error {
	data, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("encoding stored response: %w", err)
	}

	if err := s.client.Set(ctx, s.replayKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Lock acquires a distributed lock using Redis. The lock is renewed in the
// background until unlock is called, so it cannot expire under a request
// that is still running. If the process dies, it expires after the lock TTL.
func (s *RedisStore) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := s.lockKey(key)
	token := uuid.NewString()

	acquired, err := s.client.SetNX(ctx, lockKey, token, s.lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", demoproxy.ErrLockFailed, err)
	}

	if !acquired {
		return nil, demoproxy.ErrRequestInProgress
	}

	// The request context may be cancelled before unlock; renew and release
	// regardless.
	bg := context.WithoutCancel(ctx)
	stop := make(chan struct{})
	done := make(chan struct{})
	go s.renew(bg, lockKey, token, stop, done)

	var once sync.Once
	unlock := func() {
		once.Do(func() {
			close(stop)
			<-done
			unlockScript.Run(bg, s.client, []string{lockKey}, token)
		})
	}

	return unlock, nil
}

// renew refreshes the lock every third of its TTL until stop is closed or
// the lock is no longer ours.
func (s *RedisStore) renew(ctx context.Context, lockKey, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(max(s.lockTTL/3, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			held, err := refreshScript.Run(ctx, s.client, []string{lockKey}, token, s.lockTTL.Milliseconds()).Int()
			if err == nil && held == 0 {
				return
			}
		}
	}
}
