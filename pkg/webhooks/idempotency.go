package webhooks

import (
	"context"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// DefaultIdempotencyTTL is how long processed delivery IDs are remembered.
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyStore remembers processed delivery IDs so redelivered webhooks
// are acknowledged without running handlers twice.
type IdempotencyStore interface {
	Seen(ctx context.Context, id string) (bool, error)
	Record(ctx context.Context, id string) error
}

// MemoryIdempotencyStore keeps processed IDs in memory with a TTL. Suitable
// for single-process deployments.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	seen    map[string]time.Time
	ttl     time.Duration
	lastGC  time.Time
	nowFunc func() time.Time
}

// NewMemoryIdempotencyStore creates a memory store with the default TTL.
func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		seen:    make(map[string]time.Time),
		ttl:     DefaultIdempotencyTTL,
		nowFunc: time.Now,
	}
}

// WithTTL overrides the retention window.
func (s *MemoryIdempotencyStore) WithTTL(ttl time.Duration) *MemoryIdempotencyStore {
	s.ttl = ttl

	return s
}

func (s *MemoryIdempotencyStore) Seen(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	s.gc(now)

	at, ok := s.seen[id]
	if !ok {
		return false, nil
	}

	if now.Sub(at) > s.ttl {
		delete(s.seen, id)

		return false, nil
	}

	return true, nil
}

func (s *MemoryIdempotencyStore) Record(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seen[id] = s.nowFunc()

	return nil
}

// gc drops expired entries at most once per hour, under the caller's lock.
func (s *MemoryIdempotencyStore) gc(now time.Time) {
	if now.Sub(s.lastGC) < time.Hour {
		return
	}

	s.lastGC = now

	for id, at := range s.seen {
		if now.Sub(at) > s.ttl {
			delete(s.seen, id)
		}
	}
}

// RedisIdempotencyStore shares processed IDs across instances.
type RedisIdempotencyStore struct {
	client goredis.UniversalClient
	ttl    time.Duration
}

// NewRedisIdempotencyStore creates a redis-backed store with the default TTL.
func NewRedisIdempotencyStore(client goredis.UniversalClient) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, ttl: DefaultIdempotencyTTL}
}

func (s *RedisIdempotencyStore) Seen(ctx context.Context, id string) (bool, error) {
	count, err := s.client.Exists(ctx, s.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check webhook delivery id: %w", err)
	}

	return count > 0, nil
}

func (s *RedisIdempotencyStore) Record(ctx context.Context, id string) error {
	if err := s.client.Set(ctx, s.key(id), "1", s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to record webhook delivery id: %w", err)
	}

	return nil
}

func (s *RedisIdempotencyStore) key(id string) string {
	return "blockdeck:webhook:delivery:" + id
}
