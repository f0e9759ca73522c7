package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/veridian-identity/setpoll/internal/metrics"
)

// DigestSet is a cached set of credential digests, all computed with the
// same salt and cost. A fresh salt is generated on every recompute, so
// concurrent repopulations produce distinct but equally valid sets.
type DigestSet struct {
	Salt    string   `json:"salt"`
	Cost    string   `json:"cost"`
	Digests [][]byte `json:"digests"`
}

// Store persists digest sets with a TTL.
type Store interface {
	Get(ctx context.Context, key string) (*DigestSet, bool, error)
	Set(ctx context.Context, key string, set *DigestSet, ttl time.Duration) error
}

// Cache wraps a Store with compute-on-miss semantics.
type Cache struct {
	store Store
}

func NewCache(store Store) *Cache {
	return &Cache{store: store}
}

// GetOrCompute returns the cached digest set for key, computing and storing
// it when absent or expired. Racing callers may each recompute; last write
// wins and either result is valid for verification within its TTL.
func (c *Cache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func() (*DigestSet, error)) (*DigestSet, error) {
	set, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("digest cache get: %w", err)
	}
	if ok {
		metrics.DigestCacheHits.Inc()
		return set, nil
	}

	metrics.DigestCacheMisses.Inc()
	set, err = compute()
	if err != nil {
		return nil, err
	}
	if err := c.store.Set(ctx, key, set, ttl); err != nil {
		return nil, fmt.Errorf("digest cache set: %w", err)
	}
	return set, nil
}

// RedisStore keeps digest sets in redis so all instances share one cache.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (*DigestSet, bool, error) {
	data, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var set DigestSet
	if err := json.Unmarshal([]byte(data), &set); err != nil {
		return nil, false, fmt.Errorf("unmarshal digest set: %w", err)
	}
	return &set, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, set *DigestSet, ttl time.Duration) error {
	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("marshal digest set: %w", err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

// MemoryStore is the single-instance fallback when redis is disabled.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	set     *DigestSet
	expires time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*DigestSet, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok || time.Now().After(entry.expires) {
		return nil, false, nil
	}
	return entry.set, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, set *DigestSet, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = memoryEntry{set: set, expires: time.Now().Add(ttl)}
	return nil
}
