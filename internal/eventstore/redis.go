// Package eventstore reads and writes the per-bucket security event tokens
// pending delivery. Events live in redis hashes keyed by canonical bucket,
// with a retention window after which undelivered buckets expire.
package eventstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/veridian-identity/setpoll/internal/timebucket"
)

const keyPrefix = "attempts:events:"

type RedisStore struct {
	client    *redis.Client
	retention time.Duration
}

// New connects to redis and verifies the connection.
func New(redisURL string, retention time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return NewWithClient(client, retention), nil
}

// NewWithClient wraps an existing redis client.
func NewWithClient(client *redis.Client, retention time.Duration) *RedisStore {
	return &RedisStore{client: client, retention: retention}
}

// ReadEvents returns all serialized event tokens for a bucket, keyed by
// event ID. A bucket with no entries yields an empty map, not an error.
// Iteration order over the result is whatever the store provides; receivers
// must not rely on ordering.
func (s *RedisStore) ReadEvents(ctx context.Context, bucket time.Time) (map[string]string, error) {
	events, err := s.client.HGetAll(ctx, s.key(bucket)).Result()
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return events, nil
}

// AddEvent stores a serialized event token in its bucket and refreshes the
// bucket's retention window.
func (s *RedisStore) AddEvent(ctx context.Context, bucket time.Time, eventID, token string) error {
	key := s.key(bucket)

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, eventID, token)
	pipe.Expire(ctx, key, s.retention)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("add event: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(bucket time.Time) string {
	return keyPrefix + timebucket.Key(bucket)
}
