package eventstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewWithClient(client, time.Hour)
	t.Cleanup(func() { client.Close() })
	return mr, store
}

func TestReadEvents_EmptyBucket(t *testing.T) {
	_, store := setupStore(t)

	events, err := store.ReadEvents(context.Background(), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestAddAndReadEvents(t *testing.T) {
	_, store := setupStore(t)
	ctx := context.Background()
	bucket := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.AddEvent(ctx, bucket, "ev1", "tok1"))
	require.NoError(t, store.AddEvent(ctx, bucket, "ev2", "tok2"))

	events, err := store.ReadEvents(ctx, bucket)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ev1": "tok1", "ev2": "tok2"}, events)
}

func TestBucketsAreIsolated(t *testing.T) {
	_, store := setupStore(t)
	ctx := context.Background()

	bucketA := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bucketB := time.Date(2024, 1, 1, 0, 1, 0, 0, time.UTC)
	require.NoError(t, store.AddEvent(ctx, bucketA, "ev1", "tok1"))

	events, err := store.ReadEvents(ctx, bucketB)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestBucketKey_SubMinuteTimesShareBucket(t *testing.T) {
	_, store := setupStore(t)
	ctx := context.Background()

	atSecond := time.Date(2024, 1, 1, 0, 0, 30, 0, time.UTC)
	atMinute := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.AddEvent(ctx, atSecond, "ev1", "tok1"))

	events, err := store.ReadEvents(ctx, atMinute)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestAddEvent_SetsRetention(t *testing.T) {
	mr, store := setupStore(t)
	ctx := context.Background()
	bucket := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.AddEvent(ctx, bucket, "ev1", "tok1"))

	mr.FastForward(2 * time.Hour)

	events, err := store.ReadEvents(ctx, bucket)
	require.NoError(t, err)
	assert.Empty(t, events)
}
