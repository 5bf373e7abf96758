package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisStore(t *testing.T, ttl time.Duration) (*RedisIdempotencyStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisIdempotencyStore(client, "stockledger", ttl), mr
}

func TestRedisIdempotencyStore_AddAndContains(t *testing.T) {
	store, _ := setupRedisStore(t, time.Hour)
	ctx := context.Background()

	exists, err := store.Contains(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Add(ctx, "evt-1"))

	exists, err = store.Contains(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRedisIdempotencyStore_KeyNamespacing(t *testing.T) {
	store, mr := setupRedisStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "evt-ns"))

	// Keys carry the consumer group prefix so separate consumers do not
	// suppress each other's events.
	assert.True(t, mr.Exists("stockledger:processed:evt-ns"))
}

func TestRedisIdempotencyStore_TTLExpiry(t *testing.T) {
	store, mr := setupRedisStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "evt-ttl"))

	mr.FastForward(2 * time.Minute)

	exists, err := store.Contains(ctx, "evt-ttl")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRedisIdempotencyStore_ServerDown(t *testing.T) {
	store, mr := setupRedisStore(t, time.Hour)
	ctx := context.Background()

	mr.Close()

	_, err := store.Contains(ctx, "evt-down")
	assert.Error(t, err)
	assert.Error(t, store.Add(ctx, "evt-down"))
}

func TestRedisIdempotencyStore_WithIdempotentHandler(t *testing.T) {
	store, _ := setupRedisStore(t, time.Hour)

	var calls int
	inner := func(ctx context.Context, event *Event) error {
		calls++
		return nil
	}

	handler := IdempotentHandler(store, inner, testLogger())
	event := dedupEvent("evt-redis-dup")

	require.NoError(t, handler(context.Background(), event))
	require.NoError(t, handler(context.Background(), event))

	assert.Equal(t, 1, calls)
}
