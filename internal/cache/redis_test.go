package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisStore instance
func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis, func()) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	store := NewRedisStore(client, "")

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return store, mr, cleanup
}

func TestRedisGet_Success(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	require.NoError(t, mr.Set("storefront:users:v1", `[{"id":1}]`))

	value, err := store.Get(context.Background(), "users:v1")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, value)
}

func TestRedisGet_CacheMiss(t *testing.T) {
	store, _, cleanup := setupTestRedis(t)
	defer cleanup()

	value, err := store.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Empty(t, value)
}

func TestRedisSet_OverwritesWithoutTTL(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "users:v1", "first"))
	require.NoError(t, store.Set(ctx, "users:v1", "second"))

	stored, err := mr.Get("storefront:users:v1")
	require.NoError(t, err)
	assert.Equal(t, "second", stored)
	assert.Zero(t, mr.TTL("storefront:users:v1"), "entries must not expire")
}

func TestRedisDelete(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "k", "v"))
	assert.True(t, mr.Exists("storefront:k"))

	require.NoError(t, store.Delete(ctx, "k"))
	assert.False(t, mr.Exists("storefront:k"))

	// Deleting non-existent key should not error
	assert.NoError(t, store.Delete(ctx, "nonexistent"))
}

func TestRedisGet_ServerDown(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	mr.Close()

	_, err := store.Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
	assert.ErrorContains(t, err, "redis get failed")
}

func TestRedisKey_Format(t *testing.T) {
	store := NewRedisStore(nil, "app:")
	assert.Equal(t, "app:users:v1", store.key("users:v1"))
}
