package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   14,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	client.FlushDB(ctx)

	t.Cleanup(func() {
		client.FlushDB(ctx)
		client.Close()
	})
	return client
}

type entry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestRedisCache_SetGet(t *testing.T) {
	c := NewRedisCache(setupTestRedis(t))
	ctx := context.Background()

	var got entry
	found, err := c.Get(ctx, "catalog:list", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "catalog:list", entry{Name: "IT", Count: 3}, time.Minute))
	found, err = c.Get(ctx, "catalog:list", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, entry{Name: "IT", Count: 3}, got)
}

func TestRedisCache_DeletePrefix(t *testing.T) {
	c := NewRedisCache(setupTestRedis(t))
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "catalog:a", entry{Name: "a"}, time.Minute))
	require.NoError(t, c.Set(ctx, "catalog:b", entry{Name: "b"}, time.Minute))
	require.NoError(t, c.Set(ctx, "other:c", entry{Name: "c"}, time.Minute))

	require.NoError(t, c.DeletePrefix(ctx, "catalog:"))

	var got entry
	found, err := c.Get(ctx, "catalog:a", &got)
	require.NoError(t, err)
	assert.False(t, found)
	found, err = c.Get(ctx, "other:c", &got)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestNoop(t *testing.T) {
	var c Cache = Noop{}
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", 1, time.Minute))
	var v int
	found, err := c.Get(ctx, "k", &v)
	require.NoError(t, err)
	assert.False(t, found)
}
