package ratelimit

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
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

func TestRedisLimiter_PerMinute(t *testing.T) {
	limiter := NewRedisLimiter(setupTestRedis(t), "test")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, err := limiter.Allow(ctx, "login:a@bsg.co.id", Limits{PerMinute: 5})
		require.NoError(t, err)
		assert.True(t, allowed, "attempt %d should be allowed", i+1)
	}

	allowed, err := limiter.Allow(ctx, "login:a@bsg.co.id", Limits{PerMinute: 5})
	require.NoError(t, err)
	assert.False(t, allowed, "6th attempt should be denied")
}

func TestRedisLimiter_PerHourAppliesIndependently(t *testing.T) {
	limiter := NewRedisLimiter(setupTestRedis(t), "test")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "k", Limits{PerHour: 3})
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err := limiter.Allow(ctx, "k", Limits{PerHour: 3})
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestRedisLimiter_Reset(t *testing.T) {
	limiter := NewRedisLimiter(setupTestRedis(t), "test")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := limiter.Allow(ctx, "k", Limits{PerMinute: 2})
		require.NoError(t, err)
	}
	allowed, err := limiter.Allow(ctx, "k", Limits{PerMinute: 2})
	require.NoError(t, err)
	assert.False(t, allowed)

	require.NoError(t, limiter.Reset(ctx, "k"))
	allowed, err = limiter.Allow(ctx, "k", Limits{PerMinute: 2})
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisLimiter_KeysAreIsolated(t *testing.T) {
	limiter := NewRedisLimiter(setupTestRedis(t), "test")
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "a", Limits{PerMinute: 1})
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "b", Limits{PerMinute: 1})
	require.NoError(t, err)
	assert.True(t, allowed)
}
