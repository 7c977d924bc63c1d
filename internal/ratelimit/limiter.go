package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Limits configures the sliding windows checked by Allow. Zero disables a window.
type Limits struct {
	PerMinute int
	PerHour   int
}

// Limiter decides whether another attempt identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string, limits Limits) (bool, error)
	Reset(ctx context.Context, key string) error
}

// RedisLimiter keeps one sorted set of attempt timestamps per key and window.
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisLimiter builds a limiter whose keys live under prefix.
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisLimiter{client: client, prefix: prefix}
}

// Allow records the attempt and reports whether every configured window is still under its limit.
func (l *RedisLimiter) Allow(ctx context.Context, key string, limits Limits) (bool, error) {
	now := time.Now()

	windows := []struct {
		duration time.Duration
		limit    int
	}{
		{time.Minute, limits.PerMinute},
		{time.Hour, limits.PerHour},
	}

	for _, window := range windows {
		if window.limit <= 0 {
			continue
		}
		allowed, err := l.checkWindow(ctx, key, window.duration, window.limit, now)
		if err != nil {
			return false, err
		}
		if !allowed {
			return false, nil
		}
	}
	return true, nil
}

func (l *RedisLimiter) checkWindow(ctx context.Context, key string, window time.Duration, limit int, now time.Time) (bool, error) {
	redisKey := l.key(key, window)
	windowStart := now.Add(-window).UnixNano()
	nowNano := now.UnixNano()

	pipe := l.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", windowStart))
	zcard := pipe.ZCard(ctx, redisKey)
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(nowNano), Member: fmt.Sprintf("%d-%s", nowNano, uuid.NewString())})
	pipe.Expire(ctx, redisKey, window+time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to execute rate limit pipeline: %w", err)
	}
	return zcard.Val() < int64(limit), nil
}

// Reset forgets all attempts for key, e.g. after a successful login.
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	keys := []string{l.key(key, time.Minute), l.key(key, time.Hour)}
	if err := l.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to reset rate limit: %w", err)
	}
	return nil
}

func (l *RedisLimiter) key(identifier string, window time.Duration) string {
	return fmt.Sprintf("%s:%s:%s", l.prefix, identifier, window.String())
}
