package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// RateLimitKeyPrefix is the Redis key prefix for request counters.
	RateLimitKeyPrefix = "vent:ratelimit:"
	// BlockedKeyPrefix is the Redis key prefix for clients that blew through their budget.
	BlockedKeyPrefix = "vent:blocked:"
)

// RedisLimiter is a fixed-window counter shared by every instance that talks to the same Redis.
// A client that exceeds the budget is blocked for BlockFor.
type RedisLimiter struct {
	client   *redis.Client
	max      int64
	window   time.Duration
	blockFor time.Duration
}

func NewRedisLimiter(client *redis.Client, max int64, window, blockFor time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, max: max, window: window, blockFor: blockFor}
}

// Allow fails open: on any Redis error it returns true with the error.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	blocked, err := l.client.Exists(ctx, BlockedKeyPrefix+key).Result()
	if err != nil {
		return true, fmt.Errorf("check block: %w", err)
	}
	if blocked > 0 {
		return false, nil
	}

	counter := RateLimitKeyPrefix + key
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, counter)
	// NX keeps the window fixed from the first request
	pipe.ExpireNX(ctx, counter, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("count request: %w", err)
	}

	if incr.Val() <= l.max {
		return true, nil
	}
	if l.blockFor > 0 {
		if err := l.client.Set(ctx, BlockedKeyPrefix+key, "1", l.blockFor).Err(); err != nil {
			return false, fmt.Errorf("block client: %w", err)
		}
	}
	return false, nil
}

