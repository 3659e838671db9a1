// Package ratelimit caps form submissions per client with a Redis fixed window.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultWindow = time.Hour
	keyPrefix     = "cyberhelp:submissions:"
)

// Limiter decides whether a client may submit another form.
type Limiter interface {
	Allow(ctx context.Context, clientKey string) (bool, error)
}

// counter is the subset of *redis.Client the limiter needs.
type counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RedisLimiter allows at most limit submissions per window for each client key.
type RedisLimiter struct {
	client counter
	limit  int64
	window time.Duration
	now    func() time.Time
}

// NewRedisLimiter creates a limiter backed by client.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return newRedisLimiter(client, limit, window)
}

func newRedisLimiter(client counter, limit int, window time.Duration) *RedisLimiter {
	if window <= 0 {
		window = DefaultWindow
	}
	return &RedisLimiter{client: client, limit: int64(limit), window: window, now: time.Now}
}

// Allow increments the client's counter for the current window.
func (limiter *RedisLimiter) Allow(ctx context.Context, clientKey string) (bool, error) {
	windowStart := limiter.now().Truncate(limiter.window).Unix()
	key := fmt.Sprintf("%s%s:%d", keyPrefix, clientKey, windowStart)

	count, err := limiter.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("ratelimit INCR: %w", err)
	}
	if count == 1 {
		if err := limiter.client.Expire(ctx, key, limiter.window).Err(); err != nil {
			return false, fmt.Errorf("ratelimit EXPIRE: %w", err)
		}
	}
	return count <= limiter.limit, nil
}

// Unlimited admits every submission. It is used when Redis is not configured.
type Unlimited struct{}

func (Unlimited) Allow(context.Context, string) (bool, error) {
	return true, nil
}

// Connect parses redisURL and verifies the server answers PING.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
