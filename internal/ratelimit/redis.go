package ratelimit

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/epicmotionSD/openconductor-sub010/internal/api"
	"github.com/epicmotionSD/openconductor-sub010/internal/config"
	"github.com/epicmotionSD/openconductor-sub010/pkg/logging"
)

// RedisLimiter shares a fixed-window budget across gateway instances with
// INCR + EXPIRE. A backend fault fails open: deployments keep working while
// Redis is down, they just stop being throttled.
type RedisLimiter struct {
	client  *redis.Client
	limit   int
	window  time.Duration
	prefix  string
	timeout time.Duration
}

// NewRedisLimiter connects to Redis and verifies the connection before
// returning.
func NewRedisLimiter(cfg config.RedisConfig, limit int, window time.Duration) (*RedisLimiter, error) {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Hour
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisLimiter{
		client:  client,
		limit:   limit,
		window:  window,
		prefix:  "openconductor:ratelimit:",
		timeout: 250 * time.Millisecond,
	}, nil
}

// Allow increments the key's window counter and checks it against the limit.
func (l *RedisLimiter) Allow(ctx context.Context, key string) api.RateDecision {
	opCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	redisKey := l.prefix + key
	counter, err := l.client.Incr(opCtx, redisKey).Result()
	if err != nil {
		logging.Warn("RateLimit", "Redis incr failed, allowing request: %v", err)
		return api.RateDecision{Allowed: true, Remaining: l.limit}
	}
	if counter == 1 {
		if err := l.client.Expire(opCtx, redisKey, l.window).Err(); err != nil {
			logging.Warn("RateLimit", "Redis expire failed: %v", err)
		}
	}

	remaining := l.limit - int(counter)
	if remaining < 0 {
		remaining = 0
	}
	if int(counter) <= l.limit {
		return api.RateDecision{Allowed: true, Remaining: remaining}
	}

	ttl, err := l.client.TTL(opCtx, redisKey).Result()
	if err != nil || ttl <= 0 {
		ttl = l.window
	}
	logging.Warn("RateLimit", "Rate limit exceeded for %s (%d attempts in window)", key, counter)
	return api.RateDecision{Allowed: false, Remaining: 0, RetryAfter: ttl}
}

// Close releases the Redis client.
func (l *RedisLimiter) Close() error {
	if l.client != nil {
		return l.client.Close()
	}
	return nil
}
