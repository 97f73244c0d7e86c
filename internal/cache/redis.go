package cache

import (
	"context"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/epicmotionSD/openconductor-sub010/internal/config"
	"github.com/epicmotionSD/openconductor-sub010/pkg/logging"
)

// RedisStore is a Redis-backed cache store. Every backend failure degrades:
// reads miss, writes are skipped. A missed cache costs money and time, not
// correctness, so the store never surfaces Redis errors to callers.
type RedisStore struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg config.RedisConfig) (*RedisStore, error) {
	opts := &redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisStore{
		client:  client,
		timeout: 250 * time.Millisecond,
	}, nil
}

// Get returns the payload for key. Misses and backend errors are
// indistinguishable to the caller.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	payload, err := s.client.Get(opCtx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logging.Warn("Cache", "Redis read failed for %s, treating as miss: %v", key, err)
		}
		return nil, false
	}
	return payload, true
}

// Set stores payload under key for ttl. Failures are logged and dropped.
func (s *RedisStore) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.Set(opCtx, key, payload, ttl).Err(); err != nil {
		logging.Warn("Cache", "Redis write failed for %s, entry dropped: %v", key, err)
	}
}

// Ping reports whether the backend is reachable. Used by health checks;
// unlike Get and Set this does surface the error.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
