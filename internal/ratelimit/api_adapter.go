package ratelimit

import (
	"context"
	"time"

	"github.com/epicmotionSD/openconductor-sub010/internal/api"
	"github.com/epicmotionSD/openconductor-sub010/internal/config"
)

// Limiter is the backend contract shared by the memory and Redis limiters.
type Limiter interface {
	Allow(ctx context.Context, key string) api.RateDecision
	Close() error
}

var (
	_ Limiter = (*MemoryLimiter)(nil)
	_ Limiter = (*RedisLimiter)(nil)
)

// NewFromConfig builds the configured limiter backend. The deploy budget is
// per caller key per rolling hour.
func NewFromConfig(cfg config.RateLimitConfig) (Limiter, error) {
	limit := cfg.DeployPerHour
	if limit <= 0 {
		limit = 10
	}
	if cfg.Backend == config.BackendRedis {
		return NewRedisLimiter(cfg.Redis, limit, time.Hour)
	}
	return NewMemoryLimiter(limit, time.Hour), nil
}

// Adapter adapts a Limiter to implement api.RateLimitHandler
type Adapter struct {
	limiter Limiter
}

var _ api.RateLimitHandler = (*Adapter)(nil)

// NewAPIAdapter creates a new rate limit adapter
func NewAPIAdapter(limiter Limiter) *Adapter {
	return &Adapter{limiter: limiter}
}

// Register registers the adapter with the API
func (a *Adapter) Register() {
	api.RegisterRateLimit(a)
}

func (a *Adapter) Allow(ctx context.Context, key string) api.RateDecision {
	return a.limiter.Allow(ctx, key)
}

func (a *Adapter) Close() error {
	return a.limiter.Close()
}
