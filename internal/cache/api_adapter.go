package cache

import (
	"context"
	"time"

	"github.com/epicmotionSD/openconductor-sub010/internal/api"
)

// Store is the backend contract shared by the memory and Redis stores.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration)
	Close() error
}

// Adapter adapts a Store to implement api.CacheHandler
type Adapter struct {
	store Store
}

// NewAPIAdapter creates a new cache adapter
func NewAPIAdapter(store Store) *Adapter {
	return &Adapter{store: store}
}

// Register registers the adapter with the API
func (a *Adapter) Register() {
	api.RegisterCache(a)
}

func (a *Adapter) Get(ctx context.Context, key string) ([]byte, bool) {
	return a.store.Get(ctx, key)
}

func (a *Adapter) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) {
	a.store.Set(ctx, key, payload, ttl)
}

func (a *Adapter) Close() error {
	return a.store.Close()
}
