package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, maxEntries int) (*MemoryStore, *time.Time) {
	t.Helper()
	store := NewMemoryStore(maxEntries)
	t.Cleanup(func() { store.Close() })

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }
	return store, &clock
}

func TestMemoryStoreSetThenGet(t *testing.T) {
	store, _ := newTestStore(t, 0)
	ctx := context.Background()

	store.Set(ctx, "k", []byte("payload"), time.Minute)

	got, ok := store.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), got)
}

func TestMemoryStoreMissOnUnknownKey(t *testing.T) {
	store, _ := newTestStore(t, 0)

	got, ok := store.Get(context.Background(), "nothing")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestMemoryStoreExpiry(t *testing.T) {
	store, clock := newTestStore(t, 0)
	ctx := context.Background()

	store.Set(ctx, "k", []byte("payload"), 30*time.Second)

	*clock = clock.Add(29 * time.Second)
	_, ok := store.Get(ctx, "k")
	assert.True(t, ok, "entry should live until its TTL elapses")

	*clock = clock.Add(2 * time.Second)
	_, ok = store.Get(ctx, "k")
	assert.False(t, ok, "a read after writtenAt+ttl is a miss")
}

func TestMemoryStoreZeroTTLStoresNothing(t *testing.T) {
	store, _ := newTestStore(t, 0)
	ctx := context.Background()

	store.Set(ctx, "k", []byte("payload"), 0)

	_, ok := store.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store, _ := newTestStore(t, 0)
	ctx := context.Background()

	original := []byte("payload")
	store.Set(ctx, "k", original, time.Minute)
	original[0] = 'X'

	got, ok := store.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), got)

	got[0] = 'Y'
	again, ok := store.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), again)
}

func TestMemoryStoreOldestWrittenEviction(t *testing.T) {
	store, clock := newTestStore(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		store.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), time.Hour)
		*clock = clock.Add(time.Second)
	}
	require.Equal(t, 3, store.Len())

	// Rewriting k0 makes it the newest entry; k1 becomes the oldest.
	store.Set(ctx, "k0", []byte("v2"), time.Hour)
	*clock = clock.Add(time.Second)

	store.Set(ctx, "k3", []byte("v"), time.Hour)
	assert.Equal(t, 3, store.Len())

	_, ok := store.Get(ctx, "k1")
	assert.False(t, ok, "oldest-written entry should be evicted")
	_, ok = store.Get(ctx, "k0")
	assert.True(t, ok)
	_, ok = store.Get(ctx, "k3")
	assert.True(t, ok)
}

func TestMemoryStoreSweepRemovesExpired(t *testing.T) {
	store, clock := newTestStore(t, 0)
	ctx := context.Background()

	store.Set(ctx, "short", []byte("v"), time.Second)
	store.Set(ctx, "long", []byte("v"), time.Hour)

	*clock = clock.Add(time.Minute)
	store.sweep()

	assert.Equal(t, 1, store.Len())
	_, ok := store.Get(ctx, "long")
	assert.True(t, ok)
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	store, _ := newTestStore(t, 100)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("k%d", j%50)
				store.Set(ctx, key, []byte("v"), time.Minute)
				store.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, store.Len(), 100)
}

func TestMemoryStoreCloseIsIdempotent(t *testing.T) {
	store := NewMemoryStore(0)
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
