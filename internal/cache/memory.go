package cache

import (
	"context"
	"sync"
	"time"
)

// memoryEntry is one stored payload with its expiry deadline.
type memoryEntry struct {
	payload   []byte
	writtenAt time.Time
	expiresAt time.Time
}

// MemoryStore is an in-process cache store with per-entry TTL and a size
// bound. When full it evicts the oldest-written entries; entries are
// idempotently reconstructible, so eviction only costs a recomputation.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]*memoryEntry
	maxEntries int

	stopCh    chan struct{}
	closeOnce sync.Once

	// now is replaceable in tests.
	now func() time.Time
}

// janitorInterval is how often expired entries are swept out. Reads also
// expire lazily, so the sweep only bounds memory, not correctness.
const janitorInterval = time.Minute

// NewMemoryStore creates a memory cache bounded to maxEntries entries.
// A non-positive bound disables eviction.
func NewMemoryStore(maxEntries int) *MemoryStore {
	s := &MemoryStore{
		entries:    make(map[string]*memoryEntry),
		maxEntries: maxEntries,
		stopCh:     make(chan struct{}),
		now:        time.Now,
	}
	go s.janitorLoop()
	return s
}

// Get returns the payload for key, or a miss when absent or expired.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, key)
		return nil, false
	}

	payload := make([]byte, len(entry.payload))
	copy(payload, entry.payload)
	return payload, true
}

// Set stores payload under key for ttl. A non-positive ttl stores nothing.
func (s *MemoryStore) Set(_ context.Context, key string, payload []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(payload))
	copy(stored, payload)

	now := s.now()
	s.entries[key] = &memoryEntry{
		payload:   stored,
		writtenAt: now,
		expiresAt: now.Add(ttl),
	}

	if s.maxEntries > 0 && len(s.entries) > s.maxEntries {
		s.evictOldestLocked()
	}
}

// evictOldestLocked removes oldest-written entries until the store fits its
// bound. Callers must hold s.mu.
func (s *MemoryStore) evictOldestLocked() {
	for len(s.entries) > s.maxEntries {
		var oldestKey string
		var oldestAt time.Time
		for key, entry := range s.entries {
			if oldestKey == "" || entry.writtenAt.Before(oldestAt) {
				oldestKey = key
				oldestAt = entry.writtenAt
			}
		}
		delete(s.entries, oldestKey)
	}
}

func (s *MemoryStore) janitorLoop() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep removes expired entries.
func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, key)
		}
	}
}

// Len reports the number of live entries, expired or not yet swept included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close stops the janitor. Safe to call more than once.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopCh)
	})
	return nil
}
