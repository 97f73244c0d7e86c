package deployer

import (
	"context"
	"fmt"
	"sync"

	"github.com/epicmotionSD/openconductor-sub010/internal/api"
)

// RecordStore persists deployment records keyed by slug.
type RecordStore interface {
	// Get returns the record for a slug, or a not_found error when no
	// deployment has been attempted for it.
	Get(ctx context.Context, slug string) (*api.DeploymentRecord, error)

	// Put inserts or replaces the record for record.Slug.
	Put(ctx context.Context, record *api.DeploymentRecord) error

	Close() error
}

var (
	_ RecordStore = (*MemoryRecordStore)(nil)
	_ RecordStore = (*PostgresRecordStore)(nil)
)

// MemoryRecordStore keeps deployment records in process memory. Records do
// not survive a restart; the remote instances they describe do, and are
// re-resolved by name on the next deployment.
type MemoryRecordStore struct {
	mu      sync.RWMutex
	records map[string]api.DeploymentRecord
}

// NewMemoryRecordStore returns an empty in-memory record store.
func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{records: make(map[string]api.DeploymentRecord)}
}

// Get returns a copy of the stored record for the slug.
func (s *MemoryRecordStore) Get(ctx context.Context, slug string) (*api.DeploymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[slug]
	if !ok {
		return nil, api.NewOperationError(api.ErrorKindNotFound,
			fmt.Sprintf("no deployment recorded for plugin %q", slug))
	}
	return &record, nil
}

// Put stores a copy of the record under record.Slug.
func (s *MemoryRecordStore) Put(ctx context.Context, record *api.DeploymentRecord) error {
	if record == nil || record.Slug == "" {
		return api.NewOperationError(api.ErrorKindInternal, "deployment record must carry a slug")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Slug] = *record
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryRecordStore) Close() error { return nil }

// Len reports how many slugs have a record. Used by tests.
func (s *MemoryRecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
