package store

import (
	"context"
	"sync"

	"github.com/mikey/link-joiner/internal/core"
)

// MemoryStore keeps cache records in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records []core.CacheRecord
	saves   int
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(records ...core.CacheRecord) *MemoryStore {
	return &MemoryStore{records: append([]core.CacheRecord(nil), records...)}
}

// Load returns a copy of the stored records
func (s *MemoryStore) Load(ctx context.Context) ([]core.CacheRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.CacheRecord(nil), s.records...), nil
}

// Save replaces the stored records
func (s *MemoryStore) Save(ctx context.Context, records []core.CacheRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append([]core.CacheRecord(nil), records...)
	s.saves++
	return nil
}

// Saves returns how many times Save has been called
func (s *MemoryStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
