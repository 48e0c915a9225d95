package pagesync

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryRemote is an in-process RemoteStore used when no database is configured.
type MemoryRemote struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryRemote creates an empty in-memory remote store.
func NewMemoryRemote() *MemoryRemote {
	return &MemoryRemote{records: make(map[string]Record)}
}

func (m *MemoryRemote) Load(_ context.Context, businessID string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[businessID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (m *MemoryRemote) Exists(_ context.Context, businessID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.records[businessID]
	return ok, nil
}

func (m *MemoryRemote) Update(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.BusinessID]; !ok {
		return fmt.Errorf("pagesync: update settings: %w", ErrNotFound)
	}
	rec.UpdatedAt = time.Now().UTC()
	m.records[rec.BusinessID] = rec
	return nil
}

func (m *MemoryRemote) Insert(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.BusinessID]; ok {
		return fmt.Errorf("pagesync: insert settings: duplicate business %s", rec.BusinessID)
	}
	rec.UpdatedAt = time.Now().UTC()
	m.records[rec.BusinessID] = rec
	return nil
}
