package credential

import (
	"context"
	"slices"
	"sync"
)

// MemoryRecords is an in-process Records implementation for tests and
// single-node development.
type MemoryRecords struct {
	mu   sync.RWMutex
	rows map[string]Record
}

// NewMemoryRecords creates an empty in-memory Records.
func NewMemoryRecords() *MemoryRecords {
	return &MemoryRecords{rows: make(map[string]Record)}
}

func (m *MemoryRecords) Get(_ context.Context, userID string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.rows[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (m *MemoryRecords) Upsert(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rows[rec.UserID] = *cloneRecord(*rec)
	return nil
}

func (m *MemoryRecords) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.rows, userID)
	return nil
}

func cloneRecord(rec Record) *Record {
	rec.AccessToken = slices.Clone(rec.AccessToken)
	rec.RefreshToken = slices.Clone(rec.RefreshToken)
	rec.Scopes = slices.Clone(rec.Scopes)
	return &rec
}
