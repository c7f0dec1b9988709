package audit

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryStore keeps audit records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Insert(_ context.Context, rec *Record) error {
	prepare(rec, time.Now())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, *rec)
	return nil
}

func (m *MemoryStore) List(_ context.Context, userID string, limit int) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Record
	for _, rec := range slices.Backward(m.records) {
		if rec.UserID != userID {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
