package quota

import (
	"context"
	"sync"
	"time"
)

type usage struct {
	day  time.Time
	used int
}

// MemoryStore keeps usage in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]usage
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]usage)}
}

func (m *MemoryStore) Reserve(_ context.Context, userID string, day time.Time, n, limit int) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u := m.current(userID, day)
	if u.used+n > limit {
		return u.used, false, nil
	}
	u.used += n
	m.users[userID] = u
	return u.used, true, nil
}

func (m *MemoryStore) Release(_ context.Context, userID string, day time.Time, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok || !u.day.Equal(day) {
		return nil
	}
	u.used = max(u.used-n, 0)
	m.users[userID] = u
	return nil
}

func (m *MemoryStore) Used(_ context.Context, userID string, day time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current(userID, day).used, nil
}

func (m *MemoryStore) DeleteBefore(_ context.Context, day time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, u := range m.users {
		if u.day.Before(day) {
			delete(m.users, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) current(userID string, day time.Time) usage {
	u, ok := m.users[userID]
	if !ok || !u.day.Equal(day) {
		return usage{day: day}
	}
	return u
}
