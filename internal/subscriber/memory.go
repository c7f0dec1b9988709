package subscriber

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/courier/internal/recipient"
)

// MemoryStore keeps subscribers in process memory, in insertion order.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string][]Subscriber
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string][]Subscriber)}
}

func (m *MemoryStore) UpsertMany(_ context.Context, userID string, list []recipient.Recipient) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	subs := m.users[userID]
	for _, r := range list {
		i := indexOf(subs, r.Key())
		if i >= 0 {
			subs[i].Email = r.Email
			subs[i].FirstName = r.FirstName
			subs[i].LastName = r.LastName
			subs[i].UpdatedAt = now
			continue
		}
		subs = append(subs, Subscriber{
			ID:        uuid.New(),
			UserID:    userID,
			Email:     r.Email,
			FirstName: r.FirstName,
			LastName:  r.LastName,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	m.users[userID] = subs
	return len(list), nil
}

func (m *MemoryStore) List(_ context.Context, userID string, limit, offset int) ([]Subscriber, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	subs := m.users[userID]
	if offset >= len(subs) {
		return []Subscriber{}, nil
	}
	subs = subs[offset:]
	if limit > 0 && limit < len(subs) {
		subs = subs[:limit]
	}
	out := make([]Subscriber, len(subs))
	copy(out, subs)
	return out, nil
}

func indexOf(subs []Subscriber, key string) int {
	for i, s := range subs {
		if s.Recipient().Key() == key {
			return i
		}
	}
	return -1
}
