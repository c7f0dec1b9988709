package profile

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps profiles in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]Profile
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]Profile),
		now:      time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, userID string) (*Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryStore) Connect(_ context.Context, userID, email, displayName string) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	p := m.profiles[userID]
	p.UserID = userID
	p.MailboxEmail = email
	p.DisplayName = displayName
	p.Connected = true
	p.ConnectedAt = &now
	p.UpdatedAt = now
	m.profiles[userID] = p
	return &p, nil
}

func (m *MemoryStore) Disconnect(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[userID]
	if !ok {
		return nil
	}
	p.Connected = false
	p.UpdatedAt = m.now().UTC()
	m.profiles[userID] = p
	return nil
}

// SetDailySendLimit overrides the user's daily limit; 0 restores the default.
func (m *MemoryStore) SetDailySendLimit(_ context.Context, userID string, limit int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.profiles[userID]
	p.UserID = userID
	p.DailySendLimit = limit
	p.UpdatedAt = m.now().UTC()
	m.profiles[userID] = p
	return nil
}
