package cache

import (
	"context"
	"sync"
	"time"
)

type entry[V any] struct {
	expiresAt time.Time // zero = never
	value     V
}

func (e entry[V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Memory is a process-local Cache. Expired entries are dropped lazily on
// access and periodically by a janitor goroutine.
type Memory[V any] struct {
	mu         sync.Mutex
	items      map[string]entry[V]
	defaultTTL time.Duration
	now        func() time.Time
	done       chan struct{}
	closeOnce  sync.Once
	closed     bool
}

// MemoryOption configures a Memory cache.
type MemoryOption func(*memoryConfig)

type memoryConfig struct {
	defaultTTL      time.Duration
	cleanupInterval time.Duration
	now             func() time.Time
}

// WithDefaultTTL sets the TTL used when Set receives zero. Default: 10 minutes.
func WithDefaultTTL(d time.Duration) MemoryOption {
	return func(c *memoryConfig) { c.defaultTTL = d }
}

// WithCleanupInterval sets the janitor period; zero disables it. Default: 1 minute.
func WithCleanupInterval(d time.Duration) MemoryOption {
	return func(c *memoryConfig) { c.cleanupInterval = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *memoryConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// NewMemory creates an in-memory cache. Call Close to stop the janitor.
func NewMemory[V any](opts ...MemoryOption) *Memory[V] {
	cfg := memoryConfig{
		defaultTTL:      10 * time.Minute,
		cleanupInterval: time.Minute,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	m := &Memory[V]{
		items:      make(map[string]entry[V]),
		defaultTTL: cfg.defaultTTL,
		now:        cfg.now,
		done:       make(chan struct{}),
	}
	if cfg.cleanupInterval > 0 {
		go m.janitor(cfg.cleanupInterval)
	}
	return m
}

func (m *Memory[V]) Get(_ context.Context, key string) (V, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookup(key)
}

func (m *Memory[V]) Take(_ context.Context, key string) (V, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, err := m.lookup(key)
	if err == nil {
		delete(m.items, key)
	}
	return v, err
}

func (m *Memory[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	if ttl == 0 {
		ttl = m.defaultTTL
	}
	e := entry[V]{value: value}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.items[key] = e
	return nil
}

func (m *Memory[V]) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.items, key)
	return nil
}

func (m *Memory[V]) Close() error {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.items = make(map[string]entry[V])
		m.mu.Unlock()
		close(m.done)
	})
	return nil
}

// lookup must be called with mu held.
func (m *Memory[V]) lookup(key string) (V, error) {
	var zero V
	if m.closed {
		return zero, ErrClosed
	}
	e, ok := m.items[key]
	if !ok {
		return zero, ErrNotFound
	}
	if e.expired(m.now()) {
		delete(m.items, key)
		return zero, ErrNotFound
	}
	return e.value, nil
}

func (m *Memory[V]) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.mu.Lock()
			now := m.now()
			for k, e := range m.items {
				if e.expired(now) {
					delete(m.items, k)
				}
			}
			m.mu.Unlock()
		}
	}
}
