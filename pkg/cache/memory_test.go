package cache_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/courier/pkg/cache"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[string](cache.WithCleanupInterval(0))
		t.Cleanup(func() { _ = c.Close() })

		require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
		v, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "v", v)
	})

	t.Run("missing key", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[string](cache.WithCleanupInterval(0))
		t.Cleanup(func() { _ = c.Close() })

		_, err := c.Get(ctx, "nope")
		require.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("expires after ttl", func(t *testing.T) {
		t.Parallel()

		clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
		c := cache.NewMemory[int](cache.WithCleanupInterval(0), cache.WithClock(clock.Now))
		t.Cleanup(func() { _ = c.Close() })

		require.NoError(t, c.Set(ctx, "k", 1, time.Minute))
		clock.Advance(59 * time.Second)
		_, err := c.Get(ctx, "k")
		require.NoError(t, err)

		clock.Advance(2 * time.Second)
		_, err = c.Get(ctx, "k")
		require.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("zero ttl uses default, negative never expires", func(t *testing.T) {
		t.Parallel()

		clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
		c := cache.NewMemory[int](
			cache.WithCleanupInterval(0),
			cache.WithClock(clock.Now),
			cache.WithDefaultTTL(time.Second),
		)
		t.Cleanup(func() { _ = c.Close() })

		require.NoError(t, c.Set(ctx, "default", 1, 0))
		require.NoError(t, c.Set(ctx, "forever", 2, -1))
		clock.Advance(time.Hour)

		_, err := c.Get(ctx, "default")
		require.ErrorIs(t, err, cache.ErrNotFound)
		v, err := c.Get(ctx, "forever")
		require.NoError(t, err)
		assert.Equal(t, 2, v)
	})

	t.Run("take is single use under contention", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[string](cache.WithCleanupInterval(0))
		t.Cleanup(func() { _ = c.Close() })
		require.NoError(t, c.Set(ctx, "state", "user-1", time.Minute))

		var wins atomic.Int32
		var wg sync.WaitGroup
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := c.Take(ctx, "state"); err == nil {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), wins.Load())
	})

	t.Run("delete", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[string](cache.WithCleanupInterval(0))
		t.Cleanup(func() { _ = c.Close() })

		require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
		require.NoError(t, c.Delete(ctx, "k"))
		_, err := c.Get(ctx, "k")
		require.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("closed cache", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[string]()
		require.NoError(t, c.Close())
		require.NoError(t, c.Close())

		require.ErrorIs(t, c.Set(ctx, "k", "v", time.Minute), cache.ErrClosed)
		_, err := c.Get(ctx, "k")
		require.ErrorIs(t, err, cache.ErrClosed)
	})
}
