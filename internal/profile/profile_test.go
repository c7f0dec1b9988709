package profile_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/courier/internal/profile"
)

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := profile.NewMemoryStore()

	_, err := store.Get(ctx, "user-1")
	require.ErrorIs(t, err, profile.ErrNotFound)

	p, err := store.Connect(ctx, "user-1", "ann@gmail.com", "Ann Lee")
	require.NoError(t, err)
	assert.True(t, p.Connected)
	assert.NotNil(t, p.ConnectedAt)

	require.NoError(t, store.Disconnect(ctx, "user-1"))
	p, err = store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, p.Connected)
	assert.Equal(t, "ann@gmail.com", p.MailboxEmail)

	require.NoError(t, store.Disconnect(ctx, "nobody"))
}

func TestLimits(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := profile.NewMemoryStore()
	limits := profile.Limits{Store: store}

	limit, err := limits.DailyLimit(ctx, "user-1")
	require.NoError(t, err)
	assert.Zero(t, limit)

	require.NoError(t, store.SetDailySendLimit(ctx, "user-1", 42))
	limit, err = limits.DailyLimit(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 42, limit)
}
