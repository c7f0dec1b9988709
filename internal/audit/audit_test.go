package audit_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/courier/internal/audit"
)

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := audit.NewMemoryStore()

	for _, name := range []string{"first", "second", "third"} {
		require.NoError(t, store.Insert(ctx, &audit.Record{UserID: "user-1", Name: name, Subject: "Hi", Mode: "real"}))
	}
	require.NoError(t, store.Insert(ctx, &audit.Record{UserID: "user-2", Name: "other"}))

	got, err := store.List(ctx, "user-1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "third", got[0].Name)
	assert.Equal(t, "second", got[1].Name)
	assert.NotEqual(t, uuid.Nil, got[0].ID)
	assert.False(t, got[0].CreatedAt.IsZero())
}
