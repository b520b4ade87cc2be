package session

import (
	"context"
	"testing"

	"github.com/pathas/manualbot/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetMissing(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	got, err := store.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStorePutGet(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	session := core.NewSession("user-1")
	session.State = core.StateAwaitingModel
	require.NoError(t, store.Put(ctx, session))

	got, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, core.StateAwaitingModel, got.State)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	session := core.NewSession("user-1")
	require.NoError(t, store.Put(ctx, session))

	first, err := store.Get(ctx, "user-1")
	require.NoError(t, err)

	// Mutating a retrieved session must not leak into the store
	first.State = core.StateAwaitingQuestion
	first.SelectedModel = "X-T30"

	second, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, core.StateIdle, second.State)
	assert.Empty(t, second.SelectedModel)
}

func TestMemoryStorePutRejectsInvalidSession(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	session := core.NewSession("user-1")
	session.State = core.StateAwaitingQuestion // invariant violated: no model
	err := store.Put(context.Background(), session)
	assert.ErrorIs(t, err, core.ErrInvalidSession)
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, core.NewSession("user-1")))
	require.NoError(t, store.Delete(ctx, "user-1"))

	got, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Deleting again is not an error
	assert.NoError(t, store.Delete(ctx, "user-1"))
}

func TestMemoryStoreClosed(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Close())
	ctx := context.Background()

	_, err := store.Get(ctx, "user-1")
	assert.ErrorIs(t, err, ErrStoreClosed)

	err = store.Put(ctx, core.NewSession("user-1"))
	assert.ErrorIs(t, err, ErrStoreClosed)
}
