package iostore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/outpostlabs/outpost/internal/contract"
	"github.com/outpostlabs/outpost/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMutation(tag string) schema.DeferredMutation {
	return schema.DeferredMutation{
		ID:         uuid.NewString(),
		QueueTag:   tag,
		Endpoint:   "https://app.example.com/api/notes",
		Method:     "POST",
		Body:       []byte(`{"text":"offline note"}`),
		EnqueuedAt: time.Now(),
	}
}

func TestMutationStore_NoneBackend(t *testing.T) {
	store, err := NewMutationStore(outboxTable, schema.NoneBackend, "", 0)
	require.NoError(t, err)
	require.NotNil(t, store)

	ctx := context.Background()

	// Enqueue must refuse rather than report success for a write that
	// would never be stored
	err = store.Enqueue(ctx, newTestMutation("t"))
	assert.ErrorIs(t, err, contract.ErrQueueUnavailable)

	// List should return nothing
	mutations, err := store.List(ctx, "t")
	assert.NoError(t, err)
	assert.Empty(t, mutations)

	assert.NoError(t, store.Close())
}

func TestMutationStore_FIFOOrder(t *testing.T) {
	store, err := NewMutationStore(outboxTable, schema.SQLiteBackend, ":memory:", 0)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()

	// Enqueue in a known order with identical timestamps
	var ids []string
	now := time.Now()
	for i := 0; i < 5; i++ {
		m := newTestMutation("orders")
		m.Endpoint = fmt.Sprintf("https://app.example.com/api/orders/%d", i)
		m.EnqueuedAt = now
		ids = append(ids, m.ID)
		require.NoError(t, store.Enqueue(ctx, m))
	}

	// List must preserve enqueue order even with equal timestamps
	mutations, err := store.List(ctx, "orders")
	require.NoError(t, err)
	require.Len(t, mutations, 5)
	for i, m := range mutations {
		assert.Equal(t, ids[i], m.ID)
	}
}

func TestMutationStore_RemoveAndIncrement(t *testing.T) {
	store, err := NewMutationStore(outboxTable, schema.SQLiteBackend, ":memory:", 0)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()

	m := newTestMutation("t")
	require.NoError(t, store.Enqueue(ctx, m))

	// IncrementAttempts bumps the persisted counter
	require.NoError(t, store.IncrementAttempts(ctx, m.ID))
	require.NoError(t, store.IncrementAttempts(ctx, m.ID))

	mutations, err := store.List(ctx, "t")
	require.NoError(t, err)
	require.Len(t, mutations, 1)
	assert.Equal(t, 2, mutations[0].Attempts)

	// Remove deletes the row
	require.NoError(t, store.Remove(ctx, m.ID))

	mutations, err = store.List(ctx, "t")
	require.NoError(t, err)
	assert.Empty(t, mutations)

	// Removing again reports not found
	assert.ErrorIs(t, store.Remove(ctx, m.ID), contract.ErrMutationNotFound)
	assert.ErrorIs(t, store.IncrementAttempts(ctx, m.ID), contract.ErrMutationNotFound)
}

func TestMutationStore_TagSeparation(t *testing.T) {
	store, err := NewMutationStore(outboxTable, schema.SQLiteBackend, ":memory:", 0)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()

	require.NoError(t, store.Enqueue(ctx, newTestMutation("notes")))
	require.NoError(t, store.Enqueue(ctx, newTestMutation("notes")))
	require.NoError(t, store.Enqueue(ctx, newTestMutation("settings")))

	notes, err := store.List(ctx, "notes")
	require.NoError(t, err)
	assert.Len(t, notes, 2)

	settings, err := store.List(ctx, "settings")
	require.NoError(t, err)
	assert.Len(t, settings, 1)

	tags, err := store.ListTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"notes", "settings"}, tags)
}

func TestMutationStore_GetStatus(t *testing.T) {
	store, err := NewMutationStore(outboxTable, schema.SQLiteBackend, ":memory:", 3)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, int64(0), status.PendingMutations)

	m1 := newTestMutation("t")
	m2 := newTestMutation("t")
	require.NoError(t, store.Enqueue(ctx, m1))
	require.NoError(t, store.Enqueue(ctx, m2))

	// Push m1 to the attempt ceiling
	for i := 0; i < 3; i++ {
		require.NoError(t, store.IncrementAttempts(ctx, m1.ID))
	}

	status, err = store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, int64(2), status.PendingMutations)
	assert.Equal(t, int64(1), status.Exhausted)
	assert.Equal(t, int64(2), status.Tags["t"])
}
