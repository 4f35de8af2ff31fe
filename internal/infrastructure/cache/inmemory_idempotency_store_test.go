package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *InMemoryIdempotencyStore {
	t.Helper()
	store := NewInMemoryIdempotencyStore(time.Hour)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	ctx := context.Background()

	t.Run("marks new key as processed", func(t *testing.T) {
		store := newTestStore(t)

		isNew, err := store.MarkProcessed(ctx, "bill-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)

		processed, err := store.IsProcessed(ctx, "bill-1")
		require.NoError(t, err)
		assert.True(t, processed)
	})

	t.Run("returns false for a key already marked", func(t *testing.T) {
		store := newTestStore(t)

		_, err := store.MarkProcessed(ctx, "bill-2", time.Hour)
		require.NoError(t, err)

		isNew, err := store.MarkProcessed(ctx, "bill-2", time.Hour)
		require.NoError(t, err)
		assert.False(t, isNew)
	})

	t.Run("allows the key again after expiry", func(t *testing.T) {
		store := newTestStore(t)
		now := time.Now()
		store.now = func() time.Time { return now }

		_, err := store.MarkProcessed(ctx, "bill-3", time.Minute)
		require.NoError(t, err)

		now = now.Add(2 * time.Minute)
		processed, err := store.IsProcessed(ctx, "bill-3")
		require.NoError(t, err)
		assert.False(t, processed)

		isNew, err := store.MarkProcessed(ctx, "bill-3", time.Minute)
		require.NoError(t, err)
		assert.True(t, isNew)
	})
}

func TestInMemoryIdempotencyStore_Forget(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.MarkProcessed(ctx, "bill-4", time.Hour)
	require.NoError(t, err)
	require.NoError(t, store.Forget(ctx, "bill-4"))

	isNew, err := store.MarkProcessed(ctx, "bill-4", time.Hour)
	require.NoError(t, err)
	assert.True(t, isNew)

	assert.NoError(t, store.Forget(ctx, "never-seen"))
}

func TestInMemoryIdempotencyStore_Sweep(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Now()
	store.now = func() time.Time { return now }

	_, _ = store.MarkProcessed(ctx, "short", time.Second)
	_, _ = store.MarkProcessed(ctx, "long", time.Hour)
	require.Equal(t, 2, store.Size())

	now = now.Add(time.Minute)
	store.sweep()
	assert.Equal(t, 1, store.Size())
}

func TestInMemoryIdempotencyStore_ConcurrentMark(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := store.MarkProcessed(ctx, "same", time.Hour); ok {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}

func TestInMemoryIdempotencyStore_CloseIsIdempotent(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Millisecond)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}

func TestIdempotencyStoreFactory_FallsBackToMemory(t *testing.T) {
	store := NewIdempotencyStoreFactory().CreateStore("")
	defer store.Close()

	_, ok := store.(*InMemoryIdempotencyStore)
	assert.True(t, ok)
}
