//go:build integration

package persistence

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/erp/purchasing/internal/domain/purchasing"
	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/erp/purchasing/internal/infrastructure/event"
	"github.com/erp/purchasing/internal/infrastructure/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgres_ChallanCompareAndSwap(t *testing.T) {
	pg := testutil.NewPostgres(t)
	repo := NewGormChallanRepository(pg.DB)
	ctx := context.Background()

	c := testChallan(t, "V1", "CH-PG-1")
	require.NoError(t, repo.Save(ctx, c))

	loaded, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Lines, 2)
	assertDecimal(t, "826", loaded.TotalAmount)

	var wins, conflicts atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mine, err := repo.FindByID(ctx, c.ID)
			if !assert.NoError(t, err) {
				return
			}
			expected := mine.Version
			if err := mine.MarkProcessed(uuid.New()); err != nil {
				conflicts.Add(1)
				return
			}
			err = repo.SaveWithLock(ctx, mine, expected)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, shared.ErrConcurrencyConflict):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(7), conflicts.Load())
}

func TestPostgres_PaymentHistorySerialUnderContention(t *testing.T) {
	pg := testutil.NewPostgres(t)
	repo := NewGormPaymentHistoryRepository(pg.DB)
	ctx := context.Background()

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.Append(ctx, historyEntry("V1", 10)))
		}()
	}
	wg.Wait()

	entries, total, err := repo.FindByVendor(ctx, "V1", shared.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(n), total)
	seen := make(map[int]bool, n)
	for _, e := range entries {
		seen[e.SrlNo] = true
	}
	for i := 1; i <= n; i++ {
		assert.Truef(t, seen[i], "missing srl_no %d", i)
	}
}

func TestPostgres_OutboxClaimIsExclusive(t *testing.T) {
	pg := testutil.NewPostgres(t)
	repo := event.NewGormOutboxRepository(pg.DB)
	ctx := context.Background()
	serializer := newTestSerializer()
	c := testChallan(t, "V1", "CH-PG-2")

	var ids []uuid.UUID
	for i := 0; i < 10; i++ {
		evt := purchasing.NewChallanReceivedEvent(c)
		payload, err := serializer.Serialize(evt)
		require.NoError(t, err)
		entry := shared.NewOutboxEntry(evt, payload)
		require.NoError(t, repo.Save(ctx, entry))
		ids = append(ids, entry.ID)
	}

	var claimed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := repo.MarkProcessing(ctx, ids)
			if assert.NoError(t, err) {
				claimed.Add(int32(len(got)))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(len(ids)), claimed.Load())
}
