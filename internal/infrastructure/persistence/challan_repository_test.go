package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/purchasing/internal/domain/purchasing"
	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormChallanRepository_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewGormChallanRepository(newSQLiteDB(t))
	c := testChallan(t, "V1", "CH-001")

	require.NoError(t, repo.Save(ctx, c))

	got, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "CH-001", got.ChallanNo)
	assert.Equal(t, purchasing.ChallanStatusPending, got.Status)
	assert.Equal(t, 1, got.Version)
	assert.Equal(t, "Road", got.Transport.Name)
	assertDecimal(t, "25", got.Transport.Charges)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, "P1", got.Lines[0].ProductID)
	assert.Equal(t, "B1", got.Lines[0].BatchNo)
	require.NotNil(t, got.Lines[0].MfgDate)
	assertDecimal(t, "590", got.Lines[0].TotalPrice)
	assertDecimal(t, "826", got.TotalAmount)
	assert.Empty(t, got.GetDomainEvents())

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormChallanRepository_DuplicateNumber(t *testing.T) {
	ctx := context.Background()
	repo := NewGormChallanRepository(newSQLiteDB(t))
	require.NoError(t, repo.Save(ctx, testChallan(t, "V1", "CH-001")))

	err := repo.Save(ctx, testChallan(t, "V2", "CH-001"))

	require.Error(t, err)
	assert.True(t, shared.HasCode(err, purchasing.CodeValidation))
}

func TestGormChallanRepository_FindByIDsKeepsOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewGormChallanRepository(newSQLiteDB(t))
	a, b := testChallan(t, "V1", "CH-A"), testChallan(t, "V1", "CH-B")
	require.NoError(t, repo.Save(ctx, a))
	require.NoError(t, repo.Save(ctx, b))

	got, err := repo.FindByIDs(ctx, []uuid.UUID{b.ID, a.ID})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "CH-B", got[0].ChallanNo)
	assert.Equal(t, "CH-A", got[1].ChallanNo)

	_, err = repo.FindByIDs(ctx, []uuid.UUID{a.ID, uuid.New()})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormChallanRepository_FindPendingByVendor(t *testing.T) {
	ctx := context.Background()
	repo := NewGormChallanRepository(newSQLiteDB(t))
	older := testChallan(t, "V1", "CH-OLD")
	older.ChallanDate = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	newer := testChallan(t, "V1", "CH-NEW")
	other := testChallan(t, "V2", "CH-OTHER")
	cancelled := testChallan(t, "V1", "CH-CANCELLED")
	for _, c := range []*purchasing.Challan{newer, older, other, cancelled} {
		require.NoError(t, repo.Save(ctx, c))
	}
	expected := cancelled.Version
	require.NoError(t, cancelled.Cancel("duplicate"))
	require.NoError(t, repo.SaveWithLock(ctx, cancelled, expected))

	got, err := repo.FindPendingByVendor(ctx, "V1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "CH-OLD", got[0].ChallanNo)
	assert.Equal(t, "CH-NEW", got[1].ChallanNo)
}

func TestGormChallanRepository_FindAll(t *testing.T) {
	ctx := context.Background()
	repo := NewGormChallanRepository(newSQLiteDB(t))
	for _, no := range []string{"CH-1", "CH-2", "CH-3"} {
		require.NoError(t, repo.Save(ctx, testChallan(t, "V1", no)))
	}
	require.NoError(t, repo.Save(ctx, testChallan(t, "V2", "CH-4")))

	f := shared.DefaultFilter()
	f.PageSize = 2
	f.OrderBy = "challan_no"
	f.OrderDir = "asc"
	f.Where["vendor_id"] = "V1"
	got, total, err := repo.FindAll(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, got, 2)
	assert.Equal(t, "CH-1", got[0].ChallanNo)
	require.Len(t, got[0].Lines, 2)

	f.Where["status"] = string(purchasing.ChallanStatusProcessed)
	got, total, err = repo.FindAll(ctx, f)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, got)
}

func TestGormChallanRepository_SaveWithLock(t *testing.T) {
	ctx := context.Background()
	repo := NewGormChallanRepository(newSQLiteDB(t))
	c := testChallan(t, "V1", "CH-001")
	require.NoError(t, repo.Save(ctx, c))

	// two operators loaded the same version
	first, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)

	billID := uuid.New()
	require.NoError(t, first.MarkProcessed(billID))
	require.NoError(t, repo.SaveWithLock(ctx, first, 1))

	require.NoError(t, second.MarkProcessed(uuid.New()))
	err = repo.SaveWithLock(ctx, second, 1)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	stored, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, purchasing.ChallanStatusProcessed, stored.Status)
	assert.Equal(t, 2, stored.Version)
	require.NotNil(t, stored.ProcessedBillID)
	assert.Equal(t, billID, *stored.ProcessedBillID)
}

func TestGormChallanRepository_SaveWithLockStatement(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()
	repo := NewGormChallanRepository(db.DB)
	c := testChallan(t, "V1", "CH-001")
	require.NoError(t, c.MarkProcessed(uuid.New()))

	mock.ExpectExec(`UPDATE "challans" SET .* WHERE .*id = \$8 AND version = \$9 AND status = \$10`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), c.ID.String(), 1, "pending").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SaveWithLock(context.Background(), c, 1)

	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}
