package purchasing

import (
	"context"
	"testing"

	"github.com/erp/purchasing/internal/domain/purchasing"
	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newChallanService() (*ChallanService, *memChallanRepo, *recordingPublisher) {
	repo := newMemChallanRepo()
	publisher := &recordingPublisher{}
	taxes := purchasing.NewTaxRateTable(purchasing.DefaultTaxRate()).
		WithHSNRate("3004", decimal.NewFromInt(12))
	svc := NewChallanService(repo, taxes, zap.NewNop())
	svc.SetEventPublisher(publisher)
	return svc, repo, publisher
}

func TestChallanService_AddChallanFromStockIn(t *testing.T) {
	svc, repo, publisher := newChallanService()
	ctx := context.Background()

	resp, err := svc.AddChallanFromStockIn(ctx, StockInRequest{
		ChallanNo:   "CH-77",
		VendorID:    testVendor,
		VendorName:  "Acme Traders",
		ChallanDate: "2024-03-01",
		Transport:   TransportInput{Name: "Blue Dart", Number: "KA-01-1234"},
		Lines: []StockInLineInput{
			{ProductID: "P1", ProductName: "Widget", Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(50)},
			{ProductID: "P2", ProductName: "Syrup", HSNCode: "3004", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(100), MfgDate: "2024-01-01", ExpDate: "2026-01-01"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "pending", resp.Status)
	require.Len(t, resp.Lines, 2)
	assert.True(t, resp.Lines[0].TotalPrice.Equal(decimal.NewFromInt(590)))
	assert.True(t, resp.Lines[1].SGST.Equal(decimal.NewFromInt(12)), "HSN rate applies")
	assert.True(t, resp.TotalAmount.Equal(decimal.NewFromInt(814)))
	require.NotNil(t, resp.Lines[1].ExpDate)
	assert.Equal(t, 2026, resp.Lines[1].ExpDate.Year())

	stored, err := repo.FindByID(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "CH-77", stored.ChallanNo)
	assert.Len(t, publisher.ofType(purchasing.EventTypeChallanReceived), 1)
}

func TestChallanService_AddChallanFromStockIn_Validation(t *testing.T) {
	svc, _, _ := newChallanService()
	ctx := context.Background()
	line := StockInLineInput{ProductID: "P1", ProductName: "Widget", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1)}

	tests := []struct {
		name string
		req  StockInRequest
	}{
		{"bad challan date", StockInRequest{VendorID: testVendor, VendorName: "Acme", ChallanDate: "01-03-2024", Lines: []StockInLineInput{line}}},
		{"bad expiry", StockInRequest{VendorID: testVendor, VendorName: "Acme", Lines: []StockInLineInput{{ProductID: "P1", ProductName: "W", Quantity: decimal.NewFromInt(1), ExpDate: "soon"}}}},
		{"zero quantity", StockInRequest{VendorID: testVendor, VendorName: "Acme", Lines: []StockInLineInput{{ProductID: "P1", ProductName: "W"}}}},
		{"no lines", StockInRequest{VendorID: testVendor, VendorName: "Acme"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddChallanFromStockIn(ctx, tt.req)
			assert.True(t, shared.HasCode(err, purchasing.CodeValidation), "got %v", err)
		})
	}
}

func TestChallanService_GeneratesChallanNumber(t *testing.T) {
	svc, _, _ := newChallanService()
	resp, err := svc.AddChallanFromStockIn(context.Background(), StockInRequest{
		VendorID:   testVendor,
		VendorName: "Acme",
		Lines:      []StockInLineInput{{ProductID: "P1", ProductName: "W", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1)}},
	})
	require.NoError(t, err)
	assert.Regexp(t, `^CH-\d{8}-[0-9A-F-]{6}$`, resp.ChallanNo)
}

func TestChallanService_ListChallans(t *testing.T) {
	svc, _, _ := newChallanService()
	ctx := context.Background()
	line := []StockInLineInput{{ProductID: "P1", ProductName: "W", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1)}}
	for _, vendor := range []string{testVendor, testVendor, "V-200"} {
		_, err := svc.AddChallanFromStockIn(ctx, StockInRequest{VendorID: vendor, VendorName: vendor, Lines: line})
		require.NoError(t, err)
	}

	page, err := svc.ListChallans(ctx, ChallanListFilter{VendorID: testVendor})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
	assert.Equal(t, 1, page.Page)

	page, err = svc.ListChallans(ctx, ChallanListFilter{Status: "processed"})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestChallanService_CancelChallan(t *testing.T) {
	svc, repo, publisher := newChallanService()
	ctx := context.Background()
	created, err := svc.AddChallanFromStockIn(ctx, StockInRequest{
		VendorID: testVendor, VendorName: "Acme",
		Lines: []StockInLineInput{{ProductID: "P1", ProductName: "W", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1)}},
	})
	require.NoError(t, err)

	_, err = svc.CancelChallan(ctx, created.ID, CancelChallanRequest{Reason: " "})
	assert.True(t, shared.HasCode(err, purchasing.CodeValidation))

	cancelled, err := svc.CancelChallan(ctx, created.ID, CancelChallanRequest{Reason: "returned to vendor"})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", cancelled.Status)
	assert.Equal(t, created.Version+1, cancelled.Version)
	assert.Len(t, publisher.ofType(purchasing.EventTypeChallanCancelled), 1)

	pending, err := repo.FindPendingByVendor(ctx, testVendor)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = svc.CancelChallan(ctx, created.ID, CancelChallanRequest{Reason: "again"})
	assert.True(t, shared.HasCode(err, purchasing.CodeConflictingChallanState))

	_, err = svc.GetChallan(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
