package purchasing

import (
	"testing"
	"time"

	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, dec(expected).Equal(actual), append([]any{"expected %s, got %s", expected, actual.String()}, msgAndArgs...)...)
}

// createTestChallan builds a pending challan via stock-in with the default 9/9 split
func createTestChallan(t *testing.T, vendorID, challanNo string, lines ...StockInLine) *Challan {
	t.Helper()
	if len(lines) == 0 {
		lines = []StockInLine{{ProductID: "P1", ProductName: "Widget", Quantity: dec("10"), UnitPrice: dec("50"), TotalPrice: dec("500")}}
	}
	c, err := NewChallanFromStockIn(StockInReceipt{
		ChallanNo:   challanNo,
		VendorID:    vendorID,
		VendorName:  "Vendor " + vendorID,
		ChallanDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Lines:       lines,
	}, NewTaxRateTable(DefaultTaxRate()))
	require.NoError(t, err)
	return c
}

// createTestBill builds a draft bill from a single default challan
func createTestBill(t *testing.T) (*PurchaseBill, *Challan) {
	t.Helper()
	c := createTestChallan(t, "V1", "CH-001")
	b, err := NewPurchaseBill("PB-001", time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), []*Challan{c}, NewTaxRateTable(DefaultTaxRate()))
	require.NoError(t, err)
	return b, c
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.Truef(t, shared.HasCode(err, code), "expected code %s, got %v", code, err)
}
