package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/erp/purchasing/internal/domain/purchasing"
	"github.com/erp/purchasing/internal/infrastructure/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newSQLiteDB opens a migrated SQLite database in a temp dir
func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewDatabase(&config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })
	return db.DB
}

func testChallan(t *testing.T, vendorID, challanNo string) *purchasing.Challan {
	t.Helper()
	mfg := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c, err := purchasing.NewChallanFromStockIn(purchasing.StockInReceipt{
		ChallanNo:   challanNo,
		VendorID:    vendorID,
		VendorName:  "Vendor " + vendorID,
		ChallanDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Transport:   purchasing.Transport{Name: "Road", Number: "KA-01", Charges: decimal.NewFromInt(25)},
		Lines: []purchasing.StockInLine{
			{ProductID: "P1", ProductName: "Widget", Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(50), BatchNo: "B1", MfgDate: &mfg},
			{ProductID: "P2", ProductName: "Gadget", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(100)},
		},
	}, purchasing.NewTaxRateTable(purchasing.DefaultTaxRate()))
	require.NoError(t, err)
	c.ClearDomainEvents()
	return c
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	require.Truef(t, decimal.RequireFromString(expected).Equal(actual), "expected %s, got %s", expected, actual)
}
