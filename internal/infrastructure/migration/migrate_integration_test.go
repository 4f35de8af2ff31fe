//go:build integration

package migration_test

import (
	"testing"

	"github.com/erp/purchasing/internal/infrastructure/migration"
	"github.com/erp/purchasing/internal/infrastructure/testutil"
	"github.com/erp/purchasing/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMigrator_UpDownRoundTrip(t *testing.T) {
	pg := testutil.NewPostgres(t)

	names, err := migration.ListMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, names)

	m, err := migration.New(pg.SqlDB, zap.NewNop())
	require.NoError(t, err)

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.NotZero(t, version)

	// already applied by the container helper
	require.NoError(t, m.Up())

	require.NoError(t, m.Steps(-1))
	assert.False(t, pg.DB.Migrator().HasTable("outbox_events"))
	assert.True(t, pg.DB.Migrator().HasTable("challans"))

	require.NoError(t, m.Down())
	assert.False(t, pg.DB.Migrator().HasTable("challans"))

	require.NoError(t, m.Up())
	for _, table := range []string{"challans", "challan_lines", "purchase_bills", "purchase_bill_lines",
		"payment_history", "payment_history_sequences", "stock_items", "stock_movements", "outbox_events"} {
		assert.Truef(t, pg.DB.Migrator().HasTable(table), "table %s", table)
	}
}
