package inventory

import (
	"context"
)

// StockItemRepository defines the interface for stock item persistence
type StockItemRepository interface {
	// FindBySKU returns shared.ErrNotFound when the SKU has never been stocked
	FindBySKU(ctx context.Context, sku string) (*StockItem, error)

	// Save inserts a stock item that has never been stocked
	Save(ctx context.Context, item *StockItem) error

	// SaveWithLock updates only if the stored version equals expectedVersion
	SaveWithLock(ctx context.Context, item *StockItem, expectedVersion int) error
}

// StockMovementRepository is the append-only movement log
type StockMovementRepository interface {
	Create(ctx context.Context, movement *StockMovement) error
	ExistsByReference(ctx context.Context, reference string) (bool, error)
	FindBySKU(ctx context.Context, sku string, limit int) ([]StockMovement, error)
}
