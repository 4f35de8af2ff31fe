package persistence

import (
	"context"
	"errors"

	"github.com/erp/purchasing/internal/domain/inventory"
	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/erp/purchasing/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormStockItemRepository implements StockItemRepository using GORM
type GormStockItemRepository struct {
	db *gorm.DB
}

// NewGormStockItemRepository creates a new GormStockItemRepository
func NewGormStockItemRepository(db *gorm.DB) *GormStockItemRepository {
	return &GormStockItemRepository{db: db}
}

// FindBySKU finds a stock item by SKU
func (r *GormStockItemRepository) FindBySKU(ctx context.Context, sku string) (*inventory.StockItem, error) {
	var model models.StockItemModel
	if err := r.db.WithContext(ctx).First(&model, "sku = ?", sku).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save inserts a stock item seen for the first time. A concurrent first
// insert of the same SKU surfaces as a concurrency conflict so the caller reloads.
func (r *GormStockItemRepository) Save(ctx context.Context, item *inventory.StockItem) error {
	err := r.db.WithContext(ctx).Create(models.StockItemModelFromDomain(item)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrConcurrencyConflict.Wrap(err)
	}
	return err
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormStockItemRepository) SaveWithLock(ctx context.Context, item *inventory.StockItem, expectedVersion int) error {
	result := r.db.WithContext(ctx).
		Model(&models.StockItemModel{}).
		Where("id = ? AND version = ?", item.ID, expectedVersion).
		Updates(map[string]any{
			"product_name":   item.ProductName,
			"quantity":       item.Quantity,
			"unit_cost":      item.UnitCost,
			"last_unit_cost": item.LastUnitCost,
			"version":        item.Version,
			"updated_at":     item.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

var _ inventory.StockItemRepository = (*GormStockItemRepository)(nil)

// GormStockMovementRepository implements StockMovementRepository using GORM
type GormStockMovementRepository struct {
	db *gorm.DB
}

// NewGormStockMovementRepository creates a new GormStockMovementRepository
func NewGormStockMovementRepository(db *gorm.DB) *GormStockMovementRepository {
	return &GormStockMovementRepository{db: db}
}

// Create appends a movement. A replayed reference is a concurrency conflict.
func (r *GormStockMovementRepository) Create(ctx context.Context, movement *inventory.StockMovement) error {
	err := r.db.WithContext(ctx).Create(models.StockMovementModelFromDomain(movement)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrConcurrencyConflict.Wrap(err)
	}
	return err
}

// ExistsByReference reports whether a movement with reference was recorded
func (r *GormStockMovementRepository) ExistsByReference(ctx context.Context, reference string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.StockMovementModel{}).
		Where("reference = ?", reference).
		Count(&count).Error
	return count > 0, err
}

// FindBySKU returns the latest movements of a SKU, newest first
func (r *GormStockMovementRepository) FindBySKU(ctx context.Context, sku string, limit int) ([]inventory.StockMovement, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.StockMovementModel
	err := r.db.WithContext(ctx).
		Where("sku = ?", sku).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]inventory.StockMovement, len(rows))
	for i := range rows {
		result[i] = rows[i].ToDomain()
	}
	return result, nil
}

var _ inventory.StockMovementRepository = (*GormStockMovementRepository)(nil)
