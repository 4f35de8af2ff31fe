package persistence

import (
	"context"
	"errors"

	"github.com/erp/purchasing/internal/domain/purchasing"
	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/erp/purchasing/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPurchaseBillRepository implements PurchaseBillRepository using GORM
type GormPurchaseBillRepository struct {
	db *gorm.DB
}

// NewGormPurchaseBillRepository creates a new GormPurchaseBillRepository
func NewGormPurchaseBillRepository(db *gorm.DB) *GormPurchaseBillRepository {
	return &GormPurchaseBillRepository{db: db}
}

func billLines(db *gorm.DB) *gorm.DB {
	return db.Order("sl_no ASC")
}

// FindByID finds a bill with its lines
func (r *GormPurchaseBillRepository) FindByID(ctx context.Context, id uuid.UUID) (*purchasing.PurchaseBill, error) {
	var model models.PurchaseBillModel
	err := r.db.WithContext(ctx).Preload("Lines", billLines).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByVendor lists a vendor's bills, newest payment first by default
func (r *GormPurchaseBillRepository) FindByVendor(ctx context.Context, vendorID string, filter shared.Filter) ([]*purchasing.PurchaseBill, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.PurchaseBillModel{}).Where("vendor_id = ?", vendorID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.PurchaseBillModel
	err := query.
		Preload("Lines", billLines).
		Order(orderClause(filter.OrderBy, filter.OrderDir, PurchaseBillSortFields, "paid_at")).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	bills := make([]*purchasing.PurchaseBill, len(rows))
	for i := range rows {
		bills[i] = rows[i].ToDomain()
	}
	return bills, total, nil
}

// Save inserts a submitted bill with its lines
func (r *GormPurchaseBillRepository) Save(ctx context.Context, bill *purchasing.PurchaseBill) error {
	return r.db.WithContext(ctx).Create(models.PurchaseBillModelFromDomain(bill)).Error
}

var _ purchasing.PurchaseBillRepository = (*GormPurchaseBillRepository)(nil)
