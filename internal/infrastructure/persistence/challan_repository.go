package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/purchasing/internal/domain/purchasing"
	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/erp/purchasing/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormChallanRepository implements ChallanRepository using GORM
type GormChallanRepository struct {
	db *gorm.DB
}

// NewGormChallanRepository creates a new GormChallanRepository
func NewGormChallanRepository(db *gorm.DB) *GormChallanRepository {
	return &GormChallanRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *GormChallanRepository) WithTx(tx *gorm.DB) *GormChallanRepository {
	return &GormChallanRepository{db: tx}
}

// FindByID finds a challan by its ID
func (r *GormChallanRepository) FindByID(ctx context.Context, id uuid.UUID) (*purchasing.Challan, error) {
	var model models.ChallanModel
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs loads challans in the order of ids
func (r *GormChallanRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*purchasing.Challan, error) {
	if len(ids) == 0 {
		return []*purchasing.Challan{}, nil
	}
	var rows []models.ChallanModel
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		Where("id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*models.ChallanModel, len(rows))
	for i := range rows {
		byID[rows[i].ID] = &rows[i]
	}
	result := make([]*purchasing.Challan, len(ids))
	for i, id := range ids {
		m, ok := byID[id]
		if !ok {
			return nil, shared.ErrNotFound
		}
		result[i] = m.ToDomain()
	}
	return result, nil
}

// FindPendingByVendor lists a vendor's pending challans, oldest first
func (r *GormChallanRepository) FindPendingByVendor(ctx context.Context, vendorID string) ([]*purchasing.Challan, error) {
	var rows []models.ChallanModel
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		Where("vendor_id = ? AND status = ?", vendorID, purchasing.ChallanStatusPending).
		Order("challan_date ASC, created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainChallans(rows), nil
}

// FindAll lists challans with pagination
func (r *GormChallanRepository) FindAll(ctx context.Context, filter shared.Filter) ([]*purchasing.Challan, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ChallanModel{})
	if v, ok := filter.Where["vendor_id"]; ok {
		query = query.Where("vendor_id = ?", v)
	}
	if v, ok := filter.Where["status"]; ok {
		query = query.Where("status = ?", v)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.ChallanModel
	err := query.
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		Order(orderClause(filter.OrderBy, filter.OrderDir, ChallanSortFields, "created_at")).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return toDomainChallans(rows), total, nil
}

// Save inserts a new challan with its lines
func (r *GormChallanRepository) Save(ctx context.Context, challan *purchasing.Challan) error {
	err := r.db.WithContext(ctx).Create(models.ChallanModelFromDomain(challan)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return purchasing.NewValidationError("challan number %s already exists", challan.ChallanNo)
	}
	return err
}

// SaveWithLock updates the challan's state only while the stored row is still
// pending at expectedVersion. Lines never change after creation.
func (r *GormChallanRepository) SaveWithLock(ctx context.Context, challan *purchasing.Challan, expectedVersion int) error {
	result := r.db.WithContext(ctx).
		Model(&models.ChallanModel{}).
		Where("id = ? AND version = ? AND status = ?", challan.ID, expectedVersion, purchasing.ChallanStatusPending).
		Updates(map[string]any{
			"status":            challan.Status,
			"processed_bill_id": challan.ProcessedBillID,
			"processed_at":      challan.ProcessedAt,
			"cancelled_at":      challan.CancelledAt,
			"cancel_reason":     challan.CancelReason,
			"version":           challan.Version,
			"updated_at":        challan.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("update challan %s: %w", challan.ChallanNo, result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

func toDomainChallans(rows []models.ChallanModel) []*purchasing.Challan {
	result := make([]*purchasing.Challan, len(rows))
	for i := range rows {
		result[i] = rows[i].ToDomain()
	}
	return result
}

var _ purchasing.ChallanRepository = (*GormChallanRepository)(nil)
