package persistence

import (
	"context"
	"fmt"

	"github.com/erp/purchasing/internal/domain/purchasing"
	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/erp/purchasing/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// nextSrlNoSQL bumps the vendor's counter row and returns the new value.
// The row lock taken by the upsert serializes concurrent appends.
const nextSrlNoSQL = `INSERT INTO payment_history_sequences (vendor_id, last_srl_no) VALUES (?, 1)
ON CONFLICT (vendor_id) DO UPDATE SET last_srl_no = payment_history_sequences.last_srl_no + 1
RETURNING last_srl_no`

// GormPaymentHistoryRepository implements PaymentHistoryRepository using GORM
type GormPaymentHistoryRepository struct {
	db *gorm.DB
}

// NewGormPaymentHistoryRepository creates a new GormPaymentHistoryRepository
func NewGormPaymentHistoryRepository(db *gorm.DB) *GormPaymentHistoryRepository {
	return &GormPaymentHistoryRepository{db: db}
}

// Append assigns the vendor's next serial number and stores the entry.
// Outside a transaction it opens its own so the counter and row commit together.
func (r *GormPaymentHistoryRepository) Append(ctx context.Context, entry *purchasing.PaymentHistoryEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var next int
		if err := tx.Raw(nextSrlNoSQL, entry.VendorID).Scan(&next).Error; err != nil {
			return fmt.Errorf("next serial for vendor %s: %w", entry.VendorID, err)
		}
		entry.SrlNo = next
		return tx.Create(models.PaymentHistoryModelFromDomain(entry)).Error
	})
}

// FindByVendor lists a vendor's entries, newest first
func (r *GormPaymentHistoryRepository) FindByVendor(ctx context.Context, vendorID string, filter shared.Filter) ([]purchasing.PaymentHistoryEntry, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.PaymentHistoryModel{}).Where("vendor_id = ?", vendorID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.PaymentHistoryModel
	q := query.Order("srl_no DESC")
	if filter.PageSize > 0 {
		q = q.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	entries := make([]purchasing.PaymentHistoryEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain()
	}
	return entries, total, nil
}

var _ purchasing.PaymentHistoryRepository = (*GormPaymentHistoryRepository)(nil)
