package persistence

import (
	"context"

	apppurchasing "github.com/erp/purchasing/internal/application/purchasing"
	"github.com/erp/purchasing/internal/domain/purchasing"
	"github.com/erp/purchasing/internal/infrastructure/event"
	"gorm.io/gorm"
)

// GormPurchasingTransactionScope runs bill submission in one database transaction.
// With a serializer set, events raised by the submission are written to the
// outbox in the same transaction.
type GormPurchasingTransactionScope struct {
	db         *gorm.DB
	serializer *event.EventSerializer
}

// NewGormPurchasingTransactionScope creates a scope. serializer may be nil to
// disable the outbox.
func NewGormPurchasingTransactionScope(db *gorm.DB, serializer *event.EventSerializer) *GormPurchasingTransactionScope {
	return &GormPurchasingTransactionScope{db: db, serializer: serializer}
}

// Execute runs fn within a database transaction
func (s *GormPurchasingTransactionScope) Execute(ctx context.Context, fn func(repos apppurchasing.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormPurchasingRepositories{tx: tx, serializer: s.serializer})
	})
}

type gormPurchasingRepositories struct {
	tx         *gorm.DB
	serializer *event.EventSerializer
}

func (r *gormPurchasingRepositories) ChallanRepo() purchasing.ChallanRepository {
	return NewGormChallanRepository(r.tx)
}

func (r *gormPurchasingRepositories) BillRepo() purchasing.PurchaseBillRepository {
	return NewGormPurchaseBillRepository(r.tx)
}

func (r *gormPurchasingRepositories) HistoryRepo() purchasing.PaymentHistoryRepository {
	return NewGormPaymentHistoryRepository(r.tx)
}

func (r *gormPurchasingRepositories) Outbox() apppurchasing.EventOutbox {
	if r.serializer == nil {
		return nil
	}
	return event.NewOutboxWriter(r.serializer, r.tx)
}

var _ apppurchasing.TransactionScope = (*GormPurchasingTransactionScope)(nil)
var _ apppurchasing.TransactionalRepositories = (*gormPurchasingRepositories)(nil)
