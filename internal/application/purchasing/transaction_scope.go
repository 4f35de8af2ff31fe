package purchasing

import (
	"context"

	"github.com/erp/purchasing/internal/domain/purchasing"
	"github.com/erp/purchasing/internal/domain/shared"
)

// TransactionScope runs submission writes atomically
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides the purchasing repositories bound to one transaction
type TransactionalRepositories interface {
	ChallanRepo() purchasing.ChallanRepository
	BillRepo() purchasing.PurchaseBillRepository
	HistoryRepo() purchasing.PaymentHistoryRepository
	// Outbox returns nil when the scope has no outbox; events are then
	// published directly after commit
	Outbox() EventOutbox
}

// EventOutbox stores events in the same transaction as the state change that raised them
type EventOutbox interface {
	SaveEvents(ctx context.Context, events ...shared.DomainEvent) error
}

// NoOpTransactionScope runs fn directly against the given repositories.
// Useful for tests.
type NoOpTransactionScope struct {
	challanRepo purchasing.ChallanRepository
	billRepo    purchasing.PurchaseBillRepository
	historyRepo purchasing.PaymentHistoryRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope
func NewNoOpTransactionScope(
	challanRepo purchasing.ChallanRepository,
	billRepo purchasing.PurchaseBillRepository,
	historyRepo purchasing.PaymentHistoryRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{challanRepo: challanRepo, billRepo: billRepo, historyRepo: historyRepo}
}

// Execute runs the function without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// ChallanRepo returns the challan repository.
func (s *NoOpTransactionScope) ChallanRepo() purchasing.ChallanRepository {
	return s.challanRepo
}

// BillRepo returns the purchase bill repository.
func (s *NoOpTransactionScope) BillRepo() purchasing.PurchaseBillRepository {
	return s.billRepo
}

// HistoryRepo returns the payment history repository.
func (s *NoOpTransactionScope) HistoryRepo() purchasing.PaymentHistoryRepository {
	return s.historyRepo
}

// Outbox returns nil; events are published after fn returns.
func (s *NoOpTransactionScope) Outbox() EventOutbox {
	return nil
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
