package purchasing

import (
	"context"

	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/google/uuid"
)

// ChallanRepository defines the interface for challan persistence
type ChallanRepository interface {
	// FindByID finds a challan by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Challan, error)

	// FindByIDs loads challans preserving the order of ids.
	// Returns ErrNotFound when any id is missing.
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*Challan, error)

	// FindPendingByVendor lists a vendor's pending challans, oldest first
	FindPendingByVendor(ctx context.Context, vendorID string) ([]*Challan, error)

	// FindAll lists challans; filters "vendor_id" and "status" are honoured
	FindAll(ctx context.Context, filter shared.Filter) ([]*Challan, int64, error)

	// Save inserts a new challan with its lines
	Save(ctx context.Context, challan *Challan) error

	// SaveWithLock persists a state change only if the stored version still
	// equals expectedVersion and the stored status is still pending.
	// Returns ErrConcurrencyConflict when no row matched.
	SaveWithLock(ctx context.Context, challan *Challan, expectedVersion int) error
}

// PurchaseBillRepository persists submitted bills
type PurchaseBillRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*PurchaseBill, error)
	FindByVendor(ctx context.Context, vendorID string, filter shared.Filter) ([]*PurchaseBill, int64, error)
	Save(ctx context.Context, bill *PurchaseBill) error
}

// PaymentHistoryRepository is the append-only payment ledger
type PaymentHistoryRepository interface {
	// Append assigns the next serial number for the vendor and stores the entry
	Append(ctx context.Context, entry *PaymentHistoryEntry) error

	// FindByVendor lists entries newest first
	FindByVendor(ctx context.Context, vendorID string, filter shared.Filter) ([]PaymentHistoryEntry, int64, error)
}
