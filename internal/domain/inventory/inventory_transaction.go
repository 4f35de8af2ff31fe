package inventory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockOperation is the direction of a stock adjustment
type StockOperation string

const (
	StockOperationAdd      StockOperation = "add"
	StockOperationSubtract StockOperation = "subtract"
)

// IsValid checks if the operation is known
func (o StockOperation) IsValid() bool {
	return o == StockOperationAdd || o == StockOperationSubtract
}

// StockMovement is the immutable audit row written for every adjustment.
// Reference is unique so a replayed adjustment cannot be applied twice.
type StockMovement struct {
	ID            uuid.UUID
	StockItemID   uuid.UUID
	SKU           string
	Operation     StockOperation
	Quantity      decimal.Decimal // always positive
	UnitCost      decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	Reference     string
	CreatedAt     time.Time
}

// NewStockMovement records an adjustment already applied to item
func NewStockMovement(item *StockItem, op StockOperation, quantity, unitCost, balanceBefore decimal.Decimal, reference string) *StockMovement {
	return &StockMovement{
		ID:            uuid.New(),
		StockItemID:   item.ID,
		SKU:           item.SKU,
		Operation:     op,
		Quantity:      quantity,
		UnitCost:      unitCost,
		BalanceBefore: balanceBefore,
		BalanceAfter:  item.Quantity,
		Reference:     reference,
		CreatedAt:     time.Now(),
	}
}

// BillLineReference is the movement reference for a purchase bill line
func BillLineReference(billID uuid.UUID, slNo int) string {
	return fmt.Sprintf("bill:%s:line:%d", billID, slNo)
}
