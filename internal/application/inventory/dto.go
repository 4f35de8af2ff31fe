package inventory

import (
	"time"

	"github.com/erp/purchasing/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AdjustStockRequest is the adjustStock(sku, quantity, operation) boundary.
// Reference, when set, makes the adjustment idempotent.
type AdjustStockRequest struct {
	SKU         string
	ProductID   string
	ProductName string
	Quantity    decimal.Decimal
	UnitCost    decimal.Decimal
	Operation   inventory.StockOperation
	Reference   string
}

// StockItemResponse represents a stock level in API responses
type StockItemResponse struct {
	ID           uuid.UUID       `json:"id"`
	SKU          string          `json:"sku"`
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	LastUnitCost decimal.Decimal `json:"last_unit_cost"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Version      int             `json:"version"`
}

// StockMovementResponse represents one movement row
type StockMovementResponse struct {
	ID            uuid.UUID       `json:"id"`
	Operation     string          `json:"operation"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Reference     string          `json:"reference"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ToStockItemResponse converts a domain StockItem to its response
func ToStockItemResponse(item *inventory.StockItem) StockItemResponse {
	return StockItemResponse{
		ID:           item.ID,
		SKU:          item.SKU,
		ProductID:    item.ProductID,
		ProductName:  item.ProductName,
		Quantity:     item.Quantity,
		UnitCost:     item.UnitCost,
		LastUnitCost: item.LastUnitCost,
		UpdatedAt:    item.UpdatedAt,
		Version:      item.Version,
	}
}

// ToStockMovementResponses converts movement rows
func ToStockMovementResponses(movements []inventory.StockMovement) []StockMovementResponse {
	out := make([]StockMovementResponse, len(movements))
	for i, m := range movements {
		out[i] = StockMovementResponse{
			ID:            m.ID,
			Operation:     string(m.Operation),
			Quantity:      m.Quantity,
			UnitCost:      m.UnitCost,
			BalanceBefore: m.BalanceBefore,
			BalanceAfter:  m.BalanceAfter,
			Reference:     m.Reference,
			CreatedAt:     m.CreatedAt,
		}
	}
	return out
}
