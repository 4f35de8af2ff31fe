package inventory

import (
	"strings"
	"time"

	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// StockItem is the on-hand quantity of one SKU
type StockItem struct {
	shared.BaseAggregateRoot
	SKU          string
	ProductID    string
	ProductName  string
	Quantity     decimal.Decimal
	UnitCost     decimal.Decimal // moving average
	LastUnitCost decimal.Decimal
}

// NewStockItem creates an empty stock item
func NewStockItem(sku, productID, productName string) (*StockItem, error) {
	if strings.TrimSpace(sku) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "SKU is required")
	}
	if productID == "" {
		productID = sku
	}
	return &StockItem{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SKU:               sku,
		ProductID:         productID,
		ProductName:       productName,
		Quantity:          decimal.Zero,
		UnitCost:          decimal.Zero,
		LastUnitCost:      decimal.Zero,
	}, nil
}

// Increase adds received stock and folds its cost into the moving average
func (i *StockItem) Increase(quantity, unitCost decimal.Decimal) error {
	if !quantity.IsPositive() {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitCost.IsNegative() {
		return shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
	}

	before := i.Quantity
	if before.IsZero() {
		i.UnitCost = unitCost
	} else {
		// (oldQty*oldCost + qty*cost) / (oldQty + qty)
		value := before.Mul(i.UnitCost).Add(quantity.Mul(unitCost))
		i.UnitCost = value.Div(before.Add(quantity)).Round(4)
	}
	i.LastUnitCost = unitCost
	i.Quantity = before.Add(quantity)
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	i.AddDomainEvent(NewStockIncreasedEvent(i, quantity, before))
	return nil
}

// Decrease removes stock, never below zero
func (i *StockItem) Decrease(quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if quantity.GreaterThan(i.Quantity) {
		return shared.ErrInsufficientStock
	}

	before := i.Quantity
	i.Quantity = before.Sub(quantity)
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	i.AddDomainEvent(NewStockDecreasedEvent(i, quantity, before))
	return nil
}
