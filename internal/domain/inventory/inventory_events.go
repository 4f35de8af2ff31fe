package inventory

import (
	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AggregateTypeStockItem is the aggregate type for StockItem
const AggregateTypeStockItem = "StockItem"

// Event type constants
const (
	EventTypeStockIncreased = "StockIncreased"
	EventTypeStockDecreased = "StockDecreased"
)

// StockIncreasedEvent is raised when stock is received
type StockIncreasedEvent struct {
	shared.BaseDomainEvent
	SKU           string          `json:"sku"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
}

// NewStockIncreasedEvent creates a new StockIncreasedEvent
func NewStockIncreasedEvent(item *StockItem, quantity, before decimal.Decimal) *StockIncreasedEvent {
	return &StockIncreasedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockIncreased, AggregateTypeStockItem, item.ID),
		SKU:             item.SKU,
		Quantity:        quantity,
		UnitCost:        item.LastUnitCost,
		BalanceBefore:   before,
		BalanceAfter:    item.Quantity,
	}
}

// EventType returns the event type name
func (e *StockIncreasedEvent) EventType() string {
	return EventTypeStockIncreased
}

// StockDecreasedEvent is raised when stock is removed
type StockDecreasedEvent struct {
	shared.BaseDomainEvent
	SKU           string          `json:"sku"`
	Quantity      decimal.Decimal `json:"quantity"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
}

// NewStockDecreasedEvent creates a new StockDecreasedEvent
func NewStockDecreasedEvent(item *StockItem, quantity, before decimal.Decimal) *StockDecreasedEvent {
	return &StockDecreasedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockDecreased, AggregateTypeStockItem, item.ID),
		SKU:             item.SKU,
		Quantity:        quantity,
		BalanceBefore:   before,
		BalanceAfter:    item.Quantity,
	}
}

// EventType returns the event type name
func (e *StockDecreasedEvent) EventType() string {
	return EventTypeStockDecreased
}
