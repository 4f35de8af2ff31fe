package models

import (
	"time"

	"github.com/erp/purchasing/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockItemModel is the persistence model for the StockItem aggregate root
type StockItemModel struct {
	AggregateModel
	SKU          string          `gorm:"type:varchar(100);not null;uniqueIndex"`
	ProductID    string          `gorm:"type:varchar(100);not null;index"`
	ProductName  string          `gorm:"type:varchar(200)"`
	Quantity     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UnitCost     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LastUnitCost decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (StockItemModel) TableName() string {
	return "stock_items"
}

// ToDomain converts the persistence model to a domain StockItem
func (m *StockItemModel) ToDomain() *inventory.StockItem {
	return &inventory.StockItem{
		BaseAggregateRoot: m.ToAggregateRoot(),
		SKU:               m.SKU,
		ProductID:         m.ProductID,
		ProductName:       m.ProductName,
		Quantity:          m.Quantity,
		UnitCost:          m.UnitCost,
		LastUnitCost:      m.LastUnitCost,
	}
}

// StockItemModelFromDomain creates a persistence model from a domain StockItem
func StockItemModelFromDomain(i *inventory.StockItem) *StockItemModel {
	m := &StockItemModel{
		SKU:          i.SKU,
		ProductID:    i.ProductID,
		ProductName:  i.ProductName,
		Quantity:     i.Quantity,
		UnitCost:     i.UnitCost,
		LastUnitCost: i.LastUnitCost,
	}
	m.FromDomainAggregateRoot(i.BaseAggregateRoot)
	return m
}

// StockMovementModel is one row of the append-only movement log
type StockMovementModel struct {
	ID            uuid.UUID                `gorm:"type:uuid;primaryKey"`
	StockItemID   uuid.UUID                `gorm:"type:uuid;not null;index"`
	SKU           string                   `gorm:"type:varchar(100);not null;index:idx_stock_movement_sku_created,priority:1"`
	Operation     inventory.StockOperation `gorm:"type:varchar(20);not null"`
	Quantity      decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	UnitCost      decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	BalanceBefore decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	BalanceAfter  decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	Reference     *string                  `gorm:"type:varchar(200);uniqueIndex"`
	CreatedAt     time.Time                `gorm:"not null;index:idx_stock_movement_sku_created,priority:2"`
}

// TableName returns the table name for GORM
func (StockMovementModel) TableName() string {
	return "stock_movements"
}

// ToDomain converts the persistence model to a domain StockMovement
func (m *StockMovementModel) ToDomain() inventory.StockMovement {
	mv := inventory.StockMovement{
		ID:            m.ID,
		StockItemID:   m.StockItemID,
		SKU:           m.SKU,
		Operation:     m.Operation,
		Quantity:      m.Quantity,
		UnitCost:      m.UnitCost,
		BalanceBefore: m.BalanceBefore,
		BalanceAfter:  m.BalanceAfter,
		CreatedAt:     m.CreatedAt,
	}
	if m.Reference != nil {
		mv.Reference = *m.Reference
	}
	return mv
}

// StockMovementModelFromDomain creates a persistence model from a domain StockMovement
func StockMovementModelFromDomain(mv *inventory.StockMovement) *StockMovementModel {
	m := &StockMovementModel{
		ID:            mv.ID,
		StockItemID:   mv.StockItemID,
		SKU:           mv.SKU,
		Operation:     mv.Operation,
		Quantity:      mv.Quantity,
		UnitCost:      mv.UnitCost,
		BalanceBefore: mv.BalanceBefore,
		BalanceAfter:  mv.BalanceAfter,
		CreatedAt:     mv.CreatedAt,
	}
	// unreferenced movements must not collide on the unique index
	if mv.Reference != "" {
		ref := mv.Reference
		m.Reference = &ref
	}
	return m
}
