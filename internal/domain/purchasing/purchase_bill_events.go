package purchasing

import (
	"time"

	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypePurchaseBill is the aggregate type for PurchaseBill
const AggregateTypePurchaseBill = "PurchaseBill"

// Event types for PurchaseBill
const (
	EventTypePurchaseBillCreated    = "PurchaseBillCreated"
	EventTypePurchaseBillPaid       = "PurchaseBillPaid"
	EventTypePartialPaymentRecorded = "PartialPaymentRecorded"
)

// PurchaseBillCreatedEvent is raised when a draft bill is built from challans
type PurchaseBillCreatedEvent struct {
	shared.BaseDomainEvent
	BillID     uuid.UUID       `json:"bill_id"`
	BillNo     string          `json:"bill_no"`
	VendorID   string          `json:"vendor_id"`
	ChallanIDs []uuid.UUID     `json:"challan_ids"`
	LineCount  int             `json:"line_count"`
	Total      decimal.Decimal `json:"total"`
}

// NewPurchaseBillCreatedEvent creates a new PurchaseBillCreatedEvent
func NewPurchaseBillCreatedEvent(b *PurchaseBill) *PurchaseBillCreatedEvent {
	return &PurchaseBillCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseBillCreated, AggregateTypePurchaseBill, b.ID),
		BillID:          b.ID,
		BillNo:          b.BillNo,
		VendorID:        b.VendorID,
		ChallanIDs:      b.ChallanIDs(),
		LineCount:       len(b.Lines),
		Total:           b.Totals.Total,
	}
}

// EventType returns the event type name
func (e *PurchaseBillCreatedEvent) EventType() string {
	return EventTypePurchaseBillCreated
}

// StockLine is the inventory increase owed for one bill line
type StockLine struct {
	SlNo        int             `json:"sl_no"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// PurchaseBillPaidEvent is raised when a bill is submitted
type PurchaseBillPaidEvent struct {
	shared.BaseDomainEvent
	BillID        uuid.UUID       `json:"bill_id"`
	BillNo        string          `json:"bill_no"`
	VendorID      string          `json:"vendor_id"`
	VendorName    string          `json:"vendor_name"`
	ChallanIDs    []uuid.UUID     `json:"challan_ids"`
	Total         decimal.Decimal `json:"total"`
	AdvanceAmount decimal.Decimal `json:"advance_amount"`
	TotalPayment  decimal.Decimal `json:"total_payment"`
	StockLines    []StockLine     `json:"stock_lines"`
	PaidAt        time.Time       `json:"paid_at"`
}

// NewPurchaseBillPaidEvent creates a new PurchaseBillPaidEvent
func NewPurchaseBillPaidEvent(b *PurchaseBill) *PurchaseBillPaidEvent {
	lines := make([]StockLine, len(b.Lines))
	for i, l := range b.Lines {
		lines[i] = StockLine{
			SlNo:        l.SlNo,
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			SKU:         l.SKU,
			Quantity:    l.Quantity,
			UnitPrice:   l.Rate,
		}
	}
	paidAt := time.Now()
	if b.PaidAt != nil {
		paidAt = *b.PaidAt
	}
	return &PurchaseBillPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseBillPaid, AggregateTypePurchaseBill, b.ID),
		BillID:          b.ID,
		BillNo:          b.BillNo,
		VendorID:        b.VendorID,
		VendorName:      b.VendorName,
		ChallanIDs:      b.ChallanIDs(),
		Total:           b.Totals.Total,
		AdvanceAmount:   b.AdvanceAmount,
		TotalPayment:    b.TotalPayment(),
		StockLines:      lines,
		PaidAt:          paidAt,
	}
}

// EventType returns the event type name
func (e *PurchaseBillPaidEvent) EventType() string {
	return EventTypePurchaseBillPaid
}

// PartialPaymentRecordedEvent is raised when money is applied to a single line
type PartialPaymentRecordedEvent struct {
	shared.BaseDomainEvent
	BillID            uuid.UUID                      `json:"bill_id"`
	VendorID          string                         `json:"vendor_id"`
	ChallanID         uuid.UUID                      `json:"challan_id"`
	ProductID         string                         `json:"product_id"`
	Amount            decimal.Decimal                `json:"amount"`
	Methods           map[Instrument]decimal.Decimal `json:"methods"`
	CumulativeAmount  decimal.Decimal                `json:"cumulative_amount"`
	LinePaymentStatus LinePaymentStatus              `json:"line_payment_status"`
	Reference         string                         `json:"reference"`
	PaymentDate       time.Time                      `json:"payment_date"`
}

// NewPartialPaymentRecordedEvent creates a new PartialPaymentRecordedEvent
func NewPartialPaymentRecordedEvent(b *PurchaseBill, line BillLine, p PartialPayment) *PartialPaymentRecordedEvent {
	return &PartialPaymentRecordedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypePartialPaymentRecorded, AggregateTypePurchaseBill, b.ID),
		BillID:            b.ID,
		VendorID:          b.VendorID,
		ChallanID:         p.ChallanID,
		ProductID:         p.ProductID,
		Amount:            p.Amount,
		Methods:           p.Methods,
		CumulativeAmount:  line.PartialPaymentAmount,
		LinePaymentStatus: line.PaymentStatus,
		Reference:         p.Reference,
		PaymentDate:       p.PaymentDate,
	}
}

// EventType returns the event type name
func (e *PartialPaymentRecordedEvent) EventType() string {
	return EventTypePartialPaymentRecorded
}
