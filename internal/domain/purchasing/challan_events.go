package purchasing

import (
	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeChallan is the aggregate type for Challan
const AggregateTypeChallan = "Challan"

// Event types for Challan
const (
	EventTypeChallanReceived  = "ChallanReceived"
	EventTypeChallanProcessed = "ChallanProcessed"
	EventTypeChallanCancelled = "ChallanCancelled"
)

// ChallanReceivedEvent is raised when a challan is recorded
type ChallanReceivedEvent struct {
	shared.BaseDomainEvent
	ChallanID   uuid.UUID       `json:"challan_id"`
	ChallanNo   string          `json:"challan_no"`
	VendorID    string          `json:"vendor_id"`
	VendorName  string          `json:"vendor_name"`
	LineCount   int             `json:"line_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// NewChallanReceivedEvent creates a new ChallanReceivedEvent
func NewChallanReceivedEvent(c *Challan) *ChallanReceivedEvent {
	return &ChallanReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeChallanReceived, AggregateTypeChallan, c.ID),
		ChallanID:       c.ID,
		ChallanNo:       c.ChallanNo,
		VendorID:        c.VendorID,
		VendorName:      c.VendorName,
		LineCount:       len(c.Lines),
		TotalAmount:     c.TotalAmount,
	}
}

// EventType returns the event type name
func (e *ChallanReceivedEvent) EventType() string {
	return EventTypeChallanReceived
}

// ChallanProcessedEvent is raised when a challan is consolidated into a paid bill
type ChallanProcessedEvent struct {
	shared.BaseDomainEvent
	ChallanID uuid.UUID `json:"challan_id"`
	ChallanNo string    `json:"challan_no"`
	VendorID  string    `json:"vendor_id"`
	BillID    uuid.UUID `json:"bill_id"`
}

// NewChallanProcessedEvent creates a new ChallanProcessedEvent
func NewChallanProcessedEvent(c *Challan, billID uuid.UUID) *ChallanProcessedEvent {
	return &ChallanProcessedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeChallanProcessed, AggregateTypeChallan, c.ID),
		ChallanID:       c.ID,
		ChallanNo:       c.ChallanNo,
		VendorID:        c.VendorID,
		BillID:          billID,
	}
}

// EventType returns the event type name
func (e *ChallanProcessedEvent) EventType() string {
	return EventTypeChallanProcessed
}

// ChallanCancelledEvent is raised when a pending challan is withdrawn
type ChallanCancelledEvent struct {
	shared.BaseDomainEvent
	ChallanID uuid.UUID `json:"challan_id"`
	ChallanNo string    `json:"challan_no"`
	VendorID  string    `json:"vendor_id"`
	Reason    string    `json:"reason"`
}

// NewChallanCancelledEvent creates a new ChallanCancelledEvent
func NewChallanCancelledEvent(c *Challan, reason string) *ChallanCancelledEvent {
	return &ChallanCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeChallanCancelled, AggregateTypeChallan, c.ID),
		ChallanID:       c.ID,
		ChallanNo:       c.ChallanNo,
		VendorID:        c.VendorID,
		Reason:          reason,
	}
}

// EventType returns the event type name
func (e *ChallanCancelledEvent) EventType() string {
	return EventTypeChallanCancelled
}
