package purchasing

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChallanStatus represents the lifecycle state of a delivery challan
type ChallanStatus string

const (
	ChallanStatusPending   ChallanStatus = "pending"
	ChallanStatusProcessed ChallanStatus = "processed"
	ChallanStatusCancelled ChallanStatus = "cancelled"
)

// IsValid checks if the status is a known ChallanStatus
func (s ChallanStatus) IsValid() bool {
	switch s {
	case ChallanStatusPending, ChallanStatusProcessed, ChallanStatusCancelled:
		return true
	}
	return false
}

func (s ChallanStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether the status may move to target.
// Only pending challans move, and only once.
func (s ChallanStatus) CanTransitionTo(target ChallanStatus) bool {
	if s != ChallanStatusPending {
		return false
	}
	return target == ChallanStatusProcessed || target == ChallanStatusCancelled
}

// Transport describes how the goods arrived
type Transport struct {
	Name    string
	Number  string
	Charges decimal.Decimal
}

// ChallanLine is one product received on a challan
type ChallanLine struct {
	ProductID    string
	ProductName  string
	SKU          string
	HSNCode      string
	GSTRate      decimal.Decimal
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	TaxableValue decimal.Decimal
	SGST         decimal.Decimal
	CGST         decimal.Decimal
	TotalPrice   decimal.Decimal
	BatchNo      string
	MfgDate      *time.Time
	ExpDate      *time.Time
}

func (l ChallanLine) validate(index int) error {
	if strings.TrimSpace(l.ProductID) == "" {
		return NewValidationError("line %d: product id is required", index+1)
	}
	if !l.Quantity.IsPositive() {
		return NewValidationError("line %d: quantity must be positive", index+1)
	}
	if l.UnitPrice.IsNegative() {
		return NewValidationError("line %d: unit price cannot be negative", index+1)
	}
	if !l.TotalPrice.Equal(l.TaxableValue.Add(l.SGST).Add(l.CGST)) {
		return NewValidationError("line %d: total price must equal taxable value plus taxes", index+1)
	}
	return nil
}

// Challan is a vendor delivery record awaiting consolidation into a purchase bill
type Challan struct {
	shared.BaseAggregateRoot
	ChallanNo       string
	VendorID        string
	VendorName      string
	ChallanDate     time.Time
	Transport       Transport
	Status          ChallanStatus
	Lines           []ChallanLine
	TotalAmount     decimal.Decimal
	ProcessedBillID *uuid.UUID
	ProcessedAt     *time.Time
	CancelledAt     *time.Time
	CancelReason    string
}

// NewChallan creates a pending challan
func NewChallan(challanNo, vendorID, vendorName string, challanDate time.Time, transport Transport, lines []ChallanLine) (*Challan, error) {
	if strings.TrimSpace(vendorID) == "" {
		return nil, NewValidationError("vendor is required")
	}
	if strings.TrimSpace(challanNo) == "" {
		return nil, NewValidationError("challan number is required")
	}
	if len(lines) == 0 {
		return nil, NewValidationError("challan must have at least one line")
	}
	if transport.Charges.IsNegative() {
		return nil, NewValidationError("transport charges cannot be negative")
	}

	copied := make([]ChallanLine, len(lines))
	for i, line := range lines {
		if err := line.validate(i); err != nil {
			return nil, err
		}
		if line.SKU == "" {
			line.SKU = line.ProductID
		}
		copied[i] = line
	}
	if challanDate.IsZero() {
		challanDate = time.Now()
	}

	c := &Challan{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ChallanNo:         challanNo,
		VendorID:          vendorID,
		VendorName:        vendorName,
		ChallanDate:       challanDate,
		Transport:         transport,
		Status:            ChallanStatusPending,
		Lines:             copied,
	}
	c.recalculateTotal()
	c.AddDomainEvent(NewChallanReceivedEvent(c))
	return c, nil
}

// IsPending reports whether the challan can still be consolidated
func (c *Challan) IsPending() bool {
	return c.Status == ChallanStatusPending
}

// MarkProcessed records that the challan was consolidated into a paid bill
func (c *Challan) MarkProcessed(billID uuid.UUID) error {
	if !c.Status.CanTransitionTo(ChallanStatusProcessed) {
		return NewConflictingChallanStateError(c.ChallanNo, c.Status)
	}

	now := time.Now()
	c.Status = ChallanStatusProcessed
	c.ProcessedBillID = &billID
	c.ProcessedAt = &now
	c.UpdatedAt = now
	c.IncrementVersion()

	c.AddDomainEvent(NewChallanProcessedEvent(c, billID))
	return nil
}

// Cancel withdraws a pending challan so it can never be billed
func (c *Challan) Cancel(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return NewValidationError("cancel reason is required")
	}
	if !c.Status.CanTransitionTo(ChallanStatusCancelled) {
		return NewConflictingChallanStateError(c.ChallanNo, c.Status)
	}

	now := time.Now()
	c.Status = ChallanStatusCancelled
	c.CancelledAt = &now
	c.CancelReason = reason
	c.UpdatedAt = now
	c.IncrementVersion()

	c.AddDomainEvent(NewChallanCancelledEvent(c, reason))
	return nil
}

func (c *Challan) recalculateTotal() {
	total := decimal.Zero
	for _, line := range c.Lines {
		total = total.Add(line.TotalPrice)
	}
	c.TotalAmount = total
}

// PendingForVendor returns the vendor's pending challans, preserving order
func PendingForVendor(challans []*Challan, vendorID string) []*Challan {
	result := make([]*Challan, 0)
	for _, c := range challans {
		if c.VendorID == vendorID && c.IsPending() {
			result = append(result, c)
		}
	}
	return result
}

// StockInLine is a product line on a goods receipt
type StockInLine struct {
	ProductID   string
	ProductName string
	HSNCode     string
	GSTRate     decimal.Decimal
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TotalPrice  decimal.Decimal
	BatchNo     string
	MfgDate     *time.Time
	ExpDate     *time.Time
}

// StockInReceipt is what the goods-receipt desk hands over when goods arrive
type StockInReceipt struct {
	ChallanNo   string
	VendorID    string
	VendorName  string
	ChallanDate time.Time
	Transport   Transport
	Lines       []StockInLine
}

// NewChallanFromStockIn converts a goods receipt into a pending challan.
// The receipt's line amount becomes the taxable value and GST is added on top.
func NewChallanFromStockIn(receipt StockInReceipt, taxes TaxRateLookup) (*Challan, error) {
	lines := make([]ChallanLine, 0, len(receipt.Lines))
	for i, in := range receipt.Lines {
		if !in.Quantity.IsPositive() {
			return nil, NewValidationError("line %d: quantity must be positive", i+1)
		}

		rate := taxes.RateFor(in.ProductID, in.HSNCode)
		if in.GSTRate.IsPositive() {
			rate = FromGSTRate(in.GSTRate)
		}

		taxable := in.TotalPrice
		if taxable.IsZero() {
			taxable = in.Quantity.Mul(in.UnitPrice)
		}
		sgst, cgst := rate.Apply(taxable)

		lines = append(lines, ChallanLine{
			ProductID:    in.ProductID,
			ProductName:  in.ProductName,
			SKU:          in.ProductID,
			HSNCode:      in.HSNCode,
			GSTRate:      rate.Combined(),
			Quantity:     in.Quantity,
			UnitPrice:    in.UnitPrice,
			TaxableValue: taxable,
			SGST:         sgst,
			CGST:         cgst,
			TotalPrice:   taxable.Add(sgst).Add(cgst),
			BatchNo:      in.BatchNo,
			MfgDate:      in.MfgDate,
			ExpDate:      in.ExpDate,
		})
	}

	challanNo := receipt.ChallanNo
	if strings.TrimSpace(challanNo) == "" {
		challanNo = fmt.Sprintf("CH-%s-%s", time.Now().Format("20060102"), strings.ToUpper(uuid.NewString()[:6]))
	}
	return NewChallan(challanNo, receipt.VendorID, receipt.VendorName, receipt.ChallanDate, receipt.Transport, lines)
}
