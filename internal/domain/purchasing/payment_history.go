package purchasing

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// HistoryOperation is the kind of payment a history row records
type HistoryOperation string

const (
	HistoryOperationPurchaseBill   HistoryOperation = "purchase_bill"
	HistoryOperationPartialPayment HistoryOperation = "partial_payment"
)

// PaymentHistoryEntry is an append-only record of money paid to a vendor.
// SrlNo is assigned by the repository when the entry is appended.
type PaymentHistoryEntry struct {
	ID                uuid.UUID
	SrlNo             int
	ActionDate        time.Time
	TaxInvoiceNo      string
	VendorID          string
	VendorDescription string
	Amount            decimal.Decimal
	DiscountAmount    decimal.Decimal
	NetAmount         decimal.Decimal
	Cash              decimal.Decimal
	Cheque            decimal.Decimal
	Credit            decimal.Decimal
	UPI               decimal.Decimal
	Adjust            decimal.Decimal
	Operation         HistoryOperation
	BillID            uuid.UUID
	CreatedAt         time.Time
}

func describeVendor(vendorName string, challanNumbers []string) string {
	if len(challanNumbers) == 0 {
		return vendorName
	}
	return fmt.Sprintf("%s (challans %s)", vendorName, strings.Join(challanNumbers, ", "))
}

// NewBillHistoryEntry records a submitted bill
func NewBillHistoryEntry(b *PurchaseBill) PaymentHistoryEntry {
	discount := b.Payment.AmountFor(InstrumentDiscount)
	actionDate := time.Now()
	if b.PaidAt != nil {
		actionDate = *b.PaidAt
	}
	return PaymentHistoryEntry{
		ID:                uuid.New(),
		ActionDate:        actionDate,
		TaxInvoiceNo:      b.BillNo,
		VendorID:          b.VendorID,
		VendorDescription: describeVendor(b.VendorName, b.ChallanNumbers()),
		Amount:            b.Totals.Total,
		DiscountAmount:    discount,
		NetAmount:         b.Totals.Total.Sub(discount),
		Cash:              b.Payment.AmountFor(InstrumentCash),
		Cheque:            b.Payment.AmountFor(InstrumentCheque),
		Credit:            b.Payment.AmountFor(InstrumentCredit),
		UPI:               b.Payment.AmountFor(InstrumentUPI),
		Adjust:            b.AdvanceAmount,
		Operation:         HistoryOperationPurchaseBill,
		BillID:            b.ID,
		CreatedAt:         actionDate,
	}
}

// NewPartialPaymentHistoryEntry records a line-level payment on a draft bill
func NewPartialPaymentHistoryEntry(b *PurchaseBill, line BillLine, p PartialPayment) PaymentHistoryEntry {
	discount := p.Methods[InstrumentDiscount]
	invoice := p.Reference
	if invoice == "" {
		invoice = b.BillNo
	}
	actionDate := p.PaymentDate
	if actionDate.IsZero() {
		actionDate = time.Now()
	}
	return PaymentHistoryEntry{
		ID:                uuid.New(),
		ActionDate:        actionDate,
		TaxInvoiceNo:      invoice,
		VendorID:          b.VendorID,
		VendorDescription: fmt.Sprintf("%s / %s (%s)", b.VendorName, line.ProductName, line.ChallanNo),
		Amount:            p.Amount,
		DiscountAmount:    discount,
		NetAmount:         p.Amount.Sub(discount),
		Cash:              p.Methods[InstrumentCash],
		Cheque:            p.Methods[InstrumentCheque],
		Credit:            p.Methods[InstrumentCredit],
		UPI:               p.Methods[InstrumentUPI],
		Adjust:            decimal.Zero,
		Operation:         HistoryOperationPartialPayment,
		BillID:            b.ID,
		CreatedAt:         time.Now(),
	}
}
