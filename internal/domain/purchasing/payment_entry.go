package purchasing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Instrument is a way of paying a vendor
type Instrument string

const (
	InstrumentCash     Instrument = "cash"
	InstrumentCheque   Instrument = "cheque"
	InstrumentCredit   Instrument = "credit"
	InstrumentDiscount Instrument = "discount"
	InstrumentUPI      Instrument = "upi"
)

// AllInstruments lists instruments in display order
var AllInstruments = []Instrument{InstrumentCash, InstrumentCheque, InstrumentCredit, InstrumentDiscount, InstrumentUPI}

// IsValid checks if the instrument is known
func (i Instrument) IsValid() bool {
	switch i {
	case InstrumentCash, InstrumentCheque, InstrumentCredit, InstrumentDiscount, InstrumentUPI:
		return true
	}
	return false
}

func (i Instrument) String() string {
	return string(i)
}

// PaymentEntry is the bill-level record of how the vendor is being paid
type PaymentEntry struct {
	TransactionTypes []Instrument
	Amounts          map[Instrument]decimal.Decimal
	ChequeNo         string
	BankName         string
	UPIID            string
	UPITransactionID string
	DiscountReason   string
	PaymentDate      time.Time
	Reference        string
}

// NewPaymentEntry starts with cash selected at zero
func NewPaymentEntry(paymentDate time.Time) PaymentEntry {
	return PaymentEntry{
		TransactionTypes: []Instrument{InstrumentCash},
		Amounts:          map[Instrument]decimal.Decimal{InstrumentCash: decimal.Zero},
		PaymentDate:      paymentDate,
	}
}

// IsSelected reports whether the instrument is in the selected set
func (p PaymentEntry) IsSelected(instrument Instrument) bool {
	for _, t := range p.TransactionTypes {
		if t == instrument {
			return true
		}
	}
	return false
}

// AmountFor returns the amount applied through an instrument, zero when not selected
func (p PaymentEntry) AmountFor(instrument Instrument) decimal.Decimal {
	if !p.IsSelected(instrument) {
		return decimal.Zero
	}
	return p.Amounts[instrument]
}

// TotalPayment sums the amounts of the selected instruments only
func (p PaymentEntry) TotalPayment() decimal.Decimal {
	total := decimal.Zero
	for _, t := range p.TransactionTypes {
		total = total.Add(p.Amounts[t])
	}
	return total
}

func (p PaymentEntry) clone() PaymentEntry {
	c := p
	c.TransactionTypes = append([]Instrument(nil), p.TransactionTypes...)
	c.Amounts = make(map[Instrument]decimal.Decimal, len(p.Amounts))
	for k, v := range p.Amounts {
		c.Amounts[k] = v
	}
	return c
}

// PaymentEntryUpdate is a partial update; nil fields are left untouched
type PaymentEntryUpdate struct {
	TransactionTypes []Instrument
	Amounts          map[Instrument]decimal.Decimal
	ChequeNo         *string
	BankName         *string
	UPIID            *string
	UPITransactionID *string
	DiscountReason   *string
	PaymentDate      *time.Time
	Reference        *string
}

// Apply merges the update. Validation happens before anything is written,
// so a rejected update leaves the entry unchanged.
func (p *PaymentEntry) Apply(u PaymentEntryUpdate) error {
	types := p.TransactionTypes
	if u.TransactionTypes != nil {
		seen := make(map[Instrument]bool, len(u.TransactionTypes))
		types = make([]Instrument, 0, len(u.TransactionTypes))
		for _, t := range u.TransactionTypes {
			if !t.IsValid() {
				return NewValidationError("unknown payment instrument %q", t)
			}
			if seen[t] {
				continue
			}
			seen[t] = true
			types = append(types, t)
		}
	}

	next := PaymentEntry{TransactionTypes: types}
	amounts := make(map[Instrument]decimal.Decimal, len(types))
	for _, t := range types {
		// deselected instruments drop their amounts
		if amount, ok := p.Amounts[t]; ok && p.IsSelected(t) {
			amounts[t] = amount
		} else {
			amounts[t] = decimal.Zero
		}
	}
	for instrument, amount := range u.Amounts {
		if !instrument.IsValid() {
			return NewValidationError("unknown payment instrument %q", instrument)
		}
		if !next.IsSelected(instrument) {
			return NewValidationError("instrument %s is not selected", instrument)
		}
		if amount.IsNegative() {
			return NewValidationError("amount for %s cannot be negative", instrument)
		}
		amounts[instrument] = amount
	}

	p.TransactionTypes = types
	p.Amounts = amounts
	if u.ChequeNo != nil {
		p.ChequeNo = *u.ChequeNo
	}
	if u.BankName != nil {
		p.BankName = *u.BankName
	}
	if u.UPIID != nil {
		p.UPIID = *u.UPIID
	}
	if u.UPITransactionID != nil {
		p.UPITransactionID = *u.UPITransactionID
	}
	if u.DiscountReason != nil {
		p.DiscountReason = *u.DiscountReason
	}
	if u.PaymentDate != nil {
		p.PaymentDate = *u.PaymentDate
	}
	if u.Reference != nil {
		p.Reference = *u.Reference
	}
	p.clearDeselectedDetails()
	return nil
}

func (p *PaymentEntry) clearDeselectedDetails() {
	if !p.IsSelected(InstrumentCheque) {
		p.ChequeNo = ""
		p.BankName = ""
	}
	if !p.IsSelected(InstrumentUPI) {
		p.UPIID = ""
		p.UPITransactionID = ""
	}
	if !p.IsSelected(InstrumentDiscount) {
		p.DiscountReason = ""
	}
}
