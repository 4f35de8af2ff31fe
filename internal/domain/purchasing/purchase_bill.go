package purchasing

import (
	"strings"
	"time"

	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillStatus represents the lifecycle state of a purchase bill
type BillStatus string

const (
	BillStatusDraft BillStatus = "draft"
	BillStatusPaid  BillStatus = "paid"
)

// IsValid checks if the status is a known BillStatus
func (s BillStatus) IsValid() bool {
	return s == BillStatusDraft || s == BillStatusPaid
}

func (s BillStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether the status may move to target
func (s BillStatus) CanTransitionTo(target BillStatus) bool {
	return s == BillStatusDraft && target == BillStatusPaid
}

// LinePaymentStatus tracks partial settlement of a single bill line
type LinePaymentStatus string

const (
	LinePaymentUnpaid        LinePaymentStatus = "unpaid"
	LinePaymentPending       LinePaymentStatus = "pending"
	LinePaymentPartiallyPaid LinePaymentStatus = "partially_paid"
	LinePaymentFullyPaid     LinePaymentStatus = "fully_paid"
)

// IsValid checks if the status is a known LinePaymentStatus
func (s LinePaymentStatus) IsValid() bool {
	switch s {
	case LinePaymentUnpaid, LinePaymentPending, LinePaymentPartiallyPaid, LinePaymentFullyPaid:
		return true
	}
	return false
}

func (s LinePaymentStatus) rank() int {
	switch s {
	case LinePaymentPartiallyPaid:
		return 1
	case LinePaymentFullyPaid:
		return 2
	default:
		return 0
	}
}

// BillLine is one product line of a purchase bill
type BillLine struct {
	SlNo                 int
	ChallanID            uuid.UUID
	ChallanNo            string
	ProductID            string
	ProductName          string
	SKU                  string
	HSNCode              string
	GSTRate              decimal.Decimal // combined percent fixed at stock-in; zero defers to the lookup
	Quantity             decimal.Decimal
	Rate                 decimal.Decimal
	Discount             decimal.Decimal // percent
	DiscountAmount       decimal.Decimal
	TaxableValue         decimal.Decimal
	SGST                 decimal.Decimal
	CGST                 decimal.Decimal
	Total                decimal.Decimal
	BillNo               string
	BillDate             time.Time
	BatchNo              string
	MfgDate              *time.Time
	ExpDate              *time.Time
	IsSelected           bool
	PaymentStatus        LinePaymentStatus
	PartialPaymentAmount decimal.Decimal
}

// IsEditable reports whether the line can still be edited.
// Lines with money recorded against them are frozen.
func (l BillLine) IsEditable() bool {
	return l.PaymentStatus != LinePaymentPartiallyPaid && l.PaymentStatus != LinePaymentFullyPaid
}

func (l *BillLine) recalculate(rate TaxRate) {
	gross := l.Quantity.Mul(l.Rate)
	l.DiscountAmount = gross.Mul(l.Discount).Div(hundred)
	l.TaxableValue = gross.Sub(l.DiscountAmount)
	l.SGST, l.CGST = rate.Apply(l.TaxableValue)
	l.Total = l.TaxableValue.Add(l.SGST).Add(l.CGST)
}

// BillTotals is the field-wise sum over all bill lines
type BillTotals struct {
	Discount     decimal.Decimal
	TaxableValue decimal.Decimal
	SGST         decimal.Decimal
	CGST         decimal.Decimal
	Total        decimal.Decimal
}

// ChallanRef pins a consolidated challan at the version seen when the bill was built
type ChallanRef struct {
	ID        uuid.UUID
	ChallanNo string
	Version   int
}

// LineField names an editable bill line field
type LineField string

const (
	LineFieldQuantity LineField = "quantity"
	LineFieldRate     LineField = "rate"
	LineFieldDiscount LineField = "discount"

	LineFieldTaxableValue LineField = "taxableValue"
	LineFieldSGST         LineField = "sgst"
	LineFieldCGST         LineField = "cgst"
	LineFieldTotal        LineField = "total"

	LineFieldBillNo   LineField = "billNo"
	LineFieldBillDate LineField = "billDate"
	LineFieldHSNCode  LineField = "hsnCode"
	LineFieldBatchNo  LineField = "batchNo"
	LineFieldMfgDate  LineField = "mfgDate"
	LineFieldExpDate  LineField = "expDate"
)

// DateLayout is the layout accepted for date-valued line fields
const DateLayout = "2006-01-02"

// PurchaseBill consolidates one vendor's pending challans for payment
type PurchaseBill struct {
	shared.BaseAggregateRoot
	BillNo        string
	BillDate      time.Time
	VendorID      string
	VendorName    string
	Challans      []ChallanRef
	Lines         []BillLine
	Totals        BillTotals
	AdvanceAmount decimal.Decimal
	Payment       PaymentEntry
	Status        BillStatus
	PaidAt        *time.Time

	taxes TaxRateLookup
}

// NewPurchaseBill builds a draft bill from pending challans of a single vendor.
// Nothing is built when any challan fails validation.
func NewPurchaseBill(billNo string, billDate time.Time, challans []*Challan, taxes TaxRateLookup) (*PurchaseBill, error) {
	if strings.TrimSpace(billNo) == "" {
		return nil, NewValidationError("bill number is required")
	}
	if billDate.IsZero() {
		return nil, NewValidationError("bill date is required")
	}
	if len(challans) == 0 {
		return nil, NewValidationError("select at least one challan")
	}

	vendorID := challans[0].VendorID
	seen := make(map[uuid.UUID]bool, len(challans))
	for _, c := range challans {
		if c.VendorID != vendorID {
			return nil, NewValidationError("challan %s belongs to a different vendor", c.ChallanNo)
		}
		if !c.IsPending() {
			return nil, NewConflictingChallanStateError(c.ChallanNo, c.Status)
		}
		if seen[c.ID] {
			return nil, NewValidationError("challan %s selected more than once", c.ChallanNo)
		}
		seen[c.ID] = true
	}

	b := &PurchaseBill{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		BillNo:            billNo,
		BillDate:          billDate,
		VendorID:          vendorID,
		VendorName:        challans[0].VendorName,
		Challans:          make([]ChallanRef, 0, len(challans)),
		Lines:             make([]BillLine, 0),
		AdvanceAmount:     decimal.Zero,
		Payment:           NewPaymentEntry(time.Now()),
		Status:            BillStatusDraft,
		taxes:             taxes,
	}

	slNo := 1
	for _, c := range challans {
		b.Challans = append(b.Challans, ChallanRef{ID: c.ID, ChallanNo: c.ChallanNo, Version: c.Version})
		for _, cl := range c.Lines {
			b.Lines = append(b.Lines, BillLine{
				SlNo:                 slNo,
				ChallanID:            c.ID,
				ChallanNo:            c.ChallanNo,
				ProductID:            cl.ProductID,
				ProductName:          cl.ProductName,
				SKU:                  cl.SKU,
				HSNCode:              cl.HSNCode,
				GSTRate:              cl.GSTRate,
				Quantity:             cl.Quantity,
				Rate:                 cl.UnitPrice,
				Discount:             decimal.Zero,
				DiscountAmount:       decimal.Zero,
				TaxableValue:         cl.TaxableValue,
				SGST:                 cl.SGST,
				CGST:                 cl.CGST,
				Total:                cl.TotalPrice,
				BillNo:               billNo,
				BillDate:             billDate,
				BatchNo:              cl.BatchNo,
				MfgDate:              cl.MfgDate,
				ExpDate:              cl.ExpDate,
				PaymentStatus:        LinePaymentUnpaid,
				PartialPaymentAmount: decimal.Zero,
			})
			slNo++
		}
	}
	b.recalculateTotals()

	b.AddDomainEvent(NewPurchaseBillCreatedEvent(b))
	return b, nil
}

// SetTaxLookup replaces the lookup used when lines are recalculated
func (b *PurchaseBill) SetTaxLookup(taxes TaxRateLookup) {
	b.taxes = taxes
}

func (b *PurchaseBill) rateFor(line BillLine) TaxRate {
	if line.GSTRate.IsPositive() {
		return FromGSTRate(line.GSTRate)
	}
	if b.taxes == nil {
		return DefaultTaxRate()
	}
	return b.taxes.RateFor(line.ProductID, line.HSNCode)
}

// IsDraft reports whether the bill can still be edited
func (b *PurchaseBill) IsDraft() bool {
	return b.Status == BillStatusDraft
}

// ChallanIDs returns the consolidated challan IDs in selection order
func (b *PurchaseBill) ChallanIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(b.Challans))
	for i, ref := range b.Challans {
		ids[i] = ref.ID
	}
	return ids
}

// ChallanNumbers returns the consolidated challan numbers in selection order
func (b *PurchaseBill) ChallanNumbers() []string {
	nums := make([]string, len(b.Challans))
	for i, ref := range b.Challans {
		nums[i] = ref.ChallanNo
	}
	return nums
}

func (b *PurchaseBill) hasChallan(challanID uuid.UUID) bool {
	for _, ref := range b.Challans {
		if ref.ID == challanID {
			return true
		}
	}
	return false
}

func (b *PurchaseBill) ensureDraft() error {
	if !b.IsDraft() {
		return shared.NewDomainError(shared.CodeInvalidState, "Purchase bill "+b.BillNo+" is already paid")
	}
	return nil
}

// FindLine returns the first line for the product
func (b *PurchaseBill) FindLine(productID string) (*BillLine, bool) {
	for i := range b.Lines {
		if b.Lines[i].ProductID == productID {
			return &b.Lines[i], true
		}
	}
	return nil, false
}

func (b *PurchaseBill) findChallanLine(challanID uuid.UUID, productID string) (*BillLine, bool) {
	for i := range b.Lines {
		if b.Lines[i].ChallanID == challanID && b.Lines[i].ProductID == productID {
			return &b.Lines[i], true
		}
	}
	return nil, false
}

// UpdateLine edits one field of the first line matching productID.
// Quantity, rate and discount recompute the line; other fields are stored as given.
func (b *PurchaseBill) UpdateLine(productID string, field LineField, value string) error {
	return b.UpdateChallanLine(uuid.Nil, productID, field, value)
}

// UpdateChallanLine is UpdateLine restricted to the lines of one challan.
// A nil challanID targets the first line for the product on the whole bill.
func (b *PurchaseBill) UpdateChallanLine(challanID uuid.UUID, productID string, field LineField, value string) error {
	if err := b.ensureDraft(); err != nil {
		return err
	}
	var line *BillLine
	ok := false
	if challanID == uuid.Nil {
		line, ok = b.FindLine(productID)
	} else {
		if !b.hasChallan(challanID) {
			return NewValidationError("challan %s is not part of this bill", challanID)
		}
		line, ok = b.findChallanLine(challanID, productID)
	}
	if !ok {
		return shared.NewDomainError(shared.CodeNotFound, "Product "+productID+" is not on this bill")
	}
	if !line.IsEditable() {
		return shared.NewDomainError(shared.CodeInvalidState, "Line for product "+productID+" has payments recorded and cannot be edited")
	}

	value = strings.TrimSpace(value)
	updated := *line
	switch field {
	case LineFieldQuantity:
		qty, err := parseAmount(field, value)
		if err != nil {
			return err
		}
		if !qty.IsPositive() {
			return NewValidationError("quantity must be greater than zero")
		}
		updated.Quantity = qty
		updated.recalculate(b.rateFor(updated))
	case LineFieldRate:
		rate, err := parseNonNegative(field, value)
		if err != nil {
			return err
		}
		updated.Rate = rate
		updated.recalculate(b.rateFor(updated))
	case LineFieldDiscount:
		discount, err := parseNonNegative(field, value)
		if err != nil {
			return err
		}
		if discount.GreaterThan(hundred) {
			return NewValidationError("discount must be between 0 and 100")
		}
		updated.Discount = discount
		updated.recalculate(b.rateFor(updated))
	case LineFieldTaxableValue, LineFieldSGST, LineFieldCGST, LineFieldTotal:
		amount, err := parseNonNegative(field, value)
		if err != nil {
			return err
		}
		switch field {
		case LineFieldTaxableValue:
			updated.TaxableValue = amount
		case LineFieldSGST:
			updated.SGST = amount
		case LineFieldCGST:
			updated.CGST = amount
		default:
			updated.Total = amount
		}
	case LineFieldBillNo:
		updated.BillNo = value
	case LineFieldBillDate:
		date, err := parseDate(field, value)
		if err != nil {
			return err
		}
		if date == nil {
			return NewValidationError("billDate cannot be empty")
		}
		updated.BillDate = *date
	case LineFieldHSNCode:
		updated.HSNCode = value
	case LineFieldBatchNo:
		updated.BatchNo = value
	case LineFieldMfgDate, LineFieldExpDate:
		date, err := parseDate(field, value)
		if err != nil {
			return err
		}
		if field == LineFieldMfgDate {
			updated.MfgDate = date
		} else {
			updated.ExpDate = date
		}
	default:
		return NewValidationError("field %q cannot be edited", field)
	}

	*line = updated
	b.recalculateTotals()
	b.touch()
	return nil
}

func parseAmount(field LineField, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, NewValidationError("%s must be a number", field)
	}
	return d, nil
}

func parseNonNegative(field LineField, value string) (decimal.Decimal, error) {
	d, err := parseAmount(field, value)
	if err != nil {
		return d, err
	}
	if d.IsNegative() {
		return decimal.Zero, NewValidationError("%s cannot be negative", field)
	}
	return d, nil
}

func parseDate(field LineField, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, value); err != nil {
			return nil, NewValidationError("%s must be a date (YYYY-MM-DD)", field)
		}
	}
	return &t, nil
}

// SetAdvanceAmount records money paid to the vendor before instrument allocation
func (b *PurchaseBill) SetAdvanceAmount(amount decimal.Decimal) error {
	if err := b.ensureDraft(); err != nil {
		return err
	}
	if amount.IsNegative() {
		return NewValidationError("advance amount cannot be negative")
	}
	b.AdvanceAmount = amount
	b.touch()
	return nil
}

// UpdatePaymentEntry merges a partial payment entry update
func (b *PurchaseBill) UpdatePaymentEntry(update PaymentEntryUpdate) error {
	if err := b.ensureDraft(); err != nil {
		return err
	}
	if err := b.Payment.Apply(update); err != nil {
		return err
	}
	b.touch()
	return nil
}

// TotalPayment sums the amounts of the selected instruments
func (b *PurchaseBill) TotalPayment() decimal.Decimal {
	return b.Payment.TotalPayment()
}

// RemainingAmount is the outstanding balance that gates submission
func (b *PurchaseBill) RemainingAmount() decimal.Decimal {
	return b.Totals.Total.Sub(b.AdvanceAmount).Sub(b.TotalPayment())
}

// BalanceAfterAdvance is the subtotal shown before instruments are allocated
func (b *PurchaseBill) BalanceAfterAdvance() decimal.Decimal {
	return b.Totals.Total.Sub(b.AdvanceAmount)
}

// PartialPaymentsTotal sums line-level partial payments
func (b *PurchaseBill) PartialPaymentsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range b.Lines {
		total = total.Add(line.PartialPaymentAmount)
	}
	return total
}

// SelectProductForPayment marks a line for individual settlement
func (b *PurchaseBill) SelectProductForPayment(challanID uuid.UUID, productID string, selected bool) error {
	if err := b.ensureDraft(); err != nil {
		return err
	}
	if !b.hasChallan(challanID) {
		return NewValidationError("challan %s is not part of this bill", challanID)
	}
	line, ok := b.findChallanLine(challanID, productID)
	if !ok {
		return shared.NewDomainError(shared.CodeNotFound, "Product "+productID+" is not on this bill")
	}
	line.IsSelected = selected
	b.touch()
	return nil
}

// PartialPayment is a payment applied against a single bill line
type PartialPayment struct {
	ChallanID   uuid.UUID
	ProductID   string
	Amount      decimal.Decimal
	Methods     map[Instrument]decimal.Decimal
	PaymentDate time.Time
	Reference   string
}

// ProcessPartialPayment adds a payment to a line's cumulative partial amount.
// The bill-level remaining amount is not affected.
func (b *PurchaseBill) ProcessPartialPayment(p PartialPayment) (BillLine, error) {
	if err := b.ensureDraft(); err != nil {
		return BillLine{}, err
	}
	if !p.Amount.IsPositive() {
		return BillLine{}, NewValidationError("payment amount must be greater than zero")
	}
	if !b.hasChallan(p.ChallanID) {
		return BillLine{}, NewValidationError("challan %s is not part of this bill", p.ChallanID)
	}
	line, ok := b.findChallanLine(p.ChallanID, p.ProductID)
	if !ok {
		return BillLine{}, shared.NewDomainError(shared.CodeNotFound, "Product "+p.ProductID+" is not on this bill")
	}

	methods, err := normalizeMethods(p.Amount, p.Methods)
	if err != nil {
		return BillLine{}, err
	}
	p.Methods = methods
	if p.PaymentDate.IsZero() {
		p.PaymentDate = time.Now()
	}

	line.PartialPaymentAmount = line.PartialPaymentAmount.Add(p.Amount)
	next := line.PaymentStatus
	switch {
	case line.PartialPaymentAmount.GreaterThanOrEqual(line.Total):
		next = LinePaymentFullyPaid
	case line.PartialPaymentAmount.IsPositive():
		next = LinePaymentPartiallyPaid
	}
	if next.rank() > line.PaymentStatus.rank() {
		line.PaymentStatus = next
	}

	b.touch()
	b.AddDomainEvent(NewPartialPaymentRecordedEvent(b, *line, p))
	return *line, nil
}

// normalizeMethods defaults an empty split to cash and checks that it adds up
func normalizeMethods(amount decimal.Decimal, methods map[Instrument]decimal.Decimal) (map[Instrument]decimal.Decimal, error) {
	if len(methods) == 0 {
		return map[Instrument]decimal.Decimal{InstrumentCash: amount}, nil
	}
	sum := decimal.Zero
	out := make(map[Instrument]decimal.Decimal, len(methods))
	for instrument, v := range methods {
		if !instrument.IsValid() {
			return nil, NewValidationError("unknown payment instrument %q", instrument)
		}
		if v.IsNegative() {
			return nil, NewValidationError("amount for %s cannot be negative", instrument)
		}
		sum = sum.Add(v)
		out[instrument] = v
	}
	if !sum.Equal(amount) {
		return nil, NewValidationError("payment methods add up to %s, expected %s", sum.String(), amount.String())
	}
	return out, nil
}

// Submit finalizes the bill once nothing remains to be paid
func (b *PurchaseBill) Submit() error {
	if !b.Status.CanTransitionTo(BillStatusPaid) {
		return shared.NewDomainError(shared.CodeInvalidState, "Purchase bill "+b.BillNo+" is already paid")
	}
	remaining := b.RemainingAmount()
	if remaining.IsPositive() {
		return NewIncompletePaymentError(remaining)
	}

	now := time.Now()
	b.Status = BillStatusPaid
	b.PaidAt = &now
	b.UpdatedAt = now
	b.IncrementVersion()

	b.AddDomainEvent(NewPurchaseBillPaidEvent(b))
	return nil
}

// Clone returns a deep copy without pending events
func (b *PurchaseBill) Clone() *PurchaseBill {
	c := *b
	c.BaseAggregateRoot = shared.BaseAggregateRoot{BaseEntity: b.BaseEntity, Version: b.Version}
	c.Challans = append([]ChallanRef(nil), b.Challans...)
	c.Lines = append([]BillLine(nil), b.Lines...)
	c.Payment = b.Payment.clone()
	if b.PaidAt != nil {
		t := *b.PaidAt
		c.PaidAt = &t
	}
	return &c
}

func (b *PurchaseBill) touch() {
	b.UpdatedAt = time.Now()
}

func (b *PurchaseBill) recalculateTotals() {
	totals := BillTotals{}
	for _, line := range b.Lines {
		totals.Discount = totals.Discount.Add(line.DiscountAmount)
		totals.TaxableValue = totals.TaxableValue.Add(line.TaxableValue)
		totals.SGST = totals.SGST.Add(line.SGST)
		totals.CGST = totals.CGST.Add(line.CGST)
		totals.Total = totals.Total.Add(line.Total)
	}
	b.Totals = totals
}
