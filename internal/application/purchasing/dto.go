package purchasing

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/erp/purchasing/internal/domain/purchasing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Challan DTOs ====================

// StockInRequest represents goods received from the receiving desk
type StockInRequest struct {
	ChallanNo   string             `json:"challan_no" binding:"max=50"`
	VendorID    string             `json:"vendor_id" binding:"required,max=64"`
	VendorName  string             `json:"vendor_name" binding:"required,max=200"`
	ChallanDate string             `json:"challan_date"`
	Transport   TransportInput     `json:"transport"`
	Lines       []StockInLineInput `json:"lines" binding:"required,min=1,dive"`
}

// TransportInput describes how the goods arrived
type TransportInput struct {
	Name    string          `json:"name" binding:"max=100"`
	Number  string          `json:"number" binding:"max=50"`
	Charges decimal.Decimal `json:"charges"`
}

// StockInLineInput is one received product
type StockInLineInput struct {
	ProductID   string          `json:"product_id" binding:"required,max=64"`
	ProductName string          `json:"product_name" binding:"required,max=200"`
	HSNCode     string          `json:"hsn_code" binding:"max=20"`
	GSTRate     decimal.Decimal `json:"gst_rate" binding:"gstrate"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	BatchNo     string          `json:"batch_no" binding:"max=50"`
	MfgDate     string          `json:"mfg_date"`
	ExpDate     string          `json:"exp_date"`
}

// CancelChallanRequest withdraws a pending challan
type CancelChallanRequest struct {
	Reason string `json:"reason" binding:"required,max=255"`
}

// ChallanListFilter represents filter options for challan lists
type ChallanListFilter struct {
	VendorID string `form:"vendor_id"`
	Status   string `form:"status" binding:"omitempty,oneof=pending processed cancelled"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc ASC DESC"`
}

// ChallanResponse represents a challan in API responses
type ChallanResponse struct {
	ID              uuid.UUID             `json:"id"`
	ChallanNo       string                `json:"challan_no"`
	VendorID        string                `json:"vendor_id"`
	VendorName      string                `json:"vendor_name"`
	ChallanDate     time.Time             `json:"challan_date"`
	Transport       TransportInput        `json:"transport"`
	Status          string                `json:"status"`
	Lines           []ChallanLineResponse `json:"lines"`
	TotalAmount     decimal.Decimal       `json:"total_amount"`
	ProcessedBillID *uuid.UUID            `json:"processed_bill_id,omitempty"`
	ProcessedAt     *time.Time            `json:"processed_at,omitempty"`
	CancelReason    string                `json:"cancel_reason,omitempty"`
	Version         int                   `json:"version"`
	CreatedAt       time.Time             `json:"created_at"`
}

// ChallanLineResponse represents a challan line
type ChallanLineResponse struct {
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	SKU          string          `json:"sku"`
	HSNCode      string          `json:"hsn_code,omitempty"`
	GSTRate      decimal.Decimal `json:"gst_rate"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TaxableValue decimal.Decimal `json:"taxable_value"`
	SGST         decimal.Decimal `json:"sgst"`
	CGST         decimal.Decimal `json:"cgst"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	BatchNo      string          `json:"batch_no,omitempty"`
	MfgDate      *time.Time      `json:"mfg_date,omitempty"`
	ExpDate      *time.Time      `json:"exp_date,omitempty"`
}

// ToChallanResponse converts a domain Challan
func ToChallanResponse(c *purchasing.Challan) ChallanResponse {
	lines := make([]ChallanLineResponse, len(c.Lines))
	for i, l := range c.Lines {
		lines[i] = ChallanLineResponse{
			ProductID:    l.ProductID,
			ProductName:  l.ProductName,
			SKU:          l.SKU,
			HSNCode:      l.HSNCode,
			GSTRate:      l.GSTRate,
			Quantity:     l.Quantity,
			UnitPrice:    l.UnitPrice,
			TaxableValue: l.TaxableValue,
			SGST:         l.SGST,
			CGST:         l.CGST,
			TotalPrice:   l.TotalPrice,
			BatchNo:      l.BatchNo,
			MfgDate:      l.MfgDate,
			ExpDate:      l.ExpDate,
		}
	}
	return ChallanResponse{
		ID:              c.ID,
		ChallanNo:       c.ChallanNo,
		VendorID:        c.VendorID,
		VendorName:      c.VendorName,
		ChallanDate:     c.ChallanDate,
		Transport:       TransportInput{Name: c.Transport.Name, Number: c.Transport.Number, Charges: c.Transport.Charges},
		Status:          c.Status.String(),
		Lines:           lines,
		TotalAmount:     c.TotalAmount,
		ProcessedBillID: c.ProcessedBillID,
		ProcessedAt:     c.ProcessedAt,
		CancelReason:    c.CancelReason,
		Version:         c.Version,
		CreatedAt:       c.CreatedAt,
	}
}

// ToChallanResponses converts a list of challans
func ToChallanResponses(challans []*purchasing.Challan) []ChallanResponse {
	out := make([]ChallanResponse, len(challans))
	for i, c := range challans {
		out[i] = ToChallanResponse(c)
	}
	return out
}

// ==================== Selection DTOs ====================

// SelectChallanRequest adds a challan to the vendor's working selection
type SelectChallanRequest struct {
	ChallanID uuid.UUID `json:"challan_id" binding:"required"`
}

// SelectionResponse is the current working selection
type SelectionResponse struct {
	VendorID   string      `json:"vendor_id"`
	ChallanIDs []uuid.UUID `json:"challan_ids"`
}

// ==================== Purchase Bill DTOs ====================

// CreatePurchaseBillRequest builds a draft bill. ChallanIDs defaults to the selection.
type CreatePurchaseBillRequest struct {
	BillNo     string      `json:"bill_no" binding:"required,max=50"`
	BillDate   string      `json:"bill_date" binding:"required"`
	ChallanIDs []uuid.UUID `json:"challan_ids"`
}

// UpdateBillLineRequest edits one field of a bill line. Value may be a JSON string or number.
// ChallanID picks the line when several challans carry the product.
type UpdateBillLineRequest struct {
	ChallanID uuid.UUID       `json:"challan_id"`
	Field     string          `json:"field" binding:"required"`
	Value     json.RawMessage `json:"value"`
}

// ValueString returns the edit value as text
func (r UpdateBillLineRequest) ValueString() string {
	raw := bytes.TrimSpace(r.Value)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}

// UpdateAdvanceRequest sets the advance amount
type UpdateAdvanceRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// UpdatePaymentEntryRequest is a partial payment entry update; absent fields are untouched
type UpdatePaymentEntryRequest struct {
	TransactionTypes []string                   `json:"transaction_types"`
	Amounts          map[string]decimal.Decimal `json:"amounts"`
	ChequeNo         *string                    `json:"cheque_no"`
	BankName         *string                    `json:"bank_name"`
	UPIID            *string                    `json:"upi_id"`
	UPITransactionID *string                    `json:"upi_transaction_id"`
	DiscountReason   *string                    `json:"discount_reason"`
	PaymentDate      *string                    `json:"payment_date"`
	Reference        *string                    `json:"reference"`
}

// toDomain converts the request, parsing dates
func (r UpdatePaymentEntryRequest) toDomain() (purchasing.PaymentEntryUpdate, error) {
	u := purchasing.PaymentEntryUpdate{
		ChequeNo:         r.ChequeNo,
		BankName:         r.BankName,
		UPIID:            r.UPIID,
		UPITransactionID: r.UPITransactionID,
		DiscountReason:   r.DiscountReason,
		Reference:        r.Reference,
	}
	if r.TransactionTypes != nil {
		u.TransactionTypes = make([]purchasing.Instrument, len(r.TransactionTypes))
		for i, t := range r.TransactionTypes {
			u.TransactionTypes[i] = purchasing.Instrument(strings.ToLower(t))
		}
	}
	if r.Amounts != nil {
		u.Amounts = make(map[purchasing.Instrument]decimal.Decimal, len(r.Amounts))
		for k, v := range r.Amounts {
			u.Amounts[purchasing.Instrument(strings.ToLower(k))] = v
		}
	}
	if r.PaymentDate != nil {
		d, err := parseDate("payment_date", *r.PaymentDate)
		if err != nil {
			return u, err
		}
		u.PaymentDate = &d
	}
	return u, nil
}

// SelectProductRequest toggles a line for individual settlement
type SelectProductRequest struct {
	ChallanID uuid.UUID `json:"challan_id" binding:"required"`
	Selected  bool      `json:"selected"`
}

// PartialPaymentRequest applies a payment against one bill line
type PartialPaymentRequest struct {
	ChallanID   uuid.UUID                  `json:"challan_id" binding:"required"`
	ProductID   string                     `json:"product_id" binding:"required"`
	Amount      decimal.Decimal            `json:"amount"`
	Methods     map[string]decimal.Decimal `json:"payment_methods"`
	PaymentDate string                     `json:"payment_date"`
	Reference   string                     `json:"reference" binding:"max=100"`
}

func (r PartialPaymentRequest) toDomain() (purchasing.PartialPayment, error) {
	p := purchasing.PartialPayment{
		ChallanID: r.ChallanID,
		ProductID: r.ProductID,
		Amount:    r.Amount,
		Reference: r.Reference,
	}
	if len(r.Methods) > 0 {
		p.Methods = make(map[purchasing.Instrument]decimal.Decimal, len(r.Methods))
		for k, v := range r.Methods {
			p.Methods[purchasing.Instrument(strings.ToLower(k))] = v
		}
	}
	if r.PaymentDate != "" {
		d, err := parseDate("payment_date", r.PaymentDate)
		if err != nil {
			return p, err
		}
		p.PaymentDate = d
	}
	return p, nil
}

// PurchaseBillResponse represents a purchase bill with its derived balances
type PurchaseBillResponse struct {
	ID                   uuid.UUID            `json:"id"`
	BillNo               string               `json:"bill_no"`
	BillDate             time.Time            `json:"bill_date"`
	VendorID             string               `json:"vendor_id"`
	VendorName           string               `json:"vendor_name"`
	Status               string               `json:"status"`
	ChallanIDs           []uuid.UUID          `json:"challan_ids"`
	ChallanNumbers       []string             `json:"challan_numbers"`
	Lines                []BillLineResponse   `json:"lines"`
	Totals               BillTotalsResponse   `json:"totals"`
	AdvanceAmount        decimal.Decimal      `json:"advance_amount"`
	BalanceAfterAdvance  decimal.Decimal      `json:"balance_after_advance"`
	TotalPayment         decimal.Decimal      `json:"total_payment"`
	RemainingAmount      decimal.Decimal      `json:"remaining_amount"`
	PartialPaymentsTotal decimal.Decimal      `json:"partial_payments_total"`
	Payment              PaymentEntryResponse `json:"payment"`
	PaidAt               *time.Time           `json:"paid_at,omitempty"`
	Version              int                  `json:"version"`
	CreatedAt            time.Time            `json:"created_at"`
	UpdatedAt            time.Time            `json:"updated_at"`
}

// BillLineResponse represents a bill line
type BillLineResponse struct {
	SlNo                 int             `json:"sl_no"`
	ChallanID            uuid.UUID       `json:"challan_id"`
	ChallanNo            string          `json:"challan_no"`
	ProductID            string          `json:"product_id"`
	ProductName          string          `json:"product_name"`
	SKU                  string          `json:"sku"`
	HSNCode              string          `json:"hsn_code,omitempty"`
	GSTRate              decimal.Decimal `json:"gst_rate"`
	Quantity             decimal.Decimal `json:"quantity"`
	Rate                 decimal.Decimal `json:"rate"`
	Discount             decimal.Decimal `json:"discount"`
	DiscountAmount       decimal.Decimal `json:"discount_amount"`
	TaxableValue         decimal.Decimal `json:"taxable_value"`
	SGST                 decimal.Decimal `json:"sgst"`
	CGST                 decimal.Decimal `json:"cgst"`
	Total                decimal.Decimal `json:"total"`
	BillNo               string          `json:"bill_no"`
	BillDate             time.Time       `json:"bill_date"`
	BatchNo              string          `json:"batch_no,omitempty"`
	MfgDate              *time.Time      `json:"mfg_date,omitempty"`
	ExpDate              *time.Time      `json:"exp_date,omitempty"`
	IsSelected           bool            `json:"is_selected"`
	IsEditable           bool            `json:"is_editable"`
	PaymentStatus        string          `json:"payment_status"`
	PartialPaymentAmount decimal.Decimal `json:"partial_payment_amount"`
}

// BillTotalsResponse is the fold over bill lines
type BillTotalsResponse struct {
	Discount     decimal.Decimal `json:"discount"`
	TaxableValue decimal.Decimal `json:"taxable_value"`
	SGST         decimal.Decimal `json:"sgst"`
	CGST         decimal.Decimal `json:"cgst"`
	Total        decimal.Decimal `json:"total"`
}

// PaymentEntryResponse represents the bill-level payment entry
type PaymentEntryResponse struct {
	TransactionTypes []string                   `json:"transaction_types"`
	Amounts          map[string]decimal.Decimal `json:"amounts"`
	ChequeNo         string                     `json:"cheque_no,omitempty"`
	BankName         string                     `json:"bank_name,omitempty"`
	UPIID            string                     `json:"upi_id,omitempty"`
	UPITransactionID string                     `json:"upi_transaction_id,omitempty"`
	DiscountReason   string                     `json:"discount_reason,omitempty"`
	PaymentDate      time.Time                  `json:"payment_date"`
	Reference        string                     `json:"reference,omitempty"`
}

// ToPurchaseBillResponse converts a domain PurchaseBill
func ToPurchaseBillResponse(b *purchasing.PurchaseBill) PurchaseBillResponse {
	lines := make([]BillLineResponse, len(b.Lines))
	for i, l := range b.Lines {
		lines[i] = BillLineResponse{
			SlNo:                 l.SlNo,
			ChallanID:            l.ChallanID,
			ChallanNo:            l.ChallanNo,
			ProductID:            l.ProductID,
			ProductName:          l.ProductName,
			SKU:                  l.SKU,
			HSNCode:              l.HSNCode,
			GSTRate:              l.GSTRate,
			Quantity:             l.Quantity,
			Rate:                 l.Rate,
			Discount:             l.Discount,
			DiscountAmount:       l.DiscountAmount,
			TaxableValue:         l.TaxableValue,
			SGST:                 l.SGST,
			CGST:                 l.CGST,
			Total:                l.Total,
			BillNo:               l.BillNo,
			BillDate:             l.BillDate,
			BatchNo:              l.BatchNo,
			MfgDate:              l.MfgDate,
			ExpDate:              l.ExpDate,
			IsSelected:           l.IsSelected,
			IsEditable:           l.IsEditable(),
			PaymentStatus:        string(l.PaymentStatus),
			PartialPaymentAmount: l.PartialPaymentAmount,
		}
	}

	types := make([]string, len(b.Payment.TransactionTypes))
	amounts := make(map[string]decimal.Decimal, len(b.Payment.TransactionTypes))
	for i, t := range b.Payment.TransactionTypes {
		types[i] = t.String()
		amounts[t.String()] = b.Payment.AmountFor(t)
	}

	return PurchaseBillResponse{
		ID:             b.ID,
		BillNo:         b.BillNo,
		BillDate:       b.BillDate,
		VendorID:       b.VendorID,
		VendorName:     b.VendorName,
		Status:         b.Status.String(),
		ChallanIDs:     b.ChallanIDs(),
		ChallanNumbers: b.ChallanNumbers(),
		Lines:          lines,
		Totals: BillTotalsResponse{
			Discount:     b.Totals.Discount,
			TaxableValue: b.Totals.TaxableValue,
			SGST:         b.Totals.SGST,
			CGST:         b.Totals.CGST,
			Total:        b.Totals.Total,
		},
		AdvanceAmount:        b.AdvanceAmount,
		BalanceAfterAdvance:  b.BalanceAfterAdvance(),
		TotalPayment:         b.TotalPayment(),
		RemainingAmount:      b.RemainingAmount(),
		PartialPaymentsTotal: b.PartialPaymentsTotal(),
		Payment: PaymentEntryResponse{
			TransactionTypes: types,
			Amounts:          amounts,
			ChequeNo:         b.Payment.ChequeNo,
			BankName:         b.Payment.BankName,
			UPIID:            b.Payment.UPIID,
			UPITransactionID: b.Payment.UPITransactionID,
			DiscountReason:   b.Payment.DiscountReason,
			PaymentDate:      b.Payment.PaymentDate,
			Reference:        b.Payment.Reference,
		},
		PaidAt:    b.PaidAt,
		Version:   b.Version,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

// PartialPaymentResponse is the line after a partial payment
type PartialPaymentResponse struct {
	Line    BillLineResponse       `json:"line"`
	Bill    PurchaseBillResponse   `json:"bill"`
	History PaymentHistoryResponse `json:"history"`
}

// SubmitResponse is the result of a successful submission
type SubmitResponse struct {
	Bill            PurchaseBillResponse   `json:"bill"`
	History         PaymentHistoryResponse `json:"history"`
	PendingChallans []ChallanResponse      `json:"pending_challans"`
}

// ==================== Payment History DTOs ====================

// PaymentHistoryResponse represents one payment history row
type PaymentHistoryResponse struct {
	ID                uuid.UUID       `json:"id"`
	SrlNo             int             `json:"srl_no"`
	ActionDate        time.Time       `json:"action_date"`
	TaxInvoiceNo      string          `json:"tax_invoice_no"`
	VendorID          string          `json:"vendor_id"`
	VendorDescription string          `json:"vendor_description"`
	Amount            decimal.Decimal `json:"amount"`
	DiscountAmount    decimal.Decimal `json:"discount_amount"`
	NetAmount         decimal.Decimal `json:"net_amount"`
	Cash              decimal.Decimal `json:"cash"`
	Cheque            decimal.Decimal `json:"cheque"`
	Credit            decimal.Decimal `json:"credit"`
	UPI               decimal.Decimal `json:"upi"`
	Adjust            decimal.Decimal `json:"adjust"`
	Operation         string          `json:"operation"`
	BillID            uuid.UUID       `json:"bill_id"`
}

// ToPaymentHistoryResponse converts a history entry
func ToPaymentHistoryResponse(e purchasing.PaymentHistoryEntry) PaymentHistoryResponse {
	return PaymentHistoryResponse{
		ID:                e.ID,
		SrlNo:             e.SrlNo,
		ActionDate:        e.ActionDate,
		TaxInvoiceNo:      e.TaxInvoiceNo,
		VendorID:          e.VendorID,
		VendorDescription: e.VendorDescription,
		Amount:            e.Amount,
		DiscountAmount:    e.DiscountAmount,
		NetAmount:         e.NetAmount,
		Cash:              e.Cash,
		Cheque:            e.Cheque,
		Credit:            e.Credit,
		UPI:               e.UPI,
		Adjust:            e.Adjust,
		Operation:         string(e.Operation),
		BillID:            e.BillID,
	}
}

// PaymentHistoryFilter represents paging options for history lists
type PaymentHistoryFilter struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=500"`
}

func parseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(purchasing.DateLayout, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Time{}, purchasing.NewValidationError("%s must be a date (YYYY-MM-DD)", field)
}

func parseOptionalDate(field, value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	t, err := parseDate(field, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
