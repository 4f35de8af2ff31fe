package models

import (
	"time"

	"github.com/erp/purchasing/internal/domain/purchasing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChallanModel is the persistence model for the Challan aggregate root
type ChallanModel struct {
	AggregateModel
	ChallanNo        string                   `gorm:"type:varchar(50);not null;uniqueIndex"`
	VendorID         string                   `gorm:"type:varchar(100);not null;index:idx_challan_vendor_status,priority:1"`
	VendorName       string                   `gorm:"type:varchar(200)"`
	ChallanDate      time.Time                `gorm:"not null"`
	TransportName    string                   `gorm:"type:varchar(100)"`
	TransportNumber  string                   `gorm:"type:varchar(50)"`
	TransportCharges decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	Status           purchasing.ChallanStatus `gorm:"type:varchar(20);not null;index:idx_challan_vendor_status,priority:2"`
	TotalAmount      decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	ProcessedBillID  *uuid.UUID               `gorm:"type:uuid;index"`
	ProcessedAt      *time.Time
	CancelledAt      *time.Time
	CancelReason     string             `gorm:"type:varchar(500)"`
	Lines            []ChallanLineModel `gorm:"foreignKey:ChallanID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (ChallanModel) TableName() string {
	return "challans"
}

// ChallanLineModel is one product line of a challan
type ChallanLineModel struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ChallanID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineNo       int             `gorm:"not null"`
	ProductID    string          `gorm:"type:varchar(100);not null"`
	ProductName  string          `gorm:"type:varchar(200)"`
	SKU          string          `gorm:"type:varchar(100)"`
	HSNCode      string          `gorm:"type:varchar(20)"`
	GSTRate      decimal.Decimal `gorm:"type:decimal(8,4);not null;default:0"`
	Quantity     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TaxableValue decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	SGST         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CGST         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TotalPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	BatchNo      string          `gorm:"type:varchar(50)"`
	MfgDate      *time.Time
	ExpDate      *time.Time
}

// TableName returns the table name for GORM
func (ChallanLineModel) TableName() string {
	return "challan_lines"
}

// ToDomain converts the persistence model to a domain Challan
func (m *ChallanModel) ToDomain() *purchasing.Challan {
	c := &purchasing.Challan{
		BaseAggregateRoot: m.ToAggregateRoot(),
		ChallanNo:         m.ChallanNo,
		VendorID:          m.VendorID,
		VendorName:        m.VendorName,
		ChallanDate:       m.ChallanDate,
		Transport: purchasing.Transport{
			Name:    m.TransportName,
			Number:  m.TransportNumber,
			Charges: m.TransportCharges,
		},
		Status:          m.Status,
		Lines:           make([]purchasing.ChallanLine, len(m.Lines)),
		TotalAmount:     m.TotalAmount,
		ProcessedBillID: m.ProcessedBillID,
		ProcessedAt:     m.ProcessedAt,
		CancelledAt:     m.CancelledAt,
		CancelReason:    m.CancelReason,
	}
	for i, l := range m.Lines {
		c.Lines[i] = purchasing.ChallanLine{
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
	return c
}

// ChallanModelFromDomain creates a persistence model from a domain Challan
func ChallanModelFromDomain(c *purchasing.Challan) *ChallanModel {
	m := &ChallanModel{
		ChallanNo:        c.ChallanNo,
		VendorID:         c.VendorID,
		VendorName:       c.VendorName,
		ChallanDate:      c.ChallanDate,
		TransportName:    c.Transport.Name,
		TransportNumber:  c.Transport.Number,
		TransportCharges: c.Transport.Charges,
		Status:           c.Status,
		TotalAmount:      c.TotalAmount,
		ProcessedBillID:  c.ProcessedBillID,
		ProcessedAt:      c.ProcessedAt,
		CancelledAt:      c.CancelledAt,
		CancelReason:     c.CancelReason,
		Lines:            make([]ChallanLineModel, len(c.Lines)),
	}
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	for i, l := range c.Lines {
		m.Lines[i] = ChallanLineModel{
			ID:           uuid.New(),
			ChallanID:    c.ID,
			LineNo:       i + 1,
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
	return m
}

// PurchaseBillModel is the persistence model for a submitted PurchaseBill
type PurchaseBillModel struct {
	AggregateModel
	BillNo        string                  `gorm:"type:varchar(50);not null;index"`
	BillDate      time.Time               `gorm:"not null"`
	VendorID      string                  `gorm:"type:varchar(100);not null;index:idx_purchase_bill_vendor_paid,priority:1"`
	VendorName    string                  `gorm:"type:varchar(200)"`
	Challans      []purchasing.ChallanRef `gorm:"type:text;serializer:json"`
	Discount      decimal.Decimal         `gorm:"type:decimal(18,4);not null;default:0"`
	TaxableValue  decimal.Decimal         `gorm:"type:decimal(18,4);not null;default:0"`
	SGST          decimal.Decimal         `gorm:"type:decimal(18,4);not null;default:0"`
	CGST          decimal.Decimal         `gorm:"type:decimal(18,4);not null;default:0"`
	Total         decimal.Decimal         `gorm:"type:decimal(18,4);not null;default:0"`
	AdvanceAmount decimal.Decimal         `gorm:"type:decimal(18,4);not null;default:0"`
	Payment       purchasing.PaymentEntry `gorm:"type:text;serializer:json"`
	Status        purchasing.BillStatus   `gorm:"type:varchar(20);not null"`
	PaidAt        *time.Time              `gorm:"index:idx_purchase_bill_vendor_paid,priority:2"`
	Lines         []PurchaseBillLineModel `gorm:"foreignKey:BillID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (PurchaseBillModel) TableName() string {
	return "purchase_bills"
}

// PurchaseBillLineModel is one product line of a purchase bill
type PurchaseBillLineModel struct {
	ID                   uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BillID               uuid.UUID       `gorm:"type:uuid;not null;index"`
	SlNo                 int             `gorm:"not null"`
	ChallanID            uuid.UUID       `gorm:"type:uuid;not null"`
	ChallanNo            string          `gorm:"type:varchar(50)"`
	ProductID            string          `gorm:"type:varchar(100);not null"`
	ProductName          string          `gorm:"type:varchar(200)"`
	SKU                  string          `gorm:"type:varchar(100)"`
	HSNCode              string          `gorm:"type:varchar(20)"`
	GSTRate              decimal.Decimal `gorm:"type:decimal(8,4);not null;default:0"`
	Quantity             decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Rate                 decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Discount             decimal.Decimal `gorm:"type:decimal(8,4);not null;default:0"`
	DiscountAmount       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TaxableValue         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	SGST                 decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CGST                 decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Total                decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LineBillNo           string          `gorm:"column:line_bill_no;type:varchar(50)"`
	LineBillDate         time.Time       `gorm:"column:line_bill_date"`
	BatchNo              string          `gorm:"type:varchar(50)"`
	MfgDate              *time.Time
	ExpDate              *time.Time
	IsSelected           bool                         `gorm:"not null;default:false"`
	PaymentStatus        purchasing.LinePaymentStatus `gorm:"type:varchar(20);not null"`
	PartialPaymentAmount decimal.Decimal              `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (PurchaseBillLineModel) TableName() string {
	return "purchase_bill_lines"
}

// ToDomain converts the persistence model to a domain PurchaseBill.
// The tax lookup is not persisted; callers that edit the bill must set it.
func (m *PurchaseBillModel) ToDomain() *purchasing.PurchaseBill {
	b := &purchasing.PurchaseBill{
		BaseAggregateRoot: m.ToAggregateRoot(),
		BillNo:            m.BillNo,
		BillDate:          m.BillDate,
		VendorID:          m.VendorID,
		VendorName:        m.VendorName,
		Challans:          m.Challans,
		Lines:             make([]purchasing.BillLine, len(m.Lines)),
		Totals: purchasing.BillTotals{
			Discount:     m.Discount,
			TaxableValue: m.TaxableValue,
			SGST:         m.SGST,
			CGST:         m.CGST,
			Total:        m.Total,
		},
		AdvanceAmount: m.AdvanceAmount,
		Payment:       m.Payment,
		Status:        m.Status,
		PaidAt:        m.PaidAt,
	}
	for i, l := range m.Lines {
		b.Lines[i] = purchasing.BillLine{
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
			BillNo:               l.LineBillNo,
			BillDate:             l.LineBillDate,
			BatchNo:              l.BatchNo,
			MfgDate:              l.MfgDate,
			ExpDate:              l.ExpDate,
			IsSelected:           l.IsSelected,
			PaymentStatus:        l.PaymentStatus,
			PartialPaymentAmount: l.PartialPaymentAmount,
		}
	}
	return b
}

// PurchaseBillModelFromDomain creates a persistence model from a domain PurchaseBill
func PurchaseBillModelFromDomain(b *purchasing.PurchaseBill) *PurchaseBillModel {
	m := &PurchaseBillModel{
		BillNo:        b.BillNo,
		BillDate:      b.BillDate,
		VendorID:      b.VendorID,
		VendorName:    b.VendorName,
		Challans:      b.Challans,
		Discount:      b.Totals.Discount,
		TaxableValue:  b.Totals.TaxableValue,
		SGST:          b.Totals.SGST,
		CGST:          b.Totals.CGST,
		Total:         b.Totals.Total,
		AdvanceAmount: b.AdvanceAmount,
		Payment:       b.Payment,
		Status:        b.Status,
		PaidAt:        b.PaidAt,
		Lines:         make([]PurchaseBillLineModel, len(b.Lines)),
	}
	m.FromDomainAggregateRoot(b.BaseAggregateRoot)
	for i, l := range b.Lines {
		m.Lines[i] = PurchaseBillLineModel{
			ID:                   uuid.New(),
			BillID:               b.ID,
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
			LineBillNo:           l.BillNo,
			LineBillDate:         l.BillDate,
			BatchNo:              l.BatchNo,
			MfgDate:              l.MfgDate,
			ExpDate:              l.ExpDate,
			IsSelected:           l.IsSelected,
			PaymentStatus:        l.PaymentStatus,
			PartialPaymentAmount: l.PartialPaymentAmount,
		}
	}
	return m
}

// PaymentHistoryModel is one row of the vendor payment ledger
type PaymentHistoryModel struct {
	ID                uuid.UUID                   `gorm:"type:uuid;primaryKey"`
	VendorID          string                      `gorm:"type:varchar(100);not null;uniqueIndex:idx_payment_history_vendor_srl,priority:1"`
	SrlNo             int                         `gorm:"not null;uniqueIndex:idx_payment_history_vendor_srl,priority:2"`
	ActionDate        time.Time                   `gorm:"not null"`
	TaxInvoiceNo      string                      `gorm:"type:varchar(100)"`
	VendorDescription string                      `gorm:"type:varchar(500)"`
	Amount            decimal.Decimal             `gorm:"type:decimal(18,4);not null"`
	DiscountAmount    decimal.Decimal             `gorm:"type:decimal(18,4);not null;default:0"`
	NetAmount         decimal.Decimal             `gorm:"type:decimal(18,4);not null"`
	Cash              decimal.Decimal             `gorm:"type:decimal(18,4);not null;default:0"`
	Cheque            decimal.Decimal             `gorm:"type:decimal(18,4);not null;default:0"`
	Credit            decimal.Decimal             `gorm:"type:decimal(18,4);not null;default:0"`
	UPI               decimal.Decimal             `gorm:"column:upi;type:decimal(18,4);not null;default:0"`
	Adjust            decimal.Decimal             `gorm:"type:decimal(18,4);not null;default:0"`
	Operation         purchasing.HistoryOperation `gorm:"type:varchar(30);not null"`
	BillID            uuid.UUID                   `gorm:"type:uuid;not null;index"`
	CreatedAt         time.Time                   `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentHistoryModel) TableName() string {
	return "payment_history"
}

// ToDomain converts the persistence model to a domain PaymentHistoryEntry
func (m *PaymentHistoryModel) ToDomain() purchasing.PaymentHistoryEntry {
	return purchasing.PaymentHistoryEntry{
		ID:                m.ID,
		SrlNo:             m.SrlNo,
		ActionDate:        m.ActionDate,
		TaxInvoiceNo:      m.TaxInvoiceNo,
		VendorID:          m.VendorID,
		VendorDescription: m.VendorDescription,
		Amount:            m.Amount,
		DiscountAmount:    m.DiscountAmount,
		NetAmount:         m.NetAmount,
		Cash:              m.Cash,
		Cheque:            m.Cheque,
		Credit:            m.Credit,
		UPI:               m.UPI,
		Adjust:            m.Adjust,
		Operation:         m.Operation,
		BillID:            m.BillID,
		CreatedAt:         m.CreatedAt,
	}
}

// PaymentHistoryModelFromDomain creates a persistence model from a domain PaymentHistoryEntry
func PaymentHistoryModelFromDomain(e *purchasing.PaymentHistoryEntry) *PaymentHistoryModel {
	return &PaymentHistoryModel{
		ID:                e.ID,
		VendorID:          e.VendorID,
		SrlNo:             e.SrlNo,
		ActionDate:        e.ActionDate,
		TaxInvoiceNo:      e.TaxInvoiceNo,
		VendorDescription: e.VendorDescription,
		Amount:            e.Amount,
		DiscountAmount:    e.DiscountAmount,
		NetAmount:         e.NetAmount,
		Cash:              e.Cash,
		Cheque:            e.Cheque,
		Credit:            e.Credit,
		UPI:               e.UPI,
		Adjust:            e.Adjust,
		Operation:         e.Operation,
		BillID:            e.BillID,
		CreatedAt:         e.CreatedAt,
	}
}

// PaymentHistorySequenceModel holds the last serial number issued per vendor
type PaymentHistorySequenceModel struct {
	VendorID  string `gorm:"type:varchar(100);primaryKey"`
	LastSrlNo int    `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentHistorySequenceModel) TableName() string {
	return "payment_history_sequences"
}

// All returns every model for AutoMigrate
func All() []any {
	return []any{
		&ChallanModel{},
		&ChallanLineModel{},
		&PurchaseBillModel{},
		&PurchaseBillLineModel{},
		&PaymentHistoryModel{},
		&PaymentHistorySequenceModel{},
		&StockItemModel{},
		&StockMovementModel{},
		&OutboxEntryModel{},
	}
}
