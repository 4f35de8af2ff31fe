package purchasing

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// TaxRate is a GST split into its state and central halves, in percent
type TaxRate struct {
	SGST decimal.Decimal
	CGST decimal.Decimal
}

// Combined returns the total GST percentage
func (r TaxRate) Combined() decimal.Decimal {
	return r.SGST.Add(r.CGST)
}

// Apply returns the SGST and CGST amounts due on a taxable value
func (r TaxRate) Apply(taxable decimal.Decimal) (sgst, cgst decimal.Decimal) {
	return taxable.Mul(r.SGST).Div(hundred), taxable.Mul(r.CGST).Div(hundred)
}

// FromGSTRate splits a combined GST rate equally between SGST and CGST
func FromGSTRate(gst decimal.Decimal) TaxRate {
	half := gst.Div(decimal.NewFromInt(2))
	return TaxRate{SGST: half, CGST: half}
}

// DefaultTaxRate is the 9% + 9% split applied when nothing more specific is known
func DefaultTaxRate() TaxRate {
	return FromGSTRate(decimal.NewFromInt(18))
}

// TaxRateLookup resolves the GST split for a product
type TaxRateLookup interface {
	RateFor(productID, hsnCode string) TaxRate
}

// TaxRateTable resolves by product, then by HSN code, then falls back to a default
type TaxRateTable struct {
	fallback  TaxRate
	byProduct map[string]TaxRate
	byHSN     map[string]TaxRate
}

// NewTaxRateTable creates a table with the given fallback
func NewTaxRateTable(fallback TaxRate) *TaxRateTable {
	return &TaxRateTable{
		fallback:  fallback,
		byProduct: make(map[string]TaxRate),
		byHSN:     make(map[string]TaxRate),
	}
}

// WithHSNRate registers a combined GST rate for an HSN code
func (t *TaxRateTable) WithHSNRate(hsnCode string, gst decimal.Decimal) *TaxRateTable {
	t.byHSN[hsnCode] = FromGSTRate(gst)
	return t
}

// WithProductRate registers an explicit split for a product
func (t *TaxRateTable) WithProductRate(productID string, rate TaxRate) *TaxRateTable {
	t.byProduct[productID] = rate
	return t
}

// RateFor implements TaxRateLookup
func (t *TaxRateTable) RateFor(productID, hsnCode string) TaxRate {
	if rate, ok := t.byProduct[productID]; ok {
		return rate
	}
	if hsnCode != "" {
		if rate, ok := t.byHSN[hsnCode]; ok {
			return rate
		}
	}
	return t.fallback
}

var _ TaxRateLookup = (*TaxRateTable)(nil)
