package purchasing

import (
	"testing"
)

func TestTaxRate_Apply(t *testing.T) {
	sgst, cgst := DefaultTaxRate().Apply(dec("450"))
	assertDecimal(t, "40.5", sgst)
	assertDecimal(t, "40.5", cgst)
	assertDecimal(t, "18", DefaultTaxRate().Combined())
}

func TestTaxRateTable_RateFor(t *testing.T) {
	table := NewTaxRateTable(DefaultTaxRate()).
		WithHSNRate("3004", dec("12")).
		WithProductRate("P-GOLD", TaxRate{SGST: dec("1.5"), CGST: dec("1.5")})

	tests := []struct {
		name      string
		productID string
		hsn       string
		sgst      string
	}{
		{"product override wins", "P-GOLD", "3004", "1.5"},
		{"hsn rate", "P1", "3004", "6"},
		{"unknown hsn falls back", "P1", "9999", "9"},
		{"no hsn falls back", "P1", "", "9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate := table.RateFor(tt.productID, tt.hsn)
			assertDecimal(t, tt.sgst, rate.SGST)
			assertDecimal(t, tt.sgst, rate.CGST)
		})
	}
}
