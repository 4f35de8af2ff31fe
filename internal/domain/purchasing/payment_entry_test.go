package purchasing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestNewPaymentEntry(t *testing.T) {
	p := NewPaymentEntry(time.Now())
	assert.Equal(t, []Instrument{InstrumentCash}, p.TransactionTypes)
	assertDecimal(t, "0", p.TotalPayment())
}

func TestPaymentEntry_Apply(t *testing.T) {
	t.Run("merges amounts of selected instruments", func(t *testing.T) {
		p := NewPaymentEntry(time.Now())
		require.NoError(t, p.Apply(PaymentEntryUpdate{
			TransactionTypes: []Instrument{InstrumentCash, InstrumentUPI, InstrumentCash},
			Amounts:          map[Instrument]decimal.Decimal{InstrumentCash: dec("100"), InstrumentUPI: dec("50")},
			UPIID:            strPtr("shop@upi"),
		}))
		assert.Equal(t, []Instrument{InstrumentCash, InstrumentUPI}, p.TransactionTypes)
		assertDecimal(t, "150", p.TotalPayment())
		assert.Equal(t, "shop@upi", p.UPIID)
	})

	t.Run("deselecting clears the amount", func(t *testing.T) {
		p := NewPaymentEntry(time.Now())
		require.NoError(t, p.Apply(PaymentEntryUpdate{
			TransactionTypes: []Instrument{InstrumentCash, InstrumentCheque},
			Amounts:          map[Instrument]decimal.Decimal{InstrumentCash: dec("100"), InstrumentCheque: dec("200")},
			ChequeNo:         strPtr("000123"),
		}))
		require.NoError(t, p.Apply(PaymentEntryUpdate{TransactionTypes: []Instrument{InstrumentCash}}))
		assertDecimal(t, "100", p.TotalPayment())
		assert.Empty(t, p.ChequeNo)
		_, ok := p.Amounts[InstrumentCheque]
		assert.False(t, ok)

		// re-selecting starts from zero
		require.NoError(t, p.Apply(PaymentEntryUpdate{TransactionTypes: []Instrument{InstrumentCash, InstrumentCheque}}))
		assertDecimal(t, "100", p.TotalPayment())
		assertDecimal(t, "0", p.AmountFor(InstrumentCheque))
	})

	t.Run("toggle off then on with same amount restores total", func(t *testing.T) {
		p := NewPaymentEntry(time.Now())
		require.NoError(t, p.Apply(PaymentEntryUpdate{
			TransactionTypes: []Instrument{InstrumentCash, InstrumentCredit},
			Amounts:          map[Instrument]decimal.Decimal{InstrumentCash: dec("10"), InstrumentCredit: dec("25")},
		}))
		before := p.TotalPayment()
		require.NoError(t, p.Apply(PaymentEntryUpdate{TransactionTypes: []Instrument{InstrumentCash}}))
		require.NoError(t, p.Apply(PaymentEntryUpdate{
			TransactionTypes: []Instrument{InstrumentCash, InstrumentCredit},
			Amounts:          map[Instrument]decimal.Decimal{InstrumentCredit: dec("25")},
		}))
		assert.True(t, before.Equal(p.TotalPayment()))
	})

	tests := []struct {
		name   string
		update PaymentEntryUpdate
	}{
		{"unknown instrument", PaymentEntryUpdate{TransactionTypes: []Instrument{"barter"}}},
		{"amount for unselected", PaymentEntryUpdate{Amounts: map[Instrument]decimal.Decimal{InstrumentUPI: dec("1")}}},
		{"negative amount", PaymentEntryUpdate{Amounts: map[Instrument]decimal.Decimal{InstrumentCash: dec("-1")}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPaymentEntry(time.Now())
			p.Amounts[InstrumentCash] = dec("5")
			assertCode(t, p.Apply(tt.update), CodeValidation)
			assert.Equal(t, []Instrument{InstrumentCash}, p.TransactionTypes)
			assertDecimal(t, "5", p.TotalPayment())
		})
	}
}
