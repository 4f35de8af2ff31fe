package event

import (
	"testing"

	"github.com/erp/purchasing/internal/domain/purchasing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventSerializer_RoundTrip(t *testing.T) {
	s := NewEventSerializer()
	RegisterAllEvents(s)

	original := paidEvent()
	original.Total = decimal.RequireFromString("531.00")
	original.StockLines = []purchasing.StockLine{
		{SlNo: 1, ProductID: "P1", Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(50)},
	}

	data, err := s.Serialize(original)
	require.NoError(t, err)

	decoded, err := s.Deserialize(purchasing.EventTypePurchaseBillPaid, data)
	require.NoError(t, err)

	got, ok := decoded.(*purchasing.PurchaseBillPaidEvent)
	require.True(t, ok)
	assert.Equal(t, original.EventID(), got.EventID())
	assert.Equal(t, original.AggregateID(), got.AggregateID())
	assert.Equal(t, original.BillNo, got.BillNo)
	assert.True(t, original.Total.Equal(got.Total))
	require.Len(t, got.StockLines, 1)
	assert.True(t, got.StockLines[0].Quantity.Equal(decimal.NewFromInt(10)))
}

func TestEventSerializer_Unregistered(t *testing.T) {
	s := NewEventSerializer()

	_, err := s.Serialize(paidEvent())
	assert.Error(t, err)

	_, err = s.Deserialize("Nope", []byte(`{}`))
	assert.Error(t, err)
}

func TestEventSerializer_BadPayload(t *testing.T) {
	s := NewEventSerializer()
	RegisterAllEvents(s)

	_, err := s.Deserialize(purchasing.EventTypePurchaseBillPaid, []byte(`{`))
	assert.Error(t, err)
}
