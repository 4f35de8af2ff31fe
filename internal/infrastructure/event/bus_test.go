package event

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/purchasing/internal/domain/purchasing"
	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingHandler records events and optionally fails
type recordingHandler struct {
	types []string
	err   error
	panic bool
	seen  []shared.DomainEvent
}

func (h *recordingHandler) EventTypes() []string { return h.types }

func (h *recordingHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	if h.panic {
		panic("boom")
	}
	h.seen = append(h.seen, event)
	return h.err
}

func paidEvent() *purchasing.PurchaseBillPaidEvent {
	billID := uuid.New()
	return &purchasing.PurchaseBillPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(purchasing.EventTypePurchaseBillPaid, purchasing.AggregateTypePurchaseBill, billID),
		BillID:          billID,
		BillNo:          "PB-001",
		VendorID:        "V1",
	}
}

func TestInMemoryEventBus_RoutesByType(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	paid := &recordingHandler{types: []string{purchasing.EventTypePurchaseBillPaid}}
	other := &recordingHandler{types: []string{purchasing.EventTypeChallanReceived}}
	all := &recordingHandler{}
	bus.Subscribe(paid)
	bus.Subscribe(other)
	bus.Subscribe(all)

	require.NoError(t, bus.Publish(context.Background(), paidEvent()))

	assert.Len(t, paid.seen, 1)
	assert.Empty(t, other.seen)
	assert.Len(t, all.seen, 1)
}

func TestInMemoryEventBus_JoinsHandlerErrors(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	errStock := errors.New("stock unavailable")
	failing := &recordingHandler{types: []string{purchasing.EventTypePurchaseBillPaid}, err: errStock}
	healthy := &recordingHandler{types: []string{purchasing.EventTypePurchaseBillPaid}}
	bus.Subscribe(failing)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), paidEvent())

	assert.ErrorIs(t, err, errStock)
	assert.Len(t, healthy.seen, 1, "later handlers still run")
}

func TestInMemoryEventBus_RecoversPanics(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	bus.Subscribe(&recordingHandler{types: []string{purchasing.EventTypePurchaseBillPaid}, panic: true})

	err := bus.Publish(context.Background(), paidEvent())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := &recordingHandler{types: []string{purchasing.EventTypePurchaseBillPaid}}
	bus.Subscribe(h)
	bus.Unsubscribe(h)

	require.NoError(t, bus.Publish(context.Background(), paidEvent()))
	assert.Empty(t, h.seen)
}
