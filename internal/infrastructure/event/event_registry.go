package event

import (
	"github.com/erp/purchasing/internal/domain/inventory"
	"github.com/erp/purchasing/internal/domain/purchasing"
)

// RegisterAllEvents registers every event type that can pass through the outbox
func RegisterAllEvents(s *EventSerializer) {
	Register[purchasing.ChallanReceivedEvent](s, purchasing.EventTypeChallanReceived)
	Register[purchasing.ChallanProcessedEvent](s, purchasing.EventTypeChallanProcessed)
	Register[purchasing.ChallanCancelledEvent](s, purchasing.EventTypeChallanCancelled)

	Register[purchasing.PurchaseBillCreatedEvent](s, purchasing.EventTypePurchaseBillCreated)
	Register[purchasing.PurchaseBillPaidEvent](s, purchasing.EventTypePurchaseBillPaid)
	Register[purchasing.PartialPaymentRecordedEvent](s, purchasing.EventTypePartialPaymentRecorded)

	Register[inventory.StockIncreasedEvent](s, inventory.EventTypeStockIncreased)
	Register[inventory.StockDecreasedEvent](s, inventory.EventTypeStockDecreased)
}
