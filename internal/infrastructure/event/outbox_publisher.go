package event

import (
	"context"

	"github.com/erp/purchasing/internal/domain/shared"
	"gorm.io/gorm"
)

// OutboxWriter stores events in the outbox table of one transaction
type OutboxWriter struct {
	serializer *EventSerializer
	repo       *GormOutboxRepository
}

// NewOutboxWriter binds an outbox writer to tx
func NewOutboxWriter(serializer *EventSerializer, tx *gorm.DB) *OutboxWriter {
	return &OutboxWriter{
		serializer: serializer,
		repo:       NewGormOutboxRepository(tx),
	}
}

// SaveEvents serializes and stores the events
func (w *OutboxWriter) SaveEvents(ctx context.Context, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	entries := make([]*shared.OutboxEntry, 0, len(events))
	for _, event := range events {
		payload, err := w.serializer.Serialize(event)
		if err != nil {
			return err
		}
		entries = append(entries, shared.NewOutboxEntry(event, payload))
	}
	return w.repo.Save(ctx, entries...)
}
