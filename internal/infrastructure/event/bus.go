package event

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/erp/purchasing/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// InMemoryEventBus delivers events synchronously, in subscription order.
// Handlers subscribed without event types see every event after the typed ones.
type InMemoryEventBus struct {
	mu     sync.RWMutex
	typed  map[string][]shared.EventHandler
	any    []shared.EventHandler
	logger *zap.Logger
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{
		typed:  make(map[string][]shared.EventHandler),
		logger: logger.Named("events"),
	}
}

// Subscribe registers handler for eventTypes, defaulting to handler.EventTypes()
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(eventTypes) == 0 {
		b.any = append(b.any, handler)
	}
	for _, t := range eventTypes {
		b.typed[t] = append(b.typed[t], handler)
	}
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes handler from every event type
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	isTarget := func(h shared.EventHandler) bool { return h == handler }
	b.any = slices.DeleteFunc(b.any, isTarget)
	for t, hs := range b.typed {
		if hs = slices.DeleteFunc(hs, isTarget); len(hs) == 0 {
			delete(b.typed, t)
		} else {
			b.typed[t] = hs
		}
	}
}

func (b *InMemoryEventBus) handlersFor(eventType string) []shared.EventHandler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append(slices.Clone(b.typed[eventType]), b.any...)
}

// Publish hands every event to its handlers. All handlers run even when one
// fails; the joined error lets the outbox processor schedule a retry.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	var errs []error
	for _, event := range events {
		for _, h := range b.handlersFor(event.EventType()) {
			if err := b.dispatch(ctx, h, event); err != nil {
				b.logger.Error("handler failed to process event",
					zap.String("event_type", event.EventType()),
					zap.String("event_id", event.EventID().String()),
					zap.String("aggregate_id", event.AggregateID().String()),
					zap.Error(err),
				)
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, h shared.EventHandler, event shared.DomainEvent) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "events", "handle",
		telemetry.SpanAttrEventType, event.EventType(),
		telemetry.SpanAttrEventID, event.EventID().String(),
	)
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked", zap.String("event_type", event.EventType()), zap.Any("panic", r))
			err = fmt.Errorf("handler panicked on %s: %v", event.EventType(), r)
		}
		telemetry.EndSpan(span, err)
	}()
	return h.Handle(ctx, event)
}

// Start only logs; delivery is synchronous
func (b *InMemoryEventBus) Start(context.Context) error {
	b.mu.RLock()
	types := len(b.typed)
	b.mu.RUnlock()
	b.logger.Info("event bus started", zap.Int("event_types", types))
	return nil
}

// Stop only logs; delivery is synchronous
func (b *InMemoryEventBus) Stop(context.Context) error {
	b.logger.Info("event bus stopped")
	return nil
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
