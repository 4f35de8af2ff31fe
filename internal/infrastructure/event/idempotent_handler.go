package event

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/erp/purchasing/internal/domain/shared"
	"go.uber.org/zap"
)

// Outcome of one delivery to an IdempotentHandler
const (
	OutcomeProcessed = "processed"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)

// IdempotencyStats counts deliveries by outcome
type IdempotencyStats struct {
	EventsProcessed int64 `json:"events_processed"`
	EventsDuplicate int64 `json:"events_duplicate"`
	EventsFailed    int64 `json:"events_failed"`
}

// OutcomeRecorder observes every delivery, e.g. to feed a metric
type OutcomeRecorder func(ctx context.Context, eventType, outcome string)

// IdempotentHandler runs the wrapped handler at most once per event ID.
// Keys are scoped to the wrapped handler's type, so two handlers of the same
// event never suppress each other.
type IdempotentHandler struct {
	inner    shared.EventHandler
	store    shared.IdempotencyStore
	config   shared.IdempotencyConfig
	log      *zap.Logger
	recorder OutcomeRecorder

	processed, duplicate, failed atomic.Int64
}

// IdempotentHandlerOption configures an IdempotentHandler
type IdempotentHandlerOption func(*IdempotentHandler)

// WithIdempotencyConfig replaces DefaultIdempotencyConfig
func WithIdempotencyConfig(config shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) { h.config = config }
}

// WithOutcomeRecorder reports each delivery outcome to rec
func WithOutcomeRecorder(rec OutcomeRecorder) IdempotentHandlerOption {
	return func(h *IdempotentHandler) { h.recorder = rec }
}

func NewIdempotentHandler(inner shared.EventHandler, store shared.IdempotencyStore, log *zap.Logger, opts ...IdempotentHandlerOption) *IdempotentHandler {
	h := &IdempotentHandler{
		inner:  inner,
		store:  store,
		config: shared.DefaultIdempotencyConfig(),
		log:    log,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *IdempotentHandler) EventTypes() []string { return h.inner.EventTypes() }

// Handle claims the event key before running the wrapped handler. A failed
// run releases the key so the outbox retry gets through. When the store
// itself fails the event is handled anyway: a duplicate stock-in is caught by
// the movement reference, a dropped one is not.
func (h *IdempotentHandler) Handle(ctx context.Context, evt shared.DomainEvent) error {
	if !h.config.Enabled {
		return h.inner.Handle(ctx, evt)
	}

	log := h.log.With(zap.String("event_id", evt.EventID().String()), zap.String("event_type", evt.EventType()))
	key := fmt.Sprintf("%T:%s", h.inner, evt.EventID())

	fresh, err := h.store.MarkProcessed(ctx, key, h.config.TTL)
	switch {
	case err != nil:
		log.Warn("idempotency store unavailable, handling anyway", zap.Error(err))
	case !fresh:
		log.Debug("duplicate event skipped")
		h.record(ctx, evt, OutcomeDuplicate)
		return nil
	}

	if err := h.inner.Handle(ctx, evt); err != nil {
		h.record(ctx, evt, OutcomeFailed)
		if ferr := h.store.Forget(context.WithoutCancel(ctx), key); ferr != nil {
			log.Warn("release idempotency key", zap.String("key", key), zap.Error(ferr))
		}
		return err
	}
	h.record(ctx, evt, OutcomeProcessed)
	return nil
}

func (h *IdempotentHandler) record(ctx context.Context, evt shared.DomainEvent, outcome string) {
	switch outcome {
	case OutcomeProcessed:
		h.processed.Add(1)
	case OutcomeDuplicate:
		h.duplicate.Add(1)
	case OutcomeFailed:
		h.failed.Add(1)
	}
	if h.recorder != nil {
		h.recorder(ctx, evt.EventType(), outcome)
	}
}

func (h *IdempotentHandler) Stats() IdempotencyStats {
	return IdempotencyStats{
		EventsProcessed: h.processed.Load(),
		EventsDuplicate: h.duplicate.Load(),
		EventsFailed:    h.failed.Load(),
	}
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
