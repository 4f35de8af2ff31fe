package event

import (
	"context"
	"time"

	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/erp/purchasing/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OutboxProcessorConfig tunes polling, retries and retention
type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	Retry        shared.RetryPolicy
	// Retention <= 0 keeps delivered entries forever
	Retention       time.Duration
	CleanupInterval time.Duration
}

// DefaultOutboxProcessorConfig polls every second and keeps a week of history
func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:       50,
		PollInterval:    time.Second,
		Retry:           shared.DefaultRetryPolicy(),
		Retention:       7 * 24 * time.Hour,
		CleanupInterval: time.Hour,
	}
}

// OutboxProcessor relays committed outbox entries to the in-process bus
type OutboxProcessor struct {
	repo       shared.OutboxRepository
	bus        shared.EventPublisher
	serializer *EventSerializer
	config     OutboxProcessorConfig
	logger     *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewOutboxProcessor fills zero config fields from DefaultOutboxProcessorConfig
func NewOutboxProcessor(
	repo shared.OutboxRepository,
	bus shared.EventPublisher,
	serializer *EventSerializer,
	config OutboxProcessorConfig,
	logger *zap.Logger,
) *OutboxProcessor {
	def := DefaultOutboxProcessorConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.Retry.BaseBackoff <= 0 {
		config.Retry = def.Retry
	}
	return &OutboxProcessor{
		repo:       repo,
		bus:        bus,
		serializer: serializer,
		config:     config,
		logger:     logger.Named("outbox"),
	}
}

// Start runs the poll loop until ctx is done or Stop is called
func (p *OutboxProcessor) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go p.run(ctx)
}

// Stop cancels the loop and waits for the batch in flight
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	select {
	case <-p.done:
		p.logger.Info("outbox processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *OutboxProcessor) run(ctx context.Context) {
	defer close(p.done)

	poll := time.NewTicker(p.config.PollInterval)
	defer poll.Stop()

	// a nil channel never fires
	var cleanup <-chan time.Time
	if p.config.Retention > 0 && p.config.CleanupInterval > 0 {
		t := time.NewTicker(p.config.CleanupInterval)
		defer t.Stop()
		cleanup = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-poll.C:
			p.ProcessOnce(ctx)
		case <-cleanup:
			p.purge(ctx)
		}
	}
}

// ProcessOnce delivers one batch of new entries and one of due retries.
// It returns the number delivered.
func (p *OutboxProcessor) ProcessOnce(ctx context.Context) int {
	fresh, err := p.repo.FindPending(ctx, p.config.BatchSize)
	if err != nil {
		p.logger.Error("load pending entries", zap.Error(err))
		return 0
	}
	sent := p.deliverBatch(ctx, fresh)

	due, err := p.repo.FindRetryable(ctx, time.Now(), p.config.BatchSize)
	if err != nil {
		p.logger.Error("load retryable entries", zap.Error(err))
		return sent
	}
	return sent + p.deliverBatch(ctx, due)
}

func (p *OutboxProcessor) deliverBatch(ctx context.Context, entries []*shared.OutboxEntry) int {
	if len(entries) == 0 {
		return 0
	}
	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	// entries claimed by another instance drop out here
	claimed, err := p.repo.MarkProcessing(ctx, ids)
	if err != nil {
		p.logger.Error("claim entries", zap.Error(err))
		return 0
	}

	sent := 0
	for _, entry := range claimed {
		if p.deliver(ctx, entry) {
			sent++
		}
	}
	return sent
}

func (p *OutboxProcessor) deliver(ctx context.Context, entry *shared.OutboxEntry) bool {
	log := p.logger.With(
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
		zap.String("aggregate_id", entry.AggregateID.String()),
	)

	err := p.publish(ctx, entry)
	if err != nil {
		entry.MarkFailed(err.Error(), p.config.Retry)
		if entry.IsDead() {
			log.Error("event is dead", zap.Int("attempts", entry.RetryCount), zap.Error(err))
		} else {
			log.Warn("event delivery failed", zap.Int("attempts", entry.RetryCount), zap.Timep("next_retry_at", entry.NextRetryAt), zap.Error(err))
		}
	} else {
		entry.MarkSent()
	}

	if uerr := p.repo.Update(ctx, entry); uerr != nil {
		log.Error("persist delivery outcome", zap.Error(uerr))
		return false
	}
	if err == nil {
		log.Debug("event delivered")
	}
	return err == nil
}

func (p *OutboxProcessor) publish(ctx context.Context, entry *shared.OutboxEntry) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "outbox", "deliver",
		telemetry.SpanAttrEventType, entry.EventType,
		telemetry.SpanAttrEventID, entry.EventID.String(),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	evt, err := p.serializer.Deserialize(entry.EventType, entry.Payload)
	if err != nil {
		return err
	}
	return p.bus.Publish(ctx, evt)
}

func (p *OutboxProcessor) purge(ctx context.Context) {
	cutoff := time.Now().Add(-p.config.Retention)
	n, err := p.repo.DeleteOlderThan(ctx, cutoff)
	switch {
	case err != nil:
		p.logger.Error("purge outbox", zap.Error(err))
	case n > 0:
		p.logger.Info("purged outbox entries", zap.Int64("deleted", n), zap.Time("cutoff", cutoff))
	}
}
