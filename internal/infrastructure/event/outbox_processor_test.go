package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erp/purchasing/internal/domain/purchasing"
	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memoryOutbox is a map-backed OutboxRepository
type memoryOutbox struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*shared.OutboxEntry
	order   []uuid.UUID
}

func newMemoryOutbox() *memoryOutbox {
	return &memoryOutbox{entries: make(map[uuid.UUID]*shared.OutboxEntry)}
}

func (m *memoryOutbox) Save(_ context.Context, entries ...*shared.OutboxEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		cp := *e
		m.entries[e.ID] = &cp
		m.order = append(m.order, e.ID)
	}
	return nil
}

func (m *memoryOutbox) find(match func(*shared.OutboxEntry) bool, limit int) []*shared.OutboxEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*shared.OutboxEntry
	for _, id := range m.order {
		if e := m.entries[id]; match(e) && len(out) < limit {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out
}

func (m *memoryOutbox) FindPending(_ context.Context, limit int) ([]*shared.OutboxEntry, error) {
	return m.find(func(e *shared.OutboxEntry) bool { return e.Status == shared.OutboxStatusPending }, limit), nil
}

func (m *memoryOutbox) FindRetryable(_ context.Context, before time.Time, limit int) ([]*shared.OutboxEntry, error) {
	return m.find(func(e *shared.OutboxEntry) bool {
		return e.Status == shared.OutboxStatusFailed && e.NextRetryAt != nil && !e.NextRetryAt.After(before)
	}, limit), nil
}

func (m *memoryOutbox) MarkProcessing(_ context.Context, ids []uuid.UUID) ([]*shared.OutboxEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*shared.OutboxEntry
	for _, id := range ids {
		e := m.entries[id]
		if e.Status != shared.OutboxStatusPending && e.Status != shared.OutboxStatusFailed {
			continue
		}
		e.Status = shared.OutboxStatusProcessing
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memoryOutbox) Update(_ context.Context, entry *shared.OutboxEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *entry
	m.entries[entry.ID] = &cp
	return nil
}

func (m *memoryOutbox) DeleteOlderThan(context.Context, time.Time) (int64, error) { return 0, nil }

func (m *memoryOutbox) CountByStatus(context.Context) (map[shared.OutboxStatus]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[shared.OutboxStatus]int64)
	for _, e := range m.entries {
		counts[e.Status]++
	}
	return counts, nil
}

func (m *memoryOutbox) get(id uuid.UUID) shared.OutboxEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.entries[id]
}

func newProcessorFixture(t *testing.T, handler shared.EventHandler) (*OutboxProcessor, *memoryOutbox, *EventSerializer) {
	t.Helper()
	serializer := NewEventSerializer()
	RegisterAllEvents(serializer)
	bus := NewInMemoryEventBus(zap.NewNop())
	bus.Subscribe(handler)
	repo := newMemoryOutbox()
	return NewOutboxProcessor(repo, bus, serializer, DefaultOutboxProcessorConfig(), zap.NewNop()), repo, serializer
}

func enqueue(t *testing.T, repo *memoryOutbox, s *EventSerializer, evt shared.DomainEvent) *shared.OutboxEntry {
	t.Helper()
	payload, err := s.Serialize(evt)
	require.NoError(t, err)
	entry := shared.NewOutboxEntry(evt, payload)
	require.NoError(t, repo.Save(context.Background(), entry))
	return entry
}

func TestOutboxProcessor_DeliversPending(t *testing.T) {
	handler := &recordingHandler{types: []string{purchasing.EventTypePurchaseBillPaid}}
	p, repo, s := newProcessorFixture(t, handler)
	evt := paidEvent()
	entry := enqueue(t, repo, s, evt)

	sent := p.ProcessOnce(context.Background())

	assert.Equal(t, 1, sent)
	require.Len(t, handler.seen, 1)
	assert.Equal(t, evt.EventID(), handler.seen[0].EventID())
	stored := repo.get(entry.ID)
	assert.Equal(t, shared.OutboxStatusSent, stored.Status)
	assert.NotNil(t, stored.ProcessedAt)

	assert.Equal(t, 0, p.ProcessOnce(context.Background()), "sent entries are not redelivered")
}

func TestOutboxProcessor_HandlerFailureSchedulesRetry(t *testing.T) {
	handler := &recordingHandler{types: []string{purchasing.EventTypePurchaseBillPaid}, err: errors.New("stock locked")}
	p, repo, s := newProcessorFixture(t, handler)
	entry := enqueue(t, repo, s, paidEvent())

	assert.Equal(t, 0, p.ProcessOnce(context.Background()))

	stored := repo.get(entry.ID)
	assert.Equal(t, shared.OutboxStatusFailed, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)
	assert.Contains(t, stored.LastError, "stock locked")
	require.NotNil(t, stored.NextRetryAt)

	// not due yet
	assert.Equal(t, 0, p.ProcessOnce(context.Background()))
	assert.Len(t, handler.seen, 1)

	past := time.Now().Add(-time.Second)
	stored.NextRetryAt = &past
	require.NoError(t, repo.Update(context.Background(), &stored))
	handler.err = nil

	assert.Equal(t, 1, p.ProcessOnce(context.Background()))
	assert.Equal(t, shared.OutboxStatusSent, repo.get(entry.ID).Status)
}

func TestOutboxProcessor_UnknownTypeGoesDead(t *testing.T) {
	handler := &recordingHandler{}
	p, repo, _ := newProcessorFixture(t, handler)
	entry := shared.NewOutboxEntry(paidEvent(), []byte(`{}`))
	entry.EventType = "Retired"
	entry.MaxRetries = 1
	require.NoError(t, repo.Save(context.Background(), entry))

	p.ProcessOnce(context.Background())

	got := repo.get(entry.ID)
	assert.True(t, got.IsDead())
	assert.Empty(t, handler.seen)
}

func TestOutboxProcessor_StartStop(t *testing.T) {
	handler := &recordingHandler{types: []string{purchasing.EventTypePurchaseBillPaid}}
	serializer := NewEventSerializer()
	RegisterAllEvents(serializer)
	bus := NewInMemoryEventBus(zap.NewNop())
	bus.Subscribe(handler)
	repo := newMemoryOutbox()
	cfg := DefaultOutboxProcessorConfig()
	cfg.PollInterval = 10 * time.Millisecond
	p := NewOutboxProcessor(repo, bus, serializer, cfg, zap.NewNop())
	entry := enqueue(t, repo, serializer, paidEvent())

	p.Start(context.Background())
	assert.Eventually(t, func() bool {
		return repo.get(entry.ID).Status == shared.OutboxStatusSent
	}, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Stop(ctx))
}
