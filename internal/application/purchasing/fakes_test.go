package purchasing

import (
	"context"
	"sort"
	"sync"

	"github.com/erp/purchasing/internal/domain/purchasing"
	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/google/uuid"
)

// memChallanRepo stores copies so callers never share state with the store
type memChallanRepo struct {
	mu       sync.Mutex
	challans map[uuid.UUID]purchasing.Challan
	order    []uuid.UUID
}

func newMemChallanRepo() *memChallanRepo {
	return &memChallanRepo{challans: make(map[uuid.UUID]purchasing.Challan)}
}

func copyChallan(c purchasing.Challan) *purchasing.Challan {
	c.ClearDomainEvents()
	c.Lines = append([]purchasing.ChallanLine(nil), c.Lines...)
	return &c
}

func (r *memChallanRepo) FindByID(_ context.Context, id uuid.UUID) (*purchasing.Challan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.challans[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return copyChallan(c), nil
}

func (r *memChallanRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*purchasing.Challan, error) {
	out := make([]*purchasing.Challan, 0, len(ids))
	for _, id := range ids {
		c, err := r.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *memChallanRepo) FindPendingByVendor(_ context.Context, vendorID string) ([]*purchasing.Challan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*purchasing.Challan
	for _, id := range r.order {
		c := r.challans[id]
		if c.VendorID == vendorID && c.IsPending() {
			out = append(out, copyChallan(c))
		}
	}
	return out, nil
}

func (r *memChallanRepo) FindAll(_ context.Context, filter shared.Filter) ([]*purchasing.Challan, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*purchasing.Challan
	for _, id := range r.order {
		c := r.challans[id]
		if v, ok := filter.Where["vendor_id"]; ok && c.VendorID != v {
			continue
		}
		if v, ok := filter.Where["status"]; ok && string(c.Status) != v {
			continue
		}
		out = append(out, copyChallan(c))
	}
	return out, int64(len(out)), nil
}

func (r *memChallanRepo) Save(_ context.Context, c *purchasing.Challan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.challans[c.ID]; !ok {
		r.order = append(r.order, c.ID)
	}
	r.challans[c.ID] = *copyChallan(*c)
	return nil
}

func (r *memChallanRepo) SaveWithLock(_ context.Context, c *purchasing.Challan, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.challans[c.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.Version != expectedVersion || !stored.IsPending() {
		return shared.ErrConcurrencyConflict
	}
	r.challans[c.ID] = *copyChallan(*c)
	return nil
}

type memBillRepo struct {
	mu    sync.Mutex
	bills map[uuid.UUID]*purchasing.PurchaseBill
}

func newMemBillRepo() *memBillRepo {
	return &memBillRepo{bills: make(map[uuid.UUID]*purchasing.PurchaseBill)}
}

func (r *memBillRepo) FindByID(_ context.Context, id uuid.UUID) (*purchasing.PurchaseBill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bills[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return b.Clone(), nil
}

func (r *memBillRepo) FindByVendor(_ context.Context, vendorID string, _ shared.Filter) ([]*purchasing.PurchaseBill, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*purchasing.PurchaseBill
	for _, b := range r.bills {
		if b.VendorID == vendorID {
			out = append(out, b.Clone())
		}
	}
	return out, int64(len(out)), nil
}

func (r *memBillRepo) Save(_ context.Context, b *purchasing.PurchaseBill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bills[b.ID] = b.Clone()
	return nil
}

func (r *memBillRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bills)
}

type memHistoryRepo struct {
	mu      sync.Mutex
	entries []purchasing.PaymentHistoryEntry
}

func (r *memHistoryRepo) Append(_ context.Context, e *purchasing.PaymentHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := 1
	for _, existing := range r.entries {
		if existing.VendorID == e.VendorID {
			next++
		}
	}
	e.SrlNo = next
	r.entries = append(r.entries, *e)
	return nil
}

func (r *memHistoryRepo) FindByVendor(_ context.Context, vendorID string, _ shared.Filter) ([]purchasing.PaymentHistoryEntry, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []purchasing.PaymentHistoryEntry
	for _, e := range r.entries {
		if e.VendorID == vendorID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SrlNo > out[j].SrlNo })
	return out, int64(len(out)), nil
}

// recordingPublisher records events and forwards them to subscribed handlers
type recordingPublisher struct {
	mu       sync.Mutex
	events   []shared.DomainEvent
	handlers []shared.EventHandler
}

func (p *recordingPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	p.events = append(p.events, events...)
	handlers := append([]shared.EventHandler(nil), p.handlers...)
	p.mu.Unlock()
	for _, e := range events {
		for _, h := range handlers {
			for _, t := range h.EventTypes() {
				if t == e.EventType() {
					_ = h.Handle(ctx, e)
				}
			}
		}
	}
	return nil
}

func (p *recordingPublisher) ofType(eventType string) []shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.DomainEvent
	for _, e := range p.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fakeLocker struct {
	err error
}

func (l fakeLocker) Acquire(context.Context, string) (func(context.Context) error, error) {
	if l.err != nil {
		return nil, l.err
	}
	return func(context.Context) error { return nil }, nil
}
