package purchasing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/erp/purchasing/internal/domain/purchasing"
	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrWorkbenchClosed is returned for commands sent after Close
var ErrWorkbenchClosed = errors.New("purchasing workbench is closed")

// Dependencies are the collaborators shared by all vendor sessions
type Dependencies struct {
	ChallanRepo purchasing.ChallanRepository
	HistoryRepo purchasing.PaymentHistoryRepository
	TxScope     TransactionScope
	Locker      VendorLocker
	Taxes       purchasing.TaxRateLookup
	Publisher   shared.EventPublisher
	Metrics     Metrics
}

// WorkbenchConfig tunes session lifetime
type WorkbenchConfig struct {
	// IdleTimeout evicts sessions without a draft after this long without commands
	IdleTimeout time.Duration
	// CommandTimeout bounds a single command, zero means no bound beyond the caller's context
	CommandTimeout time.Duration
}

// DefaultWorkbenchConfig returns the defaults used when config leaves them unset
func DefaultWorkbenchConfig() WorkbenchConfig {
	return WorkbenchConfig{
		IdleTimeout:    30 * time.Minute,
		CommandTimeout: 30 * time.Second,
	}
}

// Workbench owns one serializing session per vendor. Commands for the same
// vendor run strictly one after another on the session goroutine; different
// vendors run in parallel.
type Workbench struct {
	deps   Dependencies
	cfg    WorkbenchConfig
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*vendorSession
	closed   bool
	wg       sync.WaitGroup
}

// NewWorkbench creates a new Workbench
func NewWorkbench(deps Dependencies, cfg WorkbenchConfig, logger *zap.Logger) *Workbench {
	if deps.Metrics == nil {
		deps.Metrics = noopMetrics{}
	}
	if deps.Taxes == nil {
		deps.Taxes = purchasing.NewTaxRateTable(purchasing.DefaultTaxRate())
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultWorkbenchConfig().IdleTimeout
	}
	return &Workbench{
		deps:     deps,
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*vendorSession),
	}
}

type commandResult struct {
	value any
	err   error
}

type envelope struct {
	ctx   context.Context
	cmd   sessionCommand
	reply chan commandResult
}

// sessionCommand is one operation applied on a vendor session goroutine
type sessionCommand interface {
	name() string
	apply(ctx context.Context, s *vendorSession) (any, error)
}

// committingCommand marks commands whose side effects may outlive the
// caller's context. Once the session has taken one, dispatch waits for its
// reply so a committed result is never reported as a timeout.
type committingCommand interface {
	sessionCommand
	commits()
}

// Dispatch runs cmd on the vendor's session and waits for the result
func (w *Workbench) dispatch(ctx context.Context, vendorID string, cmd sessionCommand) (any, error) {
	if vendorID == "" {
		return nil, purchasing.NewValidationError("vendor is required")
	}
	if w.cfg.CommandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.CommandTimeout)
		defer cancel()
	}

	env := envelope{ctx: ctx, cmd: cmd, reply: make(chan commandResult, 1)}
	for {
		s, err := w.session(vendorID)
		if err != nil {
			return nil, err
		}
		select {
		case s.commands <- env:
		case <-s.done:
			// evicted between lookup and send
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if _, ok := cmd.(committingCommand); ok {
			res := <-env.reply
			return res.value, res.err
		}
		select {
		case res := <-env.reply:
			return res.value, res.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (w *Workbench) session(vendorID string) (*vendorSession, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, ErrWorkbenchClosed
	}
	if s, ok := w.sessions[vendorID]; ok {
		return s, nil
	}

	s := &vendorSession{
		vendorID: vendorID,
		wb:       w,
		commands: make(chan envelope),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		logger:   w.logger.With(zap.String("vendor_id", vendorID)),
	}
	w.sessions[vendorID] = s
	w.wg.Add(1)
	go s.run()
	w.deps.Metrics.SetActiveSessions(context.Background(), len(w.sessions))
	return s, nil
}

// evict removes s when it is idle and holds no draft
func (w *Workbench) evict(s *vendorSession) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if s.draft != nil {
		return false
	}
	if w.sessions[s.vendorID] == s {
		delete(w.sessions, s.vendorID)
	}
	w.deps.Metrics.SetActiveSessions(context.Background(), len(w.sessions))
	return true
}

// ActiveSessions returns the number of live vendor sessions
func (w *Workbench) ActiveSessions() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.sessions)
}

// Close stops every session and waits for them to exit. Open drafts are dropped.
func (w *Workbench) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	for id, s := range w.sessions {
		close(s.stop)
		delete(w.sessions, id)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

// vendorSession holds the working state of one vendor. Its fields are only
// touched from the run goroutine.
type vendorSession struct {
	vendorID string
	wb       *Workbench
	commands chan envelope
	stop     chan struct{}
	done     chan struct{}
	logger   *zap.Logger

	draft     *purchasing.PurchaseBill
	selection []uuid.UUID
}

func (s *vendorSession) run() {
	defer s.wb.wg.Done()
	defer close(s.done)

	idle := time.NewTimer(s.wb.cfg.IdleTimeout)
	defer idle.Stop()

	for {
		select {
		case env := <-s.commands:
			env.reply <- s.handle(env)
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(s.wb.cfg.IdleTimeout)
		case <-idle.C:
			if s.wb.evict(s) {
				s.logger.Debug("vendor session evicted after idle timeout")
				return
			}
			idle.Reset(s.wb.cfg.IdleTimeout)
		case <-s.stop:
			if s.draft != nil {
				s.logger.Warn("dropping open draft on shutdown", zap.String("bill_no", s.draft.BillNo))
			}
			return
		}
	}
}

func (s *vendorSession) handle(env envelope) (res commandResult) {
	if err := env.ctx.Err(); err != nil {
		return commandResult{err: err}
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in vendor command",
				zap.String("command", env.cmd.name()),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			res = commandResult{err: shared.NewDomainError(shared.CodeInternal, "Command failed unexpectedly")}
		}
		s.wb.deps.Metrics.RecordCommand(env.ctx, env.cmd.name(), time.Since(start), res.err)
	}()

	value, err := env.cmd.apply(env.ctx, s)
	if err != nil {
		s.logger.Debug("vendor command rejected", zap.String("command", env.cmd.name()), zap.Error(err))
	}
	return commandResult{value: value, err: err}
}

// publish sends and clears events raised on the draft
func (s *vendorSession) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.wb.deps.Publisher == nil || len(events) == 0 {
		return
	}
	if err := s.wb.deps.Publisher.Publish(ctx, events...); err != nil {
		s.logger.Error("failed to publish purchasing events", zap.Error(err))
	}
}

func (s *vendorSession) publishDraftEvents(ctx context.Context) {
	if s.draft == nil {
		return
	}
	s.publish(ctx, s.draft.GetDomainEvents())
	s.draft.ClearDomainEvents()
}

func (s *vendorSession) requireDraft() (*purchasing.PurchaseBill, error) {
	if s.draft == nil {
		return nil, purchasing.ErrNoDraft
	}
	return s.draft, nil
}
