package purchasing

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/erp/purchasing/internal/domain/purchasing"
	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ==================== Selection ====================

// listPendingCmd is a read: the selection survives it, minus challans that
// stopped being pending since they were picked.
type listPendingCmd struct{}

func (listPendingCmd) name() string { return "list_pending" }

func (listPendingCmd) apply(ctx context.Context, s *vendorSession) (any, error) {
	pending, err := s.wb.deps.ChallanRepo.FindPendingByVendor(ctx, s.vendorID)
	if err != nil {
		return nil, err
	}
	still := make(map[uuid.UUID]bool, len(pending))
	for _, c := range pending {
		still[c.ID] = true
	}
	s.selection = slices.DeleteFunc(s.selection, func(id uuid.UUID) bool { return !still[id] })
	return ToChallanResponses(pending), nil
}

type selectChallanCmd struct {
	challanID uuid.UUID
}

func (selectChallanCmd) name() string { return "select_challan" }

func (c selectChallanCmd) apply(ctx context.Context, s *vendorSession) (any, error) {
	challan, err := s.wb.deps.ChallanRepo.FindByID(ctx, c.challanID)
	if err != nil {
		return nil, err
	}
	if challan.VendorID != s.vendorID {
		return nil, purchasing.NewValidationError("challan %s belongs to a different vendor", challan.ChallanNo)
	}
	if !challan.IsPending() {
		return nil, purchasing.NewConflictingChallanStateError(challan.ChallanNo, challan.Status)
	}
	for _, id := range s.selection {
		if id == c.challanID {
			return s.selectionResponse(), nil
		}
	}
	s.selection = append(s.selection, c.challanID)
	return s.selectionResponse(), nil
}

type deselectChallanCmd struct {
	challanID uuid.UUID
}

func (deselectChallanCmd) name() string { return "deselect_challan" }

func (c deselectChallanCmd) apply(_ context.Context, s *vendorSession) (any, error) {
	kept := s.selection[:0]
	for _, id := range s.selection {
		if id != c.challanID {
			kept = append(kept, id)
		}
	}
	s.selection = kept
	return s.selectionResponse(), nil
}

type clearSelectionCmd struct{}

func (clearSelectionCmd) name() string { return "clear_selection" }

func (clearSelectionCmd) apply(_ context.Context, s *vendorSession) (any, error) {
	s.selection = nil
	return s.selectionResponse(), nil
}

func (s *vendorSession) selectionResponse() SelectionResponse {
	ids := make([]uuid.UUID, len(s.selection))
	copy(ids, s.selection)
	return SelectionResponse{VendorID: s.vendorID, ChallanIDs: ids}
}

// ==================== Draft bill ====================

type createBillCmd struct {
	billNo     string
	billDate   time.Time
	challanIDs []uuid.UUID
}

func (createBillCmd) name() string { return "create_bill" }

func (c createBillCmd) apply(ctx context.Context, s *vendorSession) (any, error) {
	if s.draft != nil {
		return nil, purchasing.ErrDraftExists
	}
	ids := c.challanIDs
	if len(ids) == 0 {
		ids = s.selection
	}
	if len(ids) == 0 {
		return nil, purchasing.NewValidationError("select at least one challan")
	}

	challans, err := s.wb.deps.ChallanRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, ch := range challans {
		if ch.VendorID != s.vendorID {
			return nil, purchasing.NewValidationError("challan %s belongs to a different vendor", ch.ChallanNo)
		}
	}
	bill, err := purchasing.NewPurchaseBill(c.billNo, c.billDate, challans, s.wb.deps.Taxes)
	if err != nil {
		return nil, err
	}

	s.draft = bill
	s.selection = append([]uuid.UUID(nil), ids...)
	s.publishDraftEvents(ctx)
	s.logger.Info("draft purchase bill created",
		zap.String("bill_no", bill.BillNo),
		zap.Int("challans", len(bill.Challans)),
		zap.Int("lines", len(bill.Lines)),
		zap.String("total", bill.Totals.Total.String()),
	)
	return ToPurchaseBillResponse(bill), nil
}

type draftQueryCmd struct{}

func (draftQueryCmd) name() string { return "get_draft" }

func (draftQueryCmd) apply(_ context.Context, s *vendorSession) (any, error) {
	draft, err := s.requireDraft()
	if err != nil {
		return nil, err
	}
	return ToPurchaseBillResponse(draft), nil
}

type discardCmd struct{}

func (discardCmd) name() string { return "discard_draft" }

func (discardCmd) apply(_ context.Context, s *vendorSession) (any, error) {
	draft, err := s.requireDraft()
	if err != nil {
		return nil, err
	}
	s.draft = nil
	s.logger.Info("draft purchase bill discarded", zap.String("bill_no", draft.BillNo))
	return nil, nil
}

type updateLineCmd struct {
	challanID uuid.UUID
	productID string
	field     purchasing.LineField
	value     string
}

func (updateLineCmd) name() string { return "update_line" }

func (c updateLineCmd) apply(_ context.Context, s *vendorSession) (any, error) {
	draft, err := s.requireDraft()
	if err != nil {
		return nil, err
	}
	if err := draft.UpdateChallanLine(c.challanID, c.productID, c.field, c.value); err != nil {
		return nil, err
	}
	return ToPurchaseBillResponse(draft), nil
}

type updateAdvanceCmd struct {
	amount decimal.Decimal
}

func (updateAdvanceCmd) name() string { return "update_advance" }

func (c updateAdvanceCmd) apply(_ context.Context, s *vendorSession) (any, error) {
	draft, err := s.requireDraft()
	if err != nil {
		return nil, err
	}
	if err := draft.SetAdvanceAmount(c.amount); err != nil {
		return nil, err
	}
	return ToPurchaseBillResponse(draft), nil
}

type updatePaymentCmd struct {
	update purchasing.PaymentEntryUpdate
}

func (updatePaymentCmd) name() string { return "update_payment" }

func (c updatePaymentCmd) apply(_ context.Context, s *vendorSession) (any, error) {
	draft, err := s.requireDraft()
	if err != nil {
		return nil, err
	}
	if err := draft.UpdatePaymentEntry(c.update); err != nil {
		return nil, err
	}
	return ToPurchaseBillResponse(draft), nil
}

// ==================== Partial payments ====================

type selectProductCmd struct {
	challanID uuid.UUID
	productID string
	selected  bool
}

func (selectProductCmd) name() string { return "select_product" }

func (c selectProductCmd) apply(_ context.Context, s *vendorSession) (any, error) {
	draft, err := s.requireDraft()
	if err != nil {
		return nil, err
	}
	if err := draft.SelectProductForPayment(c.challanID, c.productID, c.selected); err != nil {
		return nil, err
	}
	return ToPurchaseBillResponse(draft), nil
}

type partialPaymentCmd struct {
	payment purchasing.PartialPayment
}

func (partialPaymentCmd) name() string { return "partial_payment" }

// apply works on a copy so a failed history write leaves the draft untouched
func (c partialPaymentCmd) apply(ctx context.Context, s *vendorSession) (any, error) {
	draft, err := s.requireDraft()
	if err != nil {
		return nil, err
	}

	next := draft.Clone()
	line, err := next.ProcessPartialPayment(c.payment)
	if err != nil {
		return nil, err
	}
	events := next.GetDomainEvents()
	payment := c.payment
	if recorded, ok := events[len(events)-1].(*purchasing.PartialPaymentRecordedEvent); ok {
		payment.Methods = recorded.Methods
		payment.PaymentDate = recorded.PaymentDate
	}

	entry := purchasing.NewPartialPaymentHistoryEntry(next, line, payment)
	if err := s.wb.deps.HistoryRepo.Append(ctx, &entry); err != nil {
		return nil, fmt.Errorf("append payment history: %w", err)
	}

	s.draft = next
	s.publishDraftEvents(ctx)
	s.wb.deps.Metrics.RecordPartialPayment(ctx, payment.Amount)
	s.logger.Info("partial payment recorded",
		zap.String("product_id", line.ProductID),
		zap.String("amount", payment.Amount.String()),
		zap.String("cumulative", line.PartialPaymentAmount.String()),
		zap.String("line_status", string(line.PaymentStatus)),
	)

	lines := ToPurchaseBillResponse(next)
	return PartialPaymentResponse{
		Line:    lines.Lines[line.SlNo-1],
		Bill:    lines,
		History: ToPaymentHistoryResponse(entry),
	}, nil
}

// ==================== Submission ====================

type submitCmd struct{}

func (submitCmd) name() string { return "submit_bill" }

func (submitCmd) commits() {}

// apply finalizes a copy of the draft. The challan transitions, the paid bill
// and its history row commit together; the draft is cleared only after commit.
func (submitCmd) apply(ctx context.Context, s *vendorSession) (any, error) {
	draft, err := s.requireDraft()
	if err != nil {
		return nil, err
	}
	metrics := s.wb.deps.Metrics

	paid := draft.Clone()
	if err := paid.Submit(); err != nil {
		metrics.RecordSubmission(ctx, outcomeOf(err), paid.RemainingAmount())
		return nil, err
	}

	release, err := s.wb.deps.Locker.Acquire(ctx, s.vendorID)
	if err != nil {
		metrics.RecordSubmission(ctx, outcomeOf(err), decimal.Zero)
		return nil, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("failed to release vendor lock", zap.Error(err))
		}
	}()

	var (
		entry         purchasing.PaymentHistoryEntry
		challanEvents []shared.DomainEvent
		outboxed      bool
	)
	err = s.wb.deps.TxScope.Execute(ctx, func(repos TransactionalRepositories) error {
		challanEvents = challanEvents[:0]
		outboxed = false
		for _, ref := range paid.Challans {
			challan, err := repos.ChallanRepo().FindByID(ctx, ref.ID)
			if err != nil {
				return err
			}
			if challan.Version != ref.Version && challan.IsPending() {
				s.logger.Info("challan changed since the bill was built",
					zap.String("challan_no", challan.ChallanNo),
					zap.Int("bill_version", ref.Version),
					zap.Int("stored_version", challan.Version),
				)
			}
			if !challan.IsPending() || challan.Version != ref.Version {
				return purchasing.NewConflictingChallanStateError(challan.ChallanNo, challan.Status)
			}
			expected := challan.Version
			if err := challan.MarkProcessed(paid.ID); err != nil {
				return err
			}
			if err := repos.ChallanRepo().SaveWithLock(ctx, challan, expected); err != nil {
				if errors.Is(err, shared.ErrConcurrencyConflict) {
					return purchasing.NewConflictingChallanStateError(challan.ChallanNo, purchasing.ChallanStatusProcessed)
				}
				return err
			}
			challanEvents = append(challanEvents, challan.GetDomainEvents()...)
		}

		if err := repos.BillRepo().Save(ctx, paid); err != nil {
			return fmt.Errorf("save purchase bill: %w", err)
		}
		entry = purchasing.NewBillHistoryEntry(paid)
		if err := repos.HistoryRepo().Append(ctx, &entry); err != nil {
			return fmt.Errorf("append payment history: %w", err)
		}

		if outbox := repos.Outbox(); outbox != nil {
			events := append(append([]shared.DomainEvent(nil), challanEvents...), paid.GetDomainEvents()...)
			if err := outbox.SaveEvents(ctx, events...); err != nil {
				return fmt.Errorf("save submission events: %w", err)
			}
			outboxed = true
		}
		return nil
	})
	if err != nil {
		metrics.RecordSubmission(ctx, outcomeOf(err), decimal.Zero)
		s.logger.Warn("purchase bill submission failed", zap.String("bill_no", paid.BillNo), zap.Error(err))
		return nil, err
	}
	// committed: the caller waits for this reply even past its deadline
	ctx = context.WithoutCancel(ctx)

	if !outboxed {
		s.publish(ctx, challanEvents)
		s.publish(ctx, paid.GetDomainEvents())
	}
	paid.ClearDomainEvents()

	s.draft = nil
	s.selection = nil
	metrics.RecordSubmission(ctx, "paid", paid.Totals.Total)
	s.logger.Info("purchase bill submitted",
		zap.String("bill_id", paid.ID.String()),
		zap.String("bill_no", paid.BillNo),
		zap.String("total", paid.Totals.Total.String()),
	)

	pending, err := s.wb.deps.ChallanRepo.FindPendingByVendor(ctx, s.vendorID)
	if err != nil {
		// the bill is committed; report it with an empty pending list
		s.logger.Warn("failed to reload pending challans", zap.Error(err))
		pending = nil
	}
	return SubmitResponse{
		Bill:            ToPurchaseBillResponse(paid),
		History:         ToPaymentHistoryResponse(entry),
		PendingChallans: ToChallanResponses(pending),
	}, nil
}

func outcomeOf(err error) string {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return "error"
}
