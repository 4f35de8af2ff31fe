package purchasing

import (
	"context"
	"strings"

	"github.com/erp/purchasing/internal/domain/purchasing"
	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PurchaseBillService exposes the reconciliation workflow per vendor.
// Every mutating call is routed through the vendor's session on the workbench.
type PurchaseBillService struct {
	workbench   *Workbench
	historyRepo purchasing.PaymentHistoryRepository
	exporter    HistoryExporter
	logger      *zap.Logger
}

// NewPurchaseBillService creates a new PurchaseBillService
func NewPurchaseBillService(
	workbench *Workbench,
	historyRepo purchasing.PaymentHistoryRepository,
	exporter HistoryExporter,
	logger *zap.Logger,
) *PurchaseBillService {
	return &PurchaseBillService{
		workbench:   workbench,
		historyRepo: historyRepo,
		exporter:    exporter,
		logger:      logger,
	}
}

func dispatchAs[T any](ctx context.Context, w *Workbench, vendorID string, cmd sessionCommand) (T, error) {
	var zero T
	value, err := w.dispatch(ctx, vendorID, cmd)
	if err != nil {
		return zero, err
	}
	if value == nil {
		return zero, nil
	}
	return value.(T), nil
}

// ListPendingChallans returns the vendor's pending challans. The working
// selection is kept; use ClearSelection to reset it.
func (s *PurchaseBillService) ListPendingChallans(ctx context.Context, vendorID string) ([]ChallanResponse, error) {
	return dispatchAs[[]ChallanResponse](ctx, s.workbench, vendorID, listPendingCmd{})
}

// SelectChallan adds a pending challan to the selection
func (s *PurchaseBillService) SelectChallan(ctx context.Context, vendorID string, req SelectChallanRequest) (SelectionResponse, error) {
	return dispatchAs[SelectionResponse](ctx, s.workbench, vendorID, selectChallanCmd{challanID: req.ChallanID})
}

// DeselectChallan removes a challan from the selection
func (s *PurchaseBillService) DeselectChallan(ctx context.Context, vendorID string, challanID uuid.UUID) (SelectionResponse, error) {
	return dispatchAs[SelectionResponse](ctx, s.workbench, vendorID, deselectChallanCmd{challanID: challanID})
}

// ClearSelection empties the selection
func (s *PurchaseBillService) ClearSelection(ctx context.Context, vendorID string) (SelectionResponse, error) {
	return dispatchAs[SelectionResponse](ctx, s.workbench, vendorID, clearSelectionCmd{})
}

// CreatePurchaseBill opens a draft bill from the given challans or the current selection
func (s *PurchaseBillService) CreatePurchaseBill(ctx context.Context, vendorID string, req CreatePurchaseBillRequest) (PurchaseBillResponse, error) {
	billDate, err := parseDate("bill_date", req.BillDate)
	if err != nil {
		return PurchaseBillResponse{}, err
	}
	return dispatchAs[PurchaseBillResponse](ctx, s.workbench, vendorID, createBillCmd{
		billNo:     strings.TrimSpace(req.BillNo),
		billDate:   billDate,
		challanIDs: req.ChallanIDs,
	})
}

// GetDraft returns the open draft
func (s *PurchaseBillService) GetDraft(ctx context.Context, vendorID string) (PurchaseBillResponse, error) {
	return dispatchAs[PurchaseBillResponse](ctx, s.workbench, vendorID, draftQueryCmd{})
}

// DiscardDraft drops the open draft and keeps the selection
func (s *PurchaseBillService) DiscardDraft(ctx context.Context, vendorID string) error {
	_, err := s.workbench.dispatch(ctx, vendorID, discardCmd{})
	return err
}

// UpdateBillLine edits one field of the first line carrying productID,
// within req.ChallanID when it is set
func (s *PurchaseBillService) UpdateBillLine(ctx context.Context, vendorID, productID string, req UpdateBillLineRequest) (PurchaseBillResponse, error) {
	return dispatchAs[PurchaseBillResponse](ctx, s.workbench, vendorID, updateLineCmd{
		challanID: req.ChallanID,
		productID: productID,
		field:     purchasing.LineField(req.Field),
		value:     req.ValueString(),
	})
}

// UpdateAdvanceAmount sets the advance applied before instruments
func (s *PurchaseBillService) UpdateAdvanceAmount(ctx context.Context, vendorID string, req UpdateAdvanceRequest) (PurchaseBillResponse, error) {
	return dispatchAs[PurchaseBillResponse](ctx, s.workbench, vendorID, updateAdvanceCmd{amount: req.Amount})
}

// UpdatePaymentEntry merges a partial payment entry update
func (s *PurchaseBillService) UpdatePaymentEntry(ctx context.Context, vendorID string, req UpdatePaymentEntryRequest) (PurchaseBillResponse, error) {
	update, err := req.toDomain()
	if err != nil {
		return PurchaseBillResponse{}, err
	}
	return dispatchAs[PurchaseBillResponse](ctx, s.workbench, vendorID, updatePaymentCmd{update: update})
}

// SelectProductForPayment toggles a line for individual settlement
func (s *PurchaseBillService) SelectProductForPayment(ctx context.Context, vendorID, productID string, req SelectProductRequest) (PurchaseBillResponse, error) {
	return dispatchAs[PurchaseBillResponse](ctx, s.workbench, vendorID, selectProductCmd{
		challanID: req.ChallanID,
		productID: productID,
		selected:  req.Selected,
	})
}

// ProcessPartialPayment records a payment against one line
func (s *PurchaseBillService) ProcessPartialPayment(ctx context.Context, vendorID string, req PartialPaymentRequest) (PartialPaymentResponse, error) {
	payment, err := req.toDomain()
	if err != nil {
		return PartialPaymentResponse{}, err
	}
	return dispatchAs[PartialPaymentResponse](ctx, s.workbench, vendorID, partialPaymentCmd{payment: payment})
}

// SubmitPurchaseBill finalizes the draft. Once the vendor session has picked
// the submission up, the call returns its real outcome even if ctx expires
// first; a context error therefore means nothing was attempted.
func (s *PurchaseBillService) SubmitPurchaseBill(ctx context.Context, vendorID string) (SubmitResponse, error) {
	return dispatchAs[SubmitResponse](ctx, s.workbench, vendorID, submitCmd{})
}

// ListPaymentHistory returns the vendor's payment history, newest first
func (s *PurchaseBillService) ListPaymentHistory(ctx context.Context, vendorID string, filter PaymentHistoryFilter) (shared.Paginated[PaymentHistoryResponse], error) {
	f := shared.NewFilter(filter.Page, filter.PageSize)
	entries, total, err := s.historyRepo.FindByVendor(ctx, vendorID, f)
	if err != nil {
		return shared.Paginated[PaymentHistoryResponse]{}, err
	}
	items := make([]PaymentHistoryResponse, len(entries))
	for i, e := range entries {
		items[i] = ToPaymentHistoryResponse(e)
	}
	return shared.NewPaginated(items, total, f.Page, f.PageSize), nil
}

// ExportedFile is a rendered history document
type ExportedFile struct {
	FileName    string
	ContentType string
	Content     []byte
}

// ExportPaymentHistory renders the vendor's full history
func (s *PurchaseBillService) ExportPaymentHistory(ctx context.Context, vendorID string) (*ExportedFile, error) {
	if s.exporter == nil {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "History export is not configured")
	}
	f := shared.Unpaged()
	entries, _, err := s.historyRepo.FindByVendor(ctx, vendorID, f)
	if err != nil {
		return nil, err
	}
	rows := make([]PaymentHistoryResponse, len(entries))
	for i, e := range entries {
		rows[i] = ToPaymentHistoryResponse(e)
	}
	content, err := s.exporter.ExportPaymentHistory(vendorID, rows)
	if err != nil {
		return nil, err
	}
	s.logger.Info("payment history exported", zap.String("vendor_id", vendorID), zap.Int("rows", len(rows)))
	return &ExportedFile{
		FileName:    "payment-history-" + vendorID + s.exporter.FileExtension(),
		ContentType: s.exporter.ContentType(),
		Content:     content,
	}, nil
}
