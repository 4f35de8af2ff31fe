package purchasing

import (
	"context"
	"errors"

	"github.com/erp/purchasing/internal/domain/purchasing"
	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChallanService records and queries vendor challans
type ChallanService struct {
	challanRepo    purchasing.ChallanRepository
	taxes          purchasing.TaxRateLookup
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewChallanService creates a new ChallanService
func NewChallanService(
	challanRepo purchasing.ChallanRepository,
	taxes purchasing.TaxRateLookup,
	logger *zap.Logger,
) *ChallanService {
	if taxes == nil {
		taxes = purchasing.NewTaxRateTable(purchasing.DefaultTaxRate())
	}
	return &ChallanService{
		challanRepo: challanRepo,
		taxes:       taxes,
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *ChallanService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// AddChallanFromStockIn turns a goods receipt into a pending challan
func (s *ChallanService) AddChallanFromStockIn(ctx context.Context, req StockInRequest) (*ChallanResponse, error) {
	receipt := purchasing.StockInReceipt{
		ChallanNo:  req.ChallanNo,
		VendorID:   req.VendorID,
		VendorName: req.VendorName,
		Transport: purchasing.Transport{
			Name:    req.Transport.Name,
			Number:  req.Transport.Number,
			Charges: req.Transport.Charges,
		},
		Lines: make([]purchasing.StockInLine, 0, len(req.Lines)),
	}
	if req.ChallanDate != "" {
		d, err := parseDate("challan_date", req.ChallanDate)
		if err != nil {
			return nil, err
		}
		receipt.ChallanDate = d
	}
	for _, l := range req.Lines {
		mfg, err := parseOptionalDate("mfg_date", l.MfgDate)
		if err != nil {
			return nil, err
		}
		exp, err := parseOptionalDate("exp_date", l.ExpDate)
		if err != nil {
			return nil, err
		}
		receipt.Lines = append(receipt.Lines, purchasing.StockInLine{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			HSNCode:     l.HSNCode,
			GSTRate:     l.GSTRate,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			TotalPrice:  l.TotalPrice,
			BatchNo:     l.BatchNo,
			MfgDate:     mfg,
			ExpDate:     exp,
		})
	}

	challan, err := purchasing.NewChallanFromStockIn(receipt, s.taxes)
	if err != nil {
		return nil, err
	}
	if err := s.challanRepo.Save(ctx, challan); err != nil {
		return nil, err
	}
	s.publishDomainEvents(ctx, challan)

	s.logger.Info("challan recorded from stock-in",
		zap.String("challan_id", challan.ID.String()),
		zap.String("challan_no", challan.ChallanNo),
		zap.String("vendor_id", challan.VendorID),
		zap.String("total", challan.TotalAmount.String()),
	)
	response := ToChallanResponse(challan)
	return &response, nil
}

// GetChallan returns one challan
func (s *ChallanService) GetChallan(ctx context.Context, id uuid.UUID) (*ChallanResponse, error) {
	challan, err := s.challanRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToChallanResponse(challan)
	return &response, nil
}

// ListChallans lists challans filtered by vendor and status
func (s *ChallanService) ListChallans(ctx context.Context, filter ChallanListFilter) (shared.Paginated[ChallanResponse], error) {
	f := shared.NewFilter(filter.Page, filter.PageSize).
		WhereEq("vendor_id", filter.VendorID).
		WhereEq("status", filter.Status)
	f.OrderBy = filter.OrderBy
	f.OrderDir = filter.OrderDir

	challans, total, err := s.challanRepo.FindAll(ctx, f)
	if err != nil {
		return shared.Paginated[ChallanResponse]{}, err
	}
	return shared.NewPaginated(ToChallanResponses(challans), total, f.Page, f.PageSize), nil
}

// CancelChallan withdraws a pending challan. A bill that already consolidated
// it will fail its version check at submission.
func (s *ChallanService) CancelChallan(ctx context.Context, id uuid.UUID, req CancelChallanRequest) (*ChallanResponse, error) {
	challan, err := s.challanRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	expected := challan.Version
	if err := challan.Cancel(req.Reason); err != nil {
		return nil, err
	}
	if err := s.challanRepo.SaveWithLock(ctx, challan, expected); err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			return nil, purchasing.NewConflictingChallanStateError(challan.ChallanNo, purchasing.ChallanStatusProcessed)
		}
		return nil, err
	}
	s.publishDomainEvents(ctx, challan)

	s.logger.Info("challan cancelled",
		zap.String("challan_id", challan.ID.String()),
		zap.String("vendor_id", challan.VendorID),
		zap.String("reason", req.Reason),
	)
	response := ToChallanResponse(challan)
	return &response, nil
}

func (s *ChallanService) publishDomainEvents(ctx context.Context, challan *purchasing.Challan) {
	events := challan.GetDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Error("failed to publish challan events", zap.String("challan_id", challan.ID.String()), zap.Error(err))
	}
	challan.ClearDomainEvents()
}
