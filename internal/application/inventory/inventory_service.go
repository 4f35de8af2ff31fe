package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/purchasing/internal/domain/inventory"
	"github.com/erp/purchasing/internal/domain/shared"
	"go.uber.org/zap"
)

const maxAdjustAttempts = 3

// StockService applies stock adjustments pushed by other contexts
type StockService struct {
	txScope        TransactionScope
	stockRepo      inventory.StockItemRepository
	movementRepo   inventory.StockMovementRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewStockService creates a new StockService
func NewStockService(
	txScope TransactionScope,
	stockRepo inventory.StockItemRepository,
	movementRepo inventory.StockMovementRepository,
	logger *zap.Logger,
) *StockService {
	return &StockService{
		txScope:      txScope,
		stockRepo:    stockRepo,
		movementRepo: movementRepo,
		logger:       logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *StockService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// AdjustStock adds or subtracts stock for a SKU. The item is created on the
// first add. A request whose Reference was already applied is a no-op.
func (s *StockService) AdjustStock(ctx context.Context, req AdjustStockRequest) (*StockItemResponse, error) {
	if req.SKU == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "SKU is required")
	}
	if !req.Operation.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Unknown stock operation %q", req.Operation))
	}
	if !req.Quantity.IsPositive() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}

	var (
		item *inventory.StockItem
		err  error
	)
	for attempt := 1; attempt <= maxAdjustAttempts; attempt++ {
		item, err = s.adjustOnce(ctx, req)
		if !errors.Is(err, shared.ErrConcurrencyConflict) {
			break
		}
		s.logger.Warn("stock adjustment conflicted, retrying",
			zap.String("sku", req.SKU),
			zap.Int("attempt", attempt),
		)
	}
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, item)
	response := ToStockItemResponse(item)
	return &response, nil
}

func (s *StockService) adjustOnce(ctx context.Context, req AdjustStockRequest) (*inventory.StockItem, error) {
	var result *inventory.StockItem
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if req.Reference != "" {
			applied, err := repos.MovementRepo().ExistsByReference(ctx, req.Reference)
			if err != nil {
				return fmt.Errorf("check movement reference: %w", err)
			}
			if applied {
				s.logger.Info("stock adjustment already applied",
					zap.String("sku", req.SKU),
					zap.String("reference", req.Reference),
				)
				existing, err := repos.StockRepo().FindBySKU(ctx, req.SKU)
				if err != nil {
					return err
				}
				existing.ClearDomainEvents()
				result = existing
				return nil
			}
		}

		item, err := repos.StockRepo().FindBySKU(ctx, req.SKU)
		isNew := false
		switch {
		case errors.Is(err, shared.ErrNotFound) && req.Operation == inventory.StockOperationAdd:
			item, err = inventory.NewStockItem(req.SKU, req.ProductID, req.ProductName)
			if err != nil {
				return err
			}
			isNew = true
		case errors.Is(err, shared.ErrNotFound):
			return shared.ErrInsufficientStock
		case err != nil:
			return err
		}

		expectedVersion := item.GetVersion()
		before := item.Quantity
		if req.Operation == inventory.StockOperationAdd {
			err = item.Increase(req.Quantity, req.UnitCost)
		} else {
			err = item.Decrease(req.Quantity)
		}
		if err != nil {
			return err
		}

		if isNew {
			err = repos.StockRepo().Save(ctx, item)
		} else {
			err = repos.StockRepo().SaveWithLock(ctx, item, expectedVersion)
		}
		if err != nil {
			return err
		}

		movement := inventory.NewStockMovement(item, req.Operation, req.Quantity, req.UnitCost, before, req.Reference)
		if err := repos.MovementRepo().Create(ctx, movement); err != nil {
			return err
		}
		result = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetStock returns the stock level of a SKU
func (s *StockService) GetStock(ctx context.Context, sku string) (*StockItemResponse, error) {
	item, err := s.stockRepo.FindBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	response := ToStockItemResponse(item)
	return &response, nil
}

// ListMovements returns the latest movements of a SKU
func (s *StockService) ListMovements(ctx context.Context, sku string, limit int) ([]StockMovementResponse, error) {
	movements, err := s.movementRepo.FindBySKU(ctx, sku, limit)
	if err != nil {
		return nil, err
	}
	return ToStockMovementResponses(movements), nil
}

func (s *StockService) publishDomainEvents(ctx context.Context, item *inventory.StockItem) {
	events := item.GetDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Error("failed to publish stock events", zap.String("sku", item.SKU), zap.Error(err))
	}
	item.ClearDomainEvents()
}
