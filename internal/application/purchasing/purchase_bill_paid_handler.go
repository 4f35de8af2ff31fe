package purchasing

import (
	"context"
	"fmt"

	inventoryapp "github.com/erp/purchasing/internal/application/inventory"
	"github.com/erp/purchasing/internal/domain/inventory"
	"github.com/erp/purchasing/internal/domain/purchasing"
	"github.com/erp/purchasing/internal/domain/shared"
	"go.uber.org/zap"
)

// StockAdjuster is the inventory boundary: adjustStock(sku, quantity, operation)
type StockAdjuster interface {
	AdjustStock(ctx context.Context, req inventoryapp.AdjustStockRequest) (*inventoryapp.StockItemResponse, error)
}

// PurchaseBillPaidHandler handles PurchaseBillPaidEvent
// and pushes received quantities into inventory
type PurchaseBillPaidHandler struct {
	stock  StockAdjuster
	logger *zap.Logger
}

// NewPurchaseBillPaidHandler creates a new handler for purchase bill paid events
func NewPurchaseBillPaidHandler(stock StockAdjuster, logger *zap.Logger) *PurchaseBillPaidHandler {
	return &PurchaseBillPaidHandler{
		stock:  stock,
		logger: logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *PurchaseBillPaidHandler) EventTypes() []string {
	return []string{purchasing.EventTypePurchaseBillPaid}
}

// Handle adds stock for every bill line. Each line carries its own movement
// reference so a redelivered event does not add stock twice.
func (h *PurchaseBillPaidHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	paidEvent, ok := event.(*purchasing.PurchaseBillPaidEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", purchasing.EventTypePurchaseBillPaid),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			purchasing.EventTypePurchaseBillPaid, event.EventType())
	}

	h.logger.Info("processing purchase bill paid event",
		zap.String("bill_id", paidEvent.BillID.String()),
		zap.String("bill_no", paidEvent.BillNo),
		zap.String("vendor_id", paidEvent.VendorID),
		zap.Int("lines", len(paidEvent.StockLines)),
	)

	var lastErr error
	successCount := 0
	for _, line := range paidEvent.StockLines {
		req := inventoryapp.AdjustStockRequest{
			SKU:         line.SKU,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitCost:    line.UnitPrice,
			Operation:   inventory.StockOperationAdd,
			Reference:   inventory.BillLineReference(paidEvent.BillID, line.SlNo),
		}
		if _, err := h.stock.AdjustStock(ctx, req); err != nil {
			h.logger.Error("failed to add stock for bill line",
				zap.String("bill_id", paidEvent.BillID.String()),
				zap.String("sku", line.SKU),
				zap.String("quantity", line.Quantity.String()),
				zap.Error(err),
			)
			lastErr = err
			// keep going so the other lines still land
			continue
		}
		successCount++
	}

	h.logger.Info("purchase bill stock push completed",
		zap.String("bill_id", paidEvent.BillID.String()),
		zap.Int("total_lines", len(paidEvent.StockLines)),
		zap.Int("success_count", successCount),
	)
	if lastErr != nil {
		return fmt.Errorf("some bill lines failed to update stock: %w", lastErr)
	}
	return nil
}

var _ shared.EventHandler = (*PurchaseBillPaidHandler)(nil)
