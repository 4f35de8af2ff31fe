package handler

import (
	"strconv"
	"strings"

	inventoryapp "github.com/erp/purchasing/internal/application/inventory"
	"github.com/erp/purchasing/internal/domain/inventory"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const (
	defaultMovementLimit = 50
	maxMovementLimit     = 500
)

// StockHandler exposes stock levels fed by submitted purchase bills
type StockHandler struct {
	BaseHandler
	stockService *inventoryapp.StockService
}

// NewStockHandler creates a new StockHandler
func NewStockHandler(stockService *inventoryapp.StockService) *StockHandler {
	return &StockHandler{stockService: stockService}
}

// AdjustStockRequest is a manual stock correction
type AdjustStockRequest struct {
	SKU         string          `json:"sku" binding:"required,max=100"`
	ProductID   string          `json:"product_id" binding:"max=64"`
	ProductName string          `json:"product_name" binding:"max=200"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required,gt=0,scale=4"`
	UnitCost    decimal.Decimal `json:"unit_cost" binding:"gte=0,scale=4"`
	Operation   string          `json:"operation" binding:"required,oneof=add subtract"`
	Reference   string          `json:"reference" binding:"max=100"`
}

// Get returns the stock level of a SKU
// GET /stock/:sku
func (h *StockHandler) Get(c *gin.Context) {
	sku := strings.TrimSpace(c.Param("sku"))

	item, err := h.stockService.GetStock(c.Request.Context(), sku)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, item)
}

// Movements lists the latest movements of a SKU
// GET /stock/:sku/movements?limit=50
func (h *StockHandler) Movements(c *gin.Context) {
	sku := strings.TrimSpace(c.Param("sku"))
	limit := defaultMovementLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxMovementLimit {
			h.BadRequest(c, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	movements, err := h.stockService.ListMovements(c.Request.Context(), sku, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, movements)
}

// Adjust applies a manual stock correction
// POST /stock/adjust
func (h *StockHandler) Adjust(c *gin.Context) {
	var req AdjustStockRequest
	if !h.BindJSON(c, &req) {
		return
	}

	item, err := h.stockService.AdjustStock(c.Request.Context(), inventoryapp.AdjustStockRequest{
		SKU:         strings.TrimSpace(req.SKU),
		ProductID:   req.ProductID,
		ProductName: req.ProductName,
		Quantity:    req.Quantity,
		UnitCost:    req.UnitCost,
		Operation:   inventory.StockOperation(req.Operation),
		Reference:   req.Reference,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, item)
}
