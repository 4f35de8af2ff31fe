package router

import (
	"time"

	"github.com/erp/purchasing/internal/interfaces/http/handler"
	"github.com/erp/purchasing/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// PurchasingHandlers are the handlers mounted under /api/v1
type PurchasingHandlers struct {
	Challans *handler.ChallanHandler
	Bills    *handler.PurchaseBillHandler
	Stock    *handler.StockHandler
}

// PurchasingRouteConfig tunes per-route limits
type PurchasingRouteConfig struct {
	// BodyLimit caps JSON request bodies
	BodyLimit int64
	// ImportBodyLimit caps the multipart CSV import
	ImportBodyLimit int64
	// VendorLimiter, when set, throttles each vendor's mutating calls
	VendorLimiter *middleware.RateLimiter
}

// ChallanRoutes is the receiving desk
func ChallanRoutes(h *handler.ChallanHandler, cfg PurchasingRouteConfig) *DomainGroup {
	g := NewDomainGroup("challans", "/challans").Use(middleware.BodyLimit(cfg.BodyLimit))
	g.POST("/stock-in", h.StockIn)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("/:id/cancel", h.Cancel)
	return g
}

// ChallanImportRoutes carries the CSV import under its own body limit
func ChallanImportRoutes(h *handler.ChallanHandler, cfg PurchasingRouteConfig) *DomainGroup {
	g := NewDomainGroup("challan-import", "/challans").Use(middleware.BodyLimit(cfg.ImportBodyLimit))
	g.POST("/import", h.Import)
	return g
}

// VendorRoutes is the per-vendor reconciliation workflow
func VendorRoutes(h *handler.PurchaseBillHandler, cfg PurchasingRouteConfig) *DomainGroup {
	g := NewDomainGroup("vendors", "/vendors/:vendor_id").Use(middleware.BodyLimit(cfg.BodyLimit))

	var throttle []gin.HandlerFunc
	if cfg.VendorLimiter != nil {
		throttle = append(throttle, middleware.RateLimitByKey(cfg.VendorLimiter, func(c *gin.Context) string {
			return "vendor:" + c.Param("vendor_id")
		}))
	}
	mutate := func(hf gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, throttle...), hf)
	}

	g.GET("/challans/pending", h.ListPending)

	selection := g.Group("selection", "/selection")
	selection.POST("", mutate(h.SelectChallan)...)
	selection.DELETE("", mutate(h.ClearSelection)...)
	selection.DELETE("/:challan_id", mutate(h.DeselectChallan)...)

	bill := g.Group("bill", "/bill")
	bill.POST("", mutate(h.CreateBill)...)
	bill.GET("", h.GetBill)
	bill.DELETE("", mutate(h.DiscardBill)...)
	bill.PATCH("/lines/:product_id", mutate(h.UpdateLine)...)
	bill.POST("/lines/:product_id/select", mutate(h.SelectProduct)...)
	bill.PUT("/advance", mutate(h.UpdateAdvance)...)
	bill.PATCH("/payment", mutate(h.UpdatePayment)...)
	bill.POST("/partial-payments", mutate(h.PartialPayment)...)
	bill.POST("/submit", mutate(h.Submit)...)

	history := g.Group("payment-history", "/payment-history")
	history.GET("", h.ListHistory)
	history.GET("/export", h.ExportHistory)
	return g
}

// StockRoutes exposes stock levels
func StockRoutes(h *handler.StockHandler, cfg PurchasingRouteConfig) *DomainGroup {
	g := NewDomainGroup("stock", "/stock").Use(middleware.BodyLimit(cfg.BodyLimit))
	g.POST("/adjust", h.Adjust)
	g.GET("/:sku", h.Get)
	g.GET("/:sku/movements", h.Movements)
	return g
}

// SystemRoutes mounts health probes at the engine root, outside /api/v1
func SystemRoutes(engine *gin.Engine, h *handler.SystemHandler) {
	engine.GET("/health", h.Live)
	engine.GET("/health/live", h.Live)
	engine.GET("/health/ready", h.Ready)
	engine.GET("/system/info", h.GetSystemInfo)
}

// RegisterPurchasing registers every purchasing route group on r
func RegisterPurchasing(r *Router, h PurchasingHandlers, cfg PurchasingRouteConfig) []*DomainGroup {
	groups := []*DomainGroup{
		ChallanRoutes(h.Challans, cfg),
		ChallanImportRoutes(h.Challans, cfg),
		VendorRoutes(h.Bills, cfg),
		StockRoutes(h.Stock, cfg),
	}
	for _, g := range groups {
		r.Register(g)
	}
	return groups
}

// vendorLimiterWindow is the default window for per-vendor throttling
const vendorLimiterWindow = time.Second

// NewVendorLimiter allows perSecond mutating calls per vendor
func NewVendorLimiter(perSecond int) *middleware.RateLimiter {
	return middleware.NewRateLimiter(perSecond, vendorLimiterWindow)
}
