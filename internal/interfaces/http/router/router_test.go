package router

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/erp/purchasing/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	g := NewDomainGroup("challans", "/challans")
	g.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.Register(g).Setup()

	w := serve(engine, http.MethodGet, "/api/v1/challans/ping")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestDomainGroup_Methods(t *testing.T) {
	engine := gin.New()
	g := NewDomainGroup("vendors", "/vendors/:vendor_id")
	echo := func(c *gin.Context) { c.String(http.StatusOK, c.Request.Method+" "+c.Param("vendor_id")) }
	g.GET("/bill", echo).
		POST("/bill", echo).
		PUT("/bill/advance", echo).
		PATCH("/bill/payment", echo).
		DELETE("/bill", echo)
	g.RegisterRoutes(engine.Group("/api/v1"))

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/vendors/V1/bill"},
		{http.MethodPost, "/api/v1/vendors/V1/bill"},
		{http.MethodPut, "/api/v1/vendors/V1/bill/advance"},
		{http.MethodPatch, "/api/v1/vendors/V1/bill/payment"},
		{http.MethodDelete, "/api/v1/vendors/V1/bill"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := serve(engine, tt.method, tt.path)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.method+" V1", w.Body.String())
		})
	}
}

func TestDomainGroup_MiddlewareAndSubgroups(t *testing.T) {
	engine := gin.New()
	g := NewDomainGroup("vendors", "/vendors/:vendor_id")
	g.Use(func(c *gin.Context) {
		c.Header("X-Vendor", c.Param("vendor_id"))
		c.Next()
	})
	g.Group("history", "/payment-history").GET("", func(c *gin.Context) { c.String(http.StatusOK, "history") })
	g.RegisterRoutes(engine.Group("/api/v1"))

	w := serve(engine, http.MethodGet, "/api/v1/vendors/V9/payment-history")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "history", w.Body.String())
	assert.Equal(t, "V9", w.Header().Get("X-Vendor"))
}

func TestDomainGroup_Routes(t *testing.T) {
	g := NewDomainGroup("vendors", "/vendors/:vendor_id")
	noop := func(*gin.Context) {}
	g.GET("/challans/pending", noop)
	bill := g.Group("bill", "/bill")
	bill.POST("", noop)
	bill.POST("/submit", noop)

	assert.Equal(t, []Route{
		{Method: http.MethodGet, Path: "/vendors/:vendor_id/challans/pending"},
		{Method: http.MethodPost, Path: "/vendors/:vendor_id/bill"},
		{Method: http.MethodPost, Path: "/vendors/:vendor_id/bill/submit"},
	}, g.Routes())
	assert.Equal(t, "vendors", g.Name())
	assert.Equal(t, "/vendors/:vendor_id", g.Prefix())
}

func TestRegisterPurchasing(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)
	groups := RegisterPurchasing(r, PurchasingHandlers{
		Challans: handler.NewChallanHandler(nil),
		Bills:    handler.NewPurchaseBillHandler(nil),
		Stock:    handler.NewStockHandler(nil),
	}, PurchasingRouteConfig{BodyLimit: 1 << 20, ImportBodyLimit: 10 << 20, VendorLimiter: NewVendorLimiter(5)})
	r.Setup()
	SystemRoutes(engine, handler.NewSystemHandler("purchasing", "test"))
	require.Len(t, groups, 4)

	var registered []string
	for _, ri := range engine.Routes() {
		registered = append(registered, ri.Method+" "+ri.Path)
	}
	sort.Strings(registered)

	want := []string{
		"POST /api/v1/challans/stock-in",
		"POST /api/v1/challans/import",
		"GET /api/v1/challans",
		"GET /api/v1/challans/:id",
		"POST /api/v1/challans/:id/cancel",
		"GET /api/v1/vendors/:vendor_id/challans/pending",
		"POST /api/v1/vendors/:vendor_id/selection",
		"DELETE /api/v1/vendors/:vendor_id/selection",
		"DELETE /api/v1/vendors/:vendor_id/selection/:challan_id",
		"POST /api/v1/vendors/:vendor_id/bill",
		"GET /api/v1/vendors/:vendor_id/bill",
		"DELETE /api/v1/vendors/:vendor_id/bill",
		"PATCH /api/v1/vendors/:vendor_id/bill/lines/:product_id",
		"POST /api/v1/vendors/:vendor_id/bill/lines/:product_id/select",
		"PUT /api/v1/vendors/:vendor_id/bill/advance",
		"PATCH /api/v1/vendors/:vendor_id/bill/payment",
		"POST /api/v1/vendors/:vendor_id/bill/partial-payments",
		"POST /api/v1/vendors/:vendor_id/bill/submit",
		"GET /api/v1/vendors/:vendor_id/payment-history",
		"GET /api/v1/vendors/:vendor_id/payment-history/export",
		"POST /api/v1/stock/adjust",
		"GET /api/v1/stock/:sku",
		"GET /api/v1/stock/:sku/movements",
		"GET /health",
		"GET /health/live",
		"GET /health/ready",
		"GET /system/info",
	}
	for _, route := range want {
		assert.Contains(t, registered, route)
	}
	assert.Len(t, registered, len(want))

	var listed int
	for _, g := range groups {
		for _, route := range g.Routes() {
			assert.True(t, strings.HasPrefix(route.Path, "/"), route.Path)
			listed++
		}
	}
	assert.Equal(t, len(want)-4, listed)
}

func TestRegisterPurchasing_VendorPathValidated(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)
	RegisterPurchasing(r, PurchasingHandlers{
		Challans: handler.NewChallanHandler(nil),
		Bills:    handler.NewPurchaseBillHandler(nil),
		Stock:    handler.NewStockHandler(nil),
	}, PurchasingRouteConfig{})
	r.Setup()

	// the handler rejects the vendor before touching the service
	w := serve(engine, http.MethodGet, "/api/v1/vendors/"+strings.Repeat("v", 65)+"/bill")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
