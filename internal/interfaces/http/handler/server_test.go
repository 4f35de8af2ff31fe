package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	inventoryapp "github.com/erp/purchasing/internal/application/inventory"
	apppurchasing "github.com/erp/purchasing/internal/application/purchasing"
	"github.com/erp/purchasing/internal/domain/purchasing"
	"github.com/erp/purchasing/internal/infrastructure/config"
	"github.com/erp/purchasing/internal/infrastructure/export"
	"github.com/erp/purchasing/internal/infrastructure/lock"
	"github.com/erp/purchasing/internal/infrastructure/persistence"
	"github.com/erp/purchasing/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testServer runs the handlers against a migrated SQLite database
type testServer struct {
	t         *testing.T
	engine    *gin.Engine
	db        *persistence.Database
	workbench *apppurchasing.Workbench
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := persistence.NewDatabase(&config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "handler.db"),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })

	logger := zap.NewNop()
	taxes := purchasing.NewTaxRateTable(purchasing.DefaultTaxRate())
	challanRepo := persistence.NewGormChallanRepository(db.DB)
	historyRepo := persistence.NewGormPaymentHistoryRepository(db.DB)

	workbench := apppurchasing.NewWorkbench(apppurchasing.Dependencies{
		ChallanRepo: challanRepo,
		HistoryRepo: historyRepo,
		TxScope:     persistence.NewGormPurchasingTransactionScope(db.DB, nil),
		Locker:      lock.NewLocalVendorLocker(),
		Taxes:       taxes,
	}, apppurchasing.WorkbenchConfig{IdleTimeout: time.Minute, CommandTimeout: 5 * time.Second}, logger)
	t.Cleanup(workbench.Close)

	challans := NewChallanHandler(apppurchasing.NewChallanService(challanRepo, taxes, logger))
	bills := NewPurchaseBillHandler(apppurchasing.NewPurchaseBillService(workbench, historyRepo, export.NewXLSXHistoryExporter(), logger))
	stock := NewStockHandler(inventoryapp.NewStockService(
		persistence.NewGormInventoryTransactionScope(db.DB),
		persistence.NewGormStockItemRepository(db.DB),
		persistence.NewGormStockMovementRepository(db.DB),
		logger,
	))
	system := NewSystemHandler("purchasing", "test",
		WithDependencyCheck("database", func(ctx context.Context) error { return db.Ping() }),
		WithSessionCounter(workbench),
	)

	engine := gin.New()
	engine.Use(middleware.RequestID())
	api := engine.Group("/api/v1")

	api.POST("/challans/stock-in", challans.StockIn)
	api.POST("/challans/import", challans.Import)
	api.GET("/challans", challans.List)
	api.GET("/challans/:id", challans.Get)
	api.POST("/challans/:id/cancel", challans.Cancel)

	v := api.Group("/vendors/:vendor_id")
	v.GET("/challans/pending", bills.ListPending)
	v.POST("/selection", bills.SelectChallan)
	v.DELETE("/selection", bills.ClearSelection)
	v.DELETE("/selection/:challan_id", bills.DeselectChallan)
	v.POST("/bill", bills.CreateBill)
	v.GET("/bill", bills.GetBill)
	v.DELETE("/bill", bills.DiscardBill)
	v.PATCH("/bill/lines/:product_id", bills.UpdateLine)
	v.POST("/bill/lines/:product_id/select", bills.SelectProduct)
	v.PUT("/bill/advance", bills.UpdateAdvance)
	v.PATCH("/bill/payment", bills.UpdatePayment)
	v.POST("/bill/partial-payments", bills.PartialPayment)
	v.POST("/bill/submit", bills.Submit)
	v.GET("/payment-history", bills.ListHistory)
	v.GET("/payment-history/export", bills.ExportHistory)

	api.POST("/stock/adjust", stock.Adjust)
	api.GET("/stock/:sku", stock.Get)
	api.GET("/stock/:sku/movements", stock.Movements)

	engine.GET("/health/live", system.Live)
	engine.GET("/health/ready", system.Ready)

	return &testServer{t: t, engine: engine, db: db, workbench: workbench}
}

// apiResponse mirrors dto.Response with a raw data payload
type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta *struct {
		Total int64 `json:"total"`
	} `json:"meta"`
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

// call performs the request, checks the status and decodes data into out
func (s *testServer) call(method, path string, body any, wantStatus int, out any) apiResponse {
	s.t.Helper()
	w := s.do(method, path, body)
	require.Equal(s.t, wantStatus, w.Code, w.Body.String())
	var resp apiResponse
	if w.Body.Len() == 0 {
		return resp
	}
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	if out != nil && len(resp.Data) > 0 {
		require.NoError(s.t, json.Unmarshal(resp.Data, out), string(resp.Data))
	}
	return resp
}

func (s *testServer) errorCode(method, path string, body any, wantStatus int) string {
	s.t.Helper()
	resp := s.call(method, path, body, wantStatus, nil)
	require.NotNil(s.t, resp.Error)
	return resp.Error.Code
}

// stockIn records a two-line challan for vendor
func (s *testServer) stockIn(vendorID, challanNo string) apppurchasing.ChallanResponse {
	s.t.Helper()
	var challan apppurchasing.ChallanResponse
	s.call(http.MethodPost, "/api/v1/challans/stock-in", map[string]any{
		"challan_no":   challanNo,
		"vendor_id":    vendorID,
		"vendor_name":  "Vendor " + vendorID,
		"challan_date": "2024-03-01",
		"lines": []map[string]any{
			{"product_id": "P1", "product_name": "Widget", "quantity": "10", "unit_price": "50"},
			{"product_id": "P2", "product_name": "Gadget", "quantity": "2", "unit_price": "100"},
		},
	}, http.StatusCreated, &challan)
	return challan
}
