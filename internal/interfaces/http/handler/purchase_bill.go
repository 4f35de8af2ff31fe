package handler

import (
	"fmt"
	"net/http"
	"strings"

	apppurchasing "github.com/erp/purchasing/internal/application/purchasing"
	"github.com/gin-gonic/gin"
)

// PurchaseBillHandler serves the per-vendor reconciliation workflow:
// challan selection, the draft bill, payments and submission
type PurchaseBillHandler struct {
	BaseHandler
	billService *apppurchasing.PurchaseBillService
}

// NewPurchaseBillHandler creates a new PurchaseBillHandler
func NewPurchaseBillHandler(billService *apppurchasing.PurchaseBillService) *PurchaseBillHandler {
	return &PurchaseBillHandler{billService: billService}
}

func (h *PurchaseBillHandler) vendor(c *gin.Context) (string, bool) {
	vendorID, ok := vendorParam(c)
	if !ok {
		h.BadRequest(c, "Invalid vendor ID")
	}
	return vendorID, ok
}

func (h *PurchaseBillHandler) product(c *gin.Context) (string, bool) {
	productID := strings.TrimSpace(c.Param("product_id"))
	if productID == "" {
		h.BadRequest(c, "Product ID is required")
		return "", false
	}
	return productID, true
}

// ListPending lists the vendor's pending challans
// GET /vendors/:vendor_id/challans/pending
func (h *PurchaseBillHandler) ListPending(c *gin.Context) {
	vendorID, ok := h.vendor(c)
	if !ok {
		return
	}

	challans, err := h.billService.ListPendingChallans(c.Request.Context(), vendorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, challans)
}

// SelectChallan adds a pending challan to the selection
// POST /vendors/:vendor_id/selection
func (h *PurchaseBillHandler) SelectChallan(c *gin.Context) {
	vendorID, ok := h.vendor(c)
	if !ok {
		return
	}
	var req apppurchasing.SelectChallanRequest
	if !h.BindJSON(c, &req) {
		return
	}

	selection, err := h.billService.SelectChallan(c.Request.Context(), vendorID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, selection)
}

// DeselectChallan removes one challan from the selection
// DELETE /vendors/:vendor_id/selection/:challan_id
func (h *PurchaseBillHandler) DeselectChallan(c *gin.Context) {
	vendorID, ok := h.vendor(c)
	if !ok {
		return
	}
	challanID, ok := uuidParam(c, "challan_id")
	if !ok {
		h.BadRequest(c, "Invalid challan ID format")
		return
	}

	selection, err := h.billService.DeselectChallan(c.Request.Context(), vendorID, challanID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, selection)
}

// ClearSelection empties the selection
// DELETE /vendors/:vendor_id/selection
func (h *PurchaseBillHandler) ClearSelection(c *gin.Context) {
	vendorID, ok := h.vendor(c)
	if !ok {
		return
	}

	selection, err := h.billService.ClearSelection(c.Request.Context(), vendorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, selection)
}

// CreateBill opens a draft purchase bill
// POST /vendors/:vendor_id/bill
func (h *PurchaseBillHandler) CreateBill(c *gin.Context) {
	vendorID, ok := h.vendor(c)
	if !ok {
		return
	}
	var req apppurchasing.CreatePurchaseBillRequest
	if !h.BindJSON(c, &req) {
		return
	}

	bill, err := h.billService.CreatePurchaseBill(c.Request.Context(), vendorID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, bill)
}

// GetBill returns the open draft
// GET /vendors/:vendor_id/bill
func (h *PurchaseBillHandler) GetBill(c *gin.Context) {
	vendorID, ok := h.vendor(c)
	if !ok {
		return
	}

	bill, err := h.billService.GetDraft(c.Request.Context(), vendorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, bill)
}

// DiscardBill drops the open draft
// DELETE /vendors/:vendor_id/bill
func (h *PurchaseBillHandler) DiscardBill(c *gin.Context) {
	vendorID, ok := h.vendor(c)
	if !ok {
		return
	}

	if err := h.billService.DiscardDraft(c.Request.Context(), vendorID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// UpdateLine edits one field of a bill line and recomputes it
// PATCH /vendors/:vendor_id/bill/lines/:product_id
func (h *PurchaseBillHandler) UpdateLine(c *gin.Context) {
	vendorID, ok := h.vendor(c)
	if !ok {
		return
	}
	productID, ok := h.product(c)
	if !ok {
		return
	}
	var req apppurchasing.UpdateBillLineRequest
	if !h.BindJSON(c, &req) {
		return
	}

	bill, err := h.billService.UpdateBillLine(c.Request.Context(), vendorID, productID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, bill)
}

// UpdateAdvance sets the advance amount
// PUT /vendors/:vendor_id/bill/advance
func (h *PurchaseBillHandler) UpdateAdvance(c *gin.Context) {
	vendorID, ok := h.vendor(c)
	if !ok {
		return
	}
	var req apppurchasing.UpdateAdvanceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	bill, err := h.billService.UpdateAdvanceAmount(c.Request.Context(), vendorID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, bill)
}

// UpdatePayment merges fields into the payment entry
// PATCH /vendors/:vendor_id/bill/payment
func (h *PurchaseBillHandler) UpdatePayment(c *gin.Context) {
	vendorID, ok := h.vendor(c)
	if !ok {
		return
	}
	var req apppurchasing.UpdatePaymentEntryRequest
	if !h.BindJSON(c, &req) {
		return
	}

	bill, err := h.billService.UpdatePaymentEntry(c.Request.Context(), vendorID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, bill)
}

// SelectProduct toggles a line for individual settlement
// POST /vendors/:vendor_id/bill/lines/:product_id/select
func (h *PurchaseBillHandler) SelectProduct(c *gin.Context) {
	vendorID, ok := h.vendor(c)
	if !ok {
		return
	}
	productID, ok := h.product(c)
	if !ok {
		return
	}
	var req apppurchasing.SelectProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	bill, err := h.billService.SelectProductForPayment(c.Request.Context(), vendorID, productID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, bill)
}

// PartialPayment applies a payment to one line and records it in history
// POST /vendors/:vendor_id/bill/partial-payments
func (h *PurchaseBillHandler) PartialPayment(c *gin.Context) {
	vendorID, ok := h.vendor(c)
	if !ok {
		return
	}
	var req apppurchasing.PartialPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.billService.ProcessPartialPayment(c.Request.Context(), vendorID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// Submit finalizes the draft once it is fully paid
// POST /vendors/:vendor_id/bill/submit
func (h *PurchaseBillHandler) Submit(c *gin.Context) {
	vendorID, ok := h.vendor(c)
	if !ok {
		return
	}

	result, err := h.billService.SubmitPurchaseBill(c.Request.Context(), vendorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// ListHistory pages through the vendor's payment history, newest first
// GET /vendors/:vendor_id/payment-history
func (h *PurchaseBillHandler) ListHistory(c *gin.Context) {
	vendorID, ok := h.vendor(c)
	if !ok {
		return
	}
	var filter apppurchasing.PaymentHistoryFilter
	if !h.BindQuery(c, &filter) {
		return
	}

	page, err := h.billService.ListPaymentHistory(c.Request.Context(), vendorID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// ExportHistory downloads the vendor's full payment history as a spreadsheet
// GET /vendors/:vendor_id/payment-history/export
func (h *PurchaseBillHandler) ExportHistory(c *gin.Context) {
	vendorID, ok := h.vendor(c)
	if !ok {
		return
	}

	file, err := h.billService.ExportPaymentHistory(c.Request.Context(), vendorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.FileName))
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
