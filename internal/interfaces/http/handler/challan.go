package handler

import (
	"errors"
	"net/http"
	"strconv"

	apppurchasing "github.com/erp/purchasing/internal/application/purchasing"
	"github.com/erp/purchasing/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// maxImportFileSize bounds the multipart CSV accepted by the stock-in import
const maxImportFileSize = 10 << 20

// ChallanHandler handles the receiving desk endpoints
type ChallanHandler struct {
	BaseHandler
	challanService *apppurchasing.ChallanService
}

// NewChallanHandler creates a new ChallanHandler
func NewChallanHandler(challanService *apppurchasing.ChallanService) *ChallanHandler {
	return &ChallanHandler{challanService: challanService}
}

// StockIn records received goods as a pending challan
// POST /challans/stock-in
func (h *ChallanHandler) StockIn(c *gin.Context) {
	var req apppurchasing.StockInRequest
	if !h.BindJSON(c, &req) {
		return
	}

	challan, err := h.challanService.AddChallanFromStockIn(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, challan)
}

// Import records a CSV of stock-in rows, one challan per vendor and challan number.
// With dry_run=true the file is only validated.
// POST /challans/import
func (h *ChallanHandler) Import(c *gin.Context) {
	dryRun := false
	if v := c.Query("dry_run"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			h.BadRequest(c, "dry_run must be a boolean")
			return
		}
		dryRun = parsed
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Request body too large")
			return
		}
		h.BadRequest(c, "A CSV file is required in the 'file' field")
		return
	}
	if fileHeader.Size > maxImportFileSize {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Import file exceeds 10MB")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	defer func() { _ = file.Close() }()

	result, err := h.challanService.ImportStockIn(c.Request.Context(), file, dryRun)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	status := http.StatusOK
	if !dryRun && result.ImportedCount > 0 {
		status = http.StatusCreated
	}
	c.JSON(status, dto.NewSuccessResponse(result))
}

// List lists challans filtered by vendor and status
// GET /challans
func (h *ChallanHandler) List(c *gin.Context) {
	var filter apppurchasing.ChallanListFilter
	if !h.BindQuery(c, &filter) {
		return
	}

	page, err := h.challanService.ListChallans(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Get returns one challan
// GET /challans/:id
func (h *ChallanHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid challan ID format")
		return
	}

	challan, err := h.challanService.GetChallan(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, challan)
}

// Cancel withdraws a pending challan
// POST /challans/:id/cancel
func (h *ChallanHandler) Cancel(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid challan ID format")
		return
	}

	var req apppurchasing.CancelChallanRequest
	if !h.BindJSON(c, &req) {
		return
	}

	challan, err := h.challanService.CancelChallan(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, challan)
}
