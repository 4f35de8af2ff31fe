package purchasing

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/erp/purchasing/internal/domain/purchasing"
	"github.com/erp/purchasing/internal/domain/shared"
	csvimport "github.com/erp/purchasing/internal/infrastructure/import"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MaxStockInImportRows bounds a single upload
const MaxStockInImportRows = 5000

// StockInImportResult summarizes a bulk stock-in upload
type StockInImportResult struct {
	TotalRows       int                  `json:"total_rows"`
	ChallanCount    int                  `json:"challan_count"`
	ImportedCount   int                  `json:"imported_count"`
	RejectedCount   int                  `json:"rejected_count"`
	DryRun          bool                 `json:"dry_run"`
	Challans        []ChallanResponse    `json:"challans,omitempty"`
	Errors          []csvimport.RowError `json:"errors,omitempty"`
	IsTruncated     bool                 `json:"is_truncated,omitempty"`
	TotalErrorCount int                  `json:"total_error_count,omitempty"`
}

func stockInImportRules() []csvimport.FieldRule {
	zero := decimal.Zero
	return []csvimport.FieldRule{
		csvimport.Field("challan_no").Required().MaxLength(50).Build(),
		csvimport.Field("vendor_id").Required().MaxLength(64).Build(),
		csvimport.Field("vendor_name").Required().MaxLength(200).Build(),
		csvimport.Field("challan_date").Date().Build(),
		csvimport.Field("transport_name").MaxLength(100).Build(),
		csvimport.Field("transport_number").MaxLength(50).Build(),
		csvimport.Field("transport_charges").Decimal().MinValue(zero).Build(),
		csvimport.Field("product_id").Required().MaxLength(64).Build(),
		csvimport.Field("product_name").Required().MaxLength(200).Build(),
		csvimport.Field("hsn_code").MaxLength(20).Build(),
		csvimport.Field("gst_rate").Decimal().MinValue(zero).Build(),
		csvimport.Field("quantity").Required().Decimal().MinValue(zero).Build(),
		csvimport.Field("unit_price").Decimal().MinValue(zero).Build(),
		csvimport.Field("total_price").Decimal().MinValue(zero).Build(),
		csvimport.Field("batch_no").MaxLength(50).Build(),
		csvimport.Field("mfg_date").Date().Build(),
		csvimport.Field("exp_date").Date().Build(),
	}
}

type stockInGroup struct {
	key   string
	rows  []*csvimport.Row
	valid bool
}

// ImportStockIn records one pending challan per (vendor_id, challan_no) group in
// a CSV upload. Challan level columns are read from the first row of a group and
// later rows must agree on vendor_name. A group with any invalid row is rejected
// as a whole; other groups are still recorded. With dryRun set nothing is saved.
func (s *ChallanService) ImportStockIn(ctx context.Context, r io.Reader, dryRun bool) (*StockInImportResult, error) {
	parser, err := csvimport.NewCSVParser(r, csvimport.WithMaxRows(MaxStockInImportRows))
	if err != nil {
		return nil, importFileError(err)
	}
	errs := csvimport.NewErrorCollection(100)
	validator := csvimport.NewFieldValidator(stockInImportRules(), errs)
	if missing := parser.MissingHeaders(validator.RequiredColumns()); len(missing) > 0 {
		return nil, purchasing.NewValidationError("CSV file is missing columns: %v", missing)
	}
	rows, err := parser.ReadAllRows()
	if err != nil {
		return nil, importFileError(err)
	}
	if len(rows) == 0 {
		return nil, importFileError(csvimport.ErrNoDataRows)
	}

	var groups []*stockInGroup
	byKey := make(map[string]*stockInGroup)
	for _, row := range rows {
		rowOK := validator.ValidateRow(row)
		key := row.Get("vendor_id") + "\x00" + row.Get("challan_no")
		g, ok := byKey[key]
		if !ok {
			g = &stockInGroup{key: key, valid: true}
			byKey[key] = g
			groups = append(groups, g)
		} else if first := g.rows[0]; row.Get("vendor_name") != first.Get("vendor_name") {
			errs.Add(csvimport.RowError{
				Row:     row.LineNumber,
				Column:  "vendor_name",
				Code:    csvimport.ErrCodeInconsistent,
				Message: fmt.Sprintf("vendor_name differs from row %d of the same challan", first.LineNumber),
				Value:   row.Get("vendor_name"),
			})
			rowOK = false
		}
		g.rows = append(g.rows, row)
		g.valid = g.valid && rowOK
	}

	result := &StockInImportResult{
		TotalRows:    len(rows),
		ChallanCount: len(groups),
		DryRun:       dryRun,
	}
	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !g.valid {
			result.RejectedCount++
			continue
		}
		if dryRun {
			continue
		}
		challan, err := s.AddChallanFromStockIn(ctx, stockInRequestFromRows(g.rows))
		if err != nil {
			var domainErr *shared.DomainError
			if !errors.As(err, &domainErr) {
				return nil, err
			}
			errs.Add(csvimport.RowError{
				Row:     g.rows[0].LineNumber,
				Column:  "challan_no",
				Code:    csvimport.ErrCodeRejected,
				Message: domainErr.Message,
				Value:   g.rows[0].Get("challan_no"),
			})
			result.RejectedCount++
			continue
		}
		result.ImportedCount++
		result.Challans = append(result.Challans, *challan)
	}

	result.Errors = errs.Errors()
	result.IsTruncated = errs.IsTruncated()
	result.TotalErrorCount = errs.TotalCount()
	s.logger.Info("stock-in import finished",
		zap.Int("rows", result.TotalRows),
		zap.Int("challans", result.ChallanCount),
		zap.Int("imported", result.ImportedCount),
		zap.Int("rejected", result.RejectedCount),
		zap.Bool("dry_run", dryRun),
	)
	return result, nil
}

// rows are validated, so decimal parse errors cannot occur here
func stockInRequestFromRows(rows []*csvimport.Row) StockInRequest {
	first := rows[0]
	req := StockInRequest{
		ChallanNo:   first.Get("challan_no"),
		VendorID:    first.Get("vendor_id"),
		VendorName:  first.Get("vendor_name"),
		ChallanDate: first.Get("challan_date"),
		Transport: TransportInput{
			Name:    first.Get("transport_name"),
			Number:  first.Get("transport_number"),
			Charges: decimalCell(first, "transport_charges"),
		},
		Lines: make([]StockInLineInput, 0, len(rows)),
	}
	for _, row := range rows {
		req.Lines = append(req.Lines, StockInLineInput{
			ProductID:   row.Get("product_id"),
			ProductName: row.Get("product_name"),
			HSNCode:     row.Get("hsn_code"),
			GSTRate:     decimalCell(row, "gst_rate"),
			Quantity:    decimalCell(row, "quantity"),
			UnitPrice:   decimalCell(row, "unit_price"),
			TotalPrice:  decimalCell(row, "total_price"),
			BatchNo:     row.Get("batch_no"),
			MfgDate:     row.Get("mfg_date"),
			ExpDate:     row.Get("exp_date"),
		})
	}
	return req
}

func decimalCell(row *csvimport.Row, column string) decimal.Decimal {
	d, err := decimal.NewFromString(row.Get(column))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func importFileError(err error) error {
	if errors.Is(err, csvimport.ErrFile) {
		return purchasing.NewValidationError("%s", err.Error())
	}
	return purchasing.NewValidationError("malformed CSV: %v", err)
}
