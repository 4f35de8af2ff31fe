// Package export renders purchasing read models as downloadable documents.
package export

import (
	"bytes"
	"fmt"

	apppurchasing "github.com/erp/purchasing/internal/application/purchasing"
	"github.com/xuri/excelize/v2"
)

const historySheet = "Payment History"

var historyHeaders = []string{
	"Srl No", "Date", "Tax Invoice No", "Description",
	"Amount", "Discount", "Net Amount",
	"Cash", "Cheque", "Credit", "UPI", "Adjust",
	"Operation",
}

// XLSXHistoryExporter writes a vendor's payment history to an Excel workbook
type XLSXHistoryExporter struct{}

// NewXLSXHistoryExporter creates a new XLSXHistoryExporter
func NewXLSXHistoryExporter() *XLSXHistoryExporter {
	return &XLSXHistoryExporter{}
}

// ContentType implements purchasing.HistoryExporter
func (XLSXHistoryExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// FileExtension implements purchasing.HistoryExporter
func (XLSXHistoryExporter) FileExtension() string {
	return ".xlsx"
}

// ExportPaymentHistory renders one row per history entry below a header row.
// Money columns are written as numbers so the sheet can be summed.
func (XLSXHistoryExporter) ExportPaymentHistory(vendorID string, entries []apppurchasing.PaymentHistoryResponse) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", historySheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   "Payment history",
		Subject: vendorID,
	}); err != nil {
		return nil, fmt.Errorf("set document properties: %w", err)
	}

	for col, h := range historyHeaders {
		if err := setCell(f, col+1, 1, h); err != nil {
			return nil, err
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(historyHeaders), 1)
	if err := f.SetCellStyle(historySheet, "A1", last, bold); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	for i, e := range entries {
		row := i + 2
		values := []any{
			e.SrlNo,
			e.ActionDate.Format("2006-01-02"),
			e.TaxInvoiceNo,
			e.VendorDescription,
			e.Amount.InexactFloat64(),
			e.DiscountAmount.InexactFloat64(),
			e.NetAmount.InexactFloat64(),
			e.Cash.InexactFloat64(),
			e.Cheque.InexactFloat64(),
			e.Credit.InexactFloat64(),
			e.UPI.InexactFloat64(),
			e.Adjust.InexactFloat64(),
			e.Operation,
		}
		for col, v := range values {
			if err := setCell(f, col+1, row, v); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setCell(f *excelize.File, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(historySheet, cell, value); err != nil {
		return fmt.Errorf("set %s: %w", cell, err)
	}
	return nil
}
