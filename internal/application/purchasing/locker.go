package purchasing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// VendorLocker guards a vendor across service instances while a bill is submitted.
// Acquire returns purchasing.ErrVendorBusy when another holder owns the lock.
type VendorLocker interface {
	Acquire(ctx context.Context, vendorID string) (release func(context.Context) error, err error)
}

// Metrics receives purchasing business measurements
type Metrics interface {
	RecordCommand(ctx context.Context, command string, duration time.Duration, err error)
	RecordSubmission(ctx context.Context, outcome string, amount decimal.Decimal)
	RecordPartialPayment(ctx context.Context, amount decimal.Decimal)
	SetActiveSessions(ctx context.Context, count int)
}

type noopMetrics struct{}

func (noopMetrics) RecordCommand(context.Context, string, time.Duration, error) {}
func (noopMetrics) RecordSubmission(context.Context, string, decimal.Decimal) {}
func (noopMetrics) RecordPartialPayment(context.Context, decimal.Decimal) {}
func (noopMetrics) SetActiveSessions(context.Context, int) {}

// HistoryExporter renders payment history as a downloadable document
type HistoryExporter interface {
	ExportPaymentHistory(vendorID string, entries []PaymentHistoryResponse) ([]byte, error)
	ContentType() string
	FileExtension() string
}
