package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
)

// PurchasingMetrics records workbench activity: command latency, bill
// submissions, partial payments and open sessions
type PurchasingMetrics struct {
	commandDuration *Histogram
	commandErrors   *Counter
	submissions     *Counter
	paidAmount      metric.Float64Counter
	partialPayments *Counter
	partialAmount   metric.Float64Counter
	activeSessions  *Gauge
	eventOutcomes   *Counter
}

// NewPurchasingMetrics creates the purchasing instruments on meter
func NewPurchasingMetrics(meter metric.Meter) (*PurchasingMetrics, error) {
	if meter == nil {
		return nil, errors.New("NewPurchasingMetrics: meter cannot be nil")
	}
	m := &PurchasingMetrics{}

	var err error
	m.commandDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "purchasing_command_duration_seconds",
		Description: "Time spent executing a workbench command",
		Unit:        "s",
		Boundaries:  CommandDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	if m.commandErrors, err = NewCounter(meter, "purchasing_command_errors_total", "Workbench commands that failed, by error code", "{command}"); err != nil {
		return nil, err
	}
	if m.submissions, err = NewCounter(meter, "purchasing_bill_submissions_total", "Bill submissions by outcome", "{bill}"); err != nil {
		return nil, err
	}
	if m.partialPayments, err = NewCounter(meter, "purchasing_partial_payments_total", "Partial payments recorded against bill lines", "{payment}"); err != nil {
		return nil, err
	}
	if m.activeSessions, err = NewGauge(meter, "purchasing_active_sessions", "Vendor sessions held by the workbench", "{session}"); err != nil {
		return nil, err
	}
	if m.eventOutcomes, err = NewCounter(meter, "purchasing_event_deliveries_total", "Domain event deliveries to idempotent handlers, by outcome", "{event}"); err != nil {
		return nil, err
	}
	if m.paidAmount, err = meter.Float64Counter("purchasing_bill_paid_amount",
		metric.WithDescription("Total of paid purchase bills"), metric.WithUnit("{INR}")); err != nil {
		return nil, err
	}
	if m.partialAmount, err = meter.Float64Counter("purchasing_partial_payment_amount",
		metric.WithDescription("Amount paid through partial payments"), metric.WithUnit("{INR}")); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordCommand records latency and, on failure, the domain error code
func (m *PurchasingMetrics) RecordCommand(ctx context.Context, command string, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		m.commandErrors.Inc(ctx, AttrCommand.String(command), AttrErrorCode.String(errorCode(err)))
	}
	m.commandDuration.RecordDuration(ctx, duration, AttrCommand.String(command), AttrOutcome.String(outcome))
}

// RecordSubmission counts a submission attempt; amount is added for paid bills
func (m *PurchasingMetrics) RecordSubmission(ctx context.Context, outcome string, amount decimal.Decimal) {
	m.submissions.Inc(ctx, AttrOutcome.String(outcome))
	if outcome == "paid" && amount.IsPositive() {
		m.paidAmount.Add(ctx, amount.InexactFloat64())
	}
}

// RecordPartialPayment counts a partial payment
func (m *PurchasingMetrics) RecordPartialPayment(ctx context.Context, amount decimal.Decimal) {
	m.partialPayments.Inc(ctx)
	if amount.IsPositive() {
		m.partialAmount.Add(ctx, amount.InexactFloat64())
	}
}

// SetActiveSessions records the number of vendor sessions
func (m *PurchasingMetrics) SetActiveSessions(ctx context.Context, count int) {
	m.activeSessions.Record(ctx, int64(count))
}

// RecordEventOutcome counts one event delivery
func (m *PurchasingMetrics) RecordEventOutcome(ctx context.Context, eventType, outcome string) {
	m.eventOutcomes.Inc(ctx, AttrEventType.String(eventType), AttrOutcome.String(outcome))
}

func errorCode(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "TIMEOUT"
	}
	return "INTERNAL"
}
