package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBMetrics counts queries and samples the connection pool
type DBMetrics struct {
	queryTotal     *Counter
	queryErrors    *Counter
	queryDuration  *Histogram
	slowQueryTotal *Counter
	poolConns      *Gauge
	slowThreshold  time.Duration
	logger         *zap.Logger
}

// NewDBMetrics creates the database instruments on meter
func NewDBMetrics(meter metric.Meter, slowThreshold time.Duration, logger *zap.Logger) (*DBMetrics, error) {
	if slowThreshold <= 0 {
		slowThreshold = 200 * time.Millisecond
	}
	m := &DBMetrics{slowThreshold: slowThreshold, logger: logger}

	var err error
	if m.queryTotal, err = NewCounter(meter, "db_query_total", "Database queries by operation", "{query}"); err != nil {
		return nil, err
	}
	if m.queryErrors, err = NewCounter(meter, "db_query_errors_total", "Failed database queries by operation", "{query}"); err != nil {
		return nil, err
	}
	if m.slowQueryTotal, err = NewCounter(meter, "db_slow_query_total", "Queries slower than the slow query threshold", "{query}"); err != nil {
		return nil, err
	}
	if m.poolConns, err = NewGauge(meter, "db_pool_connections", "Pool connections by state", "{connection}"); err != nil {
		return nil, err
	}
	m.queryDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database query latency",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Register records every query executed through db
func (m *DBMetrics) Register(db *gorm.DB) error {
	return registerCallbacks(db, "telemetry_metrics", markQueryStart, m.record)
}

func (m *DBMetrics) record(op string, tx *gorm.DB) {
	ctx := tx.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	opAttr, tableAttr := AttrDBOperation.String(op), AttrDBTable.String(tx.Statement.Table)

	m.queryTotal.Inc(ctx, opAttr, tableAttr)
	if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		m.queryErrors.Inc(ctx, opAttr, tableAttr)
	}
	if elapsed, ok := queryElapsed(tx); ok {
		m.queryDuration.RecordDuration(ctx, elapsed, opAttr, tableAttr)
		if elapsed > m.slowThreshold {
			m.slowQueryTotal.Inc(ctx, opAttr, tableAttr)
		}
	}
}

// CollectPoolStats samples sqlDB every interval until ctx is done
func (m *DBMetrics) CollectPoolStats(ctx context.Context, sqlDB *sql.DB, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		m.samplePool(ctx, sqlDB)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *DBMetrics) samplePool(ctx context.Context, sqlDB *sql.DB) {
	stats := sqlDB.Stats()
	m.poolConns.Record(ctx, int64(stats.InUse), AttrDBPoolState.String("in_use"))
	m.poolConns.Record(ctx, int64(stats.Idle), AttrDBPoolState.String("idle"))
	m.poolConns.Record(ctx, int64(stats.MaxOpenConnections), AttrDBPoolState.String("max"))
	if stats.WaitCount > 0 {
		m.logger.Debug("Connection pool waits",
			zap.Int64("wait_count", stats.WaitCount),
			zap.Duration("wait_duration", stats.WaitDuration),
		)
	}
}
