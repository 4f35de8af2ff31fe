package telemetry

import (
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig configures query spans
type DBTracingConfig struct {
	// LogFullSQL keeps bind variables in span statements. Development only.
	LogFullSQL      bool
	SlowQueryThresh time.Duration
	DBSystem        string
	// TracerProvider overrides the global provider
	TracerProvider trace.TracerProvider
}

// RegisterDBTracing installs otelgorm on db and marks slow queries on their spans
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = db.Dialector.Name()
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBSystem)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if cfg.TracerProvider != nil {
		opts = append(opts, otelgorm.WithTracerProvider(cfg.TracerProvider))
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	err := registerCallbacks(db, "telemetry_trace", markQueryStart, func(_ string, tx *gorm.DB) {
		annotateSpan(tx, cfg.SlowQueryThresh, logger)
	})
	if err != nil {
		return err
	}

	logger.Info("Database tracing enabled",
		zap.String("db_system", cfg.DBSystem),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
	)
	return nil
}

func annotateSpan(tx *gorm.DB, slow time.Duration, logger *zap.Logger) {
	span := trace.SpanFromContext(tx.Statement.Context)
	if !span.IsRecording() {
		return
	}
	if tx.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", tx.Statement.Table))
	}
	elapsed, ok := queryElapsed(tx)
	if !ok || elapsed <= slow {
		return
	}
	span.SetAttributes(
		attribute.Bool("db.slow_query", true),
		attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
	)
	logger.Warn("Slow query",
		zap.String("table", tx.Statement.Table),
		zap.Duration("elapsed", elapsed),
		zap.Bool("failed", tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound)),
	)
}

const queryStartKey = "telemetry:query_start"

func markQueryStart(_ string, tx *gorm.DB) {
	tx.InstanceSet(queryStartKey, time.Now())
}

func queryElapsed(tx *gorm.DB) (time.Duration, bool) {
	v, ok := tx.InstanceGet(queryStartKey)
	if !ok {
		return 0, false
	}
	start, ok := v.(time.Time)
	if !ok {
		return 0, false
	}
	return time.Since(start), true
}

// registerCallbacks hooks before and after around every gorm processor.
// The callbacks receive the operation name.
func registerCallbacks(db *gorm.DB, prefix string, before, after func(op string, tx *gorm.DB)) error {
	wrap := func(op string, fn func(string, *gorm.DB)) func(*gorm.DB) {
		return func(tx *gorm.DB) { fn(op, tx) }
	}
	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register(prefix+":before_create", wrap("create", before)),
		cb.Create().After("gorm:create").Register(prefix+":after_create", wrap("create", after)),
		cb.Query().Before("gorm:query").Register(prefix+":before_query", wrap("query", before)),
		cb.Query().After("gorm:query").Register(prefix+":after_query", wrap("query", after)),
		cb.Update().Before("gorm:update").Register(prefix+":before_update", wrap("update", before)),
		cb.Update().After("gorm:update").Register(prefix+":after_update", wrap("update", after)),
		cb.Delete().Before("gorm:delete").Register(prefix+":before_delete", wrap("delete", before)),
		cb.Delete().After("gorm:delete").Register(prefix+":after_delete", wrap("delete", after)),
		cb.Row().Before("gorm:row").Register(prefix+":before_row", wrap("row", before)),
		cb.Row().After("gorm:row").Register(prefix+":after_row", wrap("row", after)),
		cb.Raw().Before("gorm:raw").Register(prefix+":before_raw", wrap("raw", before)),
		cb.Raw().After("gorm:raw").Register(prefix+":after_raw", wrap("raw", after)),
	)
}
