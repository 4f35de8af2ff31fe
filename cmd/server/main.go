package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	inventoryapp "github.com/erp/purchasing/internal/application/inventory"
	apppurchasing "github.com/erp/purchasing/internal/application/purchasing"
	"github.com/erp/purchasing/internal/domain/purchasing"
	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/erp/purchasing/internal/infrastructure/cache"
	"github.com/erp/purchasing/internal/infrastructure/config"
	"github.com/erp/purchasing/internal/infrastructure/event"
	"github.com/erp/purchasing/internal/infrastructure/export"
	"github.com/erp/purchasing/internal/infrastructure/lock"
	"github.com/erp/purchasing/internal/infrastructure/logger"
	"github.com/erp/purchasing/internal/infrastructure/migration"
	"github.com/erp/purchasing/internal/infrastructure/persistence"
	"github.com/erp/purchasing/internal/infrastructure/telemetry"
	"github.com/erp/purchasing/internal/interfaces/http/handler"
	"github.com/erp/purchasing/internal/interfaces/http/middleware"
	"github.com/erp/purchasing/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}, cfg.App.Name)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Telemetry: traces, metrics and logs share one collector
	telemetry.ServiceVersion = version
	otelCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}
	tracerProvider, err := telemetry.NewTracerProvider(ctx, otelCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, otelCfg, cfg.Telemetry.MetricsInterval, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, otelCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	defer shutdownTelemetry(log, tracerProvider, meterProvider, loggerProvider)

	// Warnings and above also leave the process as OTLP log records
	log = loggerProvider.Bridge(log, cfg.Telemetry.ServiceName, zapcore.WarnLevel)

	log.Info("Starting purchasing service",
		zap.String("app", cfg.App.Name),
		zap.String("version", version),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	meter := meterProvider.Meter("purchasing")
	dbMetrics, err := telemetry.NewDBMetrics(meter, cfg.Telemetry.DBSlowQueryThresh, log)
	if err != nil {
		log.Fatal("Failed to create database metrics", zap.Error(err))
	}
	purchasingMetrics, err := telemetry.NewPurchasingMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create purchasing metrics", zap.Error(err))
	}

	// Initialize database connection with zap-backed GORM logger and instrumentation
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithSQL(cfg.Telemetry.DBLogFullSQL),
	)
	dbOpts := []persistence.DatabaseOption{
		persistence.WithGormLogger(gormLog),
		persistence.WithPlugin(dbMetrics.Register),
	}
	if cfg.Telemetry.DBTraceEnabled {
		dbOpts = append(dbOpts, persistence.WithPlugin(func(db *gorm.DB) error {
			return telemetry.RegisterDBTracing(db, telemetry.DBTracingConfig{
				LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
				SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
			}, log)
		}))
	}
	db, err := persistence.NewDatabase(&cfg.Database, dbOpts...)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	if err := prepareSchema(db, cfg.Database, log); err != nil {
		log.Fatal("Failed to prepare database schema", zap.Error(err))
	}

	if sqlDB, err := db.DB.DB(); err == nil {
		go dbMetrics.CollectPoolStats(ctx, sqlDB, cfg.Telemetry.MetricsInterval)
	}

	// Redis backs the vendor lock and idempotency store when enabled
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err), zap.String("addr", cfg.Redis.Addr()))
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Error("Error closing redis", zap.Error(err))
			}
		}()
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}

	taxes := taxTable(cfg.Purchasing.Tax)

	// Initialize repositories
	challanRepo := persistence.NewGormChallanRepository(db.DB)
	historyRepo := persistence.NewGormPaymentHistoryRepository(db.DB)
	stockRepo := persistence.NewGormStockItemRepository(db.DB)
	movementRepo := persistence.NewGormStockMovementRepository(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	// Initialize event serializer and register all event types
	eventSerializer := event.NewEventSerializer()
	event.RegisterAllEvents(eventSerializer)

	// Initialize application services
	stockService := inventoryapp.NewStockService(
		persistence.NewGormInventoryTransactionScope(db.DB), stockRepo, movementRepo, log,
	)
	challanService := apppurchasing.NewChallanService(challanRepo, taxes, log)

	// Initialize event bus and handlers
	eventBus := event.NewInMemoryEventBus(log)
	challanService.SetEventPublisher(eventBus)
	stockService.SetEventPublisher(eventBus)

	storeFactoryOpts := []cache.IdempotencyStoreFactoryOption{cache.WithLogger(log)}
	if rdb != nil {
		storeFactoryOpts = append(storeFactoryOpts, cache.WithRedis(rdb))
	}
	idempotencyStore := cache.NewIdempotencyStoreFactory(storeFactoryOpts...).CreateStore("purchasing:events:")
	defer func() {
		_ = idempotencyStore.Close()
	}()

	// Purchase bill paid -> stock increase, deduplicated across outbox redeliveries
	billPaidHandler := event.NewIdempotentHandler(
		apppurchasing.NewPurchaseBillPaidHandler(stockService, log),
		idempotencyStore,
		log,
		event.WithIdempotencyConfig(idempotencyConfig(cfg.Purchasing.IdempotencyTTL)),
		event.WithOutcomeRecorder(purchasingMetrics.RecordEventOutcome),
	)
	eventBus.Subscribe(billPaidHandler)
	log.Info("Event handlers registered", zap.Strings("purchase_bill_paid_events", billPaidHandler.EventTypes()))

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// The outbox processor relays events committed with bill submissions to the bus
	outboxProcessorConfig := event.OutboxProcessorConfig{
		BatchSize:    cfg.Outbox.BatchSize,
		PollInterval: cfg.Outbox.PollInterval,
		Retry: shared.RetryPolicy{
			MaxRetries:  cfg.Outbox.MaxRetries,
			BaseBackoff: time.Second,
			MaxBackoff:  cfg.Outbox.MaxBackoff,
		},
		Retention:       cfg.Outbox.Retention,
		CleanupInterval: time.Hour,
	}
	outboxProcessor := event.NewOutboxProcessor(outboxRepo, eventBus, eventSerializer, outboxProcessorConfig, log)
	outboxProcessor.Start(ctx)
	defer func() {
		if err := outboxProcessor.Stop(context.Background()); err != nil {
			log.Error("Error stopping outbox processor", zap.Error(err))
		}
	}()
	log.Info("Outbox processor started",
		zap.Int("batch_size", outboxProcessorConfig.BatchSize),
		zap.Duration("poll_interval", outboxProcessorConfig.PollInterval),
	)

	// Vendor sessions
	var locker apppurchasing.VendorLocker
	if rdb != nil {
		locker = lock.NewRedisVendorLocker(rdb, cfg.Purchasing.VendorLockTTL, log,
			lock.WithRetry(50*time.Millisecond, 10))
	} else {
		locker = lock.NewLocalVendorLocker()
	}
	workbench := apppurchasing.NewWorkbench(apppurchasing.Dependencies{
		ChallanRepo: challanRepo,
		HistoryRepo: historyRepo,
		TxScope:     persistence.NewGormPurchasingTransactionScope(db.DB, eventSerializer),
		Locker:      locker,
		Taxes:       taxes,
		Publisher:   eventBus,
		Metrics:     purchasingMetrics,
	}, apppurchasing.WorkbenchConfig{
		IdleTimeout:    cfg.Purchasing.SessionIdleTimeout,
		CommandTimeout: cfg.Purchasing.CommandTimeout,
	}, log)
	defer workbench.Close()

	billService := apppurchasing.NewPurchaseBillService(workbench, historyRepo, export.NewXLSXHistoryExporter(), log)

	// Initialize HTTP handlers
	handlers := router.PurchasingHandlers{
		Challans: handler.NewChallanHandler(challanService),
		Bills:    handler.NewPurchaseBillHandler(billService),
		Stock:    handler.NewStockHandler(stockService),
	}
	systemChecks := []handler.SystemOption{
		handler.WithDependencyCheck("database", func(context.Context) error { return db.Ping() }),
		handler.WithOutboxCounter(outboxRepo),
		handler.WithSessionCounter(workbench),
	}
	if rdb != nil {
		systemChecks = append(systemChecks, handler.WithDependencyCheck("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}))
	}
	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, systemChecks...)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	httpMetrics := middleware.NewHTTPMetrics("purchasing")

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Logger - Log requests with request and vendor scope
	// 3. Recovery - Catch panics
	// 4. Tracing - Server spans, enriched with request ID and vendor
	// 5. Metrics - Prometheus request counters and latency
	// 6. Security - Add security headers
	// 7. CORS - Handle cross-origin requests
	// 8. RateLimit - Per-client rate limiting (if enabled)
	// 9. Timeout - Bound each request by the command timeout
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanEnricher())
	engine.Use(httpMetrics.Middleware())
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, cfg.HTTP.CORSAllowHeaders...)
	engine.Use(middleware.CORS(corsConfig))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		go rateLimiter.Run(ctx)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}
	engine.Use(middleware.Timeout(cfg.Purchasing.CommandTimeout))

	// System routes stay outside API versioning
	router.SystemRoutes(engine, systemHandler)
	engine.GET("/metrics", httpMetrics.Handler())

	routeCfg := router.PurchasingRouteConfig{
		BodyLimit:       cfg.HTTP.MaxBodySize,
		ImportBodyLimit: cfg.HTTP.ImportMaxBodySize,
	}
	if cfg.Purchasing.VendorRateLimit > 0 {
		routeCfg.VendorLimiter = router.NewVendorLimiter(cfg.Purchasing.VendorRateLimit)
		go routeCfg.VendorLimiter.Run(ctx)
	}

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	groups := router.RegisterPurchasing(r, handlers, routeCfg)
	r.Setup()
	for _, g := range groups {
		log.Debug("Routes registered", zap.String("group", g.Name()), zap.Int("routes", len(g.Routes())))
	}

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	// Open drafts are in memory only; report how many are dropped
	log.Info("Closing vendor sessions", zap.Int("active_sessions", workbench.ActiveSessions()))
	stop()

	log.Info("Server exited gracefully")
}

// prepareSchema applies the embedded migrations on postgres when asked to and
// auto-migrates SQLite databases.
func prepareSchema(db *persistence.Database, cfg config.DatabaseConfig, log *zap.Logger) error {
	if cfg.Driver == "sqlite" {
		return db.AutoMigrate()
	}
	if !cfg.RunMigrations {
		return nil
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, log)
	if err != nil {
		return err
	}
	// closing the migrator would close the shared *sql.DB
	return m.Up()
}

// taxTable builds the GST lookup from configuration
func taxTable(cfg config.TaxConfig) *purchasing.TaxRateTable {
	table := purchasing.NewTaxRateTable(purchasing.TaxRate{SGST: cfg.DefaultSGST, CGST: cfg.DefaultCGST})
	for hsn, gst := range cfg.HSNRates {
		table.WithHSNRate(hsn, gst)
	}
	return table
}

func idempotencyConfig(ttl time.Duration) shared.IdempotencyConfig {
	c := shared.DefaultIdempotencyConfig()
	if ttl > 0 {
		c.TTL = ttl
	}
	return c
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

func shutdownTelemetry(log *zap.Logger, providers ...shutdowner) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, p := range providers {
		if err := p.Shutdown(ctx); err != nil {
			log.Error("Error shutting down telemetry provider", zap.Error(err))
		}
	}
}
