package cache

import (
	"time"

	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// IdempotencyStoreFactory picks an idempotency store for the deployment
type IdempotencyStoreFactory struct {
	client     redis.UniversalClient
	logger     *zap.Logger
	sweepEvery time.Duration
}

// IdempotencyStoreFactoryOption is a functional option for configuring the factory
type IdempotencyStoreFactoryOption func(*IdempotencyStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.logger = logger
	}
}

// WithRedis makes the factory return Redis-backed stores
func WithRedis(client redis.UniversalClient) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.client = client
	}
}

// WithSweepInterval sets how often the in-memory store drops expired keys
func WithSweepInterval(d time.Duration) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.sweepEvery = d
	}
}

// NewIdempotencyStoreFactory creates a new factory
func NewIdempotencyStoreFactory(opts ...IdempotencyStoreFactoryOption) *IdempotencyStoreFactory {
	f := &IdempotencyStoreFactory{
		logger:     zap.NewNop(),
		sweepEvery: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore returns a Redis store when a client was given, otherwise an in-memory one
func (f *IdempotencyStoreFactory) CreateStore(keyPrefix string) shared.IdempotencyStore {
	if f.client != nil {
		f.logger.Info("using redis idempotency store", zap.String("prefix", keyPrefix))
		return NewRedisIdempotencyStore(f.client, keyPrefix)
	}
	f.logger.Warn("redis disabled, using in-memory idempotency store; duplicates are only suppressed within this process")
	return NewInMemoryIdempotencyStore(f.sweepEvery)
}
