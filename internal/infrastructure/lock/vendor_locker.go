// Package lock provides cross-instance vendor locks for bill submission.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/erp/purchasing/internal/domain/purchasing"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "purchasing:vendor:"

// Key returns the lock key for a vendor
func Key(vendorID string) string {
	return keyPrefix + vendorID
}

// RedisVendorLocker holds a Redis lock per vendor for the duration of a submission
type RedisVendorLocker struct {
	client *redislock.Client
	ttl    time.Duration
	retry  redislock.RetryStrategy
	logger *zap.Logger
}

// RedisOption configures a RedisVendorLocker
type RedisOption func(*RedisVendorLocker)

// WithRetry retries a busy lock up to attempts times, backoff apart
func WithRetry(backoff time.Duration, attempts int) RedisOption {
	return func(l *RedisVendorLocker) {
		l.retry = redislock.LimitRetry(redislock.LinearBackoff(backoff), attempts)
	}
}

// NewRedisVendorLocker creates a locker on top of a Redis client
func NewRedisVendorLocker(rdb redis.UniversalClient, ttl time.Duration, logger *zap.Logger, opts ...RedisOption) *RedisVendorLocker {
	l := &RedisVendorLocker{
		client: redislock.New(rdb),
		ttl:    ttl,
		retry:  redislock.NoRetry(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire obtains the vendor lock or returns purchasing.ErrVendorBusy
func (l *RedisVendorLocker) Acquire(ctx context.Context, vendorID string) (func(context.Context) error, error) {
	key := Key(vendorID)
	lk, err := l.client.Obtain(ctx, key, l.ttl, &redislock.Options{RetryStrategy: l.retry})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, purchasing.ErrVendorBusy
	}
	if err != nil {
		return nil, fmt.Errorf("obtain %s: %w", key, err)
	}

	return func(ctx context.Context) error {
		err := lk.Release(ctx)
		if errors.Is(err, redislock.ErrLockNotHeld) {
			// ttl ran out before release
			l.logger.Warn("vendor lock expired before release", zap.String("key", key))
			return nil
		}
		return err
	}, nil
}

// LocalVendorLocker serializes submissions per vendor within one process.
// Used when Redis is disabled.
type LocalVendorLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalVendorLocker creates an in-process locker
func NewLocalVendorLocker() *LocalVendorLocker {
	return &LocalVendorLocker{held: make(map[string]struct{})}
}

// Acquire marks the vendor as held or returns purchasing.ErrVendorBusy
func (l *LocalVendorLocker) Acquire(_ context.Context, vendorID string) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[vendorID]; ok {
		return nil, purchasing.ErrVendorBusy
	}
	l.held[vendorID] = struct{}{}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, vendorID)
			l.mu.Unlock()
		})
		return nil
	}, nil
}
