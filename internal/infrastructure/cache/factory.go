package cache

import (
	"fmt"

	"github.com/erp/reversecharge/internal/domain/shared"
	"github.com/erp/reversecharge/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Lock backends
const (
	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"
)

// LockerFactory creates lockers based on configuration
type LockerFactory struct {
	lockConfig            config.LockConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// LockerFactoryOption is a functional option for configuring the factory
type LockerFactoryOption func(*LockerFactory)

// WithLogger sets the logger for the factory and the lockers it creates
func WithLogger(logger *zap.Logger) LockerFactoryOption {
	return func(f *LockerFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory locks when Redis is unavailable.
// Default is true.
func WithInMemoryFallback(allow bool) LockerFactoryOption {
	return func(f *LockerFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewLockerFactory creates a new factory
func NewLockerFactory(cfg config.LockConfig, opts ...LockerFactoryOption) *LockerFactory {
	f := &LockerFactory{
		lockConfig:            cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *LockerFactory) sharedConfig() shared.LockConfig {
	return shared.LockConfig{
		TTL:           f.lockConfig.TTL,
		RetryInterval: f.lockConfig.RetryInterval,
	}
}

// CreateRedisLocker creates a Redis-based locker
func (f *LockerFactory) CreateRedisLocker() (*RedisLocker, error) {
	r := f.lockConfig.Redis
	locker, err := NewRedisLocker(RedisConfig{
		Host:     r.Host,
		Port:     r.Port,
		Password: r.Password,
		DB:       r.DB,
	}, f.sharedConfig(), f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis locker: %w", err)
	}
	if f.lockConfig.KeyPrefix != "" {
		locker.keyPrefix = f.lockConfig.KeyPrefix
	}
	return locker, nil
}

// CreateInMemoryLocker creates an in-memory locker.
// In-memory locks do not serialize work across process instances.
func (f *LockerFactory) CreateInMemoryLocker() *InMemoryLocker {
	return NewInMemoryLocker()
}

// CreateLocker creates the locker selected by the configured backend.
// A redis backend falls back to in-memory locks when Redis is unreachable and fallback is allowed.
func (f *LockerFactory) CreateLocker() (shared.Locker, error) {
	switch f.lockConfig.Backend {
	case "", LockBackendMemory:
		f.logger.Info("using in-memory order locks")
		return f.CreateInMemoryLocker(), nil
	case LockBackendRedis:
	default:
		return nil, fmt.Errorf("%w: unknown lock backend %q", shared.ErrInvalidConfig, f.lockConfig.Backend)
	}

	locker, err := f.CreateRedisLocker()
	if err == nil {
		f.logger.Info("using Redis order locks")
		return locker, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for order locks but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory order locks. "+
		"Orders may be reconciled concurrently by different instances.",
		zap.Error(err),
	)
	return f.CreateInMemoryLocker(), nil
}
