package dedupe

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/chatrelay/backend/internal/domain/shared"
	"github.com/chatrelay/backend/internal/infrastructure/config"
)

// StoreFactory creates idempotency stores based on configuration
type StoreFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// StoreFactoryOption is a functional option for configuring the factory
type StoreFactoryOption func(*StoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory store
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewStoreFactory creates a new factory
func NewStoreFactory(cfg config.RedisConfig, opts ...StoreFactoryOption) *StoreFactory {
	f := &StoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateStore creates an idempotency store for the configured backend.
// With the "redis" backend it falls back to in-memory when Redis is
// unavailable and fallback is allowed; duplicate suppression then stops
// being shared across instances.
func (f *StoreFactory) CreateStore(backend string) (shared.IdempotencyStore, error) {
	switch backend {
	case "redis":
		store, err := NewRedisStore(f.redisConfig)
		if err == nil {
			f.logger.Info("using Redis dedupe store")
			return store, nil
		}
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("Redis required for dedupe but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory dedupe store. "+
			"Duplicate webhook events may be processed twice across instances.",
			zap.Error(err),
		)
		return NewInMemoryStore(), nil
	case "memory":
		return NewInMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown dedupe backend: %q", backend)
	}
}
