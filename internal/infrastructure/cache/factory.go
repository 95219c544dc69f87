package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/erp/portalsync/internal/infrastructure/config"
	"github.com/erp/portalsync/internal/infrastructure/netsuite"
)

// ClosableTokenStore is a token store that owns a connection.
type ClosableTokenStore interface {
	netsuite.TokenStore
	Close() error
}

// TokenStoreFactory creates token stores based on configuration
type TokenStoreFactory struct {
	redisConfig           config.RedisConfig
	account               string
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// TokenStoreFactoryOption is a functional option for configuring the factory
type TokenStoreFactoryOption func(*TokenStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) TokenStoreFactoryOption {
	return func(f *TokenStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to
// a process-local store. Default is true.
func WithInMemoryFallback(allow bool) TokenStoreFactoryOption {
	return func(f *TokenStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewTokenStoreFactory creates a new factory
func NewTokenStoreFactory(cfg config.RedisConfig, account string, opts ...TokenStoreFactoryOption) *TokenStoreFactory {
	f := &TokenStoreFactory{
		redisConfig:           cfg,
		account:               account,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisStore creates a Redis-backed token store
func (f *TokenStoreFactory) CreateRedisStore() (ClosableTokenStore, error) {
	store, err := NewRedisTokenStore(RedisConfig{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}, f.account)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis token store: %w", err)
	}
	return store, nil
}

// CreateStore returns a Redis store when Redis is configured and reachable,
// and an in-memory store otherwise (unless fallback is disabled).
func (f *TokenStoreFactory) CreateStore() (ClosableTokenStore, error) {
	if !f.redisConfig.Enabled() {
		f.logger.Info("Redis not configured, access token is kept in process")
		return NewInMemoryTokenStore(), nil
	}

	store, err := f.CreateRedisStore()
	if err == nil {
		f.logger.Info("Using Redis token store", zap.String("addr", f.redisConfig.Addr()))
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for token sharing but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory token store; "+
		"each replica will request its own access token",
		zap.Error(err),
	)
	return NewInMemoryTokenStore(), nil
}
