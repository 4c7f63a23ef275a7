package cache

import (
	"fmt"

	"github.com/printdesk/backend/internal/domain/printing"
	"github.com/printdesk/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// SubmissionCacheFactory creates submission caches based on configuration
type SubmissionCacheFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// SubmissionCacheFactoryOption is a functional option for configuring the factory
type SubmissionCacheFactoryOption func(*SubmissionCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) SubmissionCacheFactoryOption {
	return func(f *SubmissionCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory cache when Redis is unavailable
// Default is true (allow fallback)
func WithInMemoryFallback(allow bool) SubmissionCacheFactoryOption {
	return func(f *SubmissionCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewSubmissionCacheFactory creates a new factory
func NewSubmissionCacheFactory(cfg config.RedisConfig, opts ...SubmissionCacheFactoryOption) *SubmissionCacheFactory {
	f := &SubmissionCacheFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisCache creates a Redis-based submission cache
func (f *SubmissionCacheFactory) CreateRedisCache() (printing.SubmissionCache, error) {
	c, err := NewRedisSubmissionCache(RedisConfig{
		Host:      f.redisConfig.Host,
		Port:      f.redisConfig.Port,
		Password:  f.redisConfig.Password,
		DB:        f.redisConfig.DB,
		KeyPrefix: f.redisConfig.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis submission cache: %w", err)
	}
	return c, nil
}

// CreateInMemoryCache creates an in-memory submission cache
// WARNING: In-memory caches do not share state across process instances,
// so a retried request routed to another instance may print twice
func (f *SubmissionCacheFactory) CreateInMemoryCache() printing.SubmissionCache {
	return NewInMemorySubmissionCache()
}

// CreateCache returns the in-memory cache when Redis is disabled. Otherwise
// it tries Redis first and falls back to memory if allowed.
func (f *SubmissionCacheFactory) CreateCache() (printing.SubmissionCache, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("using in-memory submission cache")
		return f.CreateInMemoryCache(), nil
	}

	c, err := f.CreateRedisCache()
	if err == nil {
		f.logger.Info("using Redis submission cache",
			zap.String("host", f.redisConfig.Host),
			zap.Int("port", f.redisConfig.Port))
		return c, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for submission cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory submission cache. "+
		"Retried requests may print twice in multi-instance deployments.",
		zap.Error(err),
	)
	return f.CreateInMemoryCache(), nil
}
