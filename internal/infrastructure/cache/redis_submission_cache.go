package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/printdesk/backend/internal/domain/printing"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "printdesk:submission:"

// RedisSubmissionCache implements SubmissionCache using Redis
// This is suitable for deployments where several instances sit behind one
// load balancer and must agree on which requests already printed
type RedisSubmissionCache struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

// NewRedisSubmissionCache creates a new Redis-based submission cache
func NewRedisSubmissionCache(cfg RedisConfig) (*RedisSubmissionCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisSubmissionCacheWithClient(client, cfg.KeyPrefix), nil
}

// NewRedisSubmissionCacheWithClient creates a cache with an existing Redis client
func NewRedisSubmissionCacheWithClient(client *redis.Client, keyPrefix string) *RedisSubmissionCache {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisSubmissionCache{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Get returns the recorded outcome for key
func (c *RedisSubmissionCache) Get(ctx context.Context, key string) (*printing.SubmissionRecord, bool, error) {
	raw, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read submission record: %w", err)
	}

	var record printing.SubmissionRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, false, fmt.Errorf("failed to decode submission record: %w", err)
	}
	return &record, true, nil
}

// Put records the outcome for key with a TTL
func (c *RedisSubmissionCache) Put(ctx context.Context, key string, record printing.SubmissionRecord, ttl time.Duration) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode submission record: %w", err)
	}
	if err := c.client.Set(ctx, c.keyPrefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store submission record: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisSubmissionCache) Close() error {
	return c.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (c *RedisSubmissionCache) GetClient() *redis.Client {
	return c.client
}

// Ensure RedisSubmissionCache implements SubmissionCache
var _ printing.SubmissionCache = (*RedisSubmissionCache)(nil)
