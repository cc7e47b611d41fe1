package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix is prepended to every Redis key.
const DefaultKeyPrefix = "gotmt:"

const redisOpTimeout = 2 * time.Second

// RedisCache is a Redis-backed translation cache. Expiry is delegated to
// Redis; errors are logged and treated as cache misses.
type RedisCache struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
	logger    *slog.Logger
}

// RedisConfig holds configuration for the Redis cache.
type RedisConfig struct {
	URL       string        // Redis connection URL (e.g., "redis://localhost:6379")
	TTL       time.Duration // Entry lifetime (0 = no expiration)
	KeyPrefix string        // Prefix for all keys (default: "gotmt:")
	Logger    *slog.Logger
}

// NewRedisCache creates a new Redis cache with the given configuration.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	c := NewRedisCacheFromClient(client, cfg.TTL, cfg.KeyPrefix)
	if cfg.Logger != nil {
		c.logger = cfg.Logger
	}
	return c, nil
}

// NewRedisCacheFromClient creates a RedisCache from an existing Redis client.
func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration, keyPrefix string) *RedisCache {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}

	if ttl < 0 {
		ttl = 0
	}

	return &RedisCache{
		client:    client,
		ttl:       ttl,
		keyPrefix: keyPrefix,
		logger:    slog.Default(),
	}
}

// Get retrieves a value from Redis.
func (c *RedisCache) Get(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	val, err := c.client.Get(ctx, c.keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		c.logger.Warn("redis cache get failed", slog.String("key", key), slog.Any("error", err))
		return "", false
	}
	return val, true
}

// Set stores a value in Redis.
func (c *RedisCache) Set(key string, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	return c.client.Set(ctx, c.keyPrefix+key, value, c.ttl).Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ping tests the Redis connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Verify RedisCache implements TranslationCache
var _ TranslationCache = (*RedisCache)(nil)
