package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"example.com/pacific/relief/config"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

// Cache errors
var (
	ErrCacheMiss     = errors.New("key not found in cache")
	ErrCacheDisabled = errors.New("cache is disabled")
	ErrStaleVersion  = errors.New("cache version changed")
)

// RedisCache provides caching using Redis. A nil or disabled cache accepts
// every call and stores nothing.
type RedisCache struct {
	client  *redis.Client
	enabled bool
}

// NewRedisCache creates a new Redis cache
func NewRedisCache(cfg config.RedisConfig) (*RedisCache, error) {
	if !cfg.Enabled {
		return &RedisCache{enabled: false}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}

	return NewRedisCacheFromClient(client), nil
}

// NewRedisCacheFromClient wraps an existing client
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		enabled: true,
	}
}

// Enabled reports whether values are actually stored
func (c *RedisCache) Enabled() bool {
	return c != nil && c.enabled
}

// Get retrieves a value from cache
func (c *RedisCache) Get(ctx context.Context, key string, value interface{}) error {
	if !c.Enabled() {
		return ErrCacheDisabled
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return ErrCacheMiss
		}
		return errors.Wrap(err, "failed to get value from Redis")
	}

	if err := json.Unmarshal(data, value); err != nil {
		return errors.Wrap(err, "failed to unmarshal cached value")
	}

	return nil
}

// Version returns the invalidation counter stored at versionKey, zero when
// it was never bumped
func (c *RedisCache) Version(ctx context.Context, versionKey string) (int64, error) {
	if !c.Enabled() {
		return 0, ErrCacheDisabled
	}

	version, err := c.client.Get(ctx, versionKey).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, errors.Wrap(err, "failed to read cache version from Redis")
	}
	return version, nil
}

// SetIfVersion stores value under key only while the counter at versionKey
// still equals version. A write racing an Invalidate is dropped with
// ErrStaleVersion.
func (c *RedisCache) SetIfVersion(ctx context.Context, versionKey string, version int64, key string, value interface{}, expiration time.Duration) error {
	if !c.Enabled() {
		return ErrCacheDisabled
	}

	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "failed to marshal value for caching")
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, versionKey).Int64()
		if err != nil && err != redis.Nil {
			return err
		}
		if current != version {
			return ErrStaleVersion
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, expiration)
			return nil
		})
		return err
	}, versionKey)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStaleVersion), errors.Is(err, redis.TxFailedErr):
		return ErrStaleVersion
	default:
		return errors.Wrap(err, "failed to set value in Redis")
	}
}

// Invalidate bumps the counter at versionKey. Keys built from the previous
// version are never read again and expire on their own.
func (c *RedisCache) Invalidate(ctx context.Context, versionKey string) error {
	if !c.Enabled() {
		return nil
	}

	if err := c.client.Incr(ctx, versionKey).Err(); err != nil {
		return errors.Wrap(err, "failed to bump cache version in Redis")
	}
	return nil
}

// GetEventsVersionKey is the counter bumped whenever events change
func GetEventsVersionKey() string {
	return "events:version"
}

// GetRequestsVersionKey is the counter bumped whenever any request changes
func GetRequestsVersionKey() string {
	return "requests:version"
}

// GetEventsCacheKey generates the cache key for the event list at version
func GetEventsCacheKey(version int64) string {
	return fmt.Sprintf("events:all:v%d", version)
}

// GetRequestsCacheKey generates the cache key for a request list at version.
// An empty eventID addresses the unfiltered list.
func GetRequestsCacheKey(eventID string, version int64) string {
	if eventID == "" {
		return fmt.Sprintf("requests:all:v%d", version)
	}
	return fmt.Sprintf("requests:event:%s:v%d", eventID, version)
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	if !c.Enabled() || c.client == nil {
		return nil
	}

	return c.client.Close()
}
