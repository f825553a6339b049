package cache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	// URL is the Redis connection string (e.g. "redis://localhost:6379/0").
	URL string

	// Prefix is prepended to every key written by this cache.
	Prefix string

	// DialTimeout bounds connection establishment and the initial ping.
	DialTimeout time.Duration

	// ReadTimeout and WriteTimeout bound individual commands.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Retry controls retries of transient failures. Zero fields fall back to
	// DefaultRetryPolicy.
	Retry RetryPolicy
}

// RedisCache implements Cache on top of a shared Redis instance.
// Connection failures and timeouts are retried under its RetryPolicy.
type RedisCache struct {
	client *redis.Client
	prefix string
	retry  RetryPolicy
}

// NewRedisCache connects to Redis and verifies the connection with a ping.
func NewRedisCache(ctx context.Context, opts RedisOptions) (*RedisCache, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379/0"
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 3 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 3 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	redisOpts.DialTimeout = opts.DialTimeout
	redisOpts.ReadTimeout = opts.ReadTimeout
	redisOpts.WriteTimeout = opts.WriteTimeout

	client := redis.NewClient(redisOpts)

	pingCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	c := NewRedisCacheFromClient(client, opts.Prefix)
	c.retry = opts.Retry.withDefaults()
	return c, nil
}

// NewRedisCacheFromClient wraps an existing client. The cache takes ownership
// of the client and closes it in Close. Retries use DefaultRetryPolicy.
func NewRedisCacheFromClient(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix, retry: DefaultRetryPolicy}
}

// Get retrieves a value from Redis. A missing key is a miss, not an error.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	var hit bool
	err := c.retry.Do(ctx, func() error {
		b, err := c.client.Get(ctx, c.prefix+key).Bytes()
		if errors.Is(err, redis.Nil) {
			hit = false
			return nil
		}
		if err != nil {
			return classify(err)
		}
		data, hit = b, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return data, hit, nil
}

// Set stores a value in Redis. A ttl of zero stores without expiration.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.retry.Do(ctx, func() error {
		return classify(c.client.Set(ctx, c.prefix+key, data, ttl).Err())
	})
}

// Delete removes a value from Redis. Deleting a missing key is not an error.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.retry.Do(ctx, func() error {
		return classify(c.client.Del(ctx, c.prefix+key).Err())
	})
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// classify marks transport-level failures as retryable. Server replies such as
// WRONGTYPE are returned as-is.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, redis.ErrClosed) {
		return Retryable(fmt.Errorf("%w: %w", ErrNetwork, err))
	}
	return err
}

// Ensure RedisCache implements Cache.
var _ Cache = (*RedisCache)(nil)
