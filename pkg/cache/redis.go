package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const connectTimeout = 2 * time.Second

// RedisClient owns the connection pool behind the item cache.
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient connects to url and pings it. Pool settings given as URL
// query parameters (pool_size, dial_timeout, ...) win over the defaults.
func NewRedisClient(ctx context.Context, url string) (*RedisClient, error) {
	opts, err := redisOptions(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return &RedisClient{client: rdb}, nil
}

func redisOptions(url string) (*redis.Options, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	setDefault(&opts.PoolSize, 10)
	setDefault(&opts.MinIdleConns, 2)
	setDefault(&opts.DialTimeout, 5*time.Second)
	setDefault(&opts.ReadTimeout, time.Second)
	setDefault(&opts.WriteTimeout, time.Second)
	if opts.ClientName == "" {
		opts.ClientName = "circulation"
	}
	return opts, nil
}

func setDefault[T int | time.Duration](v *T, def T) {
	if *v == 0 {
		*v = def
	}
}

// Ping satisfies httpx.HealthChecker.
func (r *RedisClient) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close releases the pool. It is safe on a zero RedisClient.
func (r *RedisClient) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}

// Client returns the go-redis client.
func (r *RedisClient) Client() *redis.Client {
	return r.client
}
