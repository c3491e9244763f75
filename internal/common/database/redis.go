// internal/common/database/redis.go
package database

import (
	"context"
	"fmt"
	"time"

	"email-analyzer/internal/common/config"

	"github.com/redis/go-redis/v9"
)

// RedisClient wraps the Redis client backing the analysis result cache.
type RedisClient struct {
	Client *redis.Client
}

// NewRedis creates the client for the analysis result cache. A slow cache
// is worse than a miss, so reads and writes time out quickly and are retried
// once. poolSize is normally the worker's concurrent job count.
func NewRedis(cfg config.RedisConfig, poolSize int) *RedisClient {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
		MaxRetries:   1,
		PoolSize:     max(poolSize, 2),
		MinIdleConns: 1,
	})
	return &RedisClient{Client: rdb}
}

// Ping tests the Redis connection
func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (c *RedisClient) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}
