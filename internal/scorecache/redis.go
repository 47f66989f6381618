// Package scorecache keeps the latest validation result per idea in Redis
// so dashboard reads skip Postgres. It is a cache only: entries expire and
// every read has a database fallback.
package scorecache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ideaforge/api/internal/validation"
)

const defaultTTL = 24 * time.Hour

// RedisCache stores one validation.Result per idea with a TTL.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisCache{
		client: client,
		prefix: "score:",
		ttl:    defaultTTL,
	}, nil
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(client *redis.Client) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: "score:",
		ttl:    defaultTTL,
	}
}

func (c *RedisCache) key(ideaID string) string {
	return c.prefix + ideaID
}

// Set replaces the cached result for an idea.
func (c *RedisCache) Set(ctx context.Context, ideaID string, result validation.Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := c.client.Set(ctx, c.key(ideaID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache result: %w", err)
	}
	return nil
}

// Get returns the cached result, or ok=false on a miss.
func (c *RedisCache) Get(ctx context.Context, ideaID string) (validation.Result, bool, error) {
	payload, err := c.client.Get(ctx, c.key(ideaID)).Result()
	if err == redis.Nil {
		return validation.Result{}, false, nil
	}
	if err != nil {
		return validation.Result{}, false, fmt.Errorf("read cached result: %w", err)
	}

	var result validation.Result
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return validation.Result{}, false, fmt.Errorf("unmarshal cached result: %w", err)
	}
	return result, true, nil
}

// Invalidate drops the cached result, e.g. after the idea is deleted.
func (c *RedisCache) Invalidate(ctx context.Context, ideaID string) error {
	if err := c.client.Del(ctx, c.key(ideaID)).Err(); err != nil {
		return fmt.Errorf("invalidate cached result: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ping checks if Redis is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
