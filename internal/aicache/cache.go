// Package aicache stores review LLM responses in redis so reruns over the
// same snippet groups do not pay for repeat calls.
package aicache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long cached decisions stay valid.
const DefaultTTL = 14 * 24 * time.Hour

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to redis at redisURL. ttl <= 0 falls back to DefaultTTL.
func New(redisURL string, ttl time.Duration) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	c := redis.NewClient(opt)
	if err := c.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{client: c, ttl: ttl}, nil
}

func (c *Cache) Close() error { return c.client.Close() }

// Key derives the cache key for a prompt within a named operation.
func Key(operation, prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return "aicache:" + operation + ":" + hex.EncodeToString(sum[:])
}

// Get returns the cached response for key, or "" on miss.
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	res, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return res, err
}

// Put stores a response under key with the cache TTL.
func (c *Cache) Put(ctx context.Context, key, response string) error {
	return c.client.Set(ctx, key, response, c.ttl).Err()
}
