// Package limiter provides a redis-backed circuit breaker per provider/model
// pair. A rate-limited provider cools down with exponential backoff so
// failover traffic does not hammer it.
package limiter

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

type Breaker struct {
	rdb         *redis.Client
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

type Options struct {
	RedisURL    string
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func New(opts Options) (*Breaker, error) {
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = 30 * time.Second
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 5 * time.Minute
	}
	ro, err := redis.ParseURL(opts.RedisURL)
	if err != nil {
		return nil, err
	}
	c := redis.NewClient(ro)
	if err := c.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &Breaker{rdb: c, baseBackoff: opts.BaseBackoff, maxBackoff: opts.MaxBackoff}, nil
}

func (b *Breaker) Close() error { return b.rdb.Close() }

func (b *Breaker) key(provider, model string) string {
	return fmt.Sprintf("breaker:%s:%s", strings.ToLower(provider), strings.ToLower(model))
}

// IsOpen returns true if the breaker is open (cooldown active).
func (b *Breaker) IsOpen(ctx context.Context, provider, model string) bool {
	k := b.key(provider, model)
	ts, err := b.rdb.Get(ctx, k).Int64()
	if err != nil {
		return false
	}
	return time.Now().Unix() < ts
}

// Open sets/extends the cooldown with exponential backoff per attempt.
func (b *Breaker) Open(ctx context.Context, provider, model string) {
	k := b.key(provider, model)
	cntKey := k + ":attempts"
	attempts, _ := b.rdb.Incr(ctx, cntKey).Result()
	if attempts < 1 {
		attempts = 1
	}
	d := b.baseBackoff * (1 << (attempts - 1))
	if d > b.maxBackoff {
		d = b.maxBackoff
	}
	until := time.Now().Add(d).Unix()
	_ = b.rdb.Set(ctx, k, until, d).Err()
	_ = b.rdb.Expire(ctx, cntKey, 10*time.Minute).Err()
}

// Reset clears the breaker for provider/model after a success.
func (b *Breaker) Reset(ctx context.Context, provider, model string) {
	k := b.key(provider, model)
	_ = b.rdb.Del(ctx, k, k+":attempts").Err()
}
