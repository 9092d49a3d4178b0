// Package redisquota implements a fixed-window per-caller quota shared through Redis.
package redisquota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "scraper:quota"

type counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// Config holds quota settings.
type Config struct {
	Addr   string
	Limit  int
	Window time.Duration
	Prefix string
}

// Quota counts scrapes per caller per window.
type Quota struct {
	client counter
	closer func() error
	limit  int64
	window time.Duration
	prefix string
	now    func() time.Time
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*Quota, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	q := NewWithClient(client, cfg)
	q.closer = client.Close
	return q, nil
}

// NewWithClient builds a quota around an existing client.
func NewWithClient(client counter, cfg Config) *Quota {
	window := cfg.Window
	if window <= 0 {
		window = time.Hour
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Quota{
		client: client,
		limit:  int64(cfg.Limit),
		window: window,
		prefix: prefix,
		now:    time.Now,
	}
}

// Allow increments the caller's counter for the current window.
func (q *Quota) Allow(ctx context.Context, userID string) (bool, error) {
	if q.limit <= 0 {
		return true, nil
	}
	key := q.key(userID)
	count, err := q.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("incr %s: %w", key, err)
	}
	if count == 1 {
		if err := q.client.Expire(ctx, key, q.window).Err(); err != nil {
			return false, fmt.Errorf("expire %s: %w", key, err)
		}
	}
	return count <= q.limit, nil
}

// Close releases the Redis connection when New opened it.
func (q *Quota) Close() error {
	if q.closer == nil {
		return nil
	}
	if err := q.closer(); err != nil {
		return fmt.Errorf("close redis: %w", err)
	}
	return nil
}

func (q *Quota) key(userID string) string {
	bucket := q.now().UTC().Truncate(q.window).Unix()
	return fmt.Sprintf("%s:%s:%d", q.prefix, userID, bucket)
}
