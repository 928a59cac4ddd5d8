package redisad

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"hotel_booking/internal/adapters/observability"
)

// Cache stores idempotent booking results as JSON under a TTL. It shares the
// client the redis storage backend uses when both are configured.
type Cache struct{ c *redis.Client }

func New(c *redis.Client) *Cache { return &Cache{c: c} }

func (r *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, err := r.c.Get(ctx, key).Bytes()
	if err == redis.Nil {
		observability.ObserveCache("redis", "miss")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	observability.ObserveCache("redis", "hit")
	return true, json.Unmarshal(v, dst)
}

func (r *Cache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	observability.ObserveCache("redis", "set")
	return r.c.Set(ctx, key, b, time.Duration(ttlSec)*time.Second).Err()
}
