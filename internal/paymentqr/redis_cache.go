package paymentqr

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const cacheScope = "payment_qr"

// redisStore is the subset of pkg/redis.Client the shared cache needs.
type redisStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CacheKey(scope, id string) string
}

// RedisCache shares rendered entries between API replicas.
type RedisCache struct {
	store redisStore
}

func NewRedisCache(store redisStore) *RedisCache {
	return &RedisCache{store: store}
}

func (c *RedisCache) Get(ctx context.Context, key string) (Entry, bool, error) {
	raw, err := c.store.Get(ctx, c.store.CacheKey(cacheScope, key))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		// A corrupt value is treated as a miss and overwritten on the next Set.
		return Entry{}, false, nil
	}
	return entry, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, entry Entry, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, c.store.CacheKey(cacheScope, key), string(data), ttl)
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.store.Del(ctx, c.store.CacheKey(cacheScope, key))
}
