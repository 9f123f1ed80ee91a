package entitlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisEntryPrefix = "entitlements:payload:"
	redisTagPrefix   = "entitlements:tag:"
)

// RedisCache is a Cache backed by Redis. Each entry is stored as a JSON
// value with its own expiry, and every tag maps to a set of entry keys so
// invalidation can evict all affected subjects in one pass.
type RedisCache struct {
	client redis.UniversalClient
}

// NewRedisCache returns a Cache writing through the given client.
// Panics when client is nil since the cache cannot operate without it.
func NewRedisCache(client redis.UniversalClient) *RedisCache {
	if client == nil {
		panic("entitlement: redis client is required")
	}
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*Result, error) {
	raw, err := c.client.Get(ctx, redisEntryPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("entitlement: cache get: %w", err)
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("entitlement: cache entry decode: %w", err)
	}
	return &result, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value Result, expiresAt time.Time, tags []string) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("entitlement: cache entry encode: %w", err)
	}

	entryKey := redisEntryPrefix + key
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, entryKey, raw, ttl)
	for _, tag := range tags {
		tagKey := redisTagPrefix + tag
		pipe.SAdd(ctx, tagKey, entryKey)
		// All writers share one TTL, so refreshing the tag set with the
		// same duration keeps it alive at least as long as any member.
		pipe.Expire(ctx, tagKey, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("entitlement: cache set: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, tags ...string) error {
	if len(tags) == 0 {
		return nil
	}

	for _, tag := range tags {
		tagKey := redisTagPrefix + tag
		members, err := c.client.SMembers(ctx, tagKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("entitlement: cache invalidate: %w", err)
		}
		if len(members) > 0 {
			if err := c.client.Del(ctx, members...).Err(); err != nil {
				return fmt.Errorf("entitlement: cache invalidate: %w", err)
			}
		}
		if err := c.client.Del(ctx, tagKey).Err(); err != nil {
			return fmt.Errorf("entitlement: cache invalidate: %w", err)
		}
	}
	return nil
}
