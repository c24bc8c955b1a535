package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps Redis based caching of dashboard aggregates. A nil cache, a nil
// client or an unreachable Redis all degrade to calling the loader directly;
// the cache is an accelerator, never a dependency.
type Cache struct {
	logger *slog.Logger
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(logger *slog.Logger, client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{logger: logger, client: client, ttl: ttl}
}

// FetchJSON loads a cached value or populates it using the loader. Redis
// failures are logged and the loader result is served uncached.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	writeBack := false
	if c != nil && c.client != nil {
		payload, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			return json.Unmarshal(payload, dest)
		}
		if errors.Is(err, redis.Nil) {
			writeBack = true
		} else {
			c.warn(ctx, "cache get failed", key, err)
		}
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if writeBack {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.warn(ctx, "cache set failed", key, err)
		}
	}
	return json.Unmarshal(raw, dest)
}

// Invalidate drops a cached key so the next read recomputes it.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, key).Err()
}

func (c *Cache) warn(ctx context.Context, msg, key string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.WarnContext(ctx, msg, slog.String("key", key), slog.Any("error", err))
}
