package core

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/insightslm/insightslm/pkg/types"
)

var (
	_ types.Cache = (*RedisCache)(nil)
	_ types.Cache = (*MemoryCache)(nil)
)

type RedisCache struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRedisCache(r redis.UniversalClient, prefix string) *RedisCache {
	return &RedisCache{redis: r, prefix: prefix}
}

func (c *RedisCache) SetEx(ctx context.Context, key, value string, expiresAt time.Duration) error {
	return c.redis.SetEx(ctx, c.prefix+key, value, expiresAt).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	v, err := c.redis.Get(ctx, c.prefix+key).Result()
	if err == redis.Nil {
		return "", types.ErrCacheMiss
	}
	return v, err
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.redis.Del(ctx, c.prefix+key).Err()
}

// MemoryCache 单实例部署时使用
type MemoryCache struct {
	c *gocache.Cache
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{c: gocache.New(time.Hour, 10*time.Minute)}
}

func (c *MemoryCache) SetEx(_ context.Context, key, value string, expiresAt time.Duration) error {
	c.c.Set(key, value, expiresAt)
	return nil
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, error) {
	v, ok := c.c.Get(key)
	if !ok {
		return "", types.ErrCacheMiss
	}
	return v.(string), nil
}

func (c *MemoryCache) Del(_ context.Context, key string) error {
	c.c.Delete(key)
	return nil
}
