package types

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss 缓存中不存在对应 key
var ErrCacheMiss = errors.New("cache miss")

// Cache 接口定义了缓存操作的基本方法
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	SetEx(ctx context.Context, key, value string, expiresAt time.Duration) error
	Del(ctx context.Context, key string) error
}
