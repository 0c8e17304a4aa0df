package core

import (
	"context"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/insightslm/insightslm/pkg/realtime"
	"github.com/insightslm/insightslm/pkg/types"
)

type Plugins interface {
	Name() string
	Install(*Core) error
	TryLock(ctx context.Context, key string) (bool, error)
	UseLimiter(c *gin.Context, key string, method string, opts ...LimitOption) Limiter
	FileStorage() FileStorage
	Cache() types.Cache
	Broker() realtime.Broker
}

type LimitConfig struct {
	Limit int
	Every time.Duration
}

type LimitOption func(l *LimitConfig)

func WithLimit(limit int) LimitOption {
	return func(l *LimitConfig) {
		l.Limit = limit
	}
}

func WithRange(r time.Duration) LimitOption {
	return func(l *LimitConfig) {
		l.Every = r
	}
}

// ObjectReader 下载的文件内容
type ObjectReader struct {
	File     []byte
	FileType string
}

// FileStorage interface defines methods for file operations.
type FileStorage interface {
	Upload(ctx context.Context, fullPath string, body io.Reader, contentType string) error
	Delete(ctx context.Context, fullPath string) error
	DeletePrefix(ctx context.Context, prefix string) error
	// PresignGet 生成带有效期的下载地址
	PresignGet(ctx context.Context, fullPath string, ttl time.Duration) (string, error)
	Download(ctx context.Context, fullPath string) (*ObjectReader, error)
}

type Limiter interface {
	Allow() bool
}

type SetupFunc func() Plugins

func (c *Core) InstallPlugins(p Plugins) {
	if err := p.Install(c); err != nil {
		panic(err)
	}
	c.Plugins = p

	// after plugins installed
	SetupSrv(c)
}
