package core

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/insightslm/insightslm/app/core/srv"
	"github.com/insightslm/insightslm/app/store"
	"github.com/insightslm/insightslm/app/store/sqlstore"
)

type Core struct {
	cfg CoreConfig
	srv *srv.Srv

	stores     func() store.Provider
	redis      *redis.Client
	httpEngine *gin.Engine

	metrics    *Metrics
	semaphores *SemaphoreManager
	Plugins
}

func setupLogger(cfg Log) {
	var writer io.Writer = os.Stdout
	if cfg.Path != "" {
		writer = &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    500, // megabytes
			MaxBackups: 3,
			MaxAge:     28,   //days
			Compress:   true, // disabled by default
		}
	}
	l := slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(l)
}

func MustSetupCore(cfg CoreConfig) *Core {
	setupLogger(cfg.Log)

	core := NewCore(cfg)

	// setup store
	setupSqlStore(core)

	if cfg.Redis.Addr != "" {
		core.redis = mustSetupRedis(cfg.Redis)
	}

	return core
}

type Option func(*Core)

// WithStore 替换存储实现，测试中注入内存实现
func WithStore(p store.Provider) Option {
	return func(c *Core) {
		c.stores = func() store.Provider { return p }
	}
}

func WithPlugins(p Plugins) Option {
	return func(c *Core) {
		c.Plugins = p
	}
}

func WithSrv(s *srv.Srv) Option {
	return func(c *Core) {
		c.srv = s
	}
}

func WithRedis(r *redis.Client) Option {
	return func(c *Core) {
		c.redis = r
	}
}

// NewCore 仅组装依赖，不连接数据库
func NewCore(cfg CoreConfig, opts ...Option) *Core {
	core := &Core{
		cfg:        cfg,
		metrics:    NewMetrics("insights", "core"),
		httpEngine: gin.New(),
	}
	core.semaphores = NewSemaphoreManager(core)
	for _, opt := range opts {
		opt(core)
	}
	return core
}

func mustSetupRedis(cfg RedisConfig) *redis.Client {
	opts := &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = time.Duration(cfg.DialTimeout) * time.Second
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		panic(err)
	}
	slog.Info("redis connected", slog.String("addr", cfg.Addr))
	return client
}

func (s *Core) Cfg() CoreConfig {
	return s.cfg
}

func (s *Core) HttpEngine() *gin.Engine {
	return s.httpEngine
}

func (s *Core) Metrics() *Metrics {
	return s.metrics
}

func (s *Core) Semaphores() *SemaphoreManager {
	return s.semaphores
}

// Redis 未配置时返回 nil
func (s *Core) Redis() *redis.Client {
	return s.redis
}

func setupSqlStore(core *Core) {
	provider := sqlstore.MustSetup(core.cfg.Postgres)
	core.stores = func() store.Provider { return provider() }
	// 执行数据库表初始化
	if err := provider().Install(); err != nil {
		panic(err)
	}
	slog.Info("setupSqlStore done")
}

func (s *Core) Store() store.Provider {
	return s.stores()
}

func (s *Core) Srv() *srv.Srv {
	return s.srv
}

// Shutdown 释放外部连接
func (s *Core) Shutdown() {
	if s.srv != nil {
		if err := s.srv.Hub().Broker().Close(); err != nil {
			slog.Error("failed to close broker", slog.String("error", err.Error()))
		}
	}
	if s.redis != nil {
		s.redis.Close()
	}
}
