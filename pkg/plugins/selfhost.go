package plugins

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/insightslm/insightslm/app/core"
	"github.com/insightslm/insightslm/pkg/realtime"
	"github.com/insightslm/insightslm/pkg/safe"
	"github.com/insightslm/insightslm/pkg/types"
	"github.com/insightslm/insightslm/pkg/types/protocol"
	"github.com/insightslm/insightslm/pkg/utils"
)

func init() {
	RegisterProvider("selfhost", func() core.Plugins {
		return NewSelfHostPlugin()
	})
}

func NewSingleLock() *SingleLock {
	return &SingleLock{
		locks: make(map[string]bool),
	}
}

type SelfHostCustomConfig struct {
	WorkerID int64 `toml:"worker_id"`
}

// SingleLock 进程内锁，ctx 结束时释放
type SingleLock struct {
	mu    sync.Mutex
	locks map[string]bool
}

func (s *SingleLock) TryLock(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locks[key] {
		return false, nil
	}
	s.locks[key] = true
	go safe.Run(func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.locks, key)
	})
	return true, nil
}

var _ core.Plugins = (*SelfHostPlugin)(nil)

func NewSelfHostPlugin() *SelfHostPlugin {
	return &SelfHostPlugin{
		singleLock: NewSingleLock(),
		limiter:    make(map[string]*rate.Limiter),
	}
}

type SelfHostPlugin struct {
	core       *core.Core
	singleLock *SingleLock
	storage    core.FileStorage
	cache      types.Cache
	broker     realtime.Broker

	limiterMu sync.Mutex
	limiter   map[string]*rate.Limiter

	customConfig SelfHostCustomConfig
}

func (s *SelfHostPlugin) Name() string {
	return "selfhost"
}

func (s *SelfHostPlugin) Install(c *core.Core) error {
	s.core = c
	slog.Info("Start initialize.", slog.String("plugin", s.Name()))

	customConfig := core.NewCustomConfigPayload[SelfHostCustomConfig]()
	if err := s.core.Cfg().LoadCustomConfig(&customConfig); err != nil {
		return fmt.Errorf("Failed to install custom config, %w", err)
	}
	s.customConfig = customConfig.CustomConfig
	workerID := s.customConfig.WorkerID
	if workerID == 0 {
		workerID = 1
	}
	utils.SetupIDWorker(workerID)

	s.storage = SetupObjectStorage(s.core.Cfg().ObjectStorage)

	if r := c.Redis(); r != nil {
		prefix := s.core.Cfg().Redis.KeyPrefix
		s.cache = core.NewRedisCache(r, prefix)
		s.broker = realtime.NewRedisBroker(r, prefix)
	} else {
		s.cache = core.NewMemoryCache()
		s.broker = realtime.NewMemoryBroker()
	}
	return nil
}

func (s *SelfHostPlugin) Cache() types.Cache {
	return s.cache
}

func (s *SelfHostPlugin) Broker() realtime.Broker {
	return s.broker
}

// TryLock redis 可用时使用 SETNX 实现跨实例互斥，否则退化为进程内锁
func (s *SelfHostPlugin) TryLock(ctx context.Context, key string) (bool, error) {
	r := s.core.Redis()
	if r == nil {
		return s.singleLock.TryLock(ctx, key)
	}

	lockKey := s.core.Cfg().Redis.KeyPrefix + protocol.GenProcessLockKey(key)
	ok, err := r.SetNX(ctx, lockKey, utils.GenRandomID(), time.Minute*10).Result()
	if err != nil || !ok {
		return false, err
	}
	go safe.Run(func() {
		<-ctx.Done()
		r.Del(context.Background(), lockKey)
	})
	return true, nil
}

// UseLimiter 默认每分钟 60 次
func (s *SelfHostPlugin) UseLimiter(c *gin.Context, key string, method string, opts ...core.LimitOption) core.Limiter {
	cfg := &core.LimitConfig{
		Limit: 60,
		Every: time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	s.limiterMu.Lock()
	defer s.limiterMu.Unlock()
	k := method + ":" + key
	l, exist := s.limiter[k]
	if !exist {
		limit := rate.Every(cfg.Every / time.Duration(cfg.Limit))
		l = rate.NewLimiter(limit, cfg.Limit)
		s.limiter[k] = l
	}

	return l
}

func (s *SelfHostPlugin) FileStorage() core.FileStorage {
	return s.storage
}
