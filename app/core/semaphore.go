package core

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/semaphore"

	"github.com/insightslm/insightslm/pkg/types/protocol"
)

// Semaphore 并发许可，按 holder 记账；同一 holder 重复获取只续期不占用新许可
type Semaphore interface {
	TryAcquire(ctx context.Context, holder string) bool
	// Release 未持有许可的 holder 释放时忽略
	Release(ctx context.Context, holder string)
}

// DistributedSemaphore 分布式信号量，基于 Redis 有序集合实现，score 为租约到期时间
type DistributedSemaphore struct {
	redis      redis.UniversalClient
	key        string
	maxPermits int
	timeout    time.Duration
}

// NewDistributedSemaphore 创建分布式信号量
func NewDistributedSemaphore(redis redis.UniversalClient, key string, maxPermits int, timeout time.Duration) *DistributedSemaphore {
	return &DistributedSemaphore{
		redis:      redis,
		key:        key,
		maxPermits: maxPermits,
		timeout:    timeout,
	}
}

var acquireScript = redis.NewScript(`
	local key = KEYS[1]
	local holder = ARGV[1]
	local max_permits = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])
	local timeout = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', now)

	if redis.call('ZSCORE', key, holder) or redis.call('ZCARD', key) < max_permits then
		redis.call('ZADD', key, now + timeout, holder)
		redis.call('EXPIRE', key, timeout)
		return 1
	end
	return 0
`)

// TryAcquire 尝试获取信号量许可，过期的租约先被清理
func (s *DistributedSemaphore) TryAcquire(ctx context.Context, holder string) bool {
	result, err := acquireScript.Run(ctx, s.redis, []string{s.key},
		holder, s.maxPermits, time.Now().Unix(), int(s.timeout.Seconds())).Int()
	if err != nil {
		slog.Error("failed to acquire semaphore", slog.String("key", s.key), slog.String("error", err.Error()))
		return false
	}

	return result == 1
}

// Release 释放信号量许可
func (s *DistributedSemaphore) Release(ctx context.Context, holder string) {
	if err := s.redis.ZRem(ctx, s.key, holder).Err(); err != nil {
		slog.Error("failed to release semaphore", slog.String("key", s.key), slog.String("error", err.Error()))
	}
}

// GetCurrent 获取当前未过期的许可数
func (s *DistributedSemaphore) GetCurrent(ctx context.Context) int {
	n, err := s.redis.ZCount(ctx, s.key, strconv.FormatInt(time.Now().Unix(), 10), "+inf").Result()
	if err != nil {
		return 0
	}
	return int(n)
}

// LocalSemaphore 未配置 redis 时的进程内实现
type LocalSemaphore struct {
	mu      sync.Mutex
	w       *semaphore.Weighted
	timeout time.Duration
	leases  map[string]time.Time
	now     func() time.Time
}

func NewLocalSemaphore(maxPermits int, timeout time.Duration) *LocalSemaphore {
	return &LocalSemaphore{
		w:       semaphore.NewWeighted(int64(maxPermits)),
		timeout: timeout,
		leases:  map[string]time.Time{},
		now:     time.Now,
	}
}

func (s *LocalSemaphore) TryAcquire(_ context.Context, holder string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for h, expiresAt := range s.leases {
		if !now.Before(expiresAt) {
			delete(s.leases, h)
			s.w.Release(1)
		}
	}

	if _, ok := s.leases[holder]; !ok && !s.w.TryAcquire(1) {
		return false
	}
	s.leases[holder] = now.Add(s.timeout)
	return true
}

func (s *LocalSemaphore) Release(_ context.Context, holder string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.leases[holder]; !ok {
		return
	}
	delete(s.leases, holder)
	s.w.Release(1)
}

// SemaphoreManager 信号量管理器，统一管理所有信号量
type SemaphoreManager struct {
	core                *Core
	audioGeneration     Semaphore
	audioGenerationOnce sync.Once
}

func NewSemaphoreManager(core *Core) *SemaphoreManager {
	return &SemaphoreManager{
		core: core,
	}
}

// AudioGeneration 同时进行中的音频概览生成数量上限（懒加载），holder 为笔记本 ID
// 回调未到达时，许可在 GenerationTimeout 后收回
func (m *SemaphoreManager) AudioGeneration() Semaphore {
	m.audioGenerationOnce.Do(func() {
		maxConcurrency := m.core.cfg.Audio.MaxConcurrentGenerations
		if maxConcurrency <= 0 {
			maxConcurrency = 5
		}
		timeout := m.core.cfg.Audio.GenerationTimeout.Std()
		if timeout <= 0 {
			timeout = 30 * time.Minute
		}

		if m.core.Redis() == nil {
			m.audioGeneration = NewLocalSemaphore(maxConcurrency, timeout)
			return
		}
		m.audioGeneration = NewDistributedSemaphore(
			m.core.Redis(),
			m.core.cfg.Redis.KeyPrefix+protocol.GenAudioGenerationSemaphoreKey(),
			maxConcurrency,
			timeout,
		)
	})
	return m.audioGeneration
}
