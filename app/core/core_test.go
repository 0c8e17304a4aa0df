package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightslm/insightslm/pkg/types"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrCacheMiss)

	require.NoError(t, c.SetEx(ctx, "k", "v", time.Minute))
	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	require.NoError(t, c.Del(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, types.ErrCacheMiss)
}

func TestLocalSemaphore(t *testing.T) {
	ctx := context.Background()
	s := NewLocalSemaphore(2, time.Hour)

	assert.True(t, s.TryAcquire(ctx, "a"))
	assert.True(t, s.TryAcquire(ctx, "b"))
	assert.False(t, s.TryAcquire(ctx, "c"))
	// 已持有许可的 holder 重复获取只续期
	assert.True(t, s.TryAcquire(ctx, "a"))

	// 未持有许可的 holder 释放不会让出别人的许可
	s.Release(ctx, "c")
	assert.False(t, s.TryAcquire(ctx, "c"))

	s.Release(ctx, "a")
	assert.True(t, s.TryAcquire(ctx, "c"))

	s.Release(ctx, "b")
	s.Release(ctx, "b")
	s.Release(ctx, "c")
	assert.True(t, s.TryAcquire(ctx, "x"))
	assert.True(t, s.TryAcquire(ctx, "y"))
}

func TestLocalSemaphoreLeaseExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0)
	s := NewLocalSemaphore(1, 30*time.Minute)
	s.now = func() time.Time { return now }

	require.True(t, s.TryAcquire(ctx, "lost-callback"))
	assert.False(t, s.TryAcquire(ctx, "other"))

	now = now.Add(29 * time.Minute)
	assert.False(t, s.TryAcquire(ctx, "other"))

	now = now.Add(time.Minute)
	assert.True(t, s.TryAcquire(ctx, "other"))
	// 过期租约的迟到回调不影响当前持有者
	s.Release(ctx, "lost-callback")
	assert.False(t, s.TryAcquire(ctx, "third"))
}

func TestAudioGenerationSemaphoreWithoutRedis(t *testing.T) {
	cfg := CoreConfig{Audio: AudioConfig{MaxConcurrentGenerations: 1}}
	c := NewCore(cfg)

	sem := c.Semaphores().AudioGeneration()
	require.IsType(t, &LocalSemaphore{}, sem)
	assert.Same(t, sem, c.Semaphores().AudioGeneration())
	assert.Equal(t, 30*time.Minute, sem.(*LocalSemaphore).timeout)

	ctx := context.Background()
	assert.True(t, sem.TryAcquire(ctx, "nb-1"))
	assert.False(t, sem.TryAcquire(ctx, "nb-2"))
}

func TestMetricsHelpers(t *testing.T) {
	m := NewMetrics("insights", "core")
	// 重复创建复用已注册的 collector
	m2 := NewMetrics("insights", "core")

	m.GenerationTriggerInc(true)
	m2.GenerationTriggerInc(false)
	m.WebhookObserve("audio_generation", "ok", time.Second)
	m.IngestInc("upload", nil)
	m.PlaybackRecoveryInc("transient_retry", "recovered")
	m.SetViewerSessions(2)
}
