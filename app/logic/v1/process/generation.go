package process

import (
	"context"
	"log/slog"
	"time"

	"github.com/insightslm/insightslm/app/core"
	"github.com/insightslm/insightslm/pkg/register"
)

const (
	StaleGenerationJob = "stale_generation"
	// StaleGenerationAfter 超过该时长仍处于 generating 的笔记本视为生成服务已丢失请求
	StaleGenerationAfter = 30 * time.Minute
)

// FailStaleGenerations 将长时间停留在 generating 的笔记本置为 failed，用户可以重新生成
func FailStaleGenerations(ctx context.Context, core *core.Core) error {
	before := time.Now().Add(-StaleGenerationAfter).Unix()
	n, err := core.Store().NotebookStore().FailStaleGenerating(ctx, before)
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Warn("stale notebook generations failed", slog.Int64("count", n))
	}
	return nil
}

func init() {
	register.RegisterFunc(ProcessKey{}, func(p *Process) {
		p.Cron().AddFunc("*/5 * * * *", func() {
			runLocked(p.Core(), StaleGenerationJob, time.Minute, func(ctx context.Context) error {
				return FailStaleGenerations(ctx, p.Core())
			})
		})
	})
}
