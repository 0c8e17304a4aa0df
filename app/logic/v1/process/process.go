package process

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/insightslm/insightslm/app/core"
	"github.com/insightslm/insightslm/pkg/register"
)

type Process struct {
	cron *cron.Cron
	core *core.Core
}

type ProcessKey struct{}

func NewProcess(core *core.Core) *Process {
	p := &Process{
		cron: cron.New(),
		core: core,
	}

	for _, h := range register.ResolveFuncHandlers[*Process](ProcessKey{}) {
		h(p)
	}

	return p
}

func (p *Process) Cron() *cron.Cron {
	return p.cron
}

func (p *Process) Core() *core.Core {
	return p.core
}

func (p *Process) Start() {
	p.cron.Start()
}

func (p *Process) Stop() {
	if p.cron != nil {
		ctx := p.cron.Stop()
		<-ctx.Done()
	}
}

// runLocked 多实例部署时同一任务同一时刻只在一个实例上执行
func runLocked(core *core.Core, job string, timeout time.Duration, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ok, err := core.TryLock(ctx, job)
	if err != nil {
		slog.Error("failed to acquire process lock", slog.String("job", job), slog.String("error", err.Error()))
		return
	}
	if !ok {
		slog.Debug("process job is running elsewhere", slog.String("job", job))
		return
	}

	if err = fn(ctx); err != nil {
		slog.Error("process job failed", slog.String("job", job), slog.String("error", err.Error()))
	}
}
