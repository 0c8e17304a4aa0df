package process

import (
	"context"
	"log/slog"
	"time"

	"github.com/insightslm/insightslm/app/core"
	v1 "github.com/insightslm/insightslm/app/logic/v1"
	"github.com/insightslm/insightslm/pkg/register"
)

const AudioURLSweepJob = "audio_url_sweep"

// RefreshAudioURLs 为即将过期的音频链接重新签名
func RefreshAudioURLs(ctx context.Context, core *core.Core) error {
	n, err := v1.NewAudioLogic(ctx, core).RefreshExpiring()
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Info("audio urls refreshed", slog.Int("count", n))
	}
	return nil
}

func init() {
	register.RegisterFunc(ProcessKey{}, func(p *Process) {
		p.Cron().AddFunc("*/10 * * * *", func() {
			runLocked(p.Core(), AudioURLSweepJob, 5*time.Minute, func(ctx context.Context) error {
				return RefreshAudioURLs(ctx, p.Core())
			})
		})
	})
}
