package core

import (
	"time"

	"github.com/insightslm/insightslm/app/core/srv"
	"github.com/insightslm/insightslm/pkg/webhook"
)

func SetupSrv(core *Core) {
	cfg := core.cfg
	core.srv = srv.SetupSrvs(
		srv.ApplyWebhook(webhook.Config{
			Auth:                  cfg.Webhook.Auth,
			NotebookGenerationURL: cfg.Webhook.NotebookGenerationURL,
			AdditionalSourcesURL:  cfg.Webhook.AdditionalSourcesURL,
			AudioGenerationURL:    cfg.Webhook.AudioGenerationURL,
			DocumentProcessingURL: cfg.Webhook.DocumentProcessingURL,
			Timeout:               cfg.Webhook.Timeout.Std(),
		}, webhook.WithObserver(func(target, outcome string, elapsed time.Duration) {
			core.metrics.WebhookObserve(target, outcome, elapsed)
		})),
		srv.ApplyOpenAI(srv.OpenAIConfig{
			Token:   cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
		}),
		// 实时推送，redis 可用时跨实例广播
		srv.ApplyHub(core.Plugins.Broker()),
	)
}
