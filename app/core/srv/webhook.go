package srv

import (
	"context"

	"github.com/insightslm/insightslm/pkg/webhook"
)

// Webhook 外部生成服务
type Webhook interface {
	Configured(target string) bool
	GenerateNotebookContent(ctx context.Context, req webhook.NotebookContentRequest) (*webhook.NotebookContent, error)
	ProcessAdditionalSources(ctx context.Context, req webhook.AdditionalSources) (string, error)
	GenerateAudio(ctx context.Context, notebookID, callbackURL string) error
	ProcessDocument(ctx context.Context, req webhook.DocumentRequest) error
}

var _ Webhook = (*webhook.Client)(nil)

func ApplyWebhook(cfg webhook.Config, opts ...webhook.Option) ApplyFunc {
	return func(s *Srv) {
		s.webhook = webhook.NewClient(cfg, opts...)
	}
}

// ApplyWebhookClient 直接注入已构造的实现，测试中使用
func ApplyWebhookClient(w Webhook) ApplyFunc {
	return func(s *Srv) {
		s.webhook = w
	}
}
