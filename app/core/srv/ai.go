package srv

import (
	"context"
	"log/slog"

	"github.com/insightslm/insightslm/pkg/ai/openai"
)

type TitleGenerator interface {
	GenerateTitle(ctx context.Context, text string) (string, error)
}

var _ TitleGenerator = (*openai.Driver)(nil)

type OpenAIConfig struct {
	Token   string
	BaseURL string
	Model   string
}

func ApplyOpenAI(cfg OpenAIConfig) ApplyFunc {
	return func(s *Srv) {
		if cfg.Token == "" {
			slog.Warn("openai api key is empty, note title generation disabled")
			return
		}
		s.titles = openai.New(cfg.Token, cfg.BaseURL, cfg.Model)
	}
}

func ApplyTitleGenerator(g TitleGenerator) ApplyFunc {
	return func(s *Srv) {
		s.titles = g
	}
}
