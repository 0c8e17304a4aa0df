package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	NAME = "openai"

	titleMaxTokens   = 20
	titleTemperature = 0.7

	titleSystemPrompt = "You are a helpful assistant that generates concise, descriptive titles. " +
		"Generate a title that is exactly 5 words or fewer, capturing the main topic or theme of the content. " +
		"Return only the title, nothing else."
	titleUserPrompt = "Generate a 5-word title for this content: %s"
)

var ErrEmptyCompletion = errors.New("openai returned no title")

type Driver struct {
	client *openai.Client
	model  string
}

func NewClient(token, proxy string) *openai.Client {
	cfg := openai.DefaultConfig(token)
	if proxy != "" {
		cfg.BaseURL = proxy
	}

	return openai.NewClientWithConfig(cfg)
}

func New(token, proxy, model string) *Driver {
	if model == "" {
		model = openai.GPT4oMini
	}

	return &Driver{
		client: NewClient(token, proxy),
		model:  model,
	}
}

// GenerateTitle asks the chat model for a title of five words or fewer.
func (s *Driver) GenerateTitle(ctx context.Context, text string) (string, error) {
	slog.Debug("GenerateTitle", slog.String("driver", NAME), slog.String("model", s.model))

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: titleSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(titleUserPrompt, text)},
		},
		MaxTokens:   titleMaxTokens,
		Temperature: titleTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	title := strings.TrimSpace(resp.Choices[0].Message.Content)
	if title == "" {
		return "", ErrEmptyCompletion
	}
	return title, nil
}
