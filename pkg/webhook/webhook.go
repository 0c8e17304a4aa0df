// Package webhook calls the external services that parse documents, scrape
// websites, summarize notebooks and synthesize audio.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	TargetNotebookGeneration = "notebook_generation"
	TargetAdditionalSources  = "additional_sources"
	TargetAudioGeneration    = "audio_generation"
	TargetDocumentProcessing = "document_processing"
)

// ErrNotConfigured is returned when the url or auth value of a target is
// missing.
var ErrNotConfigured = errors.New("webhook not configured")

// StatusError is a non-2xx answer of a webhook.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Webhook request failed: %d - %s", e.Code, e.Body)
}

type Config struct {
	// Auth is sent verbatim as the Authorization header.
	Auth                  string
	NotebookGenerationURL string
	AdditionalSourcesURL  string
	AudioGenerationURL    string
	DocumentProcessingURL string
	Timeout               time.Duration
}

// Observer receives the outcome of every call, e.g. for metrics.
type Observer func(target, outcome string, elapsed time.Duration)

type Client struct {
	cfg     Config
	http    *http.Client
	observe Observer
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cli *Client) { cli.http = c }
}

func WithObserver(o Observer) Option {
	return func(cli *Client) { cli.observe = o }
}

func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	c := &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) url(target string) string {
	switch target {
	case TargetNotebookGeneration:
		return c.cfg.NotebookGenerationURL
	case TargetAdditionalSources:
		return c.cfg.AdditionalSourcesURL
	case TargetAudioGeneration:
		return c.cfg.AudioGenerationURL
	case TargetDocumentProcessing:
		return c.cfg.DocumentProcessingURL
	}
	return ""
}

// Configured reports whether target can be called.
func (c *Client) Configured(target string) bool {
	return c.url(target) != "" && c.cfg.Auth != ""
}

// post sends payload to target and returns the raw response body.
func (c *Client) post(ctx context.Context, target string, payload any) (body []byte, err error) {
	if !c.Configured(target) {
		return nil, fmt.Errorf("%s: %w", target, ErrNotConfigured)
	}

	start := time.Now()
	defer func() {
		if c.observe == nil {
			return
		}
		outcome := "ok"
		var se *StatusError
		if errors.As(err, &se) {
			outcome = strconv.Itoa(se.Code)
		} else if err != nil {
			outcome = "error"
		}
		c.observe(target, outcome, time.Since(start))
	}()

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(target), bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.cfg.Auth)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}
