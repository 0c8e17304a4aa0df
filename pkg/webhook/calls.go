package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidResponse means a webhook answered 2xx with an unusable body.
var ErrInvalidResponse = errors.New("invalid response format from web service")

// ContentLimit caps the text forwarded for notebook generation.
const ContentLimit = 5000

// NotebookContentRequest carries either a file path (files and urls) or the
// extracted text of a text source.
type NotebookContentRequest struct {
	SourceType string `json:"sourceType"`
	FilePath   string `json:"filePath,omitempty"`
	Content    string `json:"content,omitempty"`
}

type NotebookContent struct {
	Title            string   `json:"title"`
	Summary          string   `json:"summary"`
	NotebookIcon     string   `json:"notebook_icon"`
	BackgroundColor  string   `json:"background_color"`
	ExampleQuestions []string `json:"example_questions"`
}

// GenerateNotebookContent asks for a title, summary, icon, color and example
// questions describing a notebook's first source.
func (c *Client) GenerateNotebookContent(ctx context.Context, req NotebookContentRequest) (*NotebookContent, error) {
	if req.FilePath == "" {
		req.Content = truncate(req.Content, ContentLimit)
	}

	body, err := c.post(ctx, TargetNotebookGeneration, req)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Output *NotebookContent `json:"output"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.Output == nil {
		return nil, ErrInvalidResponse
	}
	if resp.Output.ExampleQuestions == nil {
		resp.Output.ExampleQuestions = []string{}
	}
	return resp.Output, nil
}

const (
	AdditionalTypeWebsites   = "multiple-websites"
	AdditionalTypeCopiedText = "copied-text"
)

// AdditionalSources is the input of ProcessAdditionalSources. URLs and
// SourceIDs pair up by index for websites; copied text uses SourceIDs[0].
type AdditionalSources struct {
	Type       string
	NotebookID string
	URLs       []string
	Title      string
	Content    string
	SourceIDs  []string
	Timestamp  string
}

type websitesPayload struct {
	Type       string   `json:"type"`
	NotebookID string   `json:"notebookId"`
	URLs       []string `json:"urls"`
	SourceIDs  []string `json:"sourceIds"`
	Timestamp  string   `json:"timestamp"`
}

type copiedTextPayload struct {
	Type       string `json:"type"`
	NotebookID string `json:"notebookId"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	SourceID   string `json:"sourceId,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// ProcessAdditionalSources forwards websites or copied text for scraping and
// indexing and returns the webhook's raw answer.
func (c *Client) ProcessAdditionalSources(ctx context.Context, req AdditionalSources) (string, error) {
	var payload any
	switch req.Type {
	case AdditionalTypeWebsites:
		payload = websitesPayload{
			Type:       req.Type,
			NotebookID: req.NotebookID,
			URLs:       req.URLs,
			SourceIDs:  req.SourceIDs,
			Timestamp:  req.Timestamp,
		}
	case AdditionalTypeCopiedText:
		p := copiedTextPayload{
			Type:       req.Type,
			NotebookID: req.NotebookID,
			Title:      req.Title,
			Content:    req.Content,
			Timestamp:  req.Timestamp,
		}
		if len(req.SourceIDs) > 0 {
			p.SourceID = req.SourceIDs[0]
		}
		payload = p
	default:
		return "", fmt.Errorf("unsupported type: %s", req.Type)
	}

	body, err := c.post(ctx, TargetAdditionalSources, payload)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

type audioPayload struct {
	NotebookID  string `json:"notebook_id"`
	CallbackURL string `json:"callback_url"`
}

// GenerateAudio starts audio synthesis. The service reports back through
// callbackURL.
func (c *Client) GenerateAudio(ctx context.Context, notebookID, callbackURL string) error {
	_, err := c.post(ctx, TargetAudioGeneration, audioPayload{
		NotebookID:  notebookID,
		CallbackURL: callbackURL,
	})
	return err
}

// DocumentRequest asks the document service to extract text from a stored
// file. FileURL is a signed url the service can download from.
type DocumentRequest struct {
	SourceID    string `json:"source_id"`
	FilePath    string `json:"file_path"`
	FileURL     string `json:"file_url"`
	SourceType  string `json:"source_type"`
	CallbackURL string `json:"callback_url"`
}

func (c *Client) ProcessDocument(ctx context.Context, req DocumentRequest) error {
	_, err := c.post(ctx, TargetDocumentProcessing, req)
	return err
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
