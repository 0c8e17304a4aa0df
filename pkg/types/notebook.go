package types

import (
	"github.com/lib/pq"
)

// GenerationStatus 笔记本内容生成状态
type GenerationStatus string

const (
	GENERATION_STATUS_PENDING    GenerationStatus = "pending"
	GENERATION_STATUS_GENERATING GenerationStatus = "generating"
	GENERATION_STATUS_COMPLETED  GenerationStatus = "completed"
	GENERATION_STATUS_FAILED     GenerationStatus = "failed"
)

// AudioStatus 音频概览生成状态，空字符串表示从未生成
type AudioStatus string

const (
	AUDIO_STATUS_NONE       AudioStatus = ""
	AUDIO_STATUS_GENERATING AudioStatus = "generating"
	AUDIO_STATUS_COMPLETED  AudioStatus = "completed"
	AUDIO_STATUS_FAILED     AudioStatus = "failed"
)

const (
	DEFAULT_NOTEBOOK_ICON  = "📝"
	DEFAULT_NOTEBOOK_COLOR = "bg-gray-100"
)

// Notebook 笔记本，聚合来源、对话与笔记
type Notebook struct {
	ID               string           `json:"id" db:"id"`
	UserID           string           `json:"user_id" db:"user_id"`
	Title            string           `json:"title" db:"title"`
	Description      string           `json:"description" db:"description"`
	Icon             string           `json:"icon" db:"icon"`
	Color            string           `json:"color" db:"color"`
	ExampleQuestions pq.StringArray   `json:"example_questions" db:"example_questions"`
	GenerationStatus GenerationStatus `json:"generation_status" db:"generation_status"`

	// 音频概览
	AudioOverviewURL              string      `json:"audio_overview_url" db:"audio_overview_url"`
	AudioURLExpiresAt             int64       `json:"audio_url_expires_at" db:"audio_url_expires_at"`
	AudioOverviewGenerationStatus AudioStatus `json:"audio_overview_generation_status" db:"audio_overview_generation_status"`

	CreatedAt int64 `json:"created_at" db:"created_at"`
	UpdatedAt int64 `json:"updated_at" db:"updated_at"`
}

// NotebookWithSourceCount 列表展示用，附带来源数量
type NotebookWithSourceCount struct {
	Notebook
	SourceCount int64 `json:"source_count" db:"source_count"`
}

// NotebookGeneratedContent 外部生成服务返回的笔记本元信息
type NotebookGeneratedContent struct {
	Title            string
	Description      string
	Icon             string
	Color            string
	ExampleQuestions []string
}

type CreateNotebookRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type UpdateNotebookRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// NotebookAudioUpdate 音频字段的部分更新，nil 字段不修改
type NotebookAudioUpdate struct {
	URL       *string
	ExpiresAt *int64
	Status    *AudioStatus
}

func (u NotebookAudioUpdate) Empty() bool {
	return u.URL == nil && u.ExpiresAt == nil && u.Status == nil
}

// AudioObjectPrefix 笔记本音频概览在对象存储中的目录
func AudioObjectPrefix(notebookID string) string {
	return "audio/" + notebookID + "/"
}
