package types

import "strings"

// SourceType 来源类型
type SourceType string

const (
	SOURCE_TYPE_PDF               SourceType = "pdf"
	SOURCE_TYPE_TEXT              SourceType = "text"
	SOURCE_TYPE_WEBSITE           SourceType = "website"
	SOURCE_TYPE_YOUTUBE           SourceType = "youtube"
	SOURCE_TYPE_AUDIO             SourceType = "audio"
	SOURCE_TYPE_DOC               SourceType = "doc"
	SOURCE_TYPE_MULTIPLE_WEBSITES SourceType = "multiple-websites"
	SOURCE_TYPE_COPIED_TEXT       SourceType = "copied-text"
)

func (t SourceType) Valid() bool {
	switch t {
	case SOURCE_TYPE_PDF, SOURCE_TYPE_TEXT, SOURCE_TYPE_WEBSITE, SOURCE_TYPE_YOUTUBE,
		SOURCE_TYPE_AUDIO, SOURCE_TYPE_DOC, SOURCE_TYPE_MULTIPLE_WEBSITES, SOURCE_TYPE_COPIED_TEXT:
		return true
	}
	return false
}

// SourceTypeFromMime 根据上传文件的 mime 推断来源类型
func SourceTypeFromMime(mime string) SourceType {
	switch {
	case strings.Contains(mime, "pdf"):
		return SOURCE_TYPE_PDF
	case strings.Contains(mime, "audio"):
		return SOURCE_TYPE_AUDIO
	default:
		return SOURCE_TYPE_TEXT
	}
}

// ProcessingStatus 来源处理状态
type ProcessingStatus string

const (
	PROCESSING_STATUS_PENDING    ProcessingStatus = "pending"
	PROCESSING_STATUS_UPLOADING  ProcessingStatus = "uploading"
	PROCESSING_STATUS_PROCESSING ProcessingStatus = "processing"
	PROCESSING_STATUS_COMPLETED  ProcessingStatus = "completed"
	PROCESSING_STATUS_FAILED     ProcessingStatus = "failed"
)

// Source 笔记本中的一份资料，content 按行切分后即为引用的行号空间
type Source struct {
	ID               string           `json:"id" db:"id"`
	NotebookID       string           `json:"notebook_id" db:"notebook_id"`
	Title            string           `json:"title" db:"title"`
	Type             SourceType       `json:"type" db:"type"`
	Content          string           `json:"content,omitempty" db:"content"`
	Summary          string           `json:"summary,omitempty" db:"summary"`
	URL              string           `json:"url,omitempty" db:"url"`
	FilePath         string           `json:"file_path,omitempty" db:"file_path"`
	FileSize         int64            `json:"file_size,omitempty" db:"file_size"`
	DisplayName      string           `json:"display_name,omitempty" db:"display_name"`
	ProcessingStatus ProcessingStatus `json:"processing_status" db:"processing_status"`
	CreatedAt        int64            `json:"created_at" db:"created_at"`
	UpdatedAt        int64            `json:"updated_at" db:"updated_at"`
}

// HasGenerationInput 来源是否已经具备触发笔记本内容生成的数据
func (s *Source) HasGenerationInput() bool {
	switch s.Type {
	case SOURCE_TYPE_PDF, SOURCE_TYPE_AUDIO, SOURCE_TYPE_DOC:
		return s.FilePath != ""
	case SOURCE_TYPE_TEXT, SOURCE_TYPE_COPIED_TEXT:
		return s.Content != ""
	case SOURCE_TYPE_WEBSITE, SOURCE_TYPE_YOUTUBE, SOURCE_TYPE_MULTIPLE_WEBSITES:
		return s.URL != ""
	}
	return false
}

// SourceUpdate 部分更新，nil 字段不修改
type SourceUpdate struct {
	Title            *string
	Content          *string
	Summary          *string
	URL              *string
	FilePath         *string
	FileSize         *int64
	ProcessingStatus *ProcessingStatus
}

func (u SourceUpdate) Empty() bool {
	return u.Title == nil && u.Content == nil && u.Summary == nil && u.URL == nil &&
		u.FilePath == nil && u.FileSize == nil && u.ProcessingStatus == nil
}

type AddWebsitesRequest struct {
	URLs []string `json:"urls" binding:"required,min=1"`
}

type AddCopiedTextRequest struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content" binding:"required"`
}

type UpdateSourceRequest struct {
	Title string `json:"title" binding:"required"`
}
