package types

import "encoding/json"

// NoteSourceType 笔记来源
type NoteSourceType string

const (
	NOTE_SOURCE_USER        NoteSourceType = "user"
	NOTE_SOURCE_AI_RESPONSE NoteSourceType = "ai_response"
)

// Note 用户笔记；ai_response 类型的 content 保存结构化内容的 JSON，创建后不可修改
type Note struct {
	ID            string         `json:"id" db:"id"`
	NotebookID    string         `json:"notebook_id" db:"notebook_id"`
	Title         string         `json:"title" db:"title"`
	Content       string         `json:"content" db:"content"`
	SourceType    NoteSourceType `json:"source_type" db:"source_type"`
	ExtractedText string         `json:"extracted_text,omitempty" db:"extracted_text"`
	CreatedAt     int64          `json:"created_at" db:"created_at"`
	UpdatedAt     int64          `json:"updated_at" db:"updated_at"`
}

type CreateNoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content" binding:"required"`
}

type UpdateNoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content" binding:"required"`
}

// SaveChatNoteRequest 将对话中的一条消息存为笔记，content 为字符串或 {segments, citations}
type SaveChatNoteRequest struct {
	Content json.RawMessage `json:"content" binding:"required"`
}

// NoteWithPreview 列表展示用
type NoteWithPreview struct {
	Note
	Preview string `json:"preview"`
}
