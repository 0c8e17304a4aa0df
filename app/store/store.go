package store

import (
	"context"

	"github.com/insightslm/insightslm/pkg/types"
)

// Provider 业务层使用的存储入口
type Provider interface {
	Transaction(ctx context.Context, next func(ctx context.Context) error) error
	NotebookStore() NotebookStore
	SourceStore() SourceStore
	NoteStore() NoteStore
}

// NotebookStore 笔记本表
type NotebookStore interface {
	Create(ctx context.Context, data types.Notebook) error
	Get(ctx context.Context, id string) (*types.Notebook, error)
	// ListWithSourceCount 按 updated_at 倒序列出用户的笔记本及其来源数量
	ListWithSourceCount(ctx context.Context, userID string, page, pageSize uint64) ([]types.NotebookWithSourceCount, error)
	Update(ctx context.Context, id string, title, description *string) error
	UpdateGenerationStatus(ctx context.Context, id string, status types.GenerationStatus) error
	// TryMarkGenerating 仅当状态为 pending 时切换为 generating，返回是否切换成功
	TryMarkGenerating(ctx context.Context, id string) (bool, error)
	// SaveGeneratedContent 写入生成结果并将状态置为 completed
	SaveGeneratedContent(ctx context.Context, id string, data types.NotebookGeneratedContent) error
	UpdateAudio(ctx context.Context, id string, data types.NotebookAudioUpdate) error
	// ListAudioExpiringBefore 列出已生成音频且链接将在 before 之前过期的笔记本
	ListAudioExpiringBefore(ctx context.Context, before int64, limit uint64) ([]types.Notebook, error)
	// FailStaleGenerating 将 updated_at 早于 before 的 generating 状态置为 failed
	FailStaleGenerating(ctx context.Context, before int64) (int64, error)
	Delete(ctx context.Context, id string) error
}

// SourceStore 来源表
type SourceStore interface {
	Create(ctx context.Context, data types.Source) error
	Get(ctx context.Context, id string) (*types.Source, error)
	// ListByNotebook 按 created_at 倒序
	ListByNotebook(ctx context.Context, notebookID string) ([]types.Source, error)
	// FirstWithContent 返回笔记本中最早创建且 content 不为空的来源
	FirstWithContent(ctx context.Context, notebookID string) (*types.Source, error)
	Count(ctx context.Context, notebookID string) (int64, error)
	Update(ctx context.Context, id string, data types.SourceUpdate) error
	Delete(ctx context.Context, id string) error
}

// NoteStore 笔记表
type NoteStore interface {
	Create(ctx context.Context, data types.Note) error
	Get(ctx context.Context, id string) (*types.Note, error)
	// ListByNotebook 按 updated_at 倒序
	ListByNotebook(ctx context.Context, notebookID string) ([]types.Note, error)
	Update(ctx context.Context, id, title, content string) error
	Delete(ctx context.Context, id string) error
}
