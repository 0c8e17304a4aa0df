package sqlstore

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/insightslm/insightslm/pkg/register"
	"github.com/insightslm/insightslm/pkg/types"
)

func init() {
	register.RegisterFunc[*Provider](RegisterKey{}, func(provider *Provider) {
		provider.stores.SourceStore = NewSourceStore(provider)
	})
}

type SourceStore struct {
	CommonFields
}

func NewSourceStore(provider SqlProviderAchieve) *SourceStore {
	repo := &SourceStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_SOURCES)
	repo.SetAllColumns("id", "notebook_id", "title", "type", "content", "summary", "url", "file_path", "file_size",
		"display_name", "processing_status", "created_at", "updated_at")
	return repo
}

func (s *SourceStore) Create(ctx context.Context, data types.Source) error {
	if data.CreatedAt == 0 {
		data.CreatedAt = time.Now().Unix()
	}
	if data.UpdatedAt == 0 {
		data.UpdatedAt = data.CreatedAt
	}
	query := sq.Insert(s.GetTable()).
		Columns(s.GetAllColumns()...).
		Values(data.ID, data.NotebookID, data.Title, data.Type, data.Content, data.Summary, data.URL, data.FilePath, data.FileSize,
			data.DisplayName, data.ProcessingStatus, data.CreatedAt, data.UpdatedAt)
	return s.exec(ctx, query)
}

func (s *SourceStore) Get(ctx context.Context, id string) (*types.Source, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res types.Source
	if err = s.GetReplica(ctx).Get(&res, queryString, args...); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *SourceStore) ListByNotebook(ctx context.Context, notebookID string) ([]types.Source, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).
		Where(sq.Eq{"notebook_id": notebookID}).
		OrderBy("created_at DESC", "id DESC")

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.Source
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *SourceStore) FirstWithContent(ctx context.Context, notebookID string) (*types.Source, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).
		Where(sq.And{sq.Eq{"notebook_id": notebookID}, sq.NotEq{"content": ""}}).
		OrderBy("created_at", "id").
		Limit(1)

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res types.Source
	if err = s.GetReplica(ctx).Get(&res, queryString, args...); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *SourceStore) Count(ctx context.Context, notebookID string) (int64, error) {
	query := sq.Select("COUNT(*)").From(s.GetTable()).Where(sq.Eq{"notebook_id": notebookID})

	queryString, args, err := query.ToSql()
	if err != nil {
		return 0, ErrorSqlBuild(err)
	}

	var count int64
	if err = s.GetReplica(ctx).Get(&count, queryString, args...); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *SourceStore) Update(ctx context.Context, id string, data types.SourceUpdate) error {
	if data.Empty() {
		return nil
	}
	query := sq.Update(s.GetTable()).Where(sq.Eq{"id": id}).Set("updated_at", time.Now().Unix())
	if data.Title != nil {
		query = query.Set("title", *data.Title)
	}
	if data.Content != nil {
		query = query.Set("content", *data.Content)
	}
	if data.Summary != nil {
		query = query.Set("summary", *data.Summary)
	}
	if data.URL != nil {
		query = query.Set("url", *data.URL)
	}
	if data.FilePath != nil {
		query = query.Set("file_path", *data.FilePath)
	}
	if data.FileSize != nil {
		query = query.Set("file_size", *data.FileSize)
	}
	if data.ProcessingStatus != nil {
		query = query.Set("processing_status", *data.ProcessingStatus)
	}
	return s.exec(ctx, query)
}

func (s *SourceStore) Delete(ctx context.Context, id string) error {
	return s.exec(ctx, sq.Delete(s.GetTable()).Where(sq.Eq{"id": id}))
}
