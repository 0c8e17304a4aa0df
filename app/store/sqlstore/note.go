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
		provider.stores.NoteStore = NewNoteStore(provider)
	})
}

type NoteStore struct {
	CommonFields
}

func NewNoteStore(provider SqlProviderAchieve) *NoteStore {
	repo := &NoteStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_NOTES)
	repo.SetAllColumns("id", "notebook_id", "title", "content", "source_type", "extracted_text", "created_at", "updated_at")
	return repo
}

func (s *NoteStore) Create(ctx context.Context, data types.Note) error {
	if data.CreatedAt == 0 {
		data.CreatedAt = time.Now().Unix()
	}
	if data.UpdatedAt == 0 {
		data.UpdatedAt = data.CreatedAt
	}
	query := sq.Insert(s.GetTable()).
		Columns(s.GetAllColumns()...).
		Values(data.ID, data.NotebookID, data.Title, data.Content, data.SourceType, data.ExtractedText, data.CreatedAt, data.UpdatedAt)
	return s.exec(ctx, query)
}

func (s *NoteStore) Get(ctx context.Context, id string) (*types.Note, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res types.Note
	if err = s.GetReplica(ctx).Get(&res, queryString, args...); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *NoteStore) ListByNotebook(ctx context.Context, notebookID string) ([]types.Note, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).
		Where(sq.Eq{"notebook_id": notebookID}).
		OrderBy("updated_at DESC", "id DESC")

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.Note
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

// Update ai_response 笔记不可修改，由 source_type 条件保证
func (s *NoteStore) Update(ctx context.Context, id, title, content string) error {
	return s.exec(ctx, sq.Update(s.GetTable()).
		Where(sq.Eq{"id": id, "source_type": types.NOTE_SOURCE_USER}).
		Set("title", title).
		Set("content", content).
		Set("updated_at", time.Now().Unix()))
}

func (s *NoteStore) Delete(ctx context.Context, id string) error {
	return s.exec(ctx, sq.Delete(s.GetTable()).Where(sq.Eq{"id": id}))
}
