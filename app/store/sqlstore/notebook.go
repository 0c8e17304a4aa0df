package sqlstore

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/insightslm/insightslm/pkg/register"
	"github.com/insightslm/insightslm/pkg/types"
)

func init() {
	register.RegisterFunc[*Provider](RegisterKey{}, func(provider *Provider) {
		provider.stores.NotebookStore = NewNotebookStore(provider)
	})
}

type NotebookStore struct {
	CommonFields
}

func NewNotebookStore(provider SqlProviderAchieve) *NotebookStore {
	repo := &NotebookStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_NOTEBOOKS)
	repo.SetAllColumns("id", "user_id", "title", "description", "icon", "color", "example_questions", "generation_status",
		"audio_overview_url", "audio_url_expires_at", "audio_overview_generation_status", "created_at", "updated_at")
	return repo
}

func (s *NotebookStore) Create(ctx context.Context, data types.Notebook) error {
	now := time.Now().Unix()
	if data.CreatedAt == 0 {
		data.CreatedAt = now
	}
	if data.UpdatedAt == 0 {
		data.UpdatedAt = data.CreatedAt
	}
	if data.ExampleQuestions == nil {
		data.ExampleQuestions = pq.StringArray{}
	}
	query := sq.Insert(s.GetTable()).
		Columns(s.GetAllColumns()...).
		Values(data.ID, data.UserID, data.Title, data.Description, data.Icon, data.Color, data.ExampleQuestions, data.GenerationStatus,
			data.AudioOverviewURL, data.AudioURLExpiresAt, data.AudioOverviewGenerationStatus, data.CreatedAt, data.UpdatedAt)

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func (s *NotebookStore) Get(ctx context.Context, id string) (*types.Notebook, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res types.Notebook
	if err = s.GetReplica(ctx).Get(&res, queryString, args...); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *NotebookStore) ListWithSourceCount(ctx context.Context, userID string, page, pageSize uint64) ([]types.NotebookWithSourceCount, error) {
	sourceTable := types.TABLE_SOURCES.Name()
	query := sq.Select(append(s.GetAllColumnsWithPrefix("n"),
		"(SELECT COUNT(*) FROM "+sourceTable+" s WHERE s.notebook_id = n.id) AS source_count")...).
		From(s.GetTable() + " n").
		Where(sq.Eq{"n.user_id": userID}).
		OrderBy("n.updated_at DESC")
	if page != types.NO_PAGINATION && pageSize != types.NO_PAGINATION {
		query = query.Limit(pageSize).Offset((page - 1) * pageSize)
	}

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.NotebookWithSourceCount
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *NotebookStore) Update(ctx context.Context, id string, title, description *string) error {
	if title == nil && description == nil {
		return nil
	}
	query := sq.Update(s.GetTable()).Where(sq.Eq{"id": id}).Set("updated_at", time.Now().Unix())
	if title != nil {
		query = query.Set("title", *title)
	}
	if description != nil {
		query = query.Set("description", *description)
	}
	return s.exec(ctx, query)
}

func (s *NotebookStore) UpdateGenerationStatus(ctx context.Context, id string, status types.GenerationStatus) error {
	return s.exec(ctx, sq.Update(s.GetTable()).
		Where(sq.Eq{"id": id}).
		Set("generation_status", status).
		Set("updated_at", time.Now().Unix()))
}

// TryMarkGenerating 条件更新，多个并发触发者中只有一个能拿到 RowsAffected == 1
func (s *NotebookStore) TryMarkGenerating(ctx context.Context, id string) (bool, error) {
	query := sq.Update(s.GetTable()).
		Where(sq.Eq{"id": id, "generation_status": types.GENERATION_STATUS_PENDING}).
		Set("generation_status", types.GENERATION_STATUS_GENERATING).
		Set("updated_at", time.Now().Unix())

	queryString, args, err := query.ToSql()
	if err != nil {
		return false, ErrorSqlBuild(err)
	}

	res, err := s.GetMaster(ctx).Exec(queryString, args...)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (s *NotebookStore) SaveGeneratedContent(ctx context.Context, id string, data types.NotebookGeneratedContent) error {
	questions := pq.StringArray(data.ExampleQuestions)
	if questions == nil {
		questions = pq.StringArray{}
	}
	return s.exec(ctx, sq.Update(s.GetTable()).
		Where(sq.Eq{"id": id}).
		Set("title", data.Title).
		Set("description", data.Description).
		Set("icon", data.Icon).
		Set("color", data.Color).
		Set("example_questions", questions).
		Set("generation_status", types.GENERATION_STATUS_COMPLETED).
		Set("updated_at", time.Now().Unix()))
}

func (s *NotebookStore) UpdateAudio(ctx context.Context, id string, data types.NotebookAudioUpdate) error {
	if data.Empty() {
		return nil
	}
	query := sq.Update(s.GetTable()).Where(sq.Eq{"id": id}).Set("updated_at", time.Now().Unix())
	if data.URL != nil {
		query = query.Set("audio_overview_url", *data.URL)
	}
	if data.ExpiresAt != nil {
		query = query.Set("audio_url_expires_at", *data.ExpiresAt)
	}
	if data.Status != nil {
		query = query.Set("audio_overview_generation_status", *data.Status)
	}
	return s.exec(ctx, query)
}

func (s *NotebookStore) ListAudioExpiringBefore(ctx context.Context, before int64, limit uint64) ([]types.Notebook, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).
		Where(sq.And{
			sq.Eq{"audio_overview_generation_status": types.AUDIO_STATUS_COMPLETED},
			sq.NotEq{"audio_overview_url": ""},
			sq.Lt{"audio_url_expires_at": before},
		}).
		OrderBy("audio_url_expires_at").
		Limit(limit)

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.Notebook
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *NotebookStore) FailStaleGenerating(ctx context.Context, before int64) (int64, error) {
	query := sq.Update(s.GetTable()).
		Where(sq.And{
			sq.Eq{"generation_status": types.GENERATION_STATUS_GENERATING},
			sq.Lt{"updated_at": before},
		}).
		Set("generation_status", types.GENERATION_STATUS_FAILED).
		Set("updated_at", time.Now().Unix())

	queryString, args, err := query.ToSql()
	if err != nil {
		return 0, ErrorSqlBuild(err)
	}

	res, err := s.GetMaster(ctx).Exec(queryString, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *NotebookStore) Delete(ctx context.Context, id string) error {
	return s.exec(ctx, sq.Delete(s.GetTable()).Where(sq.Eq{"id": id}))
}
