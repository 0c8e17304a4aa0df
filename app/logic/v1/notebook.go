package v1

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/insightslm/insightslm/app/core"
	"github.com/insightslm/insightslm/pkg/errors"
	"github.com/insightslm/insightslm/pkg/i18n"
	"github.com/insightslm/insightslm/pkg/types"
	"github.com/insightslm/insightslm/pkg/utils"
	"github.com/insightslm/insightslm/pkg/webhook"
)

type NotebookLogic struct {
	ctx  context.Context
	core *core.Core
	UserInfo
}

func NewNotebookLogic(ctx context.Context, core *core.Core) *NotebookLogic {
	return &NotebookLogic{
		ctx:      ctx,
		core:     core,
		UserInfo: SetupUserInfo(ctx, core),
	}
}

func (l *NotebookLogic) Create(req types.CreateNotebookRequest) (*types.Notebook, error) {
	now := time.Now().Unix()
	nb := types.Notebook{
		ID:               utils.GenUniqIDStr(),
		UserID:           l.GetUserInfo().User,
		Title:            lo.If(strings.TrimSpace(req.Title) == "", "Untitled notebook").Else(req.Title),
		Description:      req.Description,
		Icon:             types.DEFAULT_NOTEBOOK_ICON,
		Color:            types.DEFAULT_NOTEBOOK_COLOR,
		ExampleQuestions: []string{},
		GenerationStatus: types.GENERATION_STATUS_PENDING,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := l.core.Store().NotebookStore().Create(l.ctx, nb); err != nil {
		return nil, errors.New("NotebookLogic.Create.NotebookStore.Create", i18n.ERROR_INTERNAL, err)
	}
	return &nb, nil
}

func (l *NotebookLogic) List(page, pageSize uint64) ([]types.NotebookWithSourceCount, error) {
	list, err := l.core.Store().NotebookStore().ListWithSourceCount(l.ctx, l.GetUserInfo().User, page, pageSize)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("NotebookLogic.List.NotebookStore.ListWithSourceCount", i18n.ERROR_INTERNAL, err)
	}
	if list == nil {
		list = []types.NotebookWithSourceCount{}
	}
	return list, nil
}

func (l *NotebookLogic) Get(id string) (*types.Notebook, error) {
	nb, err := l.OwnedNotebook(id)
	if err != nil {
		return nil, errors.Trace("NotebookLogic.Get", err)
	}
	return nb, nil
}

func (l *NotebookLogic) Update(id string, req types.UpdateNotebookRequest) (*types.Notebook, error) {
	if _, err := l.OwnedNotebook(id); err != nil {
		return nil, errors.Trace("NotebookLogic.Update", err)
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return nil, errors.New("NotebookLogic.Update", i18n.ERROR_INVALIDARGUMENT, nil).Code(http.StatusBadRequest)
	}
	if req.Title == nil && req.Description == nil {
		return l.Get(id)
	}

	if err := l.core.Store().NotebookStore().Update(l.ctx, id, req.Title, req.Description); err != nil {
		return nil, errors.New("NotebookLogic.Update.NotebookStore.Update", i18n.ERROR_INTERNAL, err)
	}
	nb, err := l.Get(id)
	if err != nil {
		return nil, err
	}
	l.core.Srv().Hub().PublishNotebook(l.ctx, nb)
	return nb, nil
}

// Delete 先清理对象存储中的来源文件与音频（失败只记录日志），再删除记录，来源与笔记随外键级联删除
func (l *NotebookLogic) Delete(id string) error {
	if _, err := l.OwnedNotebook(id); err != nil {
		return errors.Trace("NotebookLogic.Delete", err)
	}

	sources, err := l.core.Store().SourceStore().ListByNotebook(l.ctx, id)
	if err != nil && err != sql.ErrNoRows {
		return errors.New("NotebookLogic.Delete.SourceStore.ListByNotebook", i18n.ERROR_INTERNAL, err)
	}

	storage := l.core.FileStorage()
	for _, src := range sources {
		if src.FilePath == "" {
			continue
		}
		if err := storage.Delete(l.ctx, src.FilePath); err != nil {
			slog.Warn("failed to delete source file",
				slog.String("notebook_id", id),
				slog.String("source_id", src.ID),
				slog.String("file_path", src.FilePath),
				slog.String("error", err.Error()))
		}
	}
	if err := storage.DeletePrefix(l.ctx, types.AudioObjectPrefix(id)); err != nil {
		slog.Warn("failed to delete notebook audio", slog.String("notebook_id", id), slog.String("error", err.Error()))
	}

	if err := l.core.Store().NotebookStore().Delete(l.ctx, id); err != nil {
		return errors.New("NotebookLogic.Delete.NotebookStore.Delete", i18n.ERROR_INTERNAL, err)
	}
	return nil
}

// GenerateContent 手动触发或重试笔记本元信息生成，状态无条件置为 generating
func (l *NotebookLogic) GenerateContent(req types.GenerateNotebookContentRequest) (*types.GenerateNotebookContentResponse, error) {
	if req.NotebookID == "" || req.SourceType == "" {
		return nil, functionError("NotebookLogic.GenerateContent", http.StatusBadRequest, "notebookId and sourceType are required", nil)
	}
	if err := authorizeFunctionCaller("NotebookLogic.GenerateContent", l.UserInfo, req.NotebookID); err != nil {
		return nil, err
	}

	wh := l.core.Srv().Webhook()
	if wh == nil || !wh.Configured(webhook.TargetNotebookGeneration) {
		return nil, functionError("NotebookLogic.GenerateContent", http.StatusInternalServerError, "Web service configuration missing", webhook.ErrNotConfigured)
	}

	if err := l.core.Store().NotebookStore().UpdateGenerationStatus(l.ctx, req.NotebookID, types.GENERATION_STATUS_GENERATING); err != nil {
		slog.Error("failed to mark notebook generating", slog.String("notebook_id", req.NotebookID), slog.String("error", err.Error()))
	}

	return l.generate(req)
}

// TryTriggerGeneration 笔记本首个可用来源就绪后触发生成；并发调用中只有一个会真正发起请求
func (l *NotebookLogic) TryTriggerGeneration(src *types.Source) (bool, error) {
	if src == nil || !src.HasGenerationInput() {
		return false, nil
	}
	wh := l.core.Srv().Webhook()
	if wh == nil || !wh.Configured(webhook.TargetNotebookGeneration) {
		return false, nil
	}

	won, err := l.core.Store().NotebookStore().TryMarkGenerating(l.ctx, src.NotebookID)
	if err != nil {
		return false, errors.New("NotebookLogic.TryTriggerGeneration.NotebookStore.TryMarkGenerating", i18n.ERROR_INTERNAL, err)
	}
	l.core.Metrics().GenerationTriggerInc(won)
	if !won {
		return false, nil
	}

	filePath := src.FilePath
	if filePath == "" {
		filePath = src.URL
	}
	if _, err = l.generate(types.GenerateNotebookContentRequest{
		NotebookID: src.NotebookID,
		FilePath:   filePath,
		SourceType: src.Type,
	}); err != nil {
		return true, errors.Trace("NotebookLogic.TryTriggerGeneration", err)
	}
	return true, nil
}

func (l *NotebookLogic) generate(req types.GenerateNotebookContentRequest) (*types.GenerateNotebookContentResponse, error) {
	payload := webhook.NotebookContentRequest{
		SourceType: string(req.SourceType),
		FilePath:   req.FilePath,
	}
	if payload.FilePath == "" {
		src, err := l.core.Store().SourceStore().FirstWithContent(l.ctx, req.NotebookID)
		if err != nil && err != sql.ErrNoRows {
			slog.Error("failed to load source content", slog.String("notebook_id", req.NotebookID), slog.String("error", err.Error()))
		}
		if src != nil {
			payload.Content = src.Content
		}
	}

	out, err := l.core.Srv().Webhook().GenerateNotebookContent(l.ctx, payload)
	if err != nil {
		l.markGenerationFailed(req.NotebookID)
		if errors.Is(err, webhook.ErrInvalidResponse) {
			return nil, functionError("NotebookLogic.generate.GenerateNotebookContent", http.StatusInternalServerError, "Invalid response format from web service", err)
		}
		return nil, functionError("NotebookLogic.generate.GenerateNotebookContent", http.StatusInternalServerError, "Failed to generate content from web service", err)
	}
	if out.Title == "" {
		l.markGenerationFailed(req.NotebookID)
		return nil, functionError("NotebookLogic.generate", http.StatusInternalServerError, "No title in response from web service", nil)
	}

	data := types.NotebookGeneratedContent{
		Title:            out.Title,
		Description:      out.Summary,
		Icon:             lo.If(out.NotebookIcon == "", types.DEFAULT_NOTEBOOK_ICON).Else(out.NotebookIcon),
		Color:            lo.If(out.BackgroundColor == "", types.DEFAULT_NOTEBOOK_COLOR).Else(out.BackgroundColor),
		ExampleQuestions: out.ExampleQuestions,
	}
	if err := l.core.Store().NotebookStore().SaveGeneratedContent(l.ctx, req.NotebookID, data); err != nil {
		return nil, functionError("NotebookLogic.generate.NotebookStore.SaveGeneratedContent", http.StatusInternalServerError, "Failed to update notebook", err)
	}
	l.publishNotebook(req.NotebookID)

	return &types.GenerateNotebookContentResponse{
		Success:          true,
		Title:            data.Title,
		Description:      data.Description,
		Icon:             data.Icon,
		Color:            data.Color,
		ExampleQuestions: data.ExampleQuestions,
		Message:          "Notebook content generated successfully",
	}, nil
}

func (l *NotebookLogic) markGenerationFailed(id string) {
	if err := l.core.Store().NotebookStore().UpdateGenerationStatus(l.ctx, id, types.GENERATION_STATUS_FAILED); err != nil {
		slog.Error("failed to mark notebook generation failed", slog.String("notebook_id", id), slog.String("error", err.Error()))
	}
	l.publishNotebook(id)
}

func (l *NotebookLogic) publishNotebook(id string) {
	nb, err := l.core.Store().NotebookStore().Get(l.ctx, id)
	if err != nil {
		return
	}
	l.core.Srv().Hub().PublishNotebook(l.ctx, nb)
}
