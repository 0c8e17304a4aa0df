package v1

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/insightslm/insightslm/app/core"
	"github.com/insightslm/insightslm/pkg/errors"
	"github.com/insightslm/insightslm/pkg/i18n"
	"github.com/insightslm/insightslm/pkg/ingest"
	"github.com/insightslm/insightslm/pkg/realtime"
	"github.com/insightslm/insightslm/pkg/safe"
	"github.com/insightslm/insightslm/pkg/types"
	"github.com/insightslm/insightslm/pkg/utils"
	"github.com/insightslm/insightslm/pkg/webhook"
)

const documentURLTTL = 24 * time.Hour

type SourceLogic struct {
	ctx  context.Context
	core *core.Core
	UserInfo
}

func NewSourceLogic(ctx context.Context, core *core.Core) *SourceLogic {
	return &SourceLogic{
		ctx:      ctx,
		core:     core,
		UserInfo: SetupUserInfo(ctx, core),
	}
}

// UploadFile 上传文件在请求结束前已读入内存
type UploadFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// IngestBatch 一次添加多个来源的结果；Sources 与 Errors 按输入顺序对应，创建失败的位置 Sources 为 nil
type IngestBatch struct {
	Sources []*types.Source
	Errors  []error

	done     chan struct{}
	pipeline []error
}

func newIngestBatch(n int) *IngestBatch {
	return &IngestBatch{
		Sources:  make([]*types.Source, n),
		Errors:   make([]error, n),
		done:     make(chan struct{}),
		pipeline: make([]error, n),
	}
}

// Wait 等待后台处理结束，返回每个来源的处理错误
func (b *IngestBatch) Wait() []error {
	<-b.done
	return b.pipeline
}

func (b *IngestBatch) collect(results []ingest.Result[*types.Source]) {
	for _, r := range results {
		if r.OK() {
			b.Sources[r.Index] = r.Value
			continue
		}
		b.Errors[r.Index] = r.Err
	}
}

func (b *IngestBatch) Created() []*types.Source {
	return lo.Filter(b.Sources, func(item *types.Source, _ int) bool { return item != nil })
}

func (l *SourceLogic) List(notebookID string) ([]types.Source, error) {
	if _, err := l.OwnedNotebook(notebookID); err != nil {
		return nil, errors.Trace("SourceLogic.List", err)
	}
	list, err := l.core.Store().SourceStore().ListByNotebook(l.ctx, notebookID)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("SourceLogic.List.SourceStore.ListByNotebook", i18n.ERROR_INTERNAL, err)
	}
	if list == nil {
		list = []types.Source{}
	}
	return list, nil
}

// Get 读取来源并校验其所属笔记本归当前用户
func (l *SourceLogic) Get(id string) (*types.Source, error) {
	src, err := l.core.Store().SourceStore().Get(l.ctx, id)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("SourceLogic.Get.SourceStore.Get", i18n.ERROR_INTERNAL, err)
	}
	if src == nil {
		return nil, errors.New("SourceLogic.Get.SourceStore.Get", i18n.ERROR_SOURCE_NOT_FOUND, nil).Code(http.StatusNotFound)
	}
	if _, err = l.OwnedNotebook(src.NotebookID); err != nil {
		return nil, errors.Trace("SourceLogic.Get", err)
	}
	return src, nil
}

func (l *SourceLogic) create(ctx context.Context, src types.Source) (*types.Source, error) {
	now := time.Now().Unix()
	src.ID = utils.GenUniqIDStr()
	src.CreatedAt = now
	src.UpdatedAt = now
	if err := l.core.Store().SourceStore().Create(ctx, src); err != nil {
		return nil, errors.New("SourceLogic.create.SourceStore.Create", i18n.ERROR_INTERNAL, err)
	}
	l.core.Srv().Hub().PublishSource(ctx, realtime.EventInsert, &src)
	return &src, nil
}

// update 写入部分字段并推送最新的来源
func (l *SourceLogic) update(ctx context.Context, id string, data types.SourceUpdate) (*types.Source, error) {
	if err := l.core.Store().SourceStore().Update(ctx, id, data); err != nil {
		return nil, err
	}
	src, err := l.core.Store().SourceStore().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	l.core.Srv().Hub().PublishSource(ctx, realtime.EventUpdate, src)
	return src, nil
}

func (l *SourceLogic) setStatus(ctx context.Context, id string, status types.ProcessingStatus) {
	if _, err := l.update(ctx, id, types.SourceUpdate{ProcessingStatus: &status}); err != nil {
		slog.Error("failed to update source status",
			slog.String("source_id", id),
			slog.String("status", string(status)),
			slog.String("error", err.Error()))
	}
}

func (l *SourceLogic) stagger() time.Duration {
	if d := l.core.Cfg().Ingest.Stagger(); d > 0 {
		return d
	}
	return ingest.DefaultStagger
}

// triggerGeneration 首个可用来源就绪时尝试生成笔记本元信息，失败只记录日志
func (l *SourceLogic) triggerGeneration(ctx context.Context, src *types.Source) {
	if _, err := NewNotebookLogic(ctx, l.core).TryTriggerGeneration(src); err != nil {
		slog.Error("failed to generate notebook content",
			slog.String("notebook_id", src.NotebookID),
			slog.String("source_id", src.ID),
			slog.String("error", err.Error()))
	}
}

// Upload 先单独创建第一个来源，间隔片刻后并行创建其余来源；随后每个文件在后台独立完成 上传->解析->生成
func (l *SourceLogic) Upload(notebookID string, files []UploadFile) (*IngestBatch, error) {
	if _, err := l.OwnedNotebook(notebookID); err != nil {
		return nil, errors.Trace("SourceLogic.Upload", err)
	}
	if len(files) == 0 {
		return nil, errors.New("SourceLogic.Upload", i18n.ERROR_INVALIDARGUMENT, nil).Code(http.StatusBadRequest)
	}
	maxSize := int64(l.core.Cfg().Ingest.MaxFileSizeMB) << 20
	for _, f := range files {
		if maxSize > 0 && int64(len(f.Data)) > maxSize {
			return nil, errors.New("SourceLogic.Upload", i18n.ERROR_FILE_TOO_LARGE, fmt.Errorf("%s is %d bytes", f.Name, len(f.Data))).Code(http.StatusRequestEntityTooLarge)
		}
	}

	batch := newIngestBatch(len(files))
	results := ingest.CreateStaggered(l.ctx, files, l.stagger(), func(ctx context.Context, _ int, f UploadFile) (*types.Source, error) {
		return l.create(ctx, types.Source{
			NotebookID:       notebookID,
			Title:            f.Name,
			Type:             types.SourceTypeFromMime(f.ContentType),
			FileSize:         int64(len(f.Data)),
			DisplayName:      f.Name,
			ProcessingStatus: types.PROCESSING_STATUS_PENDING,
		})
	})
	batch.collect(results)

	bg := NewSourceLogic(detach(l.ctx), l.core)
	go safe.Run(func() {
		defer close(batch.done)
		errs := ingest.RunIsolated(bg.ctx, files, func(ctx context.Context, i int, f UploadFile) error {
			if batch.Sources[i] == nil {
				return batch.Errors[i]
			}
			return bg.processFile(ctx, batch.Sources[i], f)
		})
		copy(batch.pipeline, errs)
	})
	return batch, nil
}

// processFile 单个文件的处理流程，任何一步失败都只影响该来源
func (l *SourceLogic) processFile(ctx context.Context, src *types.Source, f UploadFile) error {
	metrics := l.core.Metrics()
	l.setStatus(ctx, src.ID, types.PROCESSING_STATUS_UPLOADING)

	filePath := SourceObjectPath(src.NotebookID, src.ID, f.Name)
	err := l.core.FileStorage().Upload(ctx, filePath, bytes.NewReader(f.Data), f.ContentType)
	metrics.IngestInc("upload", err)
	if err != nil {
		l.setStatus(ctx, src.ID, types.PROCESSING_STATUS_FAILED)
		return errors.New("SourceLogic.processFile.FileStorage.Upload", i18n.ERROR_STORAGE_UNAVAILABLE, err)
	}

	processing := types.PROCESSING_STATUS_PROCESSING
	updated, err := l.update(ctx, src.ID, types.SourceUpdate{FilePath: &filePath, ProcessingStatus: &processing})
	if err != nil {
		return errors.New("SourceLogic.processFile.SourceStore.Update", i18n.ERROR_INTERNAL, err)
	}

	_, err = l.processDocument(ctx, types.ProcessDocumentRequest{
		SourceID:   src.ID,
		FilePath:   filePath,
		SourceType: src.Type,
	})
	metrics.IngestInc("process", err)
	if err != nil {
		l.setStatus(ctx, src.ID, types.PROCESSING_STATUS_FAILED)
		return errors.Trace("SourceLogic.processFile", err)
	}

	l.triggerGeneration(ctx, updated)
	return nil
}

// SourceObjectPath 上传文件在对象存储中的路径
func SourceObjectPath(notebookID, sourceID, fileName string) string {
	path := "sources/" + notebookID + "/" + sourceID
	if ext := utils.FileExt(fileName); ext != "" {
		path += "." + ext
	}
	return path
}

// AddWebsites 每个网址一个来源，标题为 "Website N: url"，随后整批交给抓取服务
func (l *SourceLogic) AddWebsites(notebookID string, urls []string) (*IngestBatch, error) {
	if _, err := l.OwnedNotebook(notebookID); err != nil {
		return nil, errors.Trace("SourceLogic.AddWebsites", err)
	}
	urls = lo.Filter(lo.Map(urls, func(u string, _ int) string { return strings.TrimSpace(u) }), func(u string, _ int) bool { return u != "" })
	if len(urls) == 0 {
		return nil, errors.New("SourceLogic.AddWebsites", i18n.ERROR_INVALIDARGUMENT, nil).Code(http.StatusBadRequest)
	}

	batch := newIngestBatch(len(urls))
	results := ingest.CreateStaggered(l.ctx, urls, l.stagger(), func(ctx context.Context, i int, u string) (*types.Source, error) {
		return l.create(ctx, types.Source{
			NotebookID:       notebookID,
			Title:            fmt.Sprintf("Website %d: %s", i+1, u),
			Type:             types.SOURCE_TYPE_WEBSITE,
			URL:              u,
			ProcessingStatus: types.PROCESSING_STATUS_PROCESSING,
		})
	})
	batch.collect(results)

	created := batch.Created()
	ctx := detach(l.ctx)
	go safe.Run(func() {
		defer close(batch.done)
		if len(created) == 0 {
			return
		}
		l.triggerGeneration(ctx, created[0])

		_, err := l.sendAdditionalSources(ctx, webhook.AdditionalSources{
			Type:       webhook.AdditionalTypeWebsites,
			NotebookID: notebookID,
			URLs:       lo.Map(created, func(s *types.Source, _ int) string { return s.URL }),
			SourceIDs:  lo.Map(created, func(s *types.Source, _ int) string { return s.ID }),
			Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			for i, s := range batch.Sources {
				if s != nil {
					batch.pipeline[i] = err
					l.setStatus(ctx, s.ID, types.PROCESSING_STATUS_FAILED)
				}
			}
		}
	})
	return batch, nil
}

// AddText 粘贴的文本作为 text 来源，交给处理服务切分索引
func (l *SourceLogic) AddText(notebookID string, req types.AddCopiedTextRequest) (*IngestBatch, error) {
	if _, err := l.OwnedNotebook(notebookID); err != nil {
		return nil, errors.Trace("SourceLogic.AddText", err)
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, errors.New("SourceLogic.AddText", i18n.ERROR_INVALIDARGUMENT, nil).Code(http.StatusBadRequest)
	}

	src, err := l.create(l.ctx, types.Source{
		NotebookID:       notebookID,
		Title:            req.Title,
		Type:             types.SOURCE_TYPE_TEXT,
		Content:          req.Content,
		ProcessingStatus: types.PROCESSING_STATUS_PROCESSING,
	})
	if err != nil {
		return nil, errors.Trace("SourceLogic.AddText", err)
	}

	batch := newIngestBatch(1)
	batch.Sources[0] = src
	ctx := detach(l.ctx)
	go safe.Run(func() {
		defer close(batch.done)
		l.triggerGeneration(ctx, src)

		if _, err := l.sendAdditionalSources(ctx, webhook.AdditionalSources{
			Type:       webhook.AdditionalTypeCopiedText,
			NotebookID: notebookID,
			Title:      req.Title,
			Content:    req.Content,
			SourceIDs:  []string{src.ID},
			Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		}); err != nil {
			batch.pipeline[0] = err
			l.setStatus(ctx, src.ID, types.PROCESSING_STATUS_FAILED)
		}
	})
	return batch, nil
}

func (l *SourceLogic) sendAdditionalSources(ctx context.Context, req webhook.AdditionalSources) (string, error) {
	wh := l.core.Srv().Webhook()
	if wh == nil || !wh.Configured(webhook.TargetAdditionalSources) {
		return "", errors.New("SourceLogic.sendAdditionalSources", i18n.ERROR_WEBHOOK_NOT_CONFIGURED, webhook.ErrNotConfigured)
	}
	resp, err := wh.ProcessAdditionalSources(ctx, req)
	if err != nil {
		return "", errors.New("SourceLogic.sendAdditionalSources.ProcessAdditionalSources", i18n.ERROR_WEBHOOK_FAILED, err).Code(http.StatusBadGateway)
	}
	return resp, nil
}

// authorizeSource 用户令牌调用时校验来源所属笔记本
func (l *SourceLogic) authorizeSource(trace, sourceID string) error {
	if l.GetUserInfo().User == "" {
		return nil
	}
	src, err := l.core.Store().SourceStore().Get(l.ctx, sourceID)
	if err != nil && err != sql.ErrNoRows {
		return functionError(trace, http.StatusInternalServerError, "Failed to load source", err)
	}
	if src == nil {
		return functionError(trace, http.StatusNotFound, "Source not found", nil)
	}
	return authorizeFunctionCaller(trace, l.UserInfo, src.NotebookID)
}

// ProcessAdditionalSources 转发网址或粘贴文本给处理服务
func (l *SourceLogic) ProcessAdditionalSources(req types.ProcessAdditionalSourcesRequest) (map[string]any, error) {
	fail := func(message string, err error) error {
		return functionError("SourceLogic.ProcessAdditionalSources", http.StatusInternalServerError, message, err).
			WithData(map[string]interface{}{FUNCTION_ERROR_KEY: message, "success": false})
	}

	wh := l.core.Srv().Webhook()
	if wh == nil || !wh.Configured(webhook.TargetAdditionalSources) {
		return nil, fail("ADDITIONAL_SOURCES_WEBHOOK_URL not configured", webhook.ErrNotConfigured)
	}

	if req.Type != types.SOURCE_TYPE_MULTIPLE_WEBSITES && req.Type != types.SOURCE_TYPE_COPIED_TEXT {
		return nil, fail(fmt.Sprintf("Unsupported type: %s", req.Type), nil)
	}
	if err := authorizeFunctionCaller("SourceLogic.ProcessAdditionalSources", l.UserInfo, req.NotebookID); err != nil {
		return nil, err
	}

	resp, err := wh.ProcessAdditionalSources(l.ctx, webhook.AdditionalSources{
		Type:       string(req.Type),
		NotebookID: req.NotebookID,
		URLs:       req.URLs,
		Title:      req.Title,
		Content:    req.Content,
		SourceIDs:  req.SourceIDs,
		Timestamp:  req.Timestamp,
	})
	if err != nil {
		return nil, fail(err.Error(), err)
	}

	return map[string]any{
		"success":         true,
		"message":         fmt.Sprintf("%s data sent to webhook successfully", req.Type),
		"webhookResponse": resp,
	}, nil
}

// ProcessDocument 生成文件的临时下载地址并交给解析服务，解析结果通过 process-document-callback 回写
func (l *SourceLogic) ProcessDocument(req types.ProcessDocumentRequest) (map[string]any, error) {
	if req.SourceID != "" && req.FilePath != "" {
		if err := l.authorizeSource("SourceLogic.ProcessDocument", req.SourceID); err != nil {
			return nil, err
		}
	}
	return l.processDocument(l.ctx, req)
}

func (l *SourceLogic) processDocument(ctx context.Context, req types.ProcessDocumentRequest) (map[string]any, error) {
	if req.SourceID == "" || req.FilePath == "" {
		return nil, functionError("SourceLogic.ProcessDocument", http.StatusBadRequest, "sourceId and filePath are required", nil)
	}

	wh := l.core.Srv().Webhook()
	if wh == nil || !wh.Configured(webhook.TargetDocumentProcessing) {
		return nil, functionError("SourceLogic.ProcessDocument", http.StatusInternalServerError, "Document processing webhook URL not configured", webhook.ErrNotConfigured)
	}

	fileURL, err := l.core.FileStorage().PresignGet(ctx, req.FilePath, documentURLTTL)
	if err != nil {
		return nil, functionError("SourceLogic.ProcessDocument.FileStorage.PresignGet", http.StatusInternalServerError, "Failed to create signed URL", err)
	}

	if err = wh.ProcessDocument(ctx, webhook.DocumentRequest{
		SourceID:    req.SourceID,
		FilePath:    req.FilePath,
		FileURL:     fileURL,
		SourceType:  string(req.SourceType),
		CallbackURL: l.core.Cfg().Site.CallbackURL("process-document-callback"),
	}); err != nil {
		return nil, functionError("SourceLogic.ProcessDocument.ProcessDocument", http.StatusInternalServerError, "Document processing failed", err)
	}

	return map[string]any{
		"success": true,
		"message": "Document processing initiated",
	}, nil
}

// ProcessDocumentCallback 解析服务回写来源内容与状态
func (l *SourceLogic) ProcessDocumentCallback(req types.ProcessDocumentCallbackRequest) (map[string]any, error) {
	if req.SourceID == "" {
		return nil, functionError("SourceLogic.ProcessDocumentCallback", http.StatusBadRequest, "source_id is required", nil)
	}
	if err := l.authorizeSource("SourceLogic.ProcessDocumentCallback", req.SourceID); err != nil {
		return nil, err
	}

	status := lo.If(req.Status == "", types.PROCESSING_STATUS_COMPLETED).Else(req.Status)
	if req.Error != "" {
		status = types.PROCESSING_STATUS_FAILED
	}
	data := types.SourceUpdate{
		ProcessingStatus: &status,
		Content:          req.Content,
		Summary:          req.Summary,
	}
	if req.Title != nil && *req.Title != "" {
		data.Title = req.Title
	} else if req.DisplayName != nil && *req.DisplayName != "" {
		data.Title = req.DisplayName
	}

	src, err := l.update(l.ctx, req.SourceID, data)
	if err != nil {
		return nil, functionError("SourceLogic.ProcessDocumentCallback.SourceStore.Update", http.StatusInternalServerError, "Failed to update source", err).
			WithData(map[string]interface{}{FUNCTION_ERROR_KEY: "Failed to update source", "details": err.Error()})
	}

	if status == types.PROCESSING_STATUS_COMPLETED {
		l.triggerGeneration(l.ctx, src)
	}

	return map[string]any{
		"success": true,
		"message": "Source updated successfully",
		"data":    src,
	}, nil
}

func (l *SourceLogic) UpdateTitle(id string, title string) (*types.Source, error) {
	if _, err := l.Get(id); err != nil {
		return nil, errors.Trace("SourceLogic.UpdateTitle", err)
	}
	if strings.TrimSpace(title) == "" {
		return nil, errors.New("SourceLogic.UpdateTitle", i18n.ERROR_INVALIDARGUMENT, nil).Code(http.StatusBadRequest)
	}
	src, err := l.update(l.ctx, id, types.SourceUpdate{Title: &title})
	if err != nil {
		return nil, errors.New("SourceLogic.UpdateTitle.SourceStore.Update", i18n.ERROR_INTERNAL, err)
	}
	return src, nil
}

// Delete 先删除存储中的文件，再删除记录
func (l *SourceLogic) Delete(id string) error {
	src, err := l.Get(id)
	if err != nil {
		return errors.Trace("SourceLogic.Delete", err)
	}

	if src.FilePath != "" {
		if err = l.core.FileStorage().Delete(l.ctx, src.FilePath); err != nil {
			slog.Warn("failed to delete source file",
				slog.String("source_id", id),
				slog.String("file_path", src.FilePath),
				slog.String("error", err.Error()))
		}
	}
	if err = l.core.Store().SourceStore().Delete(l.ctx, id); err != nil {
		return errors.New("SourceLogic.Delete.SourceStore.Delete", i18n.ERROR_INTERNAL, err)
	}
	l.core.Srv().Hub().PublishSource(l.ctx, realtime.EventDelete, src)
	return nil
}
