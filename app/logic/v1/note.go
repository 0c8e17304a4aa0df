package v1

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/insightslm/insightslm/app/core"
	"github.com/insightslm/insightslm/pkg/content"
	"github.com/insightslm/insightslm/pkg/errors"
	"github.com/insightslm/insightslm/pkg/i18n"
	"github.com/insightslm/insightslm/pkg/types"
	"github.com/insightslm/insightslm/pkg/utils"
)

type NoteLogic struct {
	ctx  context.Context
	core *core.Core
	UserInfo
}

func NewNoteLogic(ctx context.Context, core *core.Core) *NoteLogic {
	return &NoteLogic{
		ctx:      ctx,
		core:     core,
		UserInfo: SetupUserInfo(ctx, core),
	}
}

func (l *NoteLogic) List(notebookID string) ([]types.NoteWithPreview, error) {
	if _, err := l.OwnedNotebook(notebookID); err != nil {
		return nil, errors.Trace("NoteLogic.List", err)
	}
	list, err := l.core.Store().NoteStore().ListByNotebook(l.ctx, notebookID)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("NoteLogic.List.NoteStore.ListByNotebook", i18n.ERROR_INTERNAL, err)
	}
	return lo.Map(list, func(item types.Note, _ int) types.NoteWithPreview {
		return types.NoteWithPreview{Note: item, Preview: content.Preview(&item)}
	}), nil
}

func (l *NoteLogic) Get(id string) (*types.Note, error) {
	note, err := l.core.Store().NoteStore().Get(l.ctx, id)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("NoteLogic.Get.NoteStore.Get", i18n.ERROR_INTERNAL, err)
	}
	if note == nil {
		return nil, errors.New("NoteLogic.Get.NoteStore.Get", i18n.ERROR_NOTE_NOT_FOUND, nil).Code(http.StatusNotFound)
	}
	if _, err = l.OwnedNotebook(note.NotebookID); err != nil {
		return nil, errors.Trace("NoteLogic.Get", err)
	}
	return note, nil
}

func (l *NoteLogic) create(note types.Note) (*types.Note, error) {
	now := time.Now().Unix()
	note.ID = utils.GenUniqIDStr()
	note.CreatedAt = now
	note.UpdatedAt = now
	if err := l.core.Store().NoteStore().Create(l.ctx, note); err != nil {
		return nil, errors.New("NoteLogic.create.NoteStore.Create", i18n.ERROR_INTERNAL, err)
	}
	return &note, nil
}

// Create 用户手写笔记，未填写标题时取内容第一行
func (l *NoteLogic) Create(notebookID string, req types.CreateNoteRequest) (*types.Note, error) {
	if _, err := l.OwnedNotebook(notebookID); err != nil {
		return nil, errors.Trace("NoteLogic.Create", err)
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, errors.New("NoteLogic.Create", i18n.ERROR_INVALIDARGUMENT, nil).Code(http.StatusBadRequest)
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = content.NoteTitle(content.Plain(req.Content))
	}
	return l.create(types.Note{
		NotebookID: notebookID,
		Title:      title,
		Content:    req.Content,
		SourceType: types.NOTE_SOURCE_USER,
	})
}

// SaveFromChat 保存对话消息；带 segments 的回答存为只读的 ai_response，其余按用户笔记保存
func (l *NoteLogic) SaveFromChat(notebookID string, req types.SaveChatNoteRequest) (*types.Note, error) {
	if _, err := l.OwnedNotebook(notebookID); err != nil {
		return nil, errors.Trace("NoteLogic.SaveFromChat", err)
	}

	parsed := content.Parse(req.Content)
	note := types.Note{
		NotebookID: notebookID,
		Title:      content.NoteTitle(parsed),
	}
	switch v := parsed.(type) {
	case content.Structured:
		raw, err := content.Encode(v)
		if err != nil {
			return nil, errors.New("NoteLogic.SaveFromChat.Encode", i18n.ERROR_INVALIDARGUMENT, err).Code(http.StatusBadRequest)
		}
		note.Content = raw
		note.SourceType = types.NOTE_SOURCE_AI_RESPONSE
		note.ExtractedText = content.ExtractedText(v)
	case content.Plain:
		if strings.TrimSpace(string(v)) == "" {
			return nil, errors.New("NoteLogic.SaveFromChat", i18n.ERROR_INVALIDARGUMENT, nil).Code(http.StatusBadRequest)
		}
		note.Content = string(v)
		note.SourceType = types.NOTE_SOURCE_USER
	}
	return l.create(note)
}

// Update 仅允许修改用户笔记
func (l *NoteLogic) Update(id string, req types.UpdateNoteRequest) (*types.Note, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, errors.New("NoteLogic.Update", i18n.ERROR_INVALIDARGUMENT, nil).Code(http.StatusBadRequest)
	}
	note, err := l.Get(id)
	if err != nil {
		return nil, errors.Trace("NoteLogic.Update", err)
	}
	if note.SourceType == types.NOTE_SOURCE_AI_RESPONSE {
		return nil, errors.New("NoteLogic.Update", i18n.ERROR_NOTE_READONLY, nil).Code(http.StatusForbidden)
	}

	title := lo.If(strings.TrimSpace(req.Title) == "", note.Title).Else(req.Title)
	if err = l.core.Store().NoteStore().Update(l.ctx, id, title, req.Content); err != nil {
		return nil, errors.New("NoteLogic.Update.NoteStore.Update", i18n.ERROR_INTERNAL, err)
	}
	note.Title = title
	note.Content = req.Content
	note.UpdatedAt = time.Now().Unix()
	return note, nil
}

func (l *NoteLogic) Delete(id string) error {
	if _, err := l.Get(id); err != nil {
		return errors.Trace("NoteLogic.Delete", err)
	}
	if err := l.core.Store().NoteStore().Delete(l.ctx, id); err != nil {
		return errors.New("NoteLogic.Delete.NoteStore.Delete", i18n.ERROR_INTERNAL, err)
	}
	return nil
}

// Render 按指定模式排版笔记内容，默认为块模式
func (l *NoteLogic) Render(id string, mode content.Mode) (*types.Note, content.Document, error) {
	note, err := l.Get(id)
	if err != nil {
		return nil, content.Document{}, errors.Trace("NoteLogic.Render", err)
	}
	return note, content.Render(content.NoteContent(note), mode), nil
}

// GenerateTitle 为笔记内容生成不超过 5 个词的标题
func (l *NoteLogic) GenerateTitle(req types.GenerateNoteTitleRequest) (string, error) {
	if req.Content == "" {
		return "", functionError("NoteLogic.GenerateTitle", http.StatusBadRequest, "Content is required", nil)
	}

	titles := l.core.Srv().TitleGenerator()
	if titles == nil {
		return "", functionError("NoteLogic.GenerateTitle", http.StatusInternalServerError, "OpenAI API key not configured", nil)
	}

	title, err := titles.GenerateTitle(l.ctx, content.TitleSourceText(req.Content))
	if err != nil {
		return "", functionError("NoteLogic.GenerateTitle.GenerateTitle", http.StatusInternalServerError, err.Error(), err)
	}
	return strings.TrimSpace(title), nil
}
