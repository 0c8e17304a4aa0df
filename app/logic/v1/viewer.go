package v1

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/insightslm/insightslm/app/core"
	"github.com/insightslm/insightslm/pkg/content"
	"github.com/insightslm/insightslm/pkg/errors"
	"github.com/insightslm/insightslm/pkg/i18n"
	"github.com/insightslm/insightslm/pkg/viewer"
)

type ViewerLogic struct {
	ctx  context.Context
	core *core.Core
	UserInfo
}

func NewViewerLogic(ctx context.Context, core *core.Core) *ViewerLogic {
	return &ViewerLogic{
		ctx:      ctx,
		core:     core,
		UserInfo: SetupUserInfo(ctx, core),
	}
}

// ViewerSessionKey 会话按用户隔离，同时作为滚动事件的推送 topic
func ViewerSessionKey(userID, sessionID string) string {
	return userID + ":" + sessionID
}

func (l *ViewerLogic) key(sessionID string) string {
	return ViewerSessionKey(l.GetUserInfo().User, sessionID)
}

func (l *ViewerLogic) session(sessionID string) *viewer.Viewer {
	key := l.key(sessionID)
	hub := l.core.Srv().Hub()
	v := l.core.Srv().Viewers().GetOrCreate(key, func() *viewer.Viewer {
		return viewer.New(func(req viewer.ScrollRequest) {
			if err := hub.PublishViewer(context.Background(), key, req); err != nil {
				slog.Error("failed to publish viewer scroll", slog.String("session", key), slog.String("error", err.Error()))
			}
		})
	})
	l.core.Metrics().SetViewerSessions(l.core.Srv().Viewers().Count())
	return v
}

// Select 点击引用后打开对应来源；行号无效的引用只打开来源不做高亮
func (l *ViewerLogic) Select(sessionID string, citation content.Citation) (viewer.Snapshot, error) {
	if sessionID == "" || citation.SourceID == "" {
		return viewer.Snapshot{}, errors.New("ViewerLogic.Select", i18n.ERROR_INVALIDARGUMENT, nil).Code(http.StatusBadRequest)
	}
	src, err := NewSourceLogic(l.ctx, l.core).Get(citation.SourceID)
	if err != nil {
		return viewer.Snapshot{}, errors.Trace("ViewerLogic.Select", err)
	}
	return l.session(sessionID).Select(viewer.Classify(citation), src), nil
}

// OpenSource 从来源列表打开来源
func (l *ViewerLogic) OpenSource(sessionID, sourceID string) (viewer.Snapshot, error) {
	if sessionID == "" || sourceID == "" {
		return viewer.Snapshot{}, errors.New("ViewerLogic.OpenSource", i18n.ERROR_INVALIDARGUMENT, nil).Code(http.StatusBadRequest)
	}
	src, err := NewSourceLogic(l.ctx, l.core).Get(sourceID)
	if err != nil {
		return viewer.Snapshot{}, errors.Trace("ViewerLogic.OpenSource", err)
	}
	return l.session(sessionID).Select(viewer.SourceOverview{
		SourceID: src.ID,
		Title:    src.Title,
		Type:     src.Type,
	}, src), nil
}

func (l *ViewerLogic) ToggleGuide(sessionID string) (viewer.Snapshot, error) {
	v, ok := l.core.Srv().Viewers().Get(l.key(sessionID))
	if !ok {
		return viewer.Snapshot{}, errors.New("ViewerLogic.ToggleGuide", i18n.ERROR_VIEWER_SESSION_EXPIRED, nil).Code(http.StatusNotFound)
	}
	return v.ToggleGuide(), nil
}

// Close 回到来源列表并结束会话，关闭不存在的会话不报错
func (l *ViewerLogic) Close(sessionID string) viewer.Snapshot {
	viewers := l.core.Srv().Viewers()
	key := l.key(sessionID)
	var snap viewer.Snapshot
	if v, ok := viewers.Get(key); ok {
		snap = v.Close()
	} else {
		snap = viewer.Snapshot{StateName: viewer.StateIdle.String()}
	}
	viewers.Delete(key)
	l.core.Metrics().SetViewerSessions(viewers.Count())
	return snap
}
