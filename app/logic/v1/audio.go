package v1

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/insightslm/insightslm/app/core"
	"github.com/insightslm/insightslm/pkg/errors"
	"github.com/insightslm/insightslm/pkg/i18n"
	"github.com/insightslm/insightslm/pkg/playback"
	"github.com/insightslm/insightslm/pkg/safe"
	"github.com/insightslm/insightslm/pkg/types"
	"github.com/insightslm/insightslm/pkg/webhook"
)

// ISO8601 与前端 Date.toISOString 的输出一致
const ISO8601 = "2006-01-02T15:04:05.000Z07:00"

const refreshBatchSize = 100

type AudioLogic struct {
	ctx  context.Context
	core *core.Core
	UserInfo
}

func NewAudioLogic(ctx context.Context, core *core.Core) *AudioLogic {
	return &AudioLogic{
		ctx:      ctx,
		core:     core,
		UserInfo: SetupUserInfo(ctx, core),
	}
}

func (l *AudioLogic) updateAudio(ctx context.Context, id string, data types.NotebookAudioUpdate) error {
	if err := l.core.Store().NotebookStore().UpdateAudio(ctx, id, data); err != nil {
		return err
	}
	if nb, err := l.core.Store().NotebookStore().Get(ctx, id); err == nil {
		l.core.Srv().Hub().PublishNotebook(ctx, nb)
	}
	return nil
}

func (l *AudioLogic) setStatus(ctx context.Context, id string, status types.AudioStatus) error {
	return l.updateAudio(ctx, id, types.NotebookAudioUpdate{Status: &status})
}

// Generate 发起音频概览生成，结果通过 audio-generation-callback 回写
func (l *AudioLogic) Generate(req types.GenerateAudioOverviewRequest) (map[string]any, error) {
	if req.NotebookID == "" {
		return nil, functionError("AudioLogic.Generate", http.StatusBadRequest, "Notebook ID is required", nil)
	}
	if err := authorizeFunctionCaller("AudioLogic.Generate", l.UserInfo, req.NotebookID); err != nil {
		return nil, err
	}

	wh := l.core.Srv().Webhook()
	if wh == nil || !wh.Configured(webhook.TargetAudioGeneration) {
		return nil, functionError("AudioLogic.Generate", http.StatusInternalServerError, "Audio generation service not configured", webhook.ErrNotConfigured)
	}

	sem := l.core.Semaphores().AudioGeneration()
	if !sem.TryAcquire(l.ctx, req.NotebookID) {
		return nil, functionError("AudioLogic.Generate", http.StatusTooManyRequests, "Too many audio generations in progress", nil)
	}

	if err := l.setStatus(l.ctx, req.NotebookID, types.AUDIO_STATUS_GENERATING); err != nil {
		sem.Release(l.ctx, req.NotebookID)
		return nil, functionError("AudioLogic.Generate.NotebookStore.UpdateAudio", http.StatusInternalServerError, "Failed to update notebook status", err)
	}

	ctx := detach(l.ctx)
	notebookID := req.NotebookID
	go safe.Run(func() {
		err := wh.GenerateAudio(ctx, notebookID, l.core.Cfg().Site.CallbackURL("audio-generation-callback"))
		if err == nil {
			return
		}
		slog.Error("audio generation request failed", slog.String("notebook_id", notebookID), slog.String("error", err.Error()))
		sem.Release(ctx, notebookID)
		if err = l.setStatus(ctx, notebookID, types.AUDIO_STATUS_FAILED); err != nil {
			slog.Error("failed to mark audio generation failed", slog.String("notebook_id", notebookID), slog.String("error", err.Error()))
		}
	})

	return map[string]any{
		"success": true,
		"message": "Audio generation started",
		"status":  string(types.AUDIO_STATUS_GENERATING),
	}, nil
}

// Callback 生成服务回写结果，成功时链接有效期为 24 小时
func (l *AudioLogic) Callback(req types.AudioGenerationCallbackRequest) (map[string]any, error) {
	if req.NotebookID == "" {
		return nil, functionError("AudioLogic.Callback", http.StatusBadRequest, "Notebook ID is required", nil)
	}
	if err := authorizeFunctionCaller("AudioLogic.Callback", l.UserInfo, req.NotebookID); err != nil {
		return nil, err
	}
	l.core.Semaphores().AudioGeneration().Release(l.ctx, req.NotebookID)

	var data types.NotebookAudioUpdate
	if req.Status == types.AUDIO_CALLBACK_STATUS_SUCCESS && req.AudioURL != "" {
		expiresAt := time.Now().Add(l.core.Cfg().Audio.URLTTL()).Unix()
		status := types.AUDIO_STATUS_COMPLETED
		data = types.NotebookAudioUpdate{URL: &req.AudioURL, ExpiresAt: &expiresAt, Status: &status}
	} else {
		status := types.AUDIO_STATUS_FAILED
		data = types.NotebookAudioUpdate{Status: &status}
		slog.Warn("audio generation failed",
			slog.String("notebook_id", req.NotebookID),
			slog.String("status", req.Status),
			slog.String("error", req.Error))
	}

	if err := l.updateAudio(l.ctx, req.NotebookID, data); err != nil {
		return nil, functionError("AudioLogic.Callback.NotebookStore.UpdateAudio", http.StatusInternalServerError, err.Error(), err)
	}
	return map[string]any{"success": true}, nil
}

// AudioObjectKey 从已签名的链接中取出对象路径，即 "audio" 段及其之后的部分
func AudioObjectKey(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, p := range parts {
		if p == "audio" && i < len(parts)-1 {
			return strings.Join(parts[i:], "/"), true
		}
	}
	return "", false
}

// RefreshURL 重新签名音频链接
func (l *AudioLogic) RefreshURL(req types.RefreshAudioURLRequest) (*types.RefreshAudioURLResponse, error) {
	if req.NotebookID == "" {
		return nil, functionError("AudioLogic.RefreshURL", http.StatusBadRequest, "Notebook ID is required", nil)
	}
	if err := authorizeFunctionCaller("AudioLogic.RefreshURL", l.UserInfo, req.NotebookID); err != nil {
		return nil, err
	}
	return l.refreshURL(l.ctx, req.NotebookID)
}

func (l *AudioLogic) refreshURL(ctx context.Context, notebookID string) (*types.RefreshAudioURLResponse, error) {
	fail := func(message string, err error) error {
		return functionError("AudioLogic.refreshURL", http.StatusBadRequest, message, err)
	}

	nb, err := l.core.Store().NotebookStore().Get(ctx, notebookID)
	if err != nil && err != sql.ErrNoRows {
		return nil, fail(err.Error(), err)
	}
	if nb == nil || nb.AudioOverviewURL == "" {
		return nil, fail("No audio overview URL found", nil)
	}

	key, ok := AudioObjectKey(nb.AudioOverviewURL)
	if !ok {
		return nil, fail("Invalid audio URL format", nil)
	}

	ttl := l.core.Cfg().Audio.URLTTL()
	signed, err := l.core.FileStorage().PresignGet(ctx, key, ttl)
	if err != nil {
		return nil, fail(err.Error(), err)
	}
	expiresAt := time.Now().Add(ttl)
	unix := expiresAt.Unix()
	if err = l.updateAudio(ctx, notebookID, types.NotebookAudioUpdate{URL: &signed, ExpiresAt: &unix}); err != nil {
		return nil, fail(err.Error(), err)
	}

	return &types.RefreshAudioURLResponse{
		Success:   true,
		AudioURL:  signed,
		ExpiresAt: expiresAt.UTC().Format(ISO8601),
	}, nil
}

// OpenAudio 打开音频流；链接过期时重新签名一次，网络抖动时有限次重试
func (l *AudioLogic) OpenAudio(notebookID string) (io.ReadCloser, playback.Track, error) {
	nb, err := l.OwnedNotebook(notebookID)
	if err != nil {
		return nil, playback.Track{}, errors.Trace("AudioLogic.OpenAudio", err)
	}
	if nb.AudioOverviewGenerationStatus != types.AUDIO_STATUS_COMPLETED || nb.AudioOverviewURL == "" {
		return nil, playback.Track{}, errors.New("AudioLogic.OpenAudio", i18n.ERROR_AUDIO_NOT_READY, nil).Code(http.StatusNotFound)
	}

	track := playback.Track{URL: nb.AudioOverviewURL}
	if nb.AudioURLExpiresAt > 0 {
		track.ExpiresAt = time.Unix(nb.AudioURLExpiresAt, 0)
	}

	metrics := l.core.Metrics()
	recoverer := playback.NewRecoverer(l.core.Srv().AudioLoader(), playback.CredentialRefresh{
		Max: 1,
		Refresh: func(ctx context.Context) (string, time.Time, error) {
			resp, err := l.refreshURL(ctx, notebookID)
			if err != nil {
				return "", time.Time{}, err
			}
			expiresAt, _ := time.Parse(ISO8601, resp.ExpiresAt)
			return resp.AudioURL, expiresAt, nil
		},
	}, playback.WithObserver(metrics.PlaybackRecoveryInc))

	body, track, err := recoverer.Open(l.ctx, track)
	if err != nil {
		return nil, track, errors.New("AudioLogic.OpenAudio.Open", i18n.ERROR_AUDIO_UNAVAILABLE, err).Code(http.StatusBadGateway)
	}
	return body, track, nil
}

// DeleteAudio 删除存储中的音频并清空笔记本上的音频字段
func (l *AudioLogic) DeleteAudio(notebookID string) error {
	if _, err := l.OwnedNotebook(notebookID); err != nil {
		return errors.Trace("AudioLogic.DeleteAudio", err)
	}

	if err := l.core.FileStorage().DeletePrefix(l.ctx, types.AudioObjectPrefix(notebookID)); err != nil {
		return errors.New("AudioLogic.DeleteAudio.FileStorage.DeletePrefix", i18n.ERROR_STORAGE_UNAVAILABLE, err)
	}

	var (
		empty   string
		expires int64
		status  = types.AUDIO_STATUS_NONE
	)
	if err := l.updateAudio(l.ctx, notebookID, types.NotebookAudioUpdate{URL: &empty, ExpiresAt: &expires, Status: &status}); err != nil {
		return errors.New("AudioLogic.DeleteAudio.NotebookStore.UpdateAudio", i18n.ERROR_INTERNAL, err)
	}
	return nil
}

// RefreshExpiring 为即将过期的音频链接重新签名，返回成功刷新的数量
func (l *AudioLogic) RefreshExpiring() (int, error) {
	before := time.Now().Add(l.core.Cfg().Audio.RefreshWindow()).Unix()
	list, err := l.core.Store().NotebookStore().ListAudioExpiringBefore(l.ctx, before, refreshBatchSize)
	if err != nil && err != sql.ErrNoRows {
		return 0, errors.New("AudioLogic.RefreshExpiring.NotebookStore.ListAudioExpiringBefore", i18n.ERROR_INTERNAL, err)
	}

	var refreshed int
	for _, nb := range list {
		if _, err := l.refreshURL(l.ctx, nb.ID); err != nil {
			slog.Warn("failed to refresh audio url", slog.String("notebook_id", nb.ID), slog.String("error", err.Error()))
			continue
		}
		refreshed++
	}
	return refreshed, nil
}
