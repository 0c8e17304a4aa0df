package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/insightslm/insightslm/app/core"
	v1 "github.com/insightslm/insightslm/app/logic/v1"
	"github.com/insightslm/insightslm/app/response"
	"github.com/insightslm/insightslm/pkg/realtime"
	"github.com/insightslm/insightslm/pkg/safe"
	"github.com/insightslm/insightslm/pkg/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	feedBufferSize = 64
	feedWriteWait  = 10 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = feedPongWait * 9 / 10
)

// Feed 推送笔记本的来源变更、笔记本状态以及查看器滚动事件
// 连接建立后先发送一次来源全量快照，之后只推送增量
func Feed(core *core.Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		notebookID := c.Param("notebookid")
		if _, err := v1.NewNotebookLogic(c, core).Get(notebookID); err != nil {
			response.APIError(c, err)
			return
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("Websocket Upgrade err", slog.String("error", err.Error()))
			return
		}
		defer ws.Close()

		tokenClaim, _ := v1.InjectTokenClaim(c)
		topics := []string{realtime.SourcesTopic(notebookID), realtime.NotebookTopic(notebookID)}
		if session := c.Query("session"); session != "" {
			topics = append(topics, realtime.ViewerTopic(v1.ViewerSessionKey(tokenClaim.User, session)))
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		outbox := make(chan realtime.Message, feedBufferSize)
		broker := core.Srv().Hub().Broker()
		for _, topic := range topics {
			unsubscribe, err := broker.Subscribe(ctx, topic, func(msg realtime.Message) {
				select {
				case outbox <- msg:
				default:
					slog.Warn("feed client too slow, message dropped",
						slog.String("user", tokenClaim.User),
						slog.String("topic", msg.Topic))
				}
			})
			if err != nil {
				slog.Error("failed to subscribe topic", slog.String("topic", topic), slog.String("error", err.Error()))
				return
			}
			defer unsubscribe()
		}

		// 订阅之后再读取快照，期间到达的变更缓存在 outbox 中，经 cache 合并后只推送快照之外的部分
		sources, err := v1.NewSourceLogic(c, core).List(notebookID)
		if err != nil {
			slog.Error("failed to list sources for feed", slog.String("notebook_id", notebookID), slog.String("error", err.Error()))
			return
		}
		cache := realtime.NewSourceCache(sources)

		snapshot, err := realtime.NewMessage("sources_snapshot", types.WS_EVENT_SOURCES_SNAPSHOT, cache.Snapshot())
		if err != nil {
			slog.Error("failed to build sources snapshot", slog.String("error", err.Error()))
			return
		}
		snapshot.Topic = realtime.SourcesTopic(notebookID)
		if err = writeFeedMessage(ws, snapshot); err != nil {
			return
		}

		ws.SetReadDeadline(time.Now().Add(feedPongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(feedPongWait))
		})
		go safe.Run(func() {
			defer cancel()
			for {
				// 客户端不会发送业务消息，读取仅用于感知断开
				if _, _, err := ws.ReadMessage(); err != nil {
					return
				}
			}
		})

		ticker := time.NewTicker(feedPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-outbox:
				if !cache.Forward(msg) {
					continue
				}
				if err := writeFeedMessage(ws, msg); err != nil {
					return
				}
			case <-ticker.C:
				ws.SetWriteDeadline(time.Now().Add(feedWriteWait))
				if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}
}

func writeFeedMessage(ws *websocket.Conn, msg realtime.Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal feed message", slog.String("error", err.Error()))
		return nil
	}
	ws.SetWriteDeadline(time.Now().Add(feedWriteWait))
	if err = ws.WriteMessage(websocket.TextMessage, raw); err != nil {
		slog.Debug("feed connection closed", slog.String("error", err.Error()))
	}
	return err
}
