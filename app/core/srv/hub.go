package srv

import (
	"context"
	"log/slog"

	"github.com/insightslm/insightslm/pkg/realtime"
	"github.com/insightslm/insightslm/pkg/types"
)

// Hub 业务变更推送，底层 broker 可以是进程内或 redis
type Hub struct {
	broker realtime.Broker
}

func NewHub(b realtime.Broker) *Hub {
	if b == nil {
		b = realtime.NewMemoryBroker()
	}
	return &Hub{broker: b}
}

func ApplyHub(b realtime.Broker) ApplyFunc {
	return func(s *Srv) {
		s.hub = NewHub(b)
	}
}

func (h *Hub) Broker() realtime.Broker {
	return h.broker
}

// PublishSource 推送失败只记录日志，不影响主流程
func (h *Hub) PublishSource(ctx context.Context, typ realtime.EventType, src *types.Source) {
	if err := realtime.PublishSourceChange(ctx, h.broker, typ, src); err != nil {
		slog.Error("failed to publish source change",
			slog.String("source_id", src.ID),
			slog.String("notebook_id", src.NotebookID),
			slog.String("error", err.Error()))
	}
}

func (h *Hub) PublishNotebook(ctx context.Context, nb *types.Notebook) {
	msg, err := realtime.NewMessage("on_notebook_changed", types.WS_EVENT_NOTEBOOK_CHANGED, nb)
	if err == nil {
		err = h.broker.Publish(ctx, realtime.NotebookTopic(nb.ID), msg)
	}
	if err != nil {
		slog.Error("failed to publish notebook change", slog.String("notebook_id", nb.ID), slog.String("error", err.Error()))
	}
}

func (h *Hub) PublishViewer(ctx context.Context, sessionID string, data any) error {
	msg, err := realtime.NewMessage("on_viewer_scroll", types.WS_EVENT_VIEWER_SCROLL, data)
	if err != nil {
		return err
	}
	return h.broker.Publish(ctx, realtime.ViewerTopic(sessionID), msg)
}
