// Package realtime carries row change events between the stores and the
// clients watching a notebook.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/insightslm/insightslm/pkg/types"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// Event describes one row change. Record is the row after the change, Old
// the row before it (only the id is guaranteed for deletes).
type Event struct {
	Table  string          `json:"table"`
	Type   EventType       `json:"type"`
	Record json.RawMessage `json:"record,omitempty"`
	Old    json.RawMessage `json:"old,omitempty"`
}

// Message is what travels through a Broker.
type Message struct {
	Topic   string            `json:"topic"`
	Subject string            `json:"subject"`
	Version string            `json:"version"`
	Type    types.WsEventType `json:"type"`
	Data    json.RawMessage   `json:"data"`
}

type Handler func(Message)

// Broker fans messages out to subscribers of a topic.
type Broker interface {
	Publish(ctx context.Context, topic string, msg Message) error
	Subscribe(ctx context.Context, topic string, h Handler) (unsubscribe func(), err error)
	Close() error
}

func SourcesTopic(notebookID string) string {
	return fmt.Sprintf("/notebook/%s/sources", notebookID)
}

func NotebookTopic(notebookID string) string {
	return fmt.Sprintf("/notebook/%s", notebookID)
}

func ViewerTopic(sessionID string) string {
	return fmt.Sprintf("/viewer/%s", sessionID)
}

// NewMessage wraps data into a v1 message.
func NewMessage(subject string, typ types.WsEventType, data any) (Message, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Subject: subject,
		Version: "v1",
		Type:    typ,
		Data:    raw,
	}, nil
}

// NewEvent builds a change event for table. record or old may be nil.
func NewEvent(table string, typ EventType, record, old any) (Event, error) {
	ev := Event{Table: table, Type: typ}
	var err error
	if record != nil {
		if ev.Record, err = json.Marshal(record); err != nil {
			return ev, err
		}
	}
	if old != nil {
		if ev.Old, err = json.Marshal(old); err != nil {
			return ev, err
		}
	}
	return ev, nil
}

// PublishSourceChange announces a change of a source row to the notebook's
// source feed.
func PublishSourceChange(ctx context.Context, b Broker, typ EventType, src *types.Source) error {
	if b == nil || src == nil {
		return nil
	}

	var ev Event
	var err error
	if typ == EventDelete {
		ev, err = NewEvent(types.TABLE_SOURCES.Name(), typ, nil, map[string]string{"id": src.ID})
	} else {
		ev, err = NewEvent(types.TABLE_SOURCES.Name(), typ, src, nil)
	}
	if err != nil {
		return err
	}

	msg, err := NewMessage("source_changed", types.WS_EVENT_SOURCE_CHANGED, ev)
	if err != nil {
		return err
	}
	return b.Publish(ctx, SourcesTopic(src.NotebookID), msg)
}

// DecodeEvent reads the change event carried by msg.
func DecodeEvent(msg Message) (Event, error) {
	var ev Event
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		return ev, fmt.Errorf("decode change event: %w", err)
	}
	return ev, nil
}
