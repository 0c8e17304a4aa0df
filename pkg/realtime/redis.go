package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/insightslm/insightslm/pkg/safe"
)

// RedisBroker fans messages out across service instances with redis pub/sub.
type RedisBroker struct {
	client *redis.Client
	prefix string
}

func NewRedisBroker(client *redis.Client, prefix string) *RedisBroker {
	return &RedisBroker{client: client, prefix: prefix}
}

func (b *RedisBroker) channel(topic string) string {
	return b.prefix + "realtime:" + topic
}

func (b *RedisBroker) Publish(ctx context.Context, topic string, msg Message) error {
	msg.Topic = topic
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel(topic), raw).Err()
}

// Subscribe waits for redis to confirm the subscription before returning,
// so a message published right after Subscribe is not missed.
func (b *RedisBroker) Subscribe(ctx context.Context, topic string, h Handler) (func(), error) {
	pubsub := b.client.Subscribe(ctx, b.channel(topic))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for m := range pubsub.Channel() {
			var msg Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				slog.Warn("drop undecodable realtime message", slog.String("topic", topic), slog.Any("error", err))
				continue
			}
			safe.RunWithLog(func() { h(msg) }, "realtime.RedisBroker")
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := pubsub.Close(); err != nil {
				slog.Warn("failed to close realtime subscription", slog.String("topic", topic), slog.Any("error", err))
			}
			<-done
		})
	}, nil
}

func (b *RedisBroker) Close() error {
	return nil
}
