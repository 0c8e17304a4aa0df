package realtime

import (
	"context"
	"sync"
	"sync/atomic"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/insightslm/insightslm/pkg/safe"
)

type subscribers struct {
	mu       sync.RWMutex
	handlers map[uint64]Handler
}

// MemoryBroker delivers messages to subscribers of the same process.
// Handlers run synchronously on the publishing goroutine and must not block.
type MemoryBroker struct {
	topics cmap.ConcurrentMap[string, *subscribers]
	nextID atomic.Uint64
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		topics: cmap.New[*subscribers](),
	}
}

func (b *MemoryBroker) Publish(_ context.Context, topic string, msg Message) error {
	subs, ok := b.topics.Get(topic)
	if !ok {
		return nil
	}
	msg.Topic = topic

	subs.mu.RLock()
	handlers := make([]Handler, 0, len(subs.handlers))
	for _, h := range subs.handlers {
		handlers = append(handlers, h)
	}
	subs.mu.RUnlock()

	for _, h := range handlers {
		safe.RunWithLog(func() { h(msg) }, "realtime.MemoryBroker")
	}
	return nil
}

func (b *MemoryBroker) Subscribe(_ context.Context, topic string, h Handler) (func(), error) {
	id := b.nextID.Add(1)
	subs := b.topics.Upsert(topic, nil, func(exist bool, valueInMap, _ *subscribers) *subscribers {
		if exist {
			return valueInMap
		}
		return &subscribers{handlers: make(map[uint64]Handler)}
	})

	subs.mu.Lock()
	subs.handlers[id] = h
	subs.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			subs.mu.Lock()
			delete(subs.handlers, id)
			subs.mu.Unlock()
		})
	}, nil
}

// Subscribers reports how many handlers listen on topic.
func (b *MemoryBroker) Subscribers(topic string) int {
	subs, ok := b.topics.Get(topic)
	if !ok {
		return 0
	}
	subs.mu.RLock()
	defer subs.mu.RUnlock()
	return len(subs.handlers)
}

func (b *MemoryBroker) Close() error {
	b.topics.Clear()
	return nil
}
