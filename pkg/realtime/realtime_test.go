package realtime

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightslm/insightslm/pkg/types"
)

func ids(items []types.Source) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		out = append(out, s.ID)
	}
	return out
}

func TestSourceCacheOperations(t *testing.T) {
	c := NewSourceCache([]types.Source{{ID: "b"}, {ID: "a"}})

	assert.True(t, c.Insert(types.Source{ID: "c"}))
	assert.False(t, c.Insert(types.Source{ID: "a", Title: "dup"}), "insert dedups by id")
	assert.Equal(t, []string{"c", "b", "a"}, ids(c.Snapshot()))

	assert.True(t, c.Update(types.Source{ID: "b", Title: "renamed"}))
	assert.False(t, c.Update(types.Source{ID: "zzz"}))
	got, ok := c.Get("b")
	require.True(t, ok)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, []string{"c", "b", "a"}, ids(c.Snapshot()))

	assert.True(t, c.Delete("c"))
	assert.False(t, c.Delete("c"))
	assert.Equal(t, []string{"b", "a"}, ids(c.Snapshot()))
	assert.Equal(t, 2, c.Len())
}

func TestSourceCacheSnapshotIsCopy(t *testing.T) {
	c := NewSourceCache(nil)
	c.Insert(types.Source{ID: "a"})
	snap := c.Snapshot()
	snap[0].Title = "mutated"

	got, _ := c.Get("a")
	assert.Empty(t, got.Title)
}

func TestSourceCacheApplyEvents(t *testing.T) {
	c := NewSourceCache(nil)
	src := &types.Source{ID: "s1", NotebookID: "nb", Title: "Paper", ProcessingStatus: types.PROCESSING_STATUS_PROCESSING}

	insert, err := NewEvent(types.TABLE_SOURCES.Name(), EventInsert, src, nil)
	require.NoError(t, err)
	changed, err := c.Apply(insert)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = c.Apply(insert)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 1, c.Len())

	src.ProcessingStatus = types.PROCESSING_STATUS_COMPLETED
	update, _ := NewEvent(types.TABLE_SOURCES.Name(), EventUpdate, src, nil)
	_, err = c.Apply(update)
	require.NoError(t, err)
	got, _ := c.Get("s1")
	assert.Equal(t, types.PROCESSING_STATUS_COMPLETED, got.ProcessingStatus)

	del, _ := NewEvent(types.TABLE_SOURCES.Name(), EventDelete, nil, map[string]string{"id": "s1"})
	changed, err = c.Apply(del)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Zero(t, c.Len())

	_, err = c.Apply(Event{Type: "TRUNCATE"})
	assert.Error(t, err)
}

func TestSourceCacheForward(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBroker()

	var pending []Message
	unsubscribe, err := b.Subscribe(ctx, SourcesTopic("nb"), func(msg Message) {
		pending = append(pending, msg)
	})
	require.NoError(t, err)
	defer unsubscribe()

	// s1 is inserted between subscribing and reading the snapshot
	s1 := &types.Source{ID: "s1", NotebookID: "nb", Title: "Paper"}
	require.NoError(t, PublishSourceChange(ctx, b, EventInsert, s1))
	cache := NewSourceCache([]types.Source{*s1})
	assert.Equal(t, []string{"s1"}, ids(cache.Snapshot()))

	s2 := &types.Source{ID: "s2", NotebookID: "nb"}
	require.NoError(t, PublishSourceChange(ctx, b, EventInsert, s2))
	require.NoError(t, PublishSourceChange(ctx, b, EventInsert, s2))
	s1.Title = "Renamed"
	require.NoError(t, PublishSourceChange(ctx, b, EventUpdate, s1))
	require.NoError(t, PublishSourceChange(ctx, b, EventDelete, s2))
	require.NoError(t, PublishSourceChange(ctx, b, EventDelete, s2))

	var forwarded []bool
	for _, msg := range pending {
		forwarded = append(forwarded, cache.Forward(msg))
	}
	assert.Equal(t, []bool{false, true, false, true, true, false}, forwarded)
	assert.Equal(t, []string{"s1"}, ids(cache.Snapshot()))
	got, _ := cache.Get("s1")
	assert.Equal(t, "Renamed", got.Title)

	notebook, err := NewMessage("on_notebook_changed", types.WS_EVENT_NOTEBOOK_CHANGED, map[string]string{"id": "nb"})
	require.NoError(t, err)
	assert.True(t, cache.Forward(notebook))
	assert.False(t, cache.Forward(Message{Type: types.WS_EVENT_SOURCE_CHANGED, Data: []byte("{")}))

	assert.NotNil(t, NewSourceCache(nil).Snapshot())
}

func TestMemoryBrokerSourceFeed(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBroker()
	cache := NewSourceCache(nil)

	var received []Message
	unsubscribe, err := b.Subscribe(ctx, SourcesTopic("nb"), func(msg Message) {
		received = append(received, msg)
		ev, err := DecodeEvent(msg)
		require.NoError(t, err)
		_, err = cache.Apply(ev)
		require.NoError(t, err)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, b.Subscribers(SourcesTopic("nb")))

	src := &types.Source{ID: "s1", NotebookID: "nb"}
	require.NoError(t, PublishSourceChange(ctx, b, EventInsert, src))
	require.NoError(t, PublishSourceChange(ctx, b, EventInsert, &types.Source{ID: "other", NotebookID: "nb2"}))

	require.Len(t, received, 1)
	assert.Equal(t, SourcesTopic("nb"), received[0].Topic)
	assert.Equal(t, types.WS_EVENT_SOURCE_CHANGED, received[0].Type)
	assert.Equal(t, []string{"s1"}, ids(cache.Snapshot()))

	require.NoError(t, PublishSourceChange(ctx, b, EventDelete, src))
	assert.Zero(t, cache.Len())

	unsubscribe()
	unsubscribe()
	assert.Zero(t, b.Subscribers(SourcesTopic("nb")))
	require.NoError(t, PublishSourceChange(ctx, b, EventInsert, src))
	assert.Len(t, received, 2)
}

func TestMemoryBrokerHandlerPanicIsolated(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBroker()

	_, _ = b.Subscribe(ctx, "t", func(Message) { panic("bad handler") })
	var got int
	_, _ = b.Subscribe(ctx, "t", func(Message) { got++ })

	msg, err := NewMessage("x", types.WS_EVENT_OTHERS, map[string]int{"n": 1})
	require.NoError(t, err)
	assert.NoError(t, b.Publish(ctx, "t", msg))
	assert.Equal(t, 1, got)
}

func TestRedisBroker(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })

	b := NewRedisBroker(client, "insights_test:")
	got := make(chan Message, 1)
	unsubscribe, err := b.Subscribe(ctx, ViewerTopic("sess"), func(msg Message) { got <- msg })
	require.NoError(t, err)
	defer unsubscribe()

	msg, err := NewMessage("scroll", types.WS_EVENT_VIEWER_SCROLL, map[string]int{"line": 5})
	require.NoError(t, err)
	require.NoError(t, b.Publish(ctx, ViewerTopic("sess"), msg))

	select {
	case m := <-got:
		assert.Equal(t, ViewerTopic("sess"), m.Topic)
		assert.JSONEq(t, `{"line":5}`, string(m.Data))
	case <-time.After(3 * time.Second):
		t.Fatal("message not delivered")
	}
}
