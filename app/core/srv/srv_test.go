package srv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightslm/insightslm/pkg/realtime"
	"github.com/insightslm/insightslm/pkg/types"
	"github.com/insightslm/insightslm/pkg/viewer"
)

func TestSetupSrvsDefaults(t *testing.T) {
	s := SetupSrvs(ApplyOpenAI(OpenAIConfig{}))

	assert.Nil(t, s.TitleGenerator())
	assert.Nil(t, s.Webhook())
	require.NotNil(t, s.Hub())
	assert.IsType(t, &realtime.MemoryBroker{}, s.Hub().Broker())
	assert.NotNil(t, s.Viewers())
	assert.NotNil(t, s.AudioLoader())
}

func TestHubPublishSource(t *testing.T) {
	s := SetupSrvs()
	ctx := context.Background()

	got := make(chan realtime.Message, 1)
	unsubscribe, err := s.Hub().Broker().Subscribe(ctx, realtime.SourcesTopic("nb-1"), func(msg realtime.Message) {
		got <- msg
	})
	require.NoError(t, err)
	defer unsubscribe()

	s.Hub().PublishSource(ctx, realtime.EventInsert, &types.Source{ID: "src-1", NotebookID: "nb-1"})

	select {
	case msg := <-got:
		ev, err := realtime.DecodeEvent(msg)
		require.NoError(t, err)
		assert.Equal(t, realtime.EventInsert, ev.Type)
		assert.Equal(t, types.TABLE_SOURCES.Name(), ev.Table)
	case <-time.After(time.Second):
		t.Fatal("source change not delivered")
	}
}

func TestViewerSessions(t *testing.T) {
	sessions := NewViewerSessions(time.Minute)

	created := 0
	create := func() *viewer.Viewer {
		created++
		return viewer.New(nil)
	}

	v1 := sessions.GetOrCreate("u1:s1", create)
	v2 := sessions.GetOrCreate("u1:s1", create)
	assert.Same(t, v1, v2)
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, sessions.Count())

	sessions.Delete("u1:s1")
	_, ok := sessions.Get("u1:s1")
	assert.False(t, ok)
	assert.Equal(t, 0, sessions.Count())
}
