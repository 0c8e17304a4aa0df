package process

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightslm/insightslm/app/core"
	"github.com/insightslm/insightslm/app/store"
)

type lockPlugins struct {
	core.Plugins
	locked map[string]bool
	err    error
}

func (p *lockPlugins) TryLock(_ context.Context, key string) (bool, error) {
	if p.err != nil {
		return false, p.err
	}
	if p.locked[key] {
		return false, nil
	}
	p.locked[key] = true
	return true, nil
}

type staleStore struct {
	store.Provider
	notebooks *staleNotebooks
}

func (s *staleStore) NotebookStore() store.NotebookStore { return s.notebooks }

type staleNotebooks struct {
	store.NotebookStore
	before int64
}

func (s *staleNotebooks) FailStaleGenerating(_ context.Context, before int64) (int64, error) {
	s.before = before
	return 2, nil
}

func TestNewProcessRegistersJobs(t *testing.T) {
	p := NewProcess(core.NewCore(core.CoreConfig{}))
	assert.Len(t, p.Cron().Entries(), 2)
}

func TestRunLocked(t *testing.T) {
	tests := []struct {
		name    string
		plugins *lockPlugins
		wantRun bool
	}{
		{"acquired", &lockPlugins{locked: map[string]bool{}}, true},
		{"held elsewhere", &lockPlugins{locked: map[string]bool{"job": true}}, false},
		{"lock error", &lockPlugins{locked: map[string]bool{}, err: errors.New("redis down")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := core.NewCore(core.CoreConfig{}, core.WithPlugins(tt.plugins))
			var ran bool
			runLocked(c, "job", time.Second, func(ctx context.Context) error {
				ran = true
				_, ok := ctx.Deadline()
				assert.True(t, ok)
				return nil
			})
			assert.Equal(t, tt.wantRun, ran)
		})
	}
}

func TestFailStaleGenerations(t *testing.T) {
	notebooks := &staleNotebooks{}
	c := core.NewCore(core.CoreConfig{}, core.WithStore(&staleStore{notebooks: notebooks}))

	require.NoError(t, FailStaleGenerations(context.Background(), c))
	assert.InDelta(t, time.Now().Add(-StaleGenerationAfter).Unix(), notebooks.before, 2)
}
