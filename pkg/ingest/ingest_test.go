package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu      sync.Mutex
	started map[string]time.Time
	status  map[string]string
}

func newRecorder() *recorder {
	return &recorder{started: map[string]time.Time{}, status: map[string]string{}}
}

func (r *recorder) start(name string) {
	r.mu.Lock()
	r.started[name] = time.Now()
	r.mu.Unlock()
}

func (r *recorder) set(name, status string) {
	r.mu.Lock()
	r.status[name] = status
	r.mu.Unlock()
}

func TestThreeFilesOneFails(t *testing.T) {
	files := []string{"a.pdf", "b.pdf", "c.pdf"}
	rec := newRecorder()
	delay := 30 * time.Millisecond

	created := CreateStaggered(context.Background(), files, delay, func(_ context.Context, _ int, name string) (string, error) {
		rec.start(name)
		rec.set(name, "uploading")
		return "src-" + name, nil
	})

	require.Len(t, created, 3)
	for i, r := range created {
		require.NoError(t, r.Err)
		assert.Equal(t, i, r.Index)
		assert.Equal(t, "src-"+files[i], r.Value)
	}
	assert.GreaterOrEqual(t, rec.started["b.pdf"].Sub(rec.started["a.pdf"]), delay)
	assert.GreaterOrEqual(t, rec.started["c.pdf"].Sub(rec.started["a.pdf"]), delay)

	boom := errors.New("processing failed")
	errs := RunIsolated(context.Background(), files, func(_ context.Context, _ int, name string) error {
		if name == "b.pdf" {
			rec.set(name, "failed")
			return boom
		}
		time.Sleep(5 * time.Millisecond)
		rec.set(name, "completed")
		return nil
	})

	assert.NoError(t, errs[0])
	assert.ErrorIs(t, errs[1], boom)
	assert.NoError(t, errs[2])
	assert.Equal(t, map[string]string{"a.pdf": "completed", "b.pdf": "failed", "c.pdf": "completed"}, rec.status)
}

func TestCreateStaggeredFirstFailureDoesNotStopRest(t *testing.T) {
	boom := errors.New("insert failed")
	results := CreateStaggered(context.Background(), []int{1, 2, 3}, 0, func(_ context.Context, i int, v int) (int, error) {
		if i == 0 {
			return 0, boom
		}
		return v * 10, nil
	})

	assert.ErrorIs(t, results[0].Err, boom)
	assert.False(t, results[0].OK())
	assert.Equal(t, 20, results[1].Value)
	assert.Equal(t, 30, results[2].Value)
}

func TestCreateStaggeredCanceledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	results := CreateStaggered(ctx, []string{"a", "b"}, time.Minute, func(context.Context, int, string) (string, error) {
		calls++
		return "ok", nil
	})

	assert.Equal(t, 1, calls)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, context.Canceled)
}

func TestCreateStaggeredEmptyAndSingle(t *testing.T) {
	assert.Empty(t, CreateStaggered(context.Background(), []string{}, time.Hour, func(context.Context, int, string) (string, error) {
		t.Fatal("not called")
		return "", nil
	}))

	start := time.Now()
	res := CreateStaggered(context.Background(), []string{"only"}, time.Hour, func(_ context.Context, _ int, s string) (string, error) {
		return s, nil
	})
	assert.Equal(t, "only", res[0].Value)
	assert.Less(t, time.Since(start), time.Second, "a single item never waits")
}

func TestRunIsolatedPanic(t *testing.T) {
	errs := RunIsolated(context.Background(), []int{1, 2}, func(_ context.Context, _ int, v int) error {
		if v == 1 {
			panic("bad file")
		}
		return nil
	})

	assert.Error(t, errs[0])
	assert.NoError(t, errs[1])
}
