// Package ingest runs the per-item steps of adding several sources at once.
//
// The first item is created on its own so that its side effects (for example
// triggering notebook generation) settle before the others exist. After a
// fixed delay the remaining items are created in parallel. Every item then
// runs its own pipeline, and a failing item never cancels or blocks another.
package ingest

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/insightslm/insightslm/pkg/safe"
)

// DefaultStagger is the pause between the first item and the rest.
const DefaultStagger = 150 * time.Millisecond

// Result is the outcome for the item at Index of the input slice.
type Result[T any] struct {
	Index int
	Value T
	Err   error
}

func (r Result[T]) OK() bool { return r.Err == nil }

type CreateFunc[I, T any] func(ctx context.Context, index int, item I) (T, error)

// CreateStaggered creates items[0], waits delay, then creates the remaining
// items concurrently. Results keep the input order. A failed item only
// affects its own result; a canceled ctx marks the items not yet started.
func CreateStaggered[I, T any](ctx context.Context, items []I, delay time.Duration, create CreateFunc[I, T]) []Result[T] {
	results := make([]Result[T], len(items))
	if len(items) == 0 {
		return results
	}

	results[0] = call(ctx, 0, items[0], create)
	if len(items) == 1 {
		return results
	}

	if err := wait(ctx, delay); err != nil {
		for i := 1; i < len(items); i++ {
			results[i] = Result[T]{Index: i, Err: err}
		}
		return results
	}

	var g errgroup.Group
	for i := 1; i < len(items); i++ {
		i := i
		g.Go(func() error {
			results[i] = call(ctx, i, items[i], create)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// RunIsolated runs fn for every item in its own goroutine and waits for all
// of them. Panics are turned into errors of the offending item.
func RunIsolated[I any](ctx context.Context, items []I, fn func(ctx context.Context, index int, item I) error) []error {
	errs := make([]error, len(items))

	var g errgroup.Group
	for i := range items {
		i := i
		g.Go(func() error {
			errs[i] = safe.Call(func() error {
				return fn(ctx, i, items[i])
			})
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

func call[I, T any](ctx context.Context, index int, item I, create CreateFunc[I, T]) Result[T] {
	res := Result[T]{Index: index}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	res.Err = safe.Call(func() error {
		var err error
		res.Value, err = create(ctx, index, item)
		return err
	})
	return res
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
