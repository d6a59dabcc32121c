// Package fanout runs independent lookups concurrently and collects their
// outcomes behind a single barrier. Each input owns one output slot, so
// results keep input order and one failed lookup never affects its siblings.
package fanout

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultLimit bounds the number of in-flight lookups per call.
const DefaultLimit = 16

// Result is the outcome of one lookup.
type Result[R any] struct {
	Value R
	Err   error
}

// Map calls fn for every item with at most limit calls in flight (limit <= 0
// means DefaultLimit) and waits for all of them. Errors are recorded in the
// item's slot and do not cancel other calls.
func Map[T, R any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, item T) (R, error)) []Result[R] {
	out := make([]Result[R], len(items))
	if len(items) == 0 {
		return out
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, item := range items {
		g.Go(func() error {
			v, err := fn(ctx, item)
			out[i] = Result[R]{Value: v, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
