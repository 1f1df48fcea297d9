package app

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// PartialResult holds a result or an error for partial success patterns.
type PartialResult[T any] struct {
	Value T
	Err   error
}

// ParallelPartialLimit runs fns with at most limit in flight and collects
// every outcome. One failure never cancels the others.
//
// Example:
//
//	results := ParallelPartialLimit(ctx, 4, pushFuncs...)
//	for _, r := range results {
//	    if r.Err != nil {
//	        failed++
//	    }
//	}
func ParallelPartialLimit[T any](
	ctx context.Context,
	limit int,
	fns ...func(context.Context) (T, error),
) []PartialResult[T] {
	results := make([]PartialResult[T], len(fns))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, fn := range fns {
		g.Go(func() error {
			value, err := fn(ctx)
			results[i] = PartialResult[T]{Value: value, Err: err}

			return nil
		})
	}

	_ = g.Wait()

	return results
}

// Each applies fn to every item with bounded concurrency and collects the outcomes.
func Each[T any](ctx context.Context, limit int, items []T, fn func(context.Context, T) error) []PartialResult[T] {
	fns := make([]func(context.Context) (T, error), len(items))

	for i, item := range items {
		fns[i] = func(ctx context.Context) (T, error) {
			return item, fn(ctx, item)
		}
	}

	return ParallelPartialLimit(ctx, limit, fns...)
}
