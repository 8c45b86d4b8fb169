// Package fanout computes per-entity results across a batch concurrently
// while preserving input order. A batch is all-or-nothing: the first
// failure cancels outstanding work and is the only thing the caller sees.
package fanout

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Options bound a batch's pressure on the backing store.
type Options struct {
	// MaxConcurrent caps in-flight per-entity lookups; 0 means one
	// goroutine per entity.
	MaxConcurrent int
	// Limiter, when set, throttles lookup starts across the batch.
	Limiter *rate.Limiter
}

// Map runs fn once per item and returns results in the input order.
func Map[T, R any](ctx context.Context, items []T, fn func(context.Context, T) (R, error)) ([]R, error) {
	return MapOpts(ctx, Options{}, items, fn)
}

// MapOpts is Map with concurrency and rate bounds. Results are written
// into a fixed-size slice by input position, so no ordering is needed
// between the tasks themselves; one task failing cancels the group
// context and the whole batch returns that first error with no partial
// results.
func MapOpts[T, R any](ctx context.Context, opts Options, items []T, fn func(context.Context, T) (R, error)) ([]R, error) {
	out := make([]R, len(items))

	g, ctx := errgroup.WithContext(ctx)
	if opts.MaxConcurrent > 0 {
		g.SetLimit(opts.MaxConcurrent)
	}

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			if opts.Limiter != nil {
				if err := opts.Limiter.Wait(ctx); err != nil {
					return err
				}
			}
			r, err := fn(ctx, item)
			if err != nil {
				return err
			}
			out[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
