package objectstore

import (
	"context"

	"github.com/foomo/objectstore/pkg/metrics"
	"github.com/foomo/objectstore/pkg/path"
	"golang.org/x/sync/errgroup"
)

// DefaultWalkConcurrency caps the listings issued concurrently per level
const DefaultWalkConcurrency = 16

type (
	walkOptions struct {
		concurrency   int
		allowNotFound bool
	}
	WalkOption func(*walkOptions)
)

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

func WalkWithConcurrency(v int) WalkOption {
	return func(o *walkOptions) {
		if v > 0 {
			o.concurrency = v
		}
	}
}

// WalkWithAllowNotFound treats a missing root as an empty result
func WalkWithAllowNotFound(v bool) WalkOption {
	return func(o *walkOptions) {
		o.allowNotFound = v
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

// Walk lists root one level at a time. Every common prefix found on a
// level is listed concurrently; when recursive is set the merged prefixes
// of a level become the input of the next one. The result holds every
// object and every common prefix seen, in level order.
func Walk(ctx context.Context, store Store, root path.Path, recursive bool, opts ...WalkOption) (ListResult, error) {
	o := &walkOptions{
		concurrency: DefaultWalkConcurrency,
	}
	for _, opt := range opts {
		opt(o)
	}

	first, err := listLevel(ctx, store, root)
	if err != nil {
		if o.allowNotFound && IsNotFound(err) {
			return ListResult{}, nil
		}
		return ListResult{}, err
	}

	ret := first
	level := first.CommonPrefixes
	for recursive && len(level) > 0 {
		results := make([]ListResult, len(level))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(o.concurrency)
		for i, prefix := range level {
			g.Go(func() error {
				result, err := listLevel(gctx, store, prefix)
				if err != nil {
					return err
				}
				results[i] = result
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return ListResult{}, err
		}

		level = nil
		for _, result := range results {
			ret.Objects = append(ret.Objects, result.Objects...)
			ret.CommonPrefixes = append(ret.CommonPrefixes, result.CommonPrefixes...)
			level = append(level, result.CommonPrefixes...)
		}
	}
	return ret, nil
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func listLevel(ctx context.Context, store Store, prefix path.Path) (ListResult, error) {
	metrics.WalkListingsCounter.WithLabelValues().Inc()
	return store.ListWithDelimiter(ctx, prefix)
}
