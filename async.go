package declopt

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// resolved is the Deferred implementation every synchronous callback wraps
// its return value in (spec.md §9 "Callbacks and async": "synchronous
// implementations return an immediately-ready deferred").
type resolved[T any] struct {
	value T
	err   error
}

// Resolved wraps an already-available value as a [Deferred], for callbacks
// that have no need to suspend.
func Resolved[T any](value T) Deferred[T] { return resolved[T]{value: value} }

// ResolvedErr wraps an already-known failure as a [Deferred].
func ResolvedErr[T any](err error) Deferred[T] { return resolved[T]{err: err} }

func (r resolved[T]) Await(ctx context.Context) (T, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}
	return r.value, r.err
}

// resolveDefaultLike resolves a Default/Fallback field, which may be a
// literal value or a [DefaultFunc] (spec.md §3.1).
func resolveDefaultLike(ctx context.Context, v any) (any, error) {
	fn, ok := v.(DefaultFunc)
	if !ok {
		return v, nil
	}
	d, err := fn(ctx)
	if err != nil {
		return nil, err
	}
	return d.Await(ctx)
}

// awaitTask pairs a key with the deferred value that must still be resolved
// for it, so a batch of independent callbacks (defaults, fallbacks, parse
// hooks) can be fanned out and their results reassembled in the caller's
// original order regardless of completion order.
type awaitTask struct {
	key string
	d   Deferred[any]
}

// awaitAllAny concurrently awaits every task's deferred value via
// errgroup.Group (spec.md §4.4 "Asynchrony": "the implementer is free to
// choose... a fully cooperative pipeline"), returning results indexed the
// same as tasks. The first error encountered cancels the remaining awaits
// and is returned; ctx's own cancellation propagates the same way, matching
// spec.md §5 "the parser must propagate it at suspension points".
func awaitAllAny(ctx context.Context, tasks []awaitTask) ([]any, error) {
	results := make([]any, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range tasks {
		i, t := i, t
		g.Go(func() error {
			v, err := t.d.Await(gctx)
			if err != nil {
				return err
			}
			results[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
