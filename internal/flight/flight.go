// Package flight collapses concurrent executions of the same
// asynchronous operation kind into one shared in-flight call:
// all overlapping callers await the same result, resolved or
// rejected exactly once, then the ticket is cleared.
package flight

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Group of single-flight tickets, keyed by operation kind.
// The zero value is ready to use.
type Group[T any] struct {
	flight singleflight.Group
}

// Do executes [fn] under the [kind] ticket. If a ticket is
// already outstanding, the call joins it instead of issuing a
// new execution ; every joined caller receives the identical
// resolved value or error.
//
// The execution runs detached from any single caller's
// cancellation, so one caller backing out cannot poison the
// shared result of its siblings.
func (g *Group[T]) Do(ctx context.Context, kind string, fn func(ctx context.Context) (T, error)) (T, error) {
	result, err, _ := g.flight.Do(kind, func() (any, error) {
		return fn(context.WithoutCancel(ctx))
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

// Forget drops the outstanding [kind] ticket, if any ; the
// next caller will start a fresh execution.
func (g *Group[T]) Forget(kind string) {
	g.flight.Forget(kind)
}
