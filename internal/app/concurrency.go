package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Parallel2 runs fn1 and fn2 at once. The first failure cancels the other's
// context and is returned with zero results.
//
// Start loads the dataset and the first weather reading this way.
func Parallel2[A, B any](ctx context.Context, fn1 func(context.Context) (A, error), fn2 func(context.Context) (B, error)) (A, B, error) {
	var (
		a A
		b B
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { a, err = fn1(gctx); return err })
	g.Go(func() (err error) { b, err = fn2(gctx); return err })

	if err := g.Wait(); err != nil {
		var (
			noA A
			noB B
		)

		return noA, noB, fmt.Errorf("parallel execution failed: %w", err)
	}

	return a, b, nil
}

// PartialResult is one outcome of ParallelPartial.
type PartialResult[T any] struct {
	Value T
	Err   error
}

// ParallelPartial runs every fn to completion, in order of fns in the
// result. A failure does not cancel the rest, so one broken surface never
// keeps the others from rendering.
func ParallelPartial[T any](ctx context.Context, fns ...func(context.Context) (T, error)) []PartialResult[T] {
	out := make([]PartialResult[T], len(fns))

	var wg sync.WaitGroup
	for i := range fns {
		wg.Go(func() {
			v, err := fns[i](ctx)
			out[i] = PartialResult[T]{Value: v, Err: err}
		})
	}
	wg.Wait()

	return out
}

// JoinErrors joins the failures in results. It is nil when all succeeded.
func JoinErrors[T any](results []PartialResult[T]) error {
	var errs []error
	for _, r := range results {
		errs = append(errs, r.Err)
	}

	return errors.Join(errs...)
}
