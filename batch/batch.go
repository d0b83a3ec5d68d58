// Package batch runs independent per-source jobs concurrently.
//
// Information Hiding:
// - Worker budget and scheduling hidden behind Run
// - Results are slotted by input index, so completion order never leaks
package batch

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the worker budget used when none is configured.
const DefaultWorkers = 4

// Outcome is the result of one job. Exactly one of Value and Err is meaningful.
type Outcome[T any] struct {
	Index int
	Value T
	Err   error
}

// OK reports whether the job succeeded.
func (o Outcome[T]) OK() bool {
	return o.Err == nil
}

// Job processes the input at index.
type Job[T any] func(ctx context.Context, index int) (T, error)

// Run executes n jobs with at most workers running at once and returns one
// outcome per index, in index order. A failing or panicking job only affects
// its own outcome. If ctx is cancelled, jobs that have not started report the
// context error.
func Run[T any](ctx context.Context, workers, n int, job Job[T]) []Outcome[T] {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	outcomes := make([]Outcome[T], n)

	var g errgroup.Group
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			outcomes[i] = runOne(ctx, i, job)
			return nil
		})
	}
	g.Wait() // jobs never return errors to the group
	return outcomes
}

// Map runs fn over inputs using Run.
func Map[In, Out any](ctx context.Context, workers int, inputs []In, fn func(ctx context.Context, in In) (Out, error)) []Outcome[Out] {
	return Run(ctx, workers, len(inputs), func(ctx context.Context, index int) (Out, error) {
		return fn(ctx, inputs[index])
	})
}

func runOne[T any](ctx context.Context, index int, job Job[T]) (out Outcome[T]) {
	out.Index = index
	if err := ctx.Err(); err != nil {
		out.Err = err
		return out
	}
	defer func() {
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("job %d panicked: %v", index, r)
		}
	}()
	out.Value, out.Err = job(ctx, index)
	return out
}
