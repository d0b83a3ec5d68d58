package engine

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	apperrors "github.com/richinex/pdfmcp/internal/errors"
)

// Pool bounds the number of engine calls running at once. Work is handed to
// a dedicated goroutine per call once a slot is free; callers only wait.
type Pool struct {
	sem     *semaphore.Weighted
	size    int
	active  atomic.Int64
	waiting atomic.Int64
}

// NewPool creates a pool with the given number of slots. Non-positive sizes
// use runtime.NumCPU().
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{sem: semaphore.NewWeighted(int64(workers)), size: workers}
}

// Size returns the number of slots.
func (p *Pool) Size() int { return p.size }

// Active returns the number of calls currently running.
func (p *Pool) Active() int { return int(p.active.Load()) }

// Do runs fn on the pool. Waiting for a slot honours ctx. Once fn starts it
// runs to completion; a caller whose ctx ends first gets ctx.Err() and the
// result is discarded.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	p.waiting.Add(1)
	err := p.sem.Acquire(ctx, 1)
	p.waiting.Add(-1)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	p.active.Add(1)
	go func() {
		defer p.sem.Release(1)
		defer p.active.Add(-1)
		defer func() {
			if r := recover(); r != nil {
				done <- apperrors.Wrap(apperrors.KindEngine, "engine call panicked", fmt.Errorf("%v", r))
			}
		}()
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit runs fn on the pool and returns its value.
func Submit[T any](ctx context.Context, p *Pool, fn func() (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, func() error {
		v, err := fn()
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
