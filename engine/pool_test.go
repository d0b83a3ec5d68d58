package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/richinex/pdfmcp/internal/errors"
)

func TestPoolBoundsConcurrency(t *testing.T) {
	pool := NewPool(2)
	var running, peak atomic.Int32
	done := make(chan struct{})

	for i := 0; i < 6; i++ {
		go func() {
			_ = pool.Do(context.Background(), func() error {
				cur := running.Add(1)
				for {
					old := peak.Load()
					if cur <= old || peak.CompareAndSwap(old, cur) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				running.Add(-1)
				return nil
			})
			done <- struct{}{}
		}()
	}
	for i := 0; i < 6; i++ {
		<-done
	}
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, 0, pool.Active())
}

func TestPoolCallerCancelDoesNotAbortWork(t *testing.T) {
	pool := NewPool(1)
	finished := make(chan struct{})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := pool.Do(ctx, func() error {
		time.Sleep(50 * time.Millisecond)
		close(finished)
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("engine call did not run to completion")
	}
}

func TestPoolWaitHonoursContext(t *testing.T) {
	pool := NewPool(1)
	release := make(chan struct{})
	go pool.Do(context.Background(), func() error {
		<-release
		return nil
	})
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ran := false
	err := pool.Do(ctx, func() error {
		ran = true
		return nil
	})
	close(release)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran)
}

func TestSubmitReturnsValueAndError(t *testing.T) {
	pool := NewPool(0)
	assert.Positive(t, pool.Size())

	v, err := Submit(context.Background(), pool, func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	errBad := errors.New("bad")
	_, err = Submit(context.Background(), pool, func() (int, error) { return 1, errBad })
	assert.ErrorIs(t, err, errBad)
}

func TestPoolRecoversPanic(t *testing.T) {
	pool := NewPool(1)
	err := pool.Do(context.Background(), func() error { panic("engine exploded") })
	assert.True(t, apperrors.Is(err, apperrors.KindEngine))

	// The slot must have been released.
	err = pool.Do(context.Background(), func() error { return nil })
	assert.NoError(t, err)
}
