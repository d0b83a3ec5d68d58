package batch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPreservesOrderAndIsolatesFailure(t *testing.T) {
	const n = 8
	const failing = 2
	errBoom := errors.New("boom")

	outcomes := Run(context.Background(), 3, n, func(ctx context.Context, i int) (int, error) {
		if i == failing {
			// Finish last.
			time.Sleep(50 * time.Millisecond)
			return 0, errBoom
		}
		time.Sleep(time.Duration(n-i) * time.Millisecond)
		return i * 10, nil
	})

	require.Len(t, outcomes, n)
	for i, out := range outcomes {
		assert.Equal(t, i, out.Index)
		if i == failing {
			assert.ErrorIs(t, out.Err, errBoom)
			assert.False(t, out.OK())
			continue
		}
		assert.NoError(t, out.Err)
		assert.Equal(t, i*10, out.Value)
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	Run(context.Background(), 2, 10, func(ctx context.Context, i int) (struct{}, error) {
		cur := running.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return struct{}{}, nil
	})
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRunRecoversPanic(t *testing.T) {
	outcomes := Run(context.Background(), 2, 3, func(ctx context.Context, i int) (string, error) {
		if i == 1 {
			panic("bad input")
		}
		return "ok", nil
	})
	assert.NoError(t, outcomes[0].Err)
	assert.Error(t, outcomes[1].Err)
	assert.Equal(t, "ok", outcomes[2].Value)
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls atomic.Int32
	outcomes := Run(ctx, 2, 4, func(ctx context.Context, i int) (int, error) {
		calls.Add(1)
		return i, nil
	})
	require.Len(t, outcomes, 4)
	for _, out := range outcomes {
		assert.ErrorIs(t, out.Err, context.Canceled)
	}
	assert.Equal(t, int32(0), calls.Load())
}

func TestMapEmpty(t *testing.T) {
	out := Map(context.Background(), 4, []string{}, func(ctx context.Context, s string) (int, error) {
		return len(s), nil
	})
	assert.Empty(t, out)
}

func TestMapValues(t *testing.T) {
	out := Map(context.Background(), 0, []string{"a", "bb", "ccc"}, func(ctx context.Context, s string) (int, error) {
		return len(s), nil
	})
	require.Len(t, out, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{out[0].Value, out[1].Value, out[2].Value})
}
