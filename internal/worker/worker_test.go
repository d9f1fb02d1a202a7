package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestRunKeepsInputOrder(t *testing.T) {
	items := []int{5, 1, 4, 2, 3}
	out := Run(context.Background(), 3, items, func(_ context.Context, n int) ([]int, error) {
		time.Sleep(time.Duration(n) * time.Millisecond)
		return []int{n * 10}, nil
	})

	require.Len(t, out, len(items))
	require.Empty(t, cmp.Diff([]int{50, 10, 40, 20, 30}, Collect(out)))
}

func TestRunIsolatesFailures(t *testing.T) {
	items := []string{"ok", "boom", "panic", "ok"}
	out := Run(context.Background(), 2, items, func(_ context.Context, s string) ([]string, error) {
		switch s {
		case "boom":
			return nil, errors.New("boom")
		case "panic":
			panic("kaboom")
		}
		return []string{s}, nil
	})

	require.Equal(t, []string{"ok", "ok"}, Collect(out))
	errs := Errors(out)
	require.Len(t, errs, 2)
	require.EqualError(t, out[1].Err, "boom")
	require.ErrorContains(t, out[2].Err, "kaboom")
}

func TestRunBoundsConcurrency(t *testing.T) {
	var active, peak atomic.Int32
	items := make([]int, 20)
	Run(context.Background(), 4, items, func(context.Context, int) (struct{}, error) {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		active.Add(-1)
		return struct{}{}, nil
	})
	require.LessOrEqual(t, peak.Load(), int32(4))
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := Run(ctx, 2, []int{1, 2, 3}, func(context.Context, int) (int, error) {
		return 1, nil
	})
	for _, o := range out {
		require.ErrorIs(t, o.Err, context.Canceled)
	}
}

func TestRunEmpty(t *testing.T) {
	out := Run(context.Background(), 4, []int(nil), func(context.Context, int) (int, error) { return 0, nil })
	require.Empty(t, out)
}
