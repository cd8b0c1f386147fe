package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTryEnqueueFullQueueDoesNotBlock(t *testing.T) {
	gate := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, j Job) error {
		<-gate
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())
	defer q.Stop()

	// One slot in flight on the stuck worker plus one in the buffer; the
	// next push must be rejected, not queued behind them.
	sawFull := false
	for i := 0; i < 5; i++ {
		err := q.TryEnqueue(Job{Type: "noop"})
		if errors.Is(err, ErrQueueFull) {
			sawFull = true
			break
		}
		require.NoError(t, err)
	}
	close(gate)

	require.True(t, sawFull, "saturated queue must reject instead of accepting")
}

func TestTryEnqueueRequiresStart(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, j Job) error { return nil }, QueueConfig{})

	err := q.TryEnqueue(Job{Type: "noop"})
	require.Error(t, err)
}
