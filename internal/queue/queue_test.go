package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPushPopFIFO(t *testing.T) {
	q := New[int]()
	q.Push(1)
	q.Push(2)

	v, ok := q.Pop(context.Background())
	require.True(t, ok)
	require.Equal(t, 1, v)

	v, ok = q.Pop(context.Background())
	require.True(t, ok)
	require.Equal(t, 2, v)

	q.Done()
	q.Done()
	require.True(t, q.Join(time.Second))
}

func TestShutdownDrainsBacklog(t *testing.T) {
	q := New[string]()
	q.Push("a")
	q.Shutdown()

	v, ok := q.Pop(context.Background())
	require.True(t, ok)
	require.Equal(t, "a", v)
	q.Done()

	_, ok = q.Pop(context.Background())
	require.False(t, ok)
}

func TestPushAfterShutdownNoop(t *testing.T) {
	q := New[int]()
	q.Shutdown()
	q.Push(1)
	require.Equal(t, 0, q.Len())
}

func TestPopRespectsContextCancel(t *testing.T) {
	q := New[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := q.Pop(ctx)
	require.False(t, ok)
}

func TestJoinTimesOutWhenUnfinished(t *testing.T) {
	q := New[int]()
	q.Push(1)
	require.False(t, q.Join(20*time.Millisecond))
	q.Done()
}
