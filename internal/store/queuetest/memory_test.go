package queuetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryQueue_EnqueueReceiveAck(t *testing.T) {
	t.Parallel()

	q := NewInMemoryQueue()
	defer q.Close()
	ctx := context.Background()

	id, err := q.Enqueue(ctx, []byte("hello"))
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	d, err := q.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, d.ID)
	assert.Equal(t, []byte("hello"), d.Payload)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Pending)

	require.NoError(t, q.Ack(ctx, d))
	require.Error(t, q.Ack(ctx, d), "double ack")

	stats, err = q.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Pending)
	assert.Zero(t, stats.Ready)
}

func TestInMemoryQueue_ReceiveBlocksUntilMessage(t *testing.T) {
	t.Parallel()

	q := NewInMemoryQueue()
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(50 * time.Millisecond)
		_, _ = q.Enqueue(ctx, []byte("delayed"))
	}()

	d, err := q.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("delayed"), d.Payload)

	wg.Wait()
}

func TestInMemoryQueue_ReceiveContextCancellation(t *testing.T) {
	t.Parallel()

	q := NewInMemoryQueue()
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Receive(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInMemoryQueue_RetryLaterRedeliversAfterDelay(t *testing.T) {
	t.Parallel()

	q := NewInMemoryQueue()
	defer q.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := q.Enqueue(ctx, []byte("attempt-1"))
	require.NoError(t, err)
	d, err := q.Receive(ctx)
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, q.RetryLater(ctx, d, []byte("attempt-2"), 80*time.Millisecond))

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Delayed)

	again, err := q.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("attempt-2"), again.Payload)
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
	assert.NotEqual(t, d.ID, again.ID)
}

func TestInMemoryQueue_DeadLetter(t *testing.T) {
	t.Parallel()

	q := NewInMemoryQueue()
	defer q.Close()
	ctx := context.Background()

	_, err := q.Enqueue(ctx, []byte("bad"))
	require.NoError(t, err)
	d, err := q.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, q.DeadLetter(ctx, d, []byte("bad"), "decode failed"))

	dead := q.DeadLetters()
	require.Len(t, dead, 1)
	assert.Equal(t, "decode failed", dead[0].Reason)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.DeadLetter)
	assert.Zero(t, stats.Pending)
}

func TestInMemoryQueue_OrderPreserved(t *testing.T) {
	t.Parallel()

	q := NewInMemoryQueue()
	defer q.Close()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		_, err := q.Enqueue(ctx, []byte(fmt.Sprintf("job-%d", i)))
		require.NoError(t, err)
	}
	for i := 1; i <= 3; i++ {
		d, err := q.Receive(ctx)
		require.NoError(t, err, fmt.Sprintf("receive job %d", i))
		assert.Equal(t, fmt.Sprintf("job-%d", i), string(d.Payload))
		require.NoError(t, q.Ack(ctx, d))
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	t.Parallel()

	q := NewInMemoryQueue()
	ctx := context.Background()
	_, _ = q.Enqueue(ctx, []byte("x"))

	require.NoError(t, q.Close())
	require.NoError(t, q.Close())

	_, err := q.Enqueue(ctx, []byte("y"))
	require.ErrorIs(t, err, errQueueClosed)
	_, err = q.Receive(ctx)
	require.ErrorIs(t, err, errQueueClosed)
}
