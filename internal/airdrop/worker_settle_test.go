package airdrop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/owentar/zeta-hackathon/internal/domain/model"
	"github.com/owentar/zeta-hackathon/internal/retry"
	"github.com/owentar/zeta-hackathon/internal/store"
	storemocks "github.com/owentar/zeta-hackathon/internal/store/mocks"
	"github.com/owentar/zeta-hackathon/internal/store/queuetest"
)

func testDelivery(t *testing.T, wallet string) *store.Delivery {
	t.Helper()
	payload, err := NewJob(wallet, model.ChainZetaTestnet, time.Now()).Encode()
	require.NoError(t, err)
	return &store.Delivery{ID: "1700000000000-0", Payload: payload}
}

func unknownOutcomeHandler(calls *atomic.Int32) JobHandler {
	return handlerFunc(func(context.Context, Job) (Outcome, error) {
		calls.Add(1)
		return "", retry.Terminal(errors.New("send 0xabc: transaction outcome unknown"))
	})
}

func TestWorker_DeadLetterWriteRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := storemocks.NewMockJobQueue(ctrl)
	alerter := &captureAlerter{}
	var calls atomic.Int32
	w := NewWorker(q, unknownOutcomeHandler(&calls), alerter, fastRetries, discardLogger())
	d := testDelivery(t, "0x01")

	gomock.InOrder(
		q.EXPECT().DeadLetter(gomock.Any(), d, gomock.Any(), gomock.Any()).Return(errors.New("redis: connection pool timeout")),
		q.EXPECT().DeadLetter(gomock.Any(), d, gomock.Any(), gomock.Any()).Return(nil),
	)
	// No Ack or RetryLater expectation: the dead-letter write settles d.

	w.process(context.Background(), d)

	assert.Equal(t, int32(1), calls.Load())
	require.Equal(t, 1, alerter.count())
	assert.Equal(t, "true", alerter.alerts[0].Fields["dead_letter_record"])
}

func TestWorker_DeadLetterFailureStillAcks(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := storemocks.NewMockJobQueue(ctrl)
	alerter := &captureAlerter{}
	var calls atomic.Int32
	w := NewWorker(q, unknownOutcomeHandler(&calls), alerter, fastRetries, discardLogger())
	d := testDelivery(t, "0x01")

	gomock.InOrder(
		q.EXPECT().DeadLetter(gomock.Any(), d, gomock.Any(), gomock.Any()).
			Return(errors.New("redis: connection pool timeout")).Times(settleAttempts),
		q.EXPECT().Ack(gomock.Any(), d).Return(nil),
	)

	w.process(context.Background(), d)

	assert.Equal(t, int32(1), calls.Load())
	require.Equal(t, 1, alerter.count(), "operators still hear about the job")
	assert.Equal(t, "false", alerter.alerts[0].Fields["dead_letter_record"])
}

func TestWorker_UnsettledJobNeverHandledTwice(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := storemocks.NewMockJobQueue(ctrl)
	var calls atomic.Int32
	w := NewWorker(q, unknownOutcomeHandler(&calls), nil, fastRetries, discardLogger())
	d := testDelivery(t, "0x01")
	down := errors.New("redis: connection refused")

	gomock.InOrder(
		q.EXPECT().DeadLetter(gomock.Any(), d, gomock.Any(), gomock.Any()).Return(down).Times(settleAttempts),
		q.EXPECT().Ack(gomock.Any(), d).Return(down),
		// The stale delivery is claimed again once Redis is back.
		q.EXPECT().DeadLetter(gomock.Any(), d, d.Payload, gomock.Any()).Return(nil),
	)

	w.process(context.Background(), d)
	w.process(context.Background(), &store.Delivery{ID: d.ID, Payload: d.Payload})

	assert.Equal(t, int32(1), calls.Load())
	assert.Zero(t, w.abandoned.Len())
}

// tokenLease hands out a single token; Acquire blocks while it is taken.
type tokenLease struct {
	token chan struct{}

	mu   sync.Mutex
	last *tokenHeld
}

func newTokenLease() *tokenLease {
	l := &tokenLease{token: make(chan struct{}, 1)}
	l.token <- struct{}{}
	return l
}

func (l *tokenLease) Acquire(ctx context.Context) (store.HeldLease, error) {
	select {
	case <-l.token:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	h := &tokenHeld{lease: l, lost: make(chan struct{})}
	l.mu.Lock()
	l.last = h
	l.mu.Unlock()
	return h, nil
}

func (l *tokenLease) held() *tokenHeld {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

type tokenHeld struct {
	lease *tokenLease
	lost  chan struct{}
	once  sync.Once
}

func (h *tokenHeld) Lost() <-chan struct{} { return h.lost }

func (h *tokenHeld) Release() {
	h.once.Do(func() { h.lease.token <- struct{}{} })
}

type failingLease struct{ err error }

func (l failingLease) Acquire(context.Context) (store.HeldLease, error) { return nil, l.err }

func countingHandler(n *atomic.Int32) JobHandler {
	return handlerFunc(func(context.Context, Job) (Outcome, error) {
		n.Add(1)
		return OutcomeCompleted, nil
	})
}

func TestWorker_SecondWorkerWaitsForLease(t *testing.T) {
	q := queuetest.NewInMemoryQueue()
	lease := newTokenLease()
	var first, second atomic.Int32

	stopFirst := startWorker(t, NewWorker(q, countingHandler(&first), nil, fastRetries, discardLogger(), WithLease(lease)))
	enqueue(t, q, "0x01")
	require.Eventually(t, func() bool { return first.Load() == 1 }, time.Second, 5*time.Millisecond)

	startWorker(t, NewWorker(q, countingHandler(&second), nil, fastRetries, discardLogger(), WithLease(lease)))
	enqueue(t, q, "0x02")
	require.Eventually(t, func() bool { return first.Load() == 2 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, second.Load(), "only the lease holder consumes")

	stopFirst()
	enqueue(t, q, "0x03")
	require.Eventually(t, func() bool { return second.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(2), first.Load())
}

func TestWorker_StopsWhenLeaseLost(t *testing.T) {
	q := queuetest.NewInMemoryQueue()
	lease := newTokenLease()
	var handled atomic.Int32
	w := NewWorker(q, countingHandler(&handled), nil, fastRetries, discardLogger(), WithLease(lease))

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()
	require.Eventually(t, func() bool { return lease.held() != nil }, time.Second, 5*time.Millisecond)

	close(lease.held().lost)
	select {
	case err := <-done:
		require.ErrorIs(t, err, store.ErrLeaseLost)
	case <-time.After(2 * time.Second):
		t.Fatal("worker kept running without its lease")
	}

	enqueue(t, q, "0x01")
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, handled.Load())
	assert.Len(t, lease.token, 1, "lease released on exit")
}

func TestWorker_LeaseAcquireFailure(t *testing.T) {
	q := queuetest.NewInMemoryQueue()
	var handled atomic.Int32
	w := NewWorker(q, countingHandler(&handled), nil, fastRetries, discardLogger(),
		WithLease(failingLease{err: errors.New("pq: too many connections")}))

	err := w.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acquire airdrop worker lease")
}
