// Package queuetest provides a process-local store.JobQueue for tests of
// queue consumers.
package queuetest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/owentar/zeta-hackathon/internal/store"
)

var errQueueClosed = errors.New("queue closed")

type delayedJob struct {
	due     time.Time
	payload []byte
}

// DeadLetter is a parked job in the in-memory queue.
type DeadLetter struct {
	Payload []byte
	Reason  string
}

// InMemoryQueue keeps jobs in memory with the same settle semantics as the
// Redis stream queue: a delivery stays in flight until it is settled.
type InMemoryQueue struct {
	mu       sync.Mutex
	seq      int64
	ready    []store.Delivery
	inflight map[string]store.Delivery
	delayed  []delayedJob
	dead     []DeadLetter
	notify   chan struct{}
	closed   bool
	now      func() time.Time
}

var _ store.JobQueue = (*InMemoryQueue)(nil)

func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		inflight: make(map[string]store.Delivery),
		notify:   make(chan struct{}, 1),
		now:      time.Now,
	}
}

func (q *InMemoryQueue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *InMemoryQueue) Enqueue(_ context.Context, payload []byte) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return "", errQueueClosed
	}
	id := q.pushLocked(payload)
	q.signal()
	return id, nil
}

func (q *InMemoryQueue) pushLocked(payload []byte) string {
	q.seq++
	id := fmt.Sprintf("%d-0", q.seq)
	q.ready = append(q.ready, store.Delivery{ID: id, Payload: append([]byte(nil), payload...)})
	return id
}

// promoteLocked moves due delayed jobs to ready and returns the wait until
// the next one falls due (zero when none are left).
func (q *InMemoryQueue) promoteLocked() time.Duration {
	now := q.now()
	kept := q.delayed[:0]
	for _, j := range q.delayed {
		if !j.due.After(now) {
			q.pushLocked(j.payload)
			continue
		}
		kept = append(kept, j)
	}
	q.delayed = kept
	if len(q.delayed) == 0 {
		return 0
	}
	return q.delayed[0].due.Sub(now)
}

func (q *InMemoryQueue) Receive(ctx context.Context) (*store.Delivery, error) {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return nil, errQueueClosed
		}
		wait := q.promoteLocked()
		if len(q.ready) > 0 {
			d := q.ready[0]
			q.ready = q.ready[1:]
			q.inflight[d.ID] = d
			q.mu.Unlock()
			return &d, nil
		}
		q.mu.Unlock()

		var (
			t     *time.Timer
			timer <-chan time.Time
		)
		if wait > 0 {
			t = time.NewTimer(wait)
			timer = t.C
		}
		select {
		case <-ctx.Done():
			stopTimer(t)
			return nil, ctx.Err()
		case <-q.notify:
		case <-timer:
		}
		stopTimer(t)
	}
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

func (q *InMemoryQueue) settle(d *store.Delivery) error {
	if _, ok := q.inflight[d.ID]; !ok {
		return fmt.Errorf("delivery %s is not in flight", d.ID)
	}
	delete(q.inflight, d.ID)
	return nil
}

func (q *InMemoryQueue) Ack(_ context.Context, d *store.Delivery) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.settle(d)
}

func (q *InMemoryQueue) RetryLater(_ context.Context, d *store.Delivery, payload []byte, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.settle(d); err != nil {
		return err
	}
	q.delayed = append(q.delayed, delayedJob{due: q.now().Add(delay), payload: append([]byte(nil), payload...)})
	sort.SliceStable(q.delayed, func(i, j int) bool { return q.delayed[i].due.Before(q.delayed[j].due) })
	q.signal()
	return nil
}

func (q *InMemoryQueue) DeadLetter(_ context.Context, d *store.Delivery, payload []byte, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.settle(d); err != nil {
		return err
	}
	q.dead = append(q.dead, DeadLetter{Payload: append([]byte(nil), payload...), Reason: reason})
	return nil
}

func (q *InMemoryQueue) Stats(context.Context) (store.QueueStats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return store.QueueStats{
		Ready:      int64(len(q.ready)),
		Pending:    int64(len(q.inflight)),
		Delayed:    int64(len(q.delayed)),
		DeadLetter: int64(len(q.dead)),
	}, nil
}

// DeadLetters returns a copy of the parked jobs.
func (q *InMemoryQueue) DeadLetters() []DeadLetter {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]DeadLetter(nil), q.dead...)
}

func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	q.ready = nil
	q.delayed = nil
	q.inflight = make(map[string]store.Delivery)
	close(q.notify)
	return nil
}
