package store

//go:generate mockgen -source=queue.go -destination=mocks/queue_mock.go -package=mocks

import (
	"context"
	"time"
)

// Delivery is one job handed to a consumer. It stays pending until the
// consumer calls exactly one of Ack, RetryLater or DeadLetter.
type Delivery struct {
	ID      string
	Payload []byte
}

type QueueStats struct {
	Ready      int64 `json:"ready"`
	Pending    int64 `json:"pending"`
	Delayed    int64 `json:"delayed"`
	DeadLetter int64 `json:"dead_letter"`
}

// JobQueue is a durable FIFO with delayed redelivery and a dead-letter sink.
type JobQueue interface {
	Enqueue(ctx context.Context, payload []byte) (string, error)
	// Receive blocks until a job is available or ctx is done.
	Receive(ctx context.Context) (*Delivery, error)
	Ack(ctx context.Context, d *Delivery) error
	// RetryLater settles d and schedules payload for redelivery after delay.
	RetryLater(ctx context.Context, d *Delivery, payload []byte, delay time.Duration) error
	// DeadLetter settles d and parks payload for operator inspection.
	DeadLetter(ctx context.Context, d *Delivery, payload []byte, reason string) error
	Stats(ctx context.Context) (QueueStats, error)
	Close() error
}
