package airdrop

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/owentar/zeta-hackathon/internal/domain/model"
	"github.com/owentar/zeta-hackathon/internal/metrics"
	"github.com/owentar/zeta-hackathon/internal/store"
)

// Enqueuer publishes airdrop jobs.
type Enqueuer struct {
	queue  store.JobQueue
	logger *slog.Logger
	now    func() time.Time
}

func NewEnqueuer(queue store.JobQueue, logger *slog.Logger) *Enqueuer {
	return &Enqueuer{
		queue:  queue,
		logger: logger.With("component", "airdrop_enqueuer"),
		now:    time.Now,
	}
}

func (e *Enqueuer) EnqueueAirdrop(ctx context.Context, wallet string, chainID model.ChainID) error {
	job := NewJob(wallet, chainID, e.now())
	payload, err := job.Encode()
	if err != nil {
		return err
	}
	msgID, err := e.queue.Enqueue(ctx, payload)
	if err != nil {
		return fmt.Errorf("enqueue airdrop for %s on %s: %w", wallet, chainID, err)
	}
	metrics.AirdropsEnqueued.WithLabelValues(chainID.String()).Inc()
	e.logger.InfoContext(ctx, "airdrop enqueued",
		"job_id", job.ID.String(),
		"message_id", msgID,
		"wallet", wallet,
		"chain", chainID.String(),
	)
	return nil
}
