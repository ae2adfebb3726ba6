package airdrop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/owentar/zeta-hackathon/internal/alert"
	"github.com/owentar/zeta-hackathon/internal/cache"
	"github.com/owentar/zeta-hackathon/internal/metrics"
	"github.com/owentar/zeta-hackathon/internal/retry"
	"github.com/owentar/zeta-hackathon/internal/store"
)

const (
	DefaultMaxAttempts = 5
	DefaultBaseBackoff = 5 * time.Second
	DefaultMaxBackoff  = 5 * time.Minute
	DefaultJobTimeout  = 5 * time.Minute

	receiveErrorBackoff = time.Second
	settleTimeout       = 10 * time.Second
	settleAttempts      = 3
	settleBackoff       = 200 * time.Millisecond
	// abandonedLimit bounds the deliveries remembered as given up on but
	// not removed from the queue.
	abandonedLimit = 1024
)

// JobHandler processes one decoded job.
type JobHandler interface {
	Handle(ctx context.Context, job Job) (Outcome, error)
}

type WorkerConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	// JobTimeout bounds a single Handle call, confirmation wait included.
	JobTimeout time.Duration
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = DefaultBaseBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = DefaultMaxBackoff
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = DefaultJobTimeout
	}
	return c
}

// Worker consumes the airdrop queue on a single goroutine. Each delivery is
// settled (ack, retry or dead-letter) before the next one is received.
type Worker struct {
	queue   store.JobQueue
	handler JobHandler
	alerter alert.Alerter
	lease   store.Lease
	cfg     WorkerConfig
	health  *Health
	logger  *slog.Logger

	// abandoned holds deliveries that were given up on while the queue
	// refused to settle them. A redelivery is settled again, never handled.
	abandoned *cache.LRU[string, string]
}

type WorkerOption func(*Worker)

// WithLease makes Run hold lease for as long as it consumes, so that only
// one worker process sends airdrops at a time.
func WithLease(lease store.Lease) WorkerOption {
	return func(w *Worker) { w.lease = lease }
}

func NewWorker(queue store.JobQueue, handler JobHandler, alerter alert.Alerter, cfg WorkerConfig, logger *slog.Logger, opts ...WorkerOption) *Worker {
	if alerter == nil {
		alerter = &alert.NoopAlerter{}
	}
	w := &Worker{
		queue:     queue,
		handler:   handler,
		alerter:   alerter,
		cfg:       cfg.withDefaults(),
		health:    NewHealth(),
		logger:    logger.With("component", "airdrop_worker"),
		abandoned: cache.NewLRU[string, string](abandonedLimit, 0),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Worker) Health() *Health {
	return w.health
}

// Run blocks until ctx is cancelled. Job failures never stop the loop; losing
// the lease does, with store.ErrLeaseLost.
func (w *Worker) Run(ctx context.Context) error {
	var lost <-chan struct{}
	if w.lease != nil {
		held, err := w.lease.Acquire(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("airdrop worker stopped before acquiring lease")
				return nil
			}
			return fmt.Errorf("acquire airdrop worker lease: %w", err)
		}
		defer held.Release()
		lost = held.Lost()

		// Receive blocks; cancel it as soon as exclusivity is gone.
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		go func() {
			select {
			case <-lost:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	w.logger.Info("airdrop worker started",
		"max_attempts", w.cfg.MaxAttempts,
		"base_backoff", w.cfg.BaseBackoff,
		"max_backoff", w.cfg.MaxBackoff,
	)
	w.refreshQueueDepth(ctx)

	for {
		if leaseLost(lost) {
			w.logger.Error("airdrop worker lease lost, stopping")
			return store.ErrLeaseLost
		}
		d, err := w.queue.Receive(ctx)
		if err != nil {
			if leaseLost(lost) {
				w.logger.Error("airdrop worker lease lost, stopping")
				return store.ErrLeaseLost
			}
			if ctx.Err() != nil {
				w.logger.Info("airdrop worker stopped")
				return nil
			}
			w.logger.Warn("receive failed", "error", err)
			select {
			case <-ctx.Done():
				w.logger.Info("airdrop worker stopped")
				return nil
			case <-time.After(receiveErrorBackoff):
			}
			continue
		}

		w.process(ctx, d)
		w.refreshQueueDepth(ctx)
	}
}

func leaseLost(lost <-chan struct{}) bool {
	if lost == nil {
		return false
	}
	select {
	case <-lost:
		return true
	default:
		return false
	}
}

func (w *Worker) process(ctx context.Context, d *store.Delivery) {
	// Settlement must happen even when shutdown cancelled ctx mid-job.
	settleCtx, cancelSettle := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancelSettle()

	if reason, ok := w.abandoned.Get(d.ID); ok {
		log := w.logger.With("message_id", d.ID)
		log.Warn("redelivered job was already given up on, settling without handling")
		w.settleDeadLetter(settleCtx, d, d.Payload, reason, log)
		return
	}

	job, err := DecodeJob(d.Payload)
	if err != nil {
		log := w.logger.With("message_id", d.ID)
		log.Error("malformed airdrop job", "error", err)
		if w.settleDeadLetter(settleCtx, d, d.Payload, "malformed: "+err.Error(), log) {
			metrics.AirdropJobsProcessed.WithLabelValues("unknown", "dead_lettered").Inc()
		}
		return
	}

	label := job.ChainID.String()
	started := time.Now()
	jobCtx, cancel := context.WithTimeout(ctx, w.cfg.JobTimeout)
	outcome, err := w.safeHandle(jobCtx, job)
	cancel()
	metrics.AirdropJobLatency.WithLabelValues(label).Observe(time.Since(started).Seconds())

	if err == nil {
		if ackErr := w.queue.Ack(settleCtx, d); ackErr != nil {
			w.logger.Error("ack failed", "message_id", d.ID, "job_id", job.ID.String(), "error", ackErr)
		}
		metrics.AirdropJobsProcessed.WithLabelValues(label, string(outcome)).Inc()
		if w.health.RecordSuccess() {
			w.logger.Info("airdrop worker recovered")
		}
		return
	}

	if w.health.RecordFailure() {
		w.logger.Error("airdrop worker unhealthy", "consecutive_failures", w.health.Snapshot().ConsecutiveFailures)
	}

	job.Attempt++
	log := w.logger.With(
		"message_id", d.ID,
		"job_id", job.ID.String(),
		"wallet", job.WalletAddress,
		"chain", label,
		"attempt", job.Attempt,
		"error", err,
	)

	if retry.IsMarkedTerminal(err) || job.Attempt >= w.cfg.MaxAttempts {
		w.deadLetter(settleCtx, d, job, err, log)
		return
	}

	delay := retry.Backoff(job.Attempt, w.cfg.BaseBackoff, w.cfg.MaxBackoff)
	payload, encErr := job.Encode()
	if encErr != nil {
		w.deadLetter(settleCtx, d, job, errors.Join(err, encErr), log)
		return
	}
	if rErr := w.queue.RetryLater(settleCtx, d, payload, delay); rErr != nil {
		log.Error("schedule retry failed", "retry_error", rErr)
		return
	}
	metrics.AirdropJobsProcessed.WithLabelValues(label, "retried").Inc()
	log.Warn("airdrop failed, retry scheduled",
		"delay", delay,
		"classification", string(retry.Classify(err).Class),
	)
}

func (w *Worker) deadLetter(ctx context.Context, d *store.Delivery, job Job, cause error, log *slog.Logger) {
	label := job.ChainID.String()
	payload, err := job.Encode()
	if err != nil {
		payload = d.Payload
	}
	recorded := w.settleDeadLetter(ctx, d, payload, cause.Error(), log)
	if recorded {
		metrics.AirdropJobsProcessed.WithLabelValues(label, "dead_lettered").Inc()
		log.Error("airdrop job dead-lettered")
	} else {
		metrics.AirdropJobsProcessed.WithLabelValues(label, "dropped").Inc()
	}

	alertErr := w.alerter.Send(ctx, alert.Alert{
		Type:    alert.AlertTypeAirdropDeadLetter,
		Chain:   label,
		Subject: job.WalletAddress,
		Title:   "Airdrop job dead-lettered",
		Message: cause.Error(),
		Fields: map[string]string{
			"job_id":             job.ID.String(),
			"wallet":             job.WalletAddress,
			"attempts":           strconv.Itoa(job.Attempt),
			"dead_letter_record": strconv.FormatBool(recorded),
		},
	})
	if alertErr != nil {
		log.Warn("dead-letter alert failed", "alert_error", alertErr)
	}
}

// settleDeadLetter parks d in the dead-letter stream, retrying the write a
// few times. When the write keeps failing the delivery is acked anyway: a
// job given up on must not be handled again. It reports whether the
// dead-letter record was written.
func (w *Worker) settleDeadLetter(ctx context.Context, d *store.Delivery, payload []byte, reason string, log *slog.Logger) bool {
	var err error
	for attempt := 1; attempt <= settleAttempts; attempt++ {
		if err = w.queue.DeadLetter(ctx, d, payload, reason); err == nil {
			w.abandoned.Remove(d.ID)
			return true
		}
		log.Warn("dead-letter write failed", "try", attempt, "dead_letter_error", err)
		if attempt == settleAttempts || ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
		case <-time.After(retry.Backoff(attempt, settleBackoff, 2*time.Second)):
		}
	}

	if ackErr := w.queue.Ack(ctx, d); ackErr != nil {
		w.abandoned.Put(d.ID, reason)
		log.Error("job neither dead-lettered nor acked, redeliveries will be settled without handling",
			"critical", true,
			"reason", reason,
			"dead_letter_error", err,
			"ack_error", ackErr,
		)
		return false
	}
	w.abandoned.Remove(d.ID)
	log.Error("dead-letter write failed, job acked without a dead-letter record",
		"critical", true,
		"reason", reason,
		"payload", string(payload),
		"dead_letter_error", err,
	)
	return false
}

func (w *Worker) safeHandle(ctx context.Context, job Job) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("airdrop handler panic: %v\n%s", r, debug.Stack())
		}
	}()
	return w.handler.Handle(ctx, job)
}

func (w *Worker) refreshQueueDepth(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	stats, err := w.queue.Stats(ctx)
	if err != nil {
		w.logger.Debug("queue stats unavailable", "error", err)
		return
	}
	metrics.AirdropQueueDepth.WithLabelValues("ready").Set(float64(stats.Ready))
	metrics.AirdropQueueDepth.WithLabelValues("pending").Set(float64(stats.Pending))
	metrics.AirdropQueueDepth.WithLabelValues("delayed").Set(float64(stats.Delayed))
	metrics.AirdropQueueDepth.WithLabelValues("dead_letter").Set(float64(stats.DeadLetter))
}
