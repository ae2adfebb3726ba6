package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/owentar/zeta-hackathon/internal/store"
)

const (
	// AirdropWorkerLockID keeps a single airdrop worker consuming the queue
	// even when several worker processes are deployed.
	AirdropWorkerLockID int64 = 0x61697264726f70 // "airdrop"

	defaultLeaseRetry = 5 * time.Second
	defaultLeaseCheck = 10 * time.Second
)

// AdvisoryLease is a session-level pg_advisory_lock held on a dedicated
// connection. The lock lives exactly as long as that session.
type AdvisoryLease struct {
	db         *DB
	id         int64
	retryEvery time.Duration
	checkEvery time.Duration
	logger     *slog.Logger
}

type LeaseOption func(*AdvisoryLease)

// WithLeasePolling sets how often a waiting process retries the lock and how
// often the holder checks its session.
func WithLeasePolling(retry, check time.Duration) LeaseOption {
	return func(l *AdvisoryLease) {
		if retry > 0 {
			l.retryEvery = retry
		}
		if check > 0 {
			l.checkEvery = check
		}
	}
}

func NewAdvisoryLease(db *DB, id int64, logger *slog.Logger, opts ...LeaseOption) *AdvisoryLease {
	l := &AdvisoryLease{
		db:         db,
		id:         id,
		retryEvery: defaultLeaseRetry,
		checkEvery: defaultLeaseCheck,
		logger:     logger.With("component", "advisory_lease", "lock_id", id),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *AdvisoryLease) Acquire(ctx context.Context) (store.HeldLease, error) {
	waiting := false
	for {
		held, err := l.tryAcquire(ctx)
		if err != nil {
			return nil, err
		}
		if held != nil {
			l.logger.Info("lease acquired")
			return held, nil
		}
		if !waiting {
			l.logger.Info("lease held by another process, waiting")
			waiting = true
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryEvery):
		}
	}
}

func (l *AdvisoryLease) tryAcquire(ctx context.Context) (*heldAdvisoryLease, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire lease conn: %w", err)
	}
	var ok bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.id).Scan(&ok); err != nil {
		conn.Close()
		return nil, fmt.Errorf("try advisory lock %d: %w", l.id, err)
	}
	if !ok {
		conn.Close()
		return nil, nil
	}

	h := &heldAdvisoryLease{
		conn:   conn,
		id:     l.id,
		lost:   make(chan struct{}),
		stop:   make(chan struct{}),
		logger: l.logger,
	}
	h.wg.Add(1)
	go h.watch(l.checkEvery)
	return h, nil
}

type heldAdvisoryLease struct {
	conn   *sql.Conn
	id     int64
	lost   chan struct{}
	stop   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	logger *slog.Logger
}

func (h *heldAdvisoryLease) Lost() <-chan struct{} { return h.lost }

// watch pings the session; a dead session has already dropped the lock.
func (h *heldAdvisoryLease) watch(every time.Duration) {
	defer h.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), every)
			err := h.conn.PingContext(ctx)
			cancel()
			if err != nil {
				h.logger.Error("lease session lost", "error", err)
				close(h.lost)
				return
			}
		}
	}
}

func (h *heldAdvisoryLease) Release() {
	h.once.Do(func() {
		close(h.stop)
		h.wg.Wait()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := h.conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", h.id); err != nil {
			// Returning the session to the pool would keep the lock alive.
			h.logger.Warn("advisory unlock failed, discarding session", "error", err)
			_ = h.conn.Raw(func(any) error { return driver.ErrBadConn })
		}
		h.conn.Close()
		h.logger.Info("lease released")
	})
}
