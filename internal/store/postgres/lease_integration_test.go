//go:build integration

package postgres_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owentar/zeta-hackathon/internal/store/postgres"
)

func TestAdvisoryLease_SecondHolderWaits(t *testing.T) {
	db := testDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	polling := postgres.WithLeasePolling(20*time.Millisecond, time.Second)
	first := postgres.NewAdvisoryLease(db, postgres.AirdropWorkerLockID, logger, polling)
	second := postgres.NewAdvisoryLease(db, postgres.AirdropWorkerLockID, logger, polling)

	held, err := first.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	_, err = second.Acquire(ctx)
	cancel()
	require.ErrorIs(t, err, context.DeadlineExceeded)

	acquired := make(chan struct{})
	go func() {
		h, err := second.Acquire(context.Background())
		if assert.NoError(t, err) {
			h.Release()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired while the first still holds the lease")
	case <-time.After(100 * time.Millisecond):
	}

	held.Release()
	select {
	case <-acquired:
	case <-time.After(5 * time.Second):
		t.Fatal("second holder never acquired the released lease")
	}
}

func TestAdvisoryLease_ReleaseIsIdempotent(t *testing.T) {
	db := testDB(t)
	lease := postgres.NewAdvisoryLease(db, postgres.AirdropWorkerLockID,
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	held, err := lease.Acquire(context.Background())
	require.NoError(t, err)
	held.Release()
	held.Release()

	again, err := lease.Acquire(context.Background())
	require.NoError(t, err)
	again.Release()
}
