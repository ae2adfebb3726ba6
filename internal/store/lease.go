package store

import (
	"context"
	"errors"
)

// ErrLeaseLost is returned once a held lease can no longer be vouched for.
var ErrLeaseLost = errors.New("lease lost")

// Lease is a lock shared by every process that consumes the same work.
type Lease interface {
	// Acquire blocks until the lease is held or ctx is done.
	Acquire(ctx context.Context) (HeldLease, error)
}

type HeldLease interface {
	// Lost is closed when the lease stopped being exclusive, for example
	// because the session holding it died.
	Lost() <-chan struct{}
	Release()
}
