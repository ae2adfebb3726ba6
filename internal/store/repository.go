package store

//go:generate mockgen -source=repository.go -destination=mocks/repository_mock.go -package=mocks

import (
	"context"
	"errors"
	"time"

	"github.com/owentar/zeta-hackathon/internal/domain/model"
)

// ErrRowVanished is returned by updates that must affect exactly one row
// when the row no longer exists.
var ErrRowVanished = errors.New("row vanished between check and update")

// ListFilter selects a page of estimations, newest first.
type ListFilter struct {
	Limit   int
	Offset  int
	ChainID *model.ChainID
}

// EstimationRepository owns the age_estimations table. Lookups of a missing
// id return (nil, nil).
type EstimationRepository interface {
	Create(ctx context.Context, e model.NewEstimation) (int64, error)
	GetPublic(ctx context.Context, id int64) (*model.PublicEstimation, error)
	GetInternal(ctx context.Context, id int64) (*model.Estimation, error)
	GetStatusAndSalt(ctx context.Context, id int64) (*model.StatusAndSalt, error)
	// SetSalt does not check the current salt; callers own check-then-set.
	SetSalt(ctx context.Context, id int64, salt string) (*model.Estimation, error)
	// MarkRevealed returns ErrRowVanished when no row was updated.
	MarkRevealed(ctx context.Context, id int64) (*model.Estimation, error)
	SetEndDate(ctx context.Context, id int64, endDate time.Time) error
	List(ctx context.Context, filter ListFilter) ([]model.PublicEstimation, int, error)
	// ListUnrevealedStarted returns UNREVEALED records that already have a salt
	// and an id above afterID, in id order. Pass the last id of a page to get
	// the next one.
	ListUnrevealedStarted(ctx context.Context, chainID model.ChainID, afterID int64, limit int) ([]model.Estimation, error)
}

// AirdropLedgerRepository owns the airdropped_wallets table.
type AirdropLedgerRepository interface {
	// RecordIfAbsent inserts a QUEUED entry unless one exists for the pair.
	RecordIfAbsent(ctx context.Context, wallet string, chainID model.ChainID) (created bool, err error)
	Get(ctx context.Context, wallet string, chainID model.ChainID) (*model.AirdropEntry, error)
	FindQueued(ctx context.Context, wallet string, chainID model.ChainID) (*model.AirdropEntry, error)
	// MarkCompleted moves a QUEUED entry to COMPLETED; returns ErrRowVanished
	// when no QUEUED entry with that id exists.
	MarkCompleted(ctx context.Context, id int64, txHash string) error
	ListByStatus(ctx context.Context, status model.AirdropStatus, limit, offset int) ([]model.AirdropEntry, int, error)
	// ListStaleQueued returns QUEUED entries of chainID not updated since
	// olderThan, least recently touched first.
	ListStaleQueued(ctx context.Context, chainID model.ChainID, olderThan time.Time, limit int) ([]model.AirdropEntry, error)
	// TouchQueued bumps updated_at of a QUEUED entry after it was re-enqueued.
	TouchQueued(ctx context.Context, id int64) error
}
