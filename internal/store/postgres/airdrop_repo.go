package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/owentar/zeta-hackathon/internal/domain/model"
	"github.com/owentar/zeta-hackathon/internal/store"
)

const airdropColumns = `id, wallet_address, chain_id, status, tx_hash, created_at, updated_at`

type AirdropRepo struct {
	db *DB
}

func NewAirdropRepo(db *DB) *AirdropRepo {
	return &AirdropRepo{db: db}
}

var _ store.AirdropLedgerRepository = (*AirdropRepo)(nil)

func scanAirdrop(row rowScanner) (*model.AirdropEntry, error) {
	var a model.AirdropEntry
	if err := row.Scan(&a.ID, &a.WalletAddress, &a.ChainID, &a.Status, &a.TxHash, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// RecordIfAbsent relies on the (wallet_address, chain_id) unique constraint:
// concurrent callers race on the insert and exactly one of them gets a row
// back. A unique violation surfacing from a racing transaction is treated the
// same as the conflict branch.
func (r *AirdropRepo) RecordIfAbsent(ctx context.Context, wallet string, chainID model.ChainID) (bool, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO airdropped_wallets (wallet_address, chain_id, status)
		VALUES ($1, $2, 'QUEUED')
		ON CONFLICT (wallet_address, chain_id) DO NOTHING
		RETURNING id
	`, wallet, chainID).Scan(&id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sql.ErrNoRows), isUniqueViolation(err):
		return false, nil
	default:
		return false, fmt.Errorf("record airdrop for %s on %d: %w", wallet, chainID, err)
	}
}

func (r *AirdropRepo) Get(ctx context.Context, wallet string, chainID model.ChainID) (*model.AirdropEntry, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	a, err := scanAirdrop(r.db.QueryRowContext(ctx,
		`SELECT `+airdropColumns+` FROM airdropped_wallets WHERE wallet_address = $1 AND chain_id = $2`,
		wallet, chainID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get airdrop for %s on %d: %w", wallet, chainID, err)
	}
	return a, nil
}

func (r *AirdropRepo) FindQueued(ctx context.Context, wallet string, chainID model.ChainID) (*model.AirdropEntry, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	a, err := scanAirdrop(r.db.QueryRowContext(ctx, `
		SELECT `+airdropColumns+` FROM airdropped_wallets
		WHERE wallet_address = $1 AND chain_id = $2 AND status = 'QUEUED'
	`, wallet, chainID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find queued airdrop for %s on %d: %w", wallet, chainID, err)
	}
	return a, nil
}

func (r *AirdropRepo) MarkCompleted(ctx context.Context, id int64, txHash string) error {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE airdropped_wallets
		SET status = 'COMPLETED', tx_hash = $2, updated_at = now()
		WHERE id = $1 AND status = 'QUEUED'
	`, id, txHash)
	if err != nil {
		return fmt.Errorf("mark airdrop %d completed: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark airdrop %d completed rows: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("mark airdrop %d completed: %w", id, store.ErrRowVanished)
	}
	return nil
}

func (r *AirdropRepo) ListByStatus(ctx context.Context, status model.AirdropStatus, limit, offset int) ([]model.AirdropEntry, int, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+airdropColumns+` FROM airdropped_wallets
		WHERE status = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, status, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list airdrops by status: %w", err)
	}
	defer rows.Close()

	entries, err := collectAirdrops(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM airdropped_wallets WHERE status = $1`, status,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count airdrops by status: %w", err)
	}
	return entries, total, nil
}

func (r *AirdropRepo) ListStaleQueued(ctx context.Context, chainID model.ChainID, olderThan time.Time, limit int) ([]model.AirdropEntry, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+airdropColumns+` FROM airdropped_wallets
		WHERE chain_id = $1 AND status = 'QUEUED' AND updated_at < $2
		ORDER BY updated_at
		LIMIT $3
	`, chainID, olderThan.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list stale queued airdrops: %w", err)
	}
	defer rows.Close()

	return collectAirdrops(rows)
}

func collectAirdrops(rows *sql.Rows) ([]model.AirdropEntry, error) {
	var out []model.AirdropEntry
	for rows.Next() {
		a, err := scanAirdrop(rows)
		if err != nil {
			return nil, fmt.Errorf("scan airdrop: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("airdrop rows: %w", err)
	}
	return out, nil
}

func (r *AirdropRepo) TouchQueued(ctx context.Context, id int64) error {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx,
		`UPDATE airdropped_wallets SET updated_at = now() WHERE id = $1 AND status = 'QUEUED'`, id,
	); err != nil {
		return fmt.Errorf("touch queued airdrop %d: %w", id, err)
	}
	return nil
}
