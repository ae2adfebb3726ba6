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

const estimationColumns = `id, cloudinary_public_id, estimated_age, wallet_address, chain_id, status, salt, end_date, created_at`

// publicEstimationColumns masks estimated_age until the record is revealed.
const publicEstimationColumns = `id, cloudinary_public_id,
	CASE WHEN status = 'REVEALED' THEN estimated_age ELSE NULL END AS estimated_age,
	wallet_address, chain_id, status, end_date, created_at`

type EstimationRepo struct {
	db *DB
}

func NewEstimationRepo(db *DB) *EstimationRepo {
	return &EstimationRepo{db: db}
}

var _ store.EstimationRepository = (*EstimationRepo)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEstimation(row rowScanner) (*model.Estimation, error) {
	var e model.Estimation
	if err := row.Scan(
		&e.ID, &e.ImageRef, &e.SecretAge, &e.WalletAddress, &e.ChainID,
		&e.Status, &e.Salt, &e.EndDate, &e.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &e, nil
}

func scanPublicEstimation(row rowScanner) (*model.PublicEstimation, error) {
	var (
		p   model.PublicEstimation
		age sql.NullInt64
	)
	if err := row.Scan(
		&p.ID, &p.ImageRef, &age, &p.WalletAddress, &p.ChainID,
		&p.Status, &p.EndDate, &p.CreatedAt,
	); err != nil {
		return nil, err
	}
	if age.Valid {
		v := int(age.Int64)
		p.EstimatedAge = &v
	}
	return &p, nil
}

func (r *EstimationRepo) Create(ctx context.Context, e model.NewEstimation) (int64, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO age_estimations (cloudinary_public_id, estimated_age, wallet_address, chain_id, status)
		VALUES ($1, $2, $3, $4, 'UNREVEALED')
		RETURNING id
	`, e.ImageRef, e.SecretAge, e.WalletAddress, e.ChainID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert age estimation: %w", err)
	}
	return id, nil
}

func (r *EstimationRepo) GetPublic(ctx context.Context, id int64) (*model.PublicEstimation, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	p, err := scanPublicEstimation(r.db.QueryRowContext(ctx,
		`SELECT `+publicEstimationColumns+` FROM age_estimations WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get public age estimation %d: %w", id, err)
	}
	return p, nil
}

func (r *EstimationRepo) GetInternal(ctx context.Context, id int64) (*model.Estimation, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	e, err := scanEstimation(r.db.QueryRowContext(ctx,
		`SELECT `+estimationColumns+` FROM age_estimations WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get age estimation %d: %w", id, err)
	}
	return e, nil
}

func (r *EstimationRepo) GetStatusAndSalt(ctx context.Context, id int64) (*model.StatusAndSalt, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var s model.StatusAndSalt
	err := r.db.QueryRowContext(ctx,
		`SELECT status, salt FROM age_estimations WHERE id = $1`, id,
	).Scan(&s.Status, &s.Salt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get status of age estimation %d: %w", id, err)
	}
	return &s, nil
}

// SetSalt writes salt only when none is stored yet; the returned record
// always carries the salt that is actually persisted, so a caller that lost
// a race sees a salt different from the one it generated.
func (r *EstimationRepo) SetSalt(ctx context.Context, id int64, salt string) (*model.Estimation, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	e, err := scanEstimation(r.db.QueryRowContext(ctx, `
		UPDATE age_estimations
		SET salt = COALESCE(salt, $2)
		WHERE id = $1
		RETURNING `+estimationColumns, id, salt))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("set salt on age estimation %d: %w", id, err)
	}
	return e, nil
}

func (r *EstimationRepo) MarkRevealed(ctx context.Context, id int64) (*model.Estimation, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	e, err := scanEstimation(r.db.QueryRowContext(ctx, `
		UPDATE age_estimations
		SET status = 'REVEALED'
		WHERE id = $1
		RETURNING `+estimationColumns, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("mark age estimation %d revealed: %w", id, store.ErrRowVanished)
	}
	if err != nil {
		return nil, fmt.Errorf("mark age estimation %d revealed: %w", id, err)
	}
	return e, nil
}

func (r *EstimationRepo) SetEndDate(ctx context.Context, id int64, endDate time.Time) error {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx,
		`UPDATE age_estimations SET end_date = $2 WHERE id = $1`, id, endDate.UTC(),
	); err != nil {
		return fmt.Errorf("set end date on age estimation %d: %w", id, err)
	}
	return nil
}

func (r *EstimationRepo) List(ctx context.Context, filter store.ListFilter) ([]model.PublicEstimation, int, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var chainArg any
	if filter.ChainID != nil {
		chainArg = int64(*filter.ChainID)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+publicEstimationColumns+`
		FROM age_estimations
		WHERE ($1::integer IS NULL OR chain_id = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, chainArg, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list age estimations: %w", err)
	}
	defer rows.Close()

	items := make([]model.PublicEstimation, 0, filter.Limit)
	for rows.Next() {
		p, err := scanPublicEstimation(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan age estimation: %w", err)
		}
		items = append(items, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list age estimations rows: %w", err)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM age_estimations
		WHERE ($1::integer IS NULL OR chain_id = $1)
	`, chainArg).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count age estimations: %w", err)
	}

	return items, total, nil
}

func (r *EstimationRepo) ListUnrevealedStarted(ctx context.Context, chainID model.ChainID, afterID int64, limit int) ([]model.Estimation, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+estimationColumns+`
		FROM age_estimations
		WHERE chain_id = $1 AND status = 'UNREVEALED' AND salt IS NOT NULL AND id > $2
		ORDER BY id
		LIMIT $3
	`, chainID, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list unrevealed started estimations: %w", err)
	}
	defer rows.Close()

	var out []model.Estimation
	for rows.Next() {
		e, err := scanEstimation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan unrevealed estimation: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}
