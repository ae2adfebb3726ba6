package model

import "time"

type EstimationStatus string

const (
	EstimationUnrevealed EstimationStatus = "UNREVEALED"
	EstimationRevealed   EstimationStatus = "REVEALED"
)

// Estimation is the full internal record, including the secret age and salt.
// It must never be serialized to a client.
type Estimation struct {
	ID            int64            `db:"id"`
	ImageRef      string           `db:"cloudinary_public_id"`
	SecretAge     int              `db:"estimated_age"`
	WalletAddress string           `db:"wallet_address"`
	ChainID       ChainID          `db:"chain_id"`
	Status        EstimationStatus `db:"status"`
	Salt          *string          `db:"salt"`
	EndDate       *time.Time       `db:"end_date"`
	CreatedAt     time.Time        `db:"created_at"`
}

func (e *Estimation) Revealed() bool {
	return e.Status == EstimationRevealed
}

func (e *Estimation) Started() bool {
	return e.Salt != nil
}

// Public returns the masked view of the record.
func (e *Estimation) Public() *PublicEstimation {
	p := &PublicEstimation{
		ID:            e.ID,
		ImageRef:      e.ImageRef,
		WalletAddress: e.WalletAddress,
		ChainID:       e.ChainID,
		Status:        e.Status,
		EndDate:       e.EndDate,
		CreatedAt:     e.CreatedAt,
	}
	if e.Revealed() {
		age := e.SecretAge
		p.EstimatedAge = &age
	}
	return p
}

// PublicEstimation is the client-facing read model. EstimatedAge is nil
// until the record is REVEALED.
type PublicEstimation struct {
	ID            int64            `json:"id"`
	ImageRef      string           `json:"cloudinary_public_id"`
	EstimatedAge  *int             `json:"estimated_age"`
	WalletAddress string           `json:"wallet_address"`
	ChainID       ChainID          `json:"chain_id"`
	Status        EstimationStatus `json:"status"`
	EndDate       *time.Time       `json:"end_date"`
	CreatedAt     time.Time        `json:"created_at"`
}

// StatusAndSalt is the narrow projection used for transition eligibility.
type StatusAndSalt struct {
	Status EstimationStatus
	Salt   *string
}

// NewEstimation carries the fields set at creation time.
type NewEstimation struct {
	ImageRef      string
	SecretAge     int
	WalletAddress string
	ChainID       ChainID
}
