package model

import "time"

type AirdropStatus string

const (
	AirdropQueued    AirdropStatus = "QUEUED"
	AirdropCompleted AirdropStatus = "COMPLETED"
)

func (s AirdropStatus) Valid() bool {
	return s == AirdropQueued || s == AirdropCompleted
}

// AirdropEntry is one row of the airdrop ledger. At most one exists per
// (WalletAddress, ChainID).
type AirdropEntry struct {
	ID            int64         `db:"id" json:"id"`
	WalletAddress string        `db:"wallet_address" json:"wallet_address"`
	ChainID       ChainID       `db:"chain_id" json:"chain_id"`
	Status        AirdropStatus `db:"status" json:"status"`
	TxHash        *string       `db:"tx_hash" json:"tx_hash"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}
