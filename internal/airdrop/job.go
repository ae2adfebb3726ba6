// Package airdrop pays a one-time native-token reward to first-time wallets.
// Jobs are consumed by a single sequential worker: transfers share one
// funding identity and must never overlap.
package airdrop

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/owentar/zeta-hackathon/internal/domain/model"
)

// Job is the queued unit of work. Attempt counts deliveries that already
// failed.
type Job struct {
	ID            uuid.UUID     `json:"id"`
	WalletAddress string        `json:"walletAddress"`
	ChainID       model.ChainID `json:"chainId"`
	Attempt       int           `json:"attempt"`
	EnqueuedAt    time.Time     `json:"enqueuedAt"`
}

func NewJob(wallet string, chainID model.ChainID, now time.Time) Job {
	return Job{
		ID:            uuid.New(),
		WalletAddress: wallet,
		ChainID:       chainID,
		EnqueuedAt:    now.UTC(),
	}
}

func (j Job) Encode() ([]byte, error) {
	b, err := json.Marshal(j)
	if err != nil {
		return nil, fmt.Errorf("encode airdrop job: %w", err)
	}
	return b, nil
}

func DecodeJob(b []byte) (Job, error) {
	var j Job
	if err := json.Unmarshal(b, &j); err != nil {
		return Job{}, fmt.Errorf("decode airdrop job: %w", err)
	}
	if j.WalletAddress == "" {
		return Job{}, fmt.Errorf("decode airdrop job: missing wallet address")
	}
	if err := model.ValidateChainID(j.ChainID); err != nil {
		return Job{}, fmt.Errorf("decode airdrop job: %w", err)
	}
	return j, nil
}
