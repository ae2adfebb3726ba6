package zeta

import (
	"context"
	"fmt"

	"github.com/owentar/zeta-hackathon/internal/chain"
	"github.com/owentar/zeta-hackathon/internal/commitment"
	"github.com/owentar/zeta-hackathon/internal/domain/model"
)

// VerifyCommitment asks the contract to hash a random (age, salt) pair and
// compares it with the local codec. A mismatch means every reveal on that
// chain would be rejected.
func VerifyCommitment(ctx context.Context, gw chain.Gateway, chainID model.ChainID) error {
	salt, err := commitment.GenerateSalt()
	if err != nil {
		return err
	}
	const probeAge = 42

	local, err := commitment.Commit(probeAge, salt)
	if err != nil {
		return err
	}
	remote, err := gw.ComputeHash(ctx, chainID, probeAge, salt)
	if err != nil {
		return fmt.Errorf("commitment self-check on %s: %w", chainID, err)
	}
	if local != remote {
		return fmt.Errorf("commitment self-check on %s: contract hash %s, local hash %s", chainID, remote.Hex(), local.Hex())
	}
	return nil
}
