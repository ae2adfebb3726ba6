package chain

//go:generate mockgen -source=gateway.go -destination=mocks/gateway_mock.go -package=mocks

import (
	"context"
	"errors"
	"math/big"

	"github.com/owentar/zeta-hackathon/internal/commitment"
	"github.com/owentar/zeta-hackathon/internal/domain/model"
)

var (
	// ErrInsufficientFunds is returned by TransferNative before anything is
	// sent when the funding identity cannot cover the amount.
	ErrInsufficientFunds = errors.New("insufficient funds in funding wallet")
	// ErrTxReverted means the transaction was mined with a failure status.
	ErrTxReverted = errors.New("transaction reverted")
	// ErrOutcomeUnknown wraps write failures after the transaction may have
	// been broadcast: it may or may not land.
	ErrOutcomeUnknown = errors.New("transaction outcome unknown")
)

// TxReceipt is the confirmed result of a state-changing call.
type TxReceipt struct {
	Hash        string
	BlockNumber uint64
	GasUsed     uint64
}

// Gateway exposes the narrow set of contract and transfer operations the
// game and the airdrop pipeline need. Every call fails with
// model.ErrUnsupportedChain for chains outside the registry.
type Gateway interface {
	ReadGame(ctx context.Context, chainID model.ChainID, gameID int64) (*model.Game, error)
	PlayerBet(ctx context.Context, chainID model.ChainID, gameID int64, player string) (*model.PlayerBet, error)
	// RevealAndFinish signs with the revealer identity and waits for the receipt.
	RevealAndFinish(ctx context.Context, chainID model.ChainID, gameID int64, age int, salt commitment.Salt) (*TxReceipt, error)
	// TransferNative signs with the funding identity and waits for the receipt.
	TransferNative(ctx context.Context, chainID model.ChainID, to string, amountWei *big.Int) (*TxReceipt, error)
	ComputeHash(ctx context.Context, chainID model.ChainID, age int, salt commitment.Salt) (commitment.Hash, error)
}
