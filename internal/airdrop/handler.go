package airdrop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/owentar/zeta-hackathon/internal/chain"
	"github.com/owentar/zeta-hackathon/internal/retry"
	"github.com/owentar/zeta-hackathon/internal/store"
)

type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeSkipped   Outcome = "skipped"
)

const (
	markAttempts = 3
	markBackoff  = 200 * time.Millisecond
)

// Handler performs one airdrop transfer, gated by the ledger.
type Handler struct {
	ledger  store.AirdropLedgerRepository
	gateway chain.Gateway
	amounts Amounts
	logger  *slog.Logger
}

func NewHandler(ledger store.AirdropLedgerRepository, gateway chain.Gateway, amounts Amounts, logger *slog.Logger) *Handler {
	return &Handler{
		ledger:  ledger,
		gateway: gateway,
		amounts: amounts,
		logger:  logger.With("component", "airdrop_handler"),
	}
}

// Handle transfers the airdrop amount when the wallet's ledger entry is still
// QUEUED. A missing or COMPLETED entry drops the job without error.
//
// Errors marked retry.Terminal must not be retried: either the transfer can
// never succeed, or it may already have landed.
func (h *Handler) Handle(ctx context.Context, job Job) (Outcome, error) {
	log := h.logger.With(
		"job_id", job.ID.String(),
		"wallet", job.WalletAddress,
		"chain", job.ChainID.String(),
		"attempt", job.Attempt,
	)

	entry, err := h.ledger.FindQueued(ctx, job.WalletAddress, job.ChainID)
	if err != nil {
		return "", retry.Transient(fmt.Errorf("load ledger entry: %w", err))
	}
	if entry == nil {
		log.InfoContext(ctx, "no queued ledger entry, dropping job")
		return OutcomeSkipped, nil
	}

	amount, err := h.amounts.For(job.ChainID)
	if err != nil {
		return "", retry.Terminal(err)
	}

	receipt, err := h.gateway.TransferNative(ctx, job.ChainID, job.WalletAddress, amount)
	switch {
	case err == nil:
	case errors.Is(err, chain.ErrInsufficientFunds):
		// The funding wallet can be topped up; keep retrying.
		return "", retry.Transient(err)
	case errors.Is(err, chain.ErrOutcomeUnknown):
		// Resending could pay the wallet twice.
		return "", retry.Terminal(err)
	default:
		return "", err
	}

	log.InfoContext(ctx, "airdrop transferred",
		"tx_hash", receipt.Hash,
		"block", receipt.BlockNumber,
		"amount", FormatAmount(amount),
	)

	if err := h.markCompleted(ctx, entry.ID, receipt.Hash); err != nil {
		log.ErrorContext(ctx, "airdrop sent but ledger update failed",
			"critical", true,
			"ledger_id", entry.ID,
			"tx_hash", receipt.Hash,
			"error", err,
		)
		return "", retry.Terminal(fmt.Errorf("mark ledger %d completed after tx %s: %w", entry.ID, receipt.Hash, err))
	}
	return OutcomeCompleted, nil
}

// markCompleted retries the ledger update in place; redelivering the job
// would repeat the transfer.
func (h *Handler) markCompleted(ctx context.Context, id int64, txHash string) error {
	var err error
	for attempt := 1; attempt <= markAttempts; attempt++ {
		err = h.ledger.MarkCompleted(ctx, id, txHash)
		if err == nil || errors.Is(err, store.ErrRowVanished) {
			if err != nil {
				h.logger.WarnContext(ctx, "ledger entry no longer queued", "ledger_id", id, "tx_hash", txHash)
			}
			return nil
		}
		if attempt == markAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(retry.Backoff(attempt, markBackoff, 2*time.Second)):
		}
	}
	return err
}
