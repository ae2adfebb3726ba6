// Package game drives an estimation through its commit-reveal lifecycle
// across the record store, the contract and the airdrop queue.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"

	"github.com/owentar/zeta-hackathon/internal/alert"
	"github.com/owentar/zeta-hackathon/internal/apperr"
	"github.com/owentar/zeta-hackathon/internal/chain"
	"github.com/owentar/zeta-hackathon/internal/commitment"
	"github.com/owentar/zeta-hackathon/internal/domain/model"
	"github.com/owentar/zeta-hackathon/internal/metrics"
	"github.com/owentar/zeta-hackathon/internal/store"
	"github.com/owentar/zeta-hackathon/internal/tracing"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100

	tracerName = "game"
)

// AirdropEnqueuer hands a first-time wallet to the airdrop pipeline.
type AirdropEnqueuer interface {
	EnqueueAirdrop(ctx context.Context, wallet string, chainID model.ChainID) error
}

type Config struct {
	// LegacyRevealEnabled turns on the store-only reveal path.
	LegacyRevealEnabled bool
}

type Service struct {
	estimations store.EstimationRepository
	airdrops    store.AirdropLedgerRepository
	gateway     chain.Gateway
	enqueuer    AirdropEnqueuer
	alerter     alert.Alerter
	cfg         Config
	logger      *slog.Logger
	now         func() time.Time
	newSalt     func() (commitment.Salt, error)
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithAlerter(a alert.Alerter) Option {
	return func(s *Service) { s.alerter = a }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithSaltSource(fn func() (commitment.Salt, error)) Option {
	return func(s *Service) { s.newSalt = fn }
}

func NewService(
	estimations store.EstimationRepository,
	airdrops store.AirdropLedgerRepository,
	gateway chain.Gateway,
	enqueuer AirdropEnqueuer,
	cfg Config,
	opts ...Option,
) *Service {
	s := &Service{
		estimations: estimations,
		airdrops:    airdrops,
		gateway:     gateway,
		enqueuer:    enqueuer,
		alerter:     &alert.NoopAlerter{},
		cfg:         cfg,
		logger:      slog.Default(),
		now:         time.Now,
		newSalt:     commitment.GenerateSalt,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "game")
	return s
}

type CreateInput struct {
	ImageRef string
	Age      int
	Wallet   string
	ChainID  model.ChainID
}

type StartResult struct {
	ID         int64  `json:"id"`
	AgeHash    string `json:"ageHash"`
	IsRewarded bool   `json:"isRewarded"`
}

// EstimationView is the public record plus its derived lifecycle phase.
type EstimationView struct {
	model.PublicEstimation
	Phase Phase `json:"phase"`
}

type ListInput struct {
	Limit   int
	Offset  int
	ChainID *model.ChainID
}

type ListResult struct {
	Items  []model.PublicEstimation `json:"items"`
	Total  int                      `json:"total"`
	Limit  int                      `json:"limit"`
	Offset int                      `json:"offset"`
}

// BetView is a player's bet on one game and whether a prize can be claimed.
type BetView struct {
	EstimationID int64            `json:"estimationId"`
	Bet          *model.PlayerBet `json:"bet"`
	GameFinished bool             `json:"gameFinished"`
	Claimable    bool             `json:"claimable"`
}

// NormalizeWallet validates a hex address and lower-cases it.
func NormalizeWallet(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !common.IsHexAddress(raw) {
		return "", apperr.Validation("Invalid wallet")
	}
	return strings.ToLower(raw), nil
}

func (s *Service) observe(op string, chainID model.ChainID, started time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(apperr.KindOf(err))
	}
	label := "unknown"
	if chainID != 0 {
		label = chainID.String()
	}
	metrics.GameOperationsTotal.WithLabelValues(op, label, outcome).Inc()
	metrics.GameOperationLatency.WithLabelValues(op, label).Observe(time.Since(started).Seconds())
}

// chainFailure maps a gateway error onto the error taxonomy.
func chainFailure(msg string, err error) error {
	var unsupported *model.ErrUnsupportedChain
	if errors.As(err, &unsupported) {
		return apperr.Validation("%s", unsupported.Error())
	}
	if errors.Is(err, chain.ErrOutcomeUnknown) {
		return apperr.ExternalService(msg+" (outcome unknown, check chain state before retrying)", err)
	}
	return apperr.ExternalService(msg, err)
}

func (s *Service) load(ctx context.Context, id int64) (*model.Estimation, error) {
	rec, err := s.estimations.GetInternal(ctx, id)
	if err != nil {
		return nil, apperr.Internal("load estimation", err)
	}
	if rec == nil {
		return nil, apperr.NotFound("Age estimation %d not found", id)
	}
	return rec, nil
}

func (s *Service) CreateEstimation(ctx context.Context, in CreateInput) (id int64, err error) {
	started := time.Now()
	defer func() { s.observe("create_estimation", in.ChainID, started, err) }()

	if err := model.ValidateChainID(in.ChainID); err != nil {
		return 0, apperr.Validation("%s", err.Error())
	}
	wallet, err := NormalizeWallet(in.Wallet)
	if err != nil {
		return 0, err
	}
	if in.Age < 0 {
		return 0, apperr.Validation("age must be non-negative")
	}
	if strings.TrimSpace(in.ImageRef) == "" {
		return 0, apperr.Validation("image reference is required")
	}

	id, err = s.estimations.Create(ctx, model.NewEstimation{
		ImageRef:      in.ImageRef,
		SecretAge:     in.Age,
		WalletAddress: wallet,
		ChainID:       in.ChainID,
	})
	if err != nil {
		return 0, apperr.Internal("create estimation", err)
	}
	s.logger.InfoContext(ctx, "estimation created", "estimation_id", id, "chain", in.ChainID.String(), "wallet", wallet)
	return id, nil
}

// StartGame commits the secret age: it stores a fresh salt and returns the
// hash the owner submits to createGame. The on-chain owner check is the
// authoritative guard against concurrent starts; the store check only
// short-circuits the common case.
func (s *Service) StartGame(ctx context.Context, id int64) (res *StartResult, err error) {
	started := time.Now()
	ctx, span := tracing.Start(ctx, tracerName, "game.StartGame", attribute.Int64("estimation_id", id))
	var chainID model.ChainID
	defer func() {
		tracing.End(span, err)
		s.observe("start_game", chainID, started, err)
	}()

	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	chainID = rec.ChainID
	if rec.Revealed() {
		return nil, apperr.BusinessRule("Game already revealed")
	}
	if rec.Started() {
		return nil, apperr.BusinessRule("Game already started")
	}

	onChain, err := s.gateway.ReadGame(ctx, rec.ChainID, id)
	if err != nil {
		return nil, chainFailure("read on-chain game", err)
	}
	if onChain.Started() {
		return nil, apperr.BusinessRule("Game already started on-chain")
	}

	salt, err := s.newSalt()
	if err != nil {
		return nil, apperr.Internal("generate salt", err)
	}
	hash, err := commitment.Commit(rec.SecretAge, salt)
	if err != nil {
		return nil, apperr.Internal("compute commitment", err)
	}

	updated, err := s.estimations.SetSalt(ctx, id, string(salt))
	if err != nil {
		return nil, apperr.Internal("persist salt", err)
	}
	if updated == nil {
		return nil, apperr.NotFound("Age estimation %d not found", id)
	}
	if updated.Salt == nil || *updated.Salt != string(salt) {
		// Another request committed between our read and write.
		return nil, apperr.BusinessRule("Game already started")
	}

	rewarded := s.rewardFirstTimeWallet(ctx, rec)

	s.logger.InfoContext(ctx, "game committed",
		"estimation_id", id,
		"chain", rec.ChainID.String(),
		"age_hash", hash.Hex(),
		"rewarded", rewarded,
	)
	return &StartResult{ID: id, AgeHash: hash.Hex(), IsRewarded: rewarded}, nil
}

// rewardFirstTimeWallet records the wallet in the airdrop ledger and queues
// the transfer. The salt is already persisted at this point, so failures are
// logged rather than returned: a QUEUED entry that never reached the queue is
// re-enqueued by reconciliation.
func (s *Service) rewardFirstTimeWallet(ctx context.Context, rec *model.Estimation) bool {
	created, err := s.airdrops.RecordIfAbsent(ctx, rec.WalletAddress, rec.ChainID)
	if err != nil {
		s.logger.WarnContext(ctx, "airdrop ledger insert failed",
			"estimation_id", rec.ID,
			"wallet", rec.WalletAddress,
			"chain", rec.ChainID.String(),
			"error", err,
		)
		return false
	}
	if !created {
		return false
	}

	if err := s.enqueuer.EnqueueAirdrop(ctx, rec.WalletAddress, rec.ChainID); err != nil {
		s.logger.ErrorContext(ctx, "airdrop enqueue failed, left for reconciliation",
			"estimation_id", rec.ID,
			"wallet", rec.WalletAddress,
			"chain", rec.ChainID.String(),
			"error", err,
		)
	}
	return true
}

// FinishGame reveals the secret age on-chain and then marks the record
// REVEALED. If the chain already shows the game finished (an earlier attempt
// landed), the reveal transaction is skipped and only the store is updated.
func (s *Service) FinishGame(ctx context.Context, id int64) (out *model.PublicEstimation, err error) {
	started := time.Now()
	ctx, span := tracing.Start(ctx, tracerName, "game.FinishGame", attribute.Int64("estimation_id", id))
	var chainID model.ChainID
	defer func() {
		tracing.End(span, err)
		s.observe("finish_game", chainID, started, err)
	}()

	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	chainID = rec.ChainID
	if rec.Revealed() {
		return nil, apperr.BusinessRule("Game already revealed")
	}
	if !rec.Started() {
		return nil, apperr.BusinessRule("Game not started")
	}
	if rec.EndDate != nil && s.now().Before(*rec.EndDate) {
		return nil, apperr.BusinessRule("Game not ended yet")
	}

	onChain, err := s.gateway.ReadGame(ctx, rec.ChainID, id)
	if err != nil {
		return nil, chainFailure("read on-chain game", err)
	}
	if rec.EndDate == nil && onChain.Started() {
		end := onChain.EndDate()
		rec.EndDate = &end
		s.cacheEndDate(ctx, id, end)
	}
	if rec.EndDate == nil {
		return nil, apperr.BusinessRule("Game not started")
	}
	if s.now().Before(*rec.EndDate) {
		return nil, apperr.BusinessRule("Game not ended yet")
	}

	txHash := ""
	if onChain.IsFinished {
		s.logger.InfoContext(ctx, "game already finished on-chain, completing store reveal",
			"estimation_id", id, "chain", rec.ChainID.String())
	} else {
		receipt, err := s.gateway.RevealAndFinish(ctx, rec.ChainID, id, rec.SecretAge, commitment.Salt(*rec.Salt))
		if err != nil {
			return nil, chainFailure("reveal on-chain", err)
		}
		txHash = receipt.Hash
	}

	updated, err := s.estimations.MarkRevealed(ctx, id)
	if err != nil {
		return nil, s.criticalInconsistency(ctx, rec, txHash, err)
	}

	s.logger.InfoContext(ctx, "game finished",
		"estimation_id", id,
		"chain", rec.ChainID.String(),
		"tx_hash", txHash,
	)
	return updated.Public(), nil
}

func (s *Service) criticalInconsistency(ctx context.Context, rec *model.Estimation, txHash string, cause error) error {
	label := rec.ChainID.String()
	metrics.CriticalInconsistencyTotal.WithLabelValues("finish_game", label).Inc()
	s.logger.ErrorContext(ctx, "reveal confirmed on-chain but store update failed",
		"critical", true,
		"estimation_id", rec.ID,
		"chain", label,
		"tx_hash", txHash,
		"error", cause,
	)

	alertErr := s.alerter.Send(ctx, alert.Alert{
		Type:    alert.AlertTypeCriticalInconsistency,
		Chain:   label,
		Subject: strconv.FormatInt(rec.ID, 10),
		Title:   "Reveal confirmed on-chain but store update failed",
		Message: cause.Error(),
		Fields: map[string]string{
			"estimation_id": strconv.FormatInt(rec.ID, 10),
			"tx_hash":       txHash,
		},
	})
	if alertErr != nil {
		s.logger.WarnContext(ctx, "critical inconsistency alert failed", "estimation_id", rec.ID, "error", alertErr)
	}
	return apperr.CriticalInconsistency(fmt.Sprintf("estimation %d revealed on-chain but not in store", rec.ID), cause)
}

func (s *Service) cacheEndDate(ctx context.Context, id int64, end time.Time) {
	if err := s.estimations.SetEndDate(ctx, id, end); err != nil {
		s.logger.WarnContext(ctx, "caching end date failed", "estimation_id", id, "error", err)
	}
}

// GetEstimation returns the public record. The masked projection answers
// most reads; only an undated record needs the internal row, to tell whether
// it was committed. A missing end date is then resolved from the chain and
// cached; neither the chain read nor the cache write can fail the request.
func (s *Service) GetEstimation(ctx context.Context, id int64) (*EstimationView, error) {
	pub, err := s.estimations.GetPublic(ctx, id)
	if err != nil {
		return nil, apperr.Internal("load estimation", err)
	}
	if pub == nil {
		return nil, apperr.NotFound("Age estimation %d not found", id)
	}
	if phase, ok := phaseOfPublic(pub, s.now()); ok {
		return &EstimationView{PublicEstimation: *pub, Phase: phase}, nil
	}

	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if rec.EndDate == nil && rec.Started() {
		onChain, err := s.gateway.ReadGame(ctx, rec.ChainID, id)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "end date lookup failed", "estimation_id", id, "error", err)
		case onChain.Started():
			end := onChain.EndDate()
			rec.EndDate = &end
			s.cacheEndDate(ctx, id, end)
		}
	}

	return &EstimationView{
		PublicEstimation: *rec.Public(),
		Phase:            PhaseOf(rec, s.now()),
	}, nil
}

func (s *Service) ListEstimations(ctx context.Context, in ListInput) (*ListResult, error) {
	if in.Limit < 0 {
		return nil, apperr.Validation("limit must be non-negative")
	}
	if in.Offset < 0 {
		return nil, apperr.Validation("offset must be non-negative")
	}
	if in.Limit == 0 {
		in.Limit = DefaultListLimit
	}
	if in.Limit > MaxListLimit {
		in.Limit = MaxListLimit
	}
	if in.ChainID != nil {
		if err := model.ValidateChainID(*in.ChainID); err != nil {
			return nil, apperr.Validation("%s", err.Error())
		}
	}

	items, total, err := s.estimations.List(ctx, store.ListFilter{
		Limit:   in.Limit,
		Offset:  in.Offset,
		ChainID: in.ChainID,
	})
	if err != nil {
		return nil, apperr.Internal("list estimations", err)
	}
	if items == nil {
		items = []model.PublicEstimation{}
	}
	return &ListResult{Items: items, Total: total, Limit: in.Limit, Offset: in.Offset}, nil
}

// LegacyReveal marks a record REVEALED without touching the chain.
func (s *Service) LegacyReveal(ctx context.Context, id int64) (out *model.PublicEstimation, err error) {
	started := time.Now()
	var chainID model.ChainID
	defer func() { s.observe("legacy_reveal", chainID, started, err) }()

	if !s.cfg.LegacyRevealEnabled {
		return nil, apperr.BusinessRule("Legacy reveal disabled")
	}

	status, err := s.estimations.GetStatusAndSalt(ctx, id)
	if err != nil {
		return nil, apperr.Internal("load estimation status", err)
	}
	if status == nil {
		return nil, apperr.NotFound("Age estimation %d not found", id)
	}
	if status.Status == model.EstimationRevealed {
		return nil, apperr.BusinessRule("Game already revealed")
	}
	if status.Salt == nil {
		return nil, apperr.BusinessRule("Game not started")
	}

	updated, err := s.estimations.MarkRevealed(ctx, id)
	if err != nil {
		return nil, apperr.Internal("mark revealed", err)
	}
	chainID = updated.ChainID
	s.logger.WarnContext(ctx, "estimation revealed without chain confirmation", "estimation_id", id)
	return updated.Public(), nil
}

// PlayerBet reads a player's bet on the estimation's game.
func (s *Service) PlayerBet(ctx context.Context, id int64, player string) (*BetView, error) {
	player, err := NormalizeWallet(player)
	if err != nil {
		return nil, err
	}
	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	onChain, err := s.gateway.ReadGame(ctx, rec.ChainID, id)
	if err != nil {
		return nil, chainFailure("read on-chain game", err)
	}
	if !onChain.Started() {
		return nil, apperr.BusinessRule("Game not started on-chain")
	}
	bet, err := s.gateway.PlayerBet(ctx, rec.ChainID, id, player)
	if err != nil {
		return nil, chainFailure("read player bet", err)
	}

	return &BetView{
		EstimationID: id,
		Bet:          bet,
		GameFinished: onChain.IsFinished,
		Claimable:    onChain.IsFinished && bet.Placed() && bet.IsWinner && !bet.IsClaimed,
	}, nil
}

// ClaimStatus returns nil when player can call claimPrize on the game.
func (s *Service) ClaimStatus(ctx context.Context, id int64, player string) error {
	view, err := s.PlayerBet(ctx, id, player)
	if err != nil {
		return err
	}
	if !view.Claimable {
		return apperr.BusinessRule("No prize to claim")
	}
	return nil
}
