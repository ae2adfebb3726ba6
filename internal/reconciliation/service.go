// Package reconciliation repairs divergence between the store, the chain and
// the airdrop queue left behind by partially failed operations.
package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/owentar/zeta-hackathon/internal/alert"
	"github.com/owentar/zeta-hackathon/internal/chain"
	"github.com/owentar/zeta-hackathon/internal/domain/model"
	"github.com/owentar/zeta-hackathon/internal/metrics"
	"github.com/owentar/zeta-hackathon/internal/store"
)

const (
	DefaultBatchSize    = 100
	DefaultRequeueAfter = time.Hour

	RepairRevealed = "revealed"
	RepairEndDate  = "end_date"
	RepairRequeued = "requeued"
)

// Enqueuer re-publishes an airdrop job.
type Enqueuer interface {
	EnqueueAirdrop(ctx context.Context, wallet string, chainID model.ChainID) error
}

type Config struct {
	BatchSize    int
	RequeueAfter time.Duration
	// AutoRequeue lets periodic runs re-enqueue stale QUEUED ledger entries.
	// Off by default: an entry whose transfer ended outcome-unknown is also
	// QUEUED, and requeueing it could pay twice.
	AutoRequeue bool
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.RequeueAfter <= 0 {
		c.RequeueAfter = DefaultRequeueAfter
	}
	return c
}

// Repair is one divergence found during a run.
type Repair struct {
	Kind          string `json:"kind"`
	EstimationID  int64  `json:"estimation_id,omitempty"`
	WalletAddress string `json:"wallet_address,omitempty"`
	Error         string `json:"error,omitempty"`
}

// RunResult aggregates a reconciliation run for one chain.
type RunResult struct {
	Chain      string    `json:"chain"`
	Checked    int       `json:"checked"`
	Revealed   int       `json:"revealed"`
	EndDates   int       `json:"end_dates"`
	Requeued   int       `json:"requeued"`
	Stale      int       `json:"stale"`
	Errors     int       `json:"errors"`
	Repairs    []Repair  `json:"repairs"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

type Service struct {
	estimations store.EstimationRepository
	ledger      store.AirdropLedgerRepository
	gateway     chain.Gateway
	enqueuer    Enqueuer
	chains      []model.ChainID
	alerter     alert.Alerter
	cfg         Config
	logger      *slog.Logger
	now         func() time.Time
}

func NewService(
	estimations store.EstimationRepository,
	ledger store.AirdropLedgerRepository,
	gateway chain.Gateway,
	enqueuer Enqueuer,
	chains []model.ChainID,
	alerter alert.Alerter,
	cfg Config,
	logger *slog.Logger,
) *Service {
	if alerter == nil {
		alerter = &alert.NoopAlerter{}
	}
	return &Service{
		estimations: estimations,
		ledger:      ledger,
		gateway:     gateway,
		enqueuer:    enqueuer,
		chains:      chains,
		alerter:     alerter,
		cfg:         cfg.withDefaults(),
		logger:      logger.With("component", "reconciliation"),
		now:         time.Now,
	}
}

// HasChain reports whether chainID is reconciled by this service.
func (s *Service) HasChain(chainID model.ChainID) bool {
	for _, c := range s.chains {
		if c == chainID {
			return true
		}
	}
	return false
}

// Reconcile runs the reveal repair for chainID and, when requeue is set, the
// stale ledger requeue.
func (s *Service) Reconcile(ctx context.Context, chainID model.ChainID, requeue bool) (*RunResult, error) {
	if !s.HasChain(chainID) {
		return nil, &model.ErrUnsupportedChain{Value: chainID.Label()}
	}
	result := &RunResult{Chain: chainID.String(), Repairs: []Repair{}, StartedAt: s.now()}

	if err := s.repairReveals(ctx, chainID, result); err != nil {
		return nil, err
	}
	if requeue {
		if err := s.requeueStale(ctx, chainID, result); err != nil {
			return nil, err
		}
	}
	result.FinishedAt = s.now()

	label := chainID.String()
	metrics.ReconciliationRunsTotal.WithLabelValues(label).Inc()
	if result.Errors > 0 {
		metrics.ReconciliationErrorsTotal.WithLabelValues(label).Add(float64(result.Errors))
	}
	if result.Revealed > 0 || result.Requeued > 0 {
		s.sendAlert(ctx, chainID, result)
	}

	s.logger.Info("reconciliation completed",
		"chain", label,
		"checked", result.Checked,
		"revealed", result.Revealed,
		"end_dates", result.EndDates,
		"requeued", result.Requeued,
		"stale", result.Stale,
		"errors", result.Errors,
	)
	return result, nil
}

// repairReveals marks REVEALED every started record whose game is already
// finished on-chain. This is the compensation for a reveal tx that landed
// while the store update failed. Records are paged by id so that games which
// never reach the chain cannot hide newer ones.
func (s *Service) repairReveals(ctx context.Context, chainID model.ChainID, result *RunResult) error {
	var cursor int64
	for {
		records, err := s.estimations.ListUnrevealedStarted(ctx, chainID, cursor, s.cfg.BatchSize)
		if err != nil {
			return fmt.Errorf("list unrevealed estimations after %d: %w", cursor, err)
		}
		for i := range records {
			s.repairReveal(ctx, chainID, &records[i], result)
		}
		if len(records) < s.cfg.BatchSize {
			return nil
		}
		cursor = records[len(records)-1].ID
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

func (s *Service) repairReveal(ctx context.Context, chainID model.ChainID, rec *model.Estimation, result *RunResult) {
	result.Checked++

	game, err := s.gateway.ReadGame(ctx, chainID, rec.ID)
	if err != nil {
		s.logger.Warn("read on-chain game failed", "estimation_id", rec.ID, "error", err)
		result.Errors++
		result.Repairs = append(result.Repairs, Repair{Kind: RepairRevealed, EstimationID: rec.ID, Error: err.Error()})
		return
	}
	if !game.Started() {
		return
	}

	if rec.EndDate == nil {
		if err := s.estimations.SetEndDate(ctx, rec.ID, game.EndDate()); err != nil {
			s.logger.Warn("backfill end date failed", "estimation_id", rec.ID, "error", err)
		} else {
			result.EndDates++
			metrics.ReconciliationRepairsTotal.WithLabelValues(chainID.String(), RepairEndDate).Inc()
		}
	}

	if !game.IsFinished {
		return
	}
	if _, err := s.estimations.MarkRevealed(ctx, rec.ID); err != nil {
		if errors.Is(err, store.ErrRowVanished) {
			return
		}
		s.logger.Error("mark revealed failed", "estimation_id", rec.ID, "error", err)
		result.Errors++
		result.Repairs = append(result.Repairs, Repair{Kind: RepairRevealed, EstimationID: rec.ID, Error: err.Error()})
		return
	}
	result.Revealed++
	result.Repairs = append(result.Repairs, Repair{Kind: RepairRevealed, EstimationID: rec.ID})
	metrics.ReconciliationRepairsTotal.WithLabelValues(chainID.String(), RepairRevealed).Inc()
	s.logger.Warn("estimation revealed from chain state", "estimation_id", rec.ID)
}

// requeueStale re-enqueues QUEUED ledger entries untouched for RequeueAfter.
func (s *Service) requeueStale(ctx context.Context, chainID model.ChainID, result *RunResult) error {
	entries, err := s.ledger.ListStaleQueued(ctx, chainID, s.now().Add(-s.cfg.RequeueAfter), s.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("list stale airdrops: %w", err)
	}

	for _, e := range entries {
		result.Stale++
		if err := s.enqueuer.EnqueueAirdrop(ctx, e.WalletAddress, e.ChainID); err != nil {
			s.logger.Warn("requeue airdrop failed", "wallet", e.WalletAddress, "error", err)
			result.Errors++
			result.Repairs = append(result.Repairs, Repair{Kind: RepairRequeued, WalletAddress: e.WalletAddress, Error: err.Error()})
			continue
		}
		if err := s.ledger.TouchQueued(ctx, e.ID); err != nil {
			s.logger.Warn("touch requeued airdrop failed", "wallet", e.WalletAddress, "error", err)
		}
		result.Requeued++
		result.Repairs = append(result.Repairs, Repair{Kind: RepairRequeued, WalletAddress: e.WalletAddress})
		metrics.ReconciliationRepairsTotal.WithLabelValues(chainID.String(), RepairRequeued).Inc()
	}
	return nil
}

func (s *Service) sendAlert(ctx context.Context, chainID model.ChainID, result *RunResult) {
	err := s.alerter.Send(ctx, alert.Alert{
		Type:    alert.AlertTypeReconcileRepair,
		Chain:   chainID.String(),
		Title:   "Reconciliation repaired divergent state",
		Message: fmt.Sprintf("%d estimations revealed, %d airdrops requeued", result.Revealed, result.Requeued),
		Fields: map[string]string{
			"checked":  strconv.Itoa(result.Checked),
			"revealed": strconv.Itoa(result.Revealed),
			"requeued": strconv.Itoa(result.Requeued),
			"errors":   strconv.Itoa(result.Errors),
		},
	})
	if err != nil {
		s.logger.Warn("reconciliation alert failed", "error", err)
	}
}

// ReconcileAny satisfies admin.ReconcileRequester.
func (s *Service) ReconcileAny(ctx context.Context, chainID model.ChainID, requeue bool) (any, error) {
	return s.Reconcile(ctx, chainID, requeue)
}

// RunPeriodic reconciles every chain at interval until ctx is cancelled.
func (s *Service) RunPeriodic(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	s.logger.Info("periodic reconciliation started", "interval", interval, "auto_requeue", s.cfg.AutoRequeue)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("periodic reconciliation stopping")
			return nil
		case <-ticker.C:
			for _, c := range s.chains {
				if _, err := s.Reconcile(ctx, c, s.cfg.AutoRequeue); err != nil {
					s.logger.Warn("periodic reconciliation failed", "chain", c.String(), "error", err)
				}
			}
		}
	}
}
