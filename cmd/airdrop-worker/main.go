package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/owentar/zeta-hackathon/internal/airdrop"
	"github.com/owentar/zeta-hackathon/internal/app"
	"github.com/owentar/zeta-hackathon/internal/config"
	"github.com/owentar/zeta-hackathon/internal/domain/model"
	"github.com/owentar/zeta-hackathon/internal/store/postgres"
	"github.com/owentar/zeta-hackathon/internal/tracing"
)

const serviceName = "agelens-airdrop-worker"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg.Log.Level, serviceName)

	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("invalid worker config", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("airdrop worker exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("airdrop worker shut down gracefully")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, serviceName, cfg.Tracing.Endpoint, cfg.Tracing.Insecure, cfg.Tracing.SampleRatio)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	db, err := app.OpenDB(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	stream, queue, err := app.OpenQueue(ctx, cfg.Redis, app.ConsumerName("airdrop"))
	if err != nil {
		return err
	}
	defer stream.Close()

	gateway, chains, err := app.NewGateway(cfg.Chains, "", cfg.Keys.AirdropPrivateKey, logger)
	if err != nil {
		return err
	}

	amounts, err := airdrop.NewAmounts(sameAmount(chains, cfg.Airdrop.Amount))
	if err != nil {
		return fmt.Errorf("airdrop amount: %w", err)
	}

	alerter := app.NewAlerter(cfg.Alert, logger)
	handler := airdrop.NewHandler(postgres.NewAirdropRepo(db), gateway, amounts, logger)
	worker := airdrop.NewWorker(queue, handler, alerter, airdrop.WorkerConfig{
		MaxAttempts: cfg.Airdrop.MaxAttempts,
		BaseBackoff: cfg.Airdrop.BaseBackoff,
		MaxBackoff:  cfg.Airdrop.MaxBackoff,
		JobTimeout:  cfg.Airdrop.JobTimeout,
	}, logger, airdrop.WithLease(postgres.NewAdvisoryLease(db, postgres.AirdropWorkerLockID, logger)))

	logger.Info("airdrop worker starting",
		"chains", len(chains),
		"amount", cfg.Airdrop.Amount,
		"max_attempts", cfg.Airdrop.MaxAttempts,
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.Serve(gCtx, "health", cfg.Server.HealthPort, app.HealthHandler(workerHealth(worker.Health())), logger)
	})

	g.Go(func() error {
		return worker.Run(gCtx)
	})

	app.StartDBPoolStatsPump(gCtx, db.DB, serviceName, cfg.DB.PoolStatsInterval, logger)

	g.Go(func() error {
		return app.WaitForSignal(gCtx, cancel, logger)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func sameAmount(chains []model.ChainID, amount string) map[model.ChainID]string {
	out := make(map[model.ChainID]string, len(chains))
	for _, c := range chains {
		out[c] = amount
	}
	return out
}

func workerHealth(h *airdrop.Health) app.HealthCheck {
	return func(context.Context) error {
		snap := h.Snapshot()
		if !snap.Healthy() {
			return fmt.Errorf("%d consecutive failures", snap.ConsecutiveFailures)
		}
		return nil
	}
}
