package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/owentar/zeta-hackathon/internal/admin"
	"github.com/owentar/zeta-hackathon/internal/airdrop"
	"github.com/owentar/zeta-hackathon/internal/api"
	"github.com/owentar/zeta-hackathon/internal/app"
	"github.com/owentar/zeta-hackathon/internal/chain/zeta"
	"github.com/owentar/zeta-hackathon/internal/config"
	"github.com/owentar/zeta-hackathon/internal/game"
	"github.com/owentar/zeta-hackathon/internal/httpclient"
	"github.com/owentar/zeta-hackathon/internal/imagestore"
	"github.com/owentar/zeta-hackathon/internal/reconciliation"
	"github.com/owentar/zeta-hackathon/internal/store/postgres"
	"github.com/owentar/zeta-hackathon/internal/tracing"
	"github.com/owentar/zeta-hackathon/internal/vision"
)

const serviceName = "agelens-server"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg.Log.Level, serviceName)

	if err := cfg.ValidateServer(); err != nil {
		logger.Error("invalid server config", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server shut down gracefully")
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
	logger.Info("database ready")

	stream, queue, err := app.OpenQueue(ctx, cfg.Redis, app.ConsumerName("server"))
	if err != nil {
		return err
	}
	defer stream.Close()

	gateway, chains, err := app.NewGateway(cfg.Chains, cfg.Keys.RevealerPrivateKey, "", logger)
	if err != nil {
		return err
	}
	if cfg.Chains.VerifyCommitment {
		for _, chainID := range chains {
			verifyCtx, verifyCancel := context.WithTimeout(ctx, cfg.Chains.RPCTimeout)
			err := zeta.VerifyCommitment(verifyCtx, gateway, chainID)
			verifyCancel()
			if err != nil {
				return err
			}
			logger.Info("commitment self-check passed", "chain", chainID.String())
		}
	}

	alerter := app.NewAlerter(cfg.Alert, logger)
	estimations := postgres.NewEstimationRepo(db)
	ledger := postgres.NewAirdropRepo(db)
	enqueuer := airdrop.NewEnqueuer(queue, logger)

	games := game.NewService(estimations, ledger, gateway, enqueuer,
		game.Config{LegacyRevealEnabled: cfg.Game.LegacyRevealEnabled},
		game.WithLogger(logger),
		game.WithAlerter(alerter),
	)

	estimator := vision.New(httpclient.New(logger, cfg.Vision.Timeout), vision.Config{
		APIKey:    cfg.Vision.APIKey,
		APISecret: cfg.Vision.APISecret,
		URL:       cfg.Vision.URL,
	}, logger)
	uploader := imagestore.New(httpclient.New(logger, cfg.Images.Timeout), imagestore.Config{
		CloudName: cfg.Images.CloudName,
		APIKey:    cfg.Images.APIKey,
		APISecret: cfg.Images.APISecret,
		Folder:    cfg.Images.Folder,
	}, logger)

	gin.SetMode(gin.ReleaseMode)
	apiServer := api.NewServer(games, estimator, uploader, api.Config{
		CORSOrigin:     cfg.Server.CORSOrigin,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
	}, logger)
	defer apiServer.Stop()

	reconciler := reconciliation.NewService(estimations, ledger, gateway, enqueuer, chains, alerter,
		reconciliation.Config{
			BatchSize:    cfg.Reconcile.BatchSize,
			RequeueAfter: cfg.Reconcile.RequeueAfter,
			AutoRequeue:  cfg.Reconcile.AutoRequeue,
		}, logger)

	deps := &dependencies{db: db, stream: stream}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.Serve(gCtx, "health", cfg.Server.HealthPort, app.HealthHandler(deps.check), logger)
	})

	g.Go(func() error {
		return app.Serve(gCtx, "api", cfg.Server.Port, apiServer.Handler(), logger)
	})

	if cfg.Admin.TokenHash != "" {
		adminServer := admin.NewServer(ledger, cfg.Admin.TokenHash, logger,
			admin.WithReconcileRequester(reconciler),
			admin.WithHealthProvider(deps),
			admin.WithQueue(queue, enqueuer),
		)
		limiter := admin.NewRateLimitMiddleware(logger)
		defer limiter.Stop()
		handler := admin.AuditMiddleware(logger, limiter.Wrap(adminServer.Handler()))
		g.Go(func() error {
			return app.Serve(gCtx, "admin", cfg.Admin.Port, handler, logger)
		})
	} else {
		logger.Info("admin API disabled, ADMIN_TOKEN_HASH not set")
	}

	g.Go(func() error {
		return reconciler.RunPeriodic(gCtx, cfg.Reconcile.Interval)
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

type pinger interface {
	Ping(ctx context.Context) error
}

// dependencies reports reachability of the stores the API needs.
type dependencies struct {
	db     *postgres.DB
	stream pinger
}

func (d *dependencies) check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := d.db.PingContext(ctx); err != nil {
		return err
	}
	return d.stream.Ping(ctx)
}

func (d *dependencies) HealthSnapshots() any {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	status := func(err error) string {
		if err != nil {
			return "UNHEALTHY: " + err.Error()
		}
		return "HEALTHY"
	}
	return map[string]string{
		"postgres": status(d.db.PingContext(ctx)),
		"redis":    status(d.stream.Ping(ctx)),
	}
}
