// Package app holds the process wiring shared by the API server and the
// airdrop worker binaries.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/owentar/zeta-hackathon/internal/alert"
	"github.com/owentar/zeta-hackathon/internal/chain"
	"github.com/owentar/zeta-hackathon/internal/chain/zeta"
	"github.com/owentar/zeta-hackathon/internal/config"
	"github.com/owentar/zeta-hackathon/internal/domain/model"
	"github.com/owentar/zeta-hackathon/internal/metrics"
	"github.com/owentar/zeta-hackathon/internal/store/postgres"
	redisstore "github.com/owentar/zeta-hackathon/internal/store/redis"
)

const shutdownTimeout = 5 * time.Second

// ParseLevel maps LOG_LEVEL values onto slog levels. Unknown values mean info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the JSON logger and installs it as the slog default.
func NewLogger(level, service string) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})).With("service", service)
	slog.SetDefault(logger)
	return logger
}

// OpenDB connects to PostgreSQL and applies pending migrations.
func OpenDB(ctx context.Context, cfg config.DBConfig) (*postgres.DB, error) {
	db, err := postgres.New(postgres.Config{
		URL:                cfg.URL,
		MaxOpenConns:       cfg.MaxOpenConns,
		MaxIdleConns:       cfg.MaxIdleConns,
		ConnMaxLifetime:    cfg.ConnMaxLifetime,
		StatementTimeoutMS: cfg.StatementTimeoutMS,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

// OpenQueue connects to Redis and joins the airdrop consumer group.
func OpenQueue(ctx context.Context, cfg config.RedisConfig, consumer string) (*redisstore.Stream, *redisstore.StreamQueue, error) {
	stream, err := redisstore.NewStream(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	queue, err := redisstore.NewStreamQueue(ctx, stream, redisstore.QueueConfig{
		Stream:   cfg.Stream,
		Group:    cfg.Group,
		Consumer: consumer,
	})
	if err != nil {
		stream.Close()
		return nil, nil, fmt.Errorf("open airdrop queue: %w", err)
	}
	return stream, queue, nil
}

// ConsumerName identifies this process inside the Redis consumer group.
func ConsumerName(prefix string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "local"
	}
	return fmt.Sprintf("%s-%s-%d", prefix, host, os.Getpid())
}

// NewGateway registers every enabled chain and builds the ZetaChain gateway.
// Either key may be empty; the matching write operation then fails.
func NewGateway(cfg config.ChainsConfig, revealerKey, funderKey string, logger *slog.Logger) (*zeta.Gateway, []model.ChainID, error) {
	registry := chain.NewRegistry()
	for chainID, ep := range cfg.Enabled() {
		if err := registry.Register(chainID, ep.RPCURL, ep.ContractAddress); err != nil {
			return nil, nil, fmt.Errorf("register chain %s: %w", chainID, err)
		}
	}

	revealer, err := optionalSigner(revealerKey)
	if err != nil {
		return nil, nil, fmt.Errorf("revealer key: %w", err)
	}
	funder, err := optionalSigner(funderKey)
	if err != nil {
		return nil, nil, fmt.Errorf("airdrop key: %w", err)
	}

	gw, err := zeta.New(registry, revealer, funder, zeta.Config{
		RPCTimeout:     cfg.RPCTimeout,
		ConfirmTimeout: cfg.ConfirmTimeout,
		RPS:            cfg.RPS,
		Burst:          cfg.Burst,
	}, zeta.WithLogger(logger))
	if err != nil {
		return nil, nil, fmt.Errorf("create gateway: %w", err)
	}
	return gw, registry.Chains(), nil
}

func optionalSigner(hexKey string) (*chain.Signer, error) {
	if hexKey == "" {
		return nil, nil
	}
	return chain.NewSigner(hexKey)
}

// NewAlerter always logs alerts and fans out to Slack and a generic
// webhook when they are configured.
func NewAlerter(cfg config.AlertConfig, logger *slog.Logger) *alert.MultiAlerter {
	alerters := []alert.Alerter{alert.NewLogAlerter(logger)}
	if cfg.SlackWebhookURL != "" {
		alerters = append(alerters, alert.NewSlackAlerter(cfg.SlackWebhookURL))
	}
	if cfg.WebhookURL != "" {
		alerters = append(alerters, alert.NewWebhookAlerter(cfg.WebhookURL))
	}
	return alert.NewMultiAlerter(cfg.Cooldown, logger, alerters...)
}

// HealthCheck reports nil when the process can serve traffic.
type HealthCheck func(ctx context.Context) error

// HealthHandler serves /healthz and /metrics.
func HealthHandler(check HealthCheck) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				fmt.Fprintf(w, "unhealthy: %v", err)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Serve runs an HTTP server until ctx is cancelled, then drains it.
func Serve(ctx context.Context, name string, port int, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("http server started", "server", name, "port", port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server: %w", name, err)
	}
	return nil
}

// WaitForSignal cancels the process context on SIGINT/SIGTERM.
func WaitForSignal(ctx context.Context, cancel context.CancelFunc, logger *slog.Logger) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
	case <-ctx.Done():
	}
	return nil
}

type dbStatsProvider interface {
	Stats() sql.DBStats
}

// StartDBPoolStatsPump publishes connection pool gauges until ctx ends.
func StartDBPoolStatsPump(ctx context.Context, db dbStatsProvider, process string, interval time.Duration, logger *slog.Logger) {
	if db == nil {
		return
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}

	collectDBPoolStats(db, process, logger)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				collectDBPoolStats(db, process, logger)
			}
		}
	}()
}

func collectDBPoolStats(db dbStatsProvider, process string, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("db pool stats collection panicked", "panic", r)
		}
	}()

	stats := db.Stats()
	metrics.DBPoolOpen.WithLabelValues(process).Set(float64(stats.OpenConnections))
	metrics.DBPoolInUse.WithLabelValues(process).Set(float64(stats.InUse))
	metrics.DBPoolWaitCount.WithLabelValues(process).Set(float64(stats.WaitCount))
}
