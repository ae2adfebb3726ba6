package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "agelens"

var (
	// Game lifecycle
	GameOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "game",
		Name:      "operations_total",
		Help:      "Total game lifecycle operations by outcome",
	}, []string{"operation", "chain", "outcome"})

	GameOperationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "game",
		Name:      "operation_duration_seconds",
		Help:      "Game lifecycle operation duration, chain confirmation included",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"operation", "chain"})

	CriticalInconsistencyTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "game",
		Name:      "critical_inconsistencies_total",
		Help:      "Chain state changed but the store update failed afterwards",
	}, []string{"operation", "chain"})

	// Airdrop pipeline
	AirdropsEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "airdrop",
		Name:      "enqueued_total",
		Help:      "Total airdrop jobs enqueued",
	}, []string{"chain"})

	AirdropJobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "airdrop",
		Name:      "jobs_processed_total",
		Help:      "Total airdrop jobs settled by outcome (completed, skipped, retried, dead_lettered)",
	}, []string{"chain", "outcome"})

	AirdropJobLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "airdrop",
		Name:      "job_duration_seconds",
		Help:      "Airdrop job processing duration",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"chain"})

	AirdropQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "airdrop",
		Name:      "queue_depth",
		Help:      "Airdrop queue size by state (ready, pending, delayed, dead_letter)",
	}, []string{"state"})

	// Database pool
	DBPoolOpen = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "postgres",
		Name:      "db_pool_open",
		Help:      "Current number of open PostgreSQL connections in the pool",
	}, []string{"process"})

	DBPoolInUse = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "postgres",
		Name:      "db_pool_in_use",
		Help:      "Current number of in-use PostgreSQL connections in the pool",
	}, []string{"process"})

	DBPoolWaitCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "postgres",
		Name:      "db_pool_wait_count",
		Help:      "Cumulative count of waits for PostgreSQL connections from pool",
	}, []string{"process"})

	// Finished-game cache
	GameCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "finished_game_hits_total",
		Help:      "Total finished game cache hits",
	}, []string{"chain"})

	GameCacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "finished_game_misses_total",
		Help:      "Total finished game cache misses",
	}, []string{"chain"})

	// RPC
	RPCCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "calls_total",
		Help:      "Total chain RPC calls by method and status",
	}, []string{"chain", "method", "status"})

	RPCCallLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "call_duration_seconds",
		Help:      "Chain RPC call duration",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"chain", "method"})

	RPCRateLimitWaits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "rate_limit_waits_total",
		Help:      "Total times RPC calls waited for rate limiter",
	}, []string{"chain"})

	RPCCircuitState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "circuit_state",
		Help:      "RPC circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"chain"})

	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total public API requests",
	}, []string{"route", "method", "status"})

	HTTPRequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Public API request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	// External services (vision, image storage)
	ExternalCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "external",
		Name:      "calls_total",
		Help:      "Total calls to third-party HTTP services",
	}, []string{"service", "status"})

	ExternalCallLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "external",
		Name:      "call_duration_seconds",
		Help:      "Third-party HTTP call duration",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
	}, []string{"service"})

	// Alerts
	AlertsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "alert",
		Name:      "sent_total",
		Help:      "Total alerts sent",
	}, []string{"channel", "alert_type"})

	AlertsCooldownSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "alert",
		Name:      "cooldown_skipped_total",
		Help:      "Total alerts skipped due to cooldown",
	}, []string{"channel", "alert_type"})

	// Reconciliation
	ReconciliationRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reconciliation",
		Name:      "runs_total",
		Help:      "Total reconciliation runs executed",
	}, []string{"chain"})

	ReconciliationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reconciliation",
		Name:      "errors_total",
		Help:      "Total reconciliation item failures",
	}, []string{"chain"})

	ReconciliationRepairsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reconciliation",
		Name:      "repairs_total",
		Help:      "Total divergences repaired (revealed, requeued)",
	}, []string{"chain", "kind"})
)
