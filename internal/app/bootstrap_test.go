package app

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owentar/zeta-hackathon/internal/config"
	"github.com/owentar/zeta-hackathon/internal/domain/model"
	"github.com/owentar/zeta-hackathon/internal/metrics"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for raw, want := range tests {
		assert.Equal(t, want, ParseLevel(raw), raw)
	}
}

type fakeStats struct {
	stats sql.DBStats
	panic bool
}

func (f fakeStats) Stats() sql.DBStats {
	if f.panic {
		panic("closed")
	}
	return f.stats
}

func TestCollectDBPoolStats(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	collectDBPoolStats(fakeStats{stats: sql.DBStats{OpenConnections: 7, InUse: 3, WaitCount: 11}}, "test-collect", logger)

	assert.InDelta(t, 7, testutil.ToFloat64(metrics.DBPoolOpen.WithLabelValues("test-collect")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(metrics.DBPoolInUse.WithLabelValues("test-collect")), 0)
	assert.InDelta(t, 11, testutil.ToFloat64(metrics.DBPoolWaitCount.WithLabelValues("test-collect")), 0)
}

func TestCollectDBPoolStats_RecoversPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	assert.NotPanics(t, func() {
		collectDBPoolStats(fakeStats{panic: true}, "test-panic", logger)
	})
	assert.Contains(t, buf.String(), "db pool stats collection panicked")
}

func TestStartDBPoolStatsPump_NilDB(t *testing.T) {
	assert.NotPanics(t, func() {
		StartDBPoolStatsPump(context.Background(), nil, "nil", time.Second, slog.Default())
	})
}

func TestHealthHandler(t *testing.T) {
	healthy := true
	h := HealthHandler(func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("worker stalled")
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	healthy = false
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "worker stalled")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "go_goroutines"))
}

func TestServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, "test", 0, http.NotFoundHandler(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * shutdownTimeout):
		t.Fatal("server did not stop")
	}
}

func TestNewGateway(t *testing.T) {
	cfg := config.ChainsConfig{
		Testnet: config.ChainEndpoint{
			RPCURL:          "http://127.0.0.1:8545",
			ContractAddress: "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		},
	}
	gw, chains, err := NewGateway(cfg, "", "", slog.Default())
	require.NoError(t, err)
	require.NotNil(t, gw)
	assert.Equal(t, []model.ChainID{model.ChainZetaTestnet}, chains)

	_, _, err = NewGateway(cfg, "not-hex", "", slog.Default())
	require.ErrorContains(t, err, "revealer key")
}

func TestNewAlerter(t *testing.T) {
	var buf bytes.Buffer
	a := NewAlerter(config.AlertConfig{Cooldown: time.Minute}, slog.New(slog.NewTextHandler(&buf, nil)))
	require.NotNil(t, a)
}
