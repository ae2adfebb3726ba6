package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLimiter(t *testing.T) {
	l := NewLimiter(10.0, 5, "zetachain-testnet")

	require.NotNil(t, l)
	require.NotNil(t, l.limiter)
	assert.Equal(t, "zetachain-testnet", l.chain)

	assert.InDelta(t, 10.0, float64(l.limiter.Limit()), 0.001)
	assert.Equal(t, 5, l.limiter.Burst())
}

func TestLimiter_AllowWithinBurst(t *testing.T) {
	const burst = 5
	l := NewLimiter(100, burst, "zetachain-testnet")

	ctx := context.Background()
	for i := 0; i < burst; i++ {
		start := time.Now()
		err := l.Wait(ctx)
		elapsed := time.Since(start)

		require.NoError(t, err, "request %d should not error", i)
		assert.Less(t, elapsed, 50*time.Millisecond,
			"request %d should complete immediately, took %v", i, elapsed)
	}
}

func TestLimiter_WaitWhenExhausted(t *testing.T) {
	const (
		rps   = 10.0 // 1 token every 100ms
		burst = 1
	)
	l := NewLimiter(rps, burst, "zetachain-mainnet")

	ctx := context.Background()
	require.NoError(t, l.Wait(ctx))

	start := time.Now()
	err := l.Wait(ctx)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond,
		"should have waited for a token, but only took %v", elapsed)
}

func TestLimiter_ContextCancellation(t *testing.T) {
	l := NewLimiter(1.0, 1, "zetachain-testnet")

	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Wait(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestClassifyRPCError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{context.DeadlineExceeded, "timeout"},
		{errors.New("429 Too Many Requests"), "rate_limited"},
		{errors.New("execution reverted: Game already exists"), "reverted"},
		{errors.New("insufficient funds for gas * price + value"), "insufficient_funds"},
		{errors.New("nonce too low: next nonce 8, tx nonce 7"), "nonce"},
		{errors.New("replacement transaction underpriced"), "nonce"},
		{errors.New("502 Bad Gateway"), "server_error"},
		{errors.New("dial tcp: connection refused"), "network_error"},
		{errors.New("invalid argument"), "client_error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyRPCError(tt.err), "%v", tt.err)
	}
}

func TestRecordRPCCallNoPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordRPCCall("zetachain-testnet", "eth_call", time.Now(), nil)
		RecordRPCCall("zetachain-testnet", "eth_sendRawTransaction", time.Now(), errors.New("timeout"))
	})
}
