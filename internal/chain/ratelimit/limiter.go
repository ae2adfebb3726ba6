// Package ratelimit throttles and instruments JSON-RPC traffic per chain.
package ratelimit

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/owentar/zeta-hackathon/internal/metrics"
)

// Limiter is a token bucket shared by every RPC call to one chain.
type Limiter struct {
	limiter *rate.Limiter
	chain   string
}

func NewLimiter(rps float64, burst int, chain string) *Limiter {
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		chain:   chain,
	}
}

// Wait takes one token, blocking until it is available or ctx ends.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.limiter.Allow() {
		return nil
	}
	metrics.RPCRateLimitWaits.WithLabelValues(l.chain).Inc()
	return l.limiter.Wait(ctx)
}

// RecordRPCCall records the outcome and duration of one RPC call.
func RecordRPCCall(chain, method string, started time.Time, err error) {
	metrics.RPCCallsTotal.WithLabelValues(chain, method, ClassifyRPCError(err)).Inc()
	metrics.RPCCallLatency.WithLabelValues(chain, method).Observe(time.Since(started).Seconds())
}

// rpcErrorClasses is checked in order; the first matching class wins.
var rpcErrorClasses = []struct {
	class   string
	needles []string
}{
	{"timeout", []string{"timeout", "deadline exceeded"}},
	{"rate_limited", []string{"rate limit", "429", "too many requests"}},
	{"reverted", []string{"reverted"}},
	{"insufficient_funds", []string{"insufficient funds"}},
	{"nonce", []string{"nonce too low", "nonce too high", "replacement transaction underpriced", "already known"}},
	{"server_error", []string{"500", "502", "503", "internal server error"}},
	{"network_error", []string{"connection refused", "connection reset", "network is unreachable", "no such host", "broken pipe", "eof"}},
}

// ClassifyRPCError buckets an RPC error into a low-cardinality metric label.
func ClassifyRPCError(err error) string {
	if err == nil {
		return "ok"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	msg := strings.ToLower(err.Error())
	for _, c := range rpcErrorClasses {
		for _, n := range c.needles {
			if strings.Contains(msg, n) {
				return c.class
			}
		}
	}
	return "client_error"
}
