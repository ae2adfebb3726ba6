package admin

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	staleLimiterTTL = 10 * time.Minute
	sweepInterval   = time.Minute
)

// opBudget is the per-client allowance for one class of admin operation.
type opBudget struct {
	name  string
	every time.Duration
	burst int
}

func (b opBudget) limiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(b.every), b.burst)
}

var (
	// Reconciliation hits the chain once per unrevealed game.
	reconcileBudget = opBudget{name: "reconcile", every: time.Minute, burst: 2}
	requeueBudget   = opBudget{name: "requeue", every: 6 * time.Second, burst: 3}
	readBudget      = opBudget{name: "read", every: time.Second, burst: 5}
)

// budgetFor classifies a request. Writes that move money or touch the chain
// get their own, tighter budget.
func budgetFor(r *http.Request) opBudget {
	if r.Method == http.MethodPost {
		switch {
		case strings.HasPrefix(r.URL.Path, "/admin/v1/reconcile"):
			return reconcileBudget
		case strings.HasPrefix(r.URL.Path, "/admin/v1/airdrops/requeue"):
			return requeueBudget
		}
	}
	return readBudget
}

type clientLimiter struct {
	*rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware throttles admin calls per client IP and operation class.
type RateLimitMiddleware struct {
	mu       sync.Mutex
	clients  map[string]*clientLimiter
	logger   *slog.Logger
	nowFunc  func() time.Time
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRateLimitMiddleware starts a sweeper for idle clients; call Stop to end it.
func NewRateLimitMiddleware(logger *slog.Logger) *RateLimitMiddleware {
	rl := &RateLimitMiddleware{
		clients: make(map[string]*clientLimiter),
		logger:  logger.With("component", "admin_ratelimit"),
		nowFunc: time.Now,
		stopCh:  make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

func (rl *RateLimitMiddleware) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *RateLimitMiddleware) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.evictStale()
		}
	}
}

func (rl *RateLimitMiddleware) evictStale() {
	cutoff := rl.nowFunc().Add(-staleLimiterTTL)
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, c := range rl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(rl.clients, key)
		}
	}
}

// LimiterCount reports how many client limiters are tracked.
func (rl *RateLimitMiddleware) LimiterCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

func (rl *RateLimitMiddleware) limiterFor(ip string, budget opBudget) *rate.Limiter {
	key := budget.name + "@" + ip
	now := rl.nowFunc()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	c, ok := rl.clients[key]
	if !ok {
		c = &clientLimiter{Limiter: budget.limiter()}
		rl.clients[key] = c
	}
	c.lastSeen = now
	return c.Limiter
}

func (rl *RateLimitMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		budget := budgetFor(r)
		if rl.limiterFor(ip, budget).Allow() {
			next.ServeHTTP(w, r)
			return
		}

		retry := int(math.Ceil(budget.every.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		rl.logger.Warn("admin request throttled",
			"operation", budget.name,
			"method", r.Method,
			"path", r.URL.Path,
			"client_ip", ip,
		)
	})
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// socket peer.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
