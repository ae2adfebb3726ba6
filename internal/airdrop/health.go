package airdrop

import (
	"sync"
	"time"
)

type HealthStatus string

const (
	HealthStatusUnknown   HealthStatus = "UNKNOWN"
	HealthStatusHealthy   HealthStatus = "HEALTHY"
	HealthStatusUnhealthy HealthStatus = "UNHEALTHY"

	// DefaultUnhealthyThreshold is the number of consecutive failed jobs
	// before the worker reports unhealthy.
	DefaultUnhealthyThreshold = 5
)

// Health tracks the worker's recent job outcomes.
type Health struct {
	mu                  sync.RWMutex
	status              HealthStatus
	consecutiveFailures int
	unhealthyThreshold  int
	processed           int64
	lastSuccessAt       *time.Time
	lastFailureAt       *time.Time
	now                 func() time.Time
}

func NewHealth() *Health {
	return &Health{
		status:             HealthStatusUnknown,
		unhealthyThreshold: DefaultUnhealthyThreshold,
		now:                time.Now,
	}
}

// RecordSuccess returns true when it recovers the worker from UNHEALTHY.
func (h *Health) RecordSuccess() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := h.now()
	wasUnhealthy := h.status == HealthStatusUnhealthy
	h.consecutiveFailures = 0
	h.processed++
	h.lastSuccessAt = &now
	h.status = HealthStatusHealthy
	return wasUnhealthy
}

// RecordFailure returns true when the worker turned UNHEALTHY on this call.
func (h *Health) RecordFailure() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := h.now()
	h.consecutiveFailures++
	h.processed++
	h.lastFailureAt = &now
	if h.consecutiveFailures >= h.unhealthyThreshold && h.status != HealthStatusUnhealthy {
		h.status = HealthStatusUnhealthy
		return true
	}
	if h.status == HealthStatusUnknown {
		h.status = HealthStatusHealthy
	}
	return false
}

func (h *Health) Snapshot() HealthSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return HealthSnapshot{
		Status:              string(h.status),
		ConsecutiveFailures: h.consecutiveFailures,
		Processed:           h.processed,
		LastSuccessAt:       h.lastSuccessAt,
		LastFailureAt:       h.lastFailureAt,
	}
}

// HealthSnapshot is a point-in-time view of worker health (JSON-safe).
type HealthSnapshot struct {
	Status              string     `json:"status"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	Processed           int64      `json:"processed"`
	LastSuccessAt       *time.Time `json:"last_success_at,omitempty"`
	LastFailureAt       *time.Time `json:"last_failure_at,omitempty"`
}

func (s HealthSnapshot) Healthy() bool {
	return s.Status != string(HealthStatusUnhealthy)
}
