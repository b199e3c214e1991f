// Package health provides liveness and readiness probes for swissd.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/devrev/swissmatch/internal/metrics"
	"github.com/devrev/swissmatch/internal/store"
)

// TournamentCounter reports how many tournaments are loaded
type TournamentCounter interface {
	Count() int
}

// HealthChecker provides health check endpoints
type HealthChecker struct {
	snapshotStore    store.SnapshotStore
	idempotencyStore store.IdempotencyStore
	tournaments      TournamentCounter
	metrics          *metrics.Metrics
	timeout          time.Duration
	logger           *zap.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status      string            `json:"status"`
	Timestamp   int64             `json:"timestamp"`
	Tournaments int               `json:"tournaments,omitempty"`
	Checks      map[string]string `json:"checks,omitempty"`
}

// NewHealthChecker creates a new health checker. Any store may be nil,
// in which case its check is skipped.
func NewHealthChecker(
	snapshotStore store.SnapshotStore,
	idempotencyStore store.IdempotencyStore,
	tournaments TournamentCounter,
	m *metrics.Metrics,
	timeout time.Duration,
	logger *zap.Logger,
) *HealthChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthChecker{
		snapshotStore:    snapshotStore,
		idempotencyStore: idempotencyStore,
		tournaments:      tournaments,
		metrics:          m,
		timeout:          timeout,
		logger:           logger,
	}
}

// LivenessHandler handles GET /health
func (h *HealthChecker) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:    "alive",
		Timestamp: time.Now().Unix(),
	}
	if h.tournaments != nil {
		status.Tournaments = h.tournaments.Count()
	}

	writeStatus(w, http.StatusOK, status)
}

// ReadinessHandler handles GET /ready. It pings every configured store.
func (h *HealthChecker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checks, healthy := h.Check(ctx)

	status := HealthStatus{
		Timestamp: time.Now().Unix(),
		Checks:    checks,
	}
	code := http.StatusOK
	if healthy {
		status.Status = "ready"
	} else {
		status.Status = "not_ready"
		code = http.StatusServiceUnavailable
	}

	writeStatus(w, code, status)
}

// Check runs every store check and reports whether all of them passed
func (h *HealthChecker) Check(ctx context.Context) (map[string]string, bool) {
	checks := make(map[string]string)
	allHealthy := true

	if err := h.checkSnapshotStore(ctx); err != nil {
		h.logger.Error("Snapshot store health check failed", zap.Error(err))
		checks["snapshot_store"] = "unhealthy: " + err.Error()
		allHealthy = false
	} else {
		checks["snapshot_store"] = "healthy"
	}

	if err := h.checkIdempotencyStore(ctx); err != nil {
		h.logger.Error("Idempotency store health check failed", zap.Error(err))
		checks["idempotency_store"] = "unhealthy: " + err.Error()
		allHealthy = false
	} else {
		checks["idempotency_store"] = "healthy"
	}

	if h.metrics != nil {
		h.metrics.SetHealthStatus(allHealthy)
	}
	return checks, allHealthy
}

func (h *HealthChecker) checkSnapshotStore(ctx context.Context) error {
	if h.snapshotStore == nil {
		return nil
	}
	return h.snapshotStore.Ping(ctx)
}

func (h *HealthChecker) checkIdempotencyStore(ctx context.Context) error {
	if h.idempotencyStore == nil {
		return nil
	}
	return h.idempotencyStore.Ping(ctx)
}

func writeStatus(w http.ResponseWriter, code int, status HealthStatus) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}
