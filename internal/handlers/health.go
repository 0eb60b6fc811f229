package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/datalexum/aquawiz-monitor/pkg/utils"
)

// Pinger is a health-checkable dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	db     Pinger
	redis  Pinger
	poller PollerStatus
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(db, redis Pinger, poller PollerStatus) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, poller: poller}
}

// Health handles GET /health. Always returns 200 while the process is
// running; use Ready for dependency checks.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /ready. Checks PostgreSQL and Redis connectivity and
// reports the poller's last-cycle outcome. A failing poll does not make
// the service unready; the API still serves the last known snapshot.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{
		"database": "ok",
		"redis":    "ok",
	}
	ready := true

	if err := h.db.Ping(ctx); err != nil {
		checks["database"] = err.Error()
		ready = false
	}
	if err := h.redis.Ping(ctx); err != nil {
		checks["redis"] = err.Error()
		ready = false
	}

	poller := map[string]interface{}{
		"last_update_success": h.poller.LastUpdateSuccess(),
	}
	if err := h.poller.LastError(); err != nil {
		poller["last_error"] = err.Error()
	}

	status := http.StatusOK
	state := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "not ready"
	}

	utils.RespondWithJSON(w, r, status, map[string]interface{}{
		"status": state,
		"checks": checks,
		"poller": poller,
	})
}
