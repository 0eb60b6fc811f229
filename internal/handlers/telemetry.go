// Package handlers implements the HTTP API: the latest-snapshot and
// device endpoints plus health and readiness probes.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/datalexum/aquawiz-monitor/internal/aquawiz"
	"github.com/datalexum/aquawiz-monitor/internal/models"
	"github.com/datalexum/aquawiz-monitor/pkg/cache"
	"github.com/datalexum/aquawiz-monitor/pkg/utils"
)

// PollerStatus is the coordinator surface the handlers read from.
type PollerStatus interface {
	Snapshot() (models.UpdateSnapshot, bool)
	LastUpdateSuccess() bool
	LastError() error
	Devices() []aquawiz.Device
}

// SnapshotReader serves cached snapshots when the in-memory state is
// still empty after a restart. Satisfied by *cache.SnapshotCache.
type SnapshotReader interface {
	GetLatest(ctx context.Context, deviceID string) (models.UpdateSnapshot, error)
}

// TelemetryHandler serves the device telemetry endpoints.
type TelemetryHandler struct {
	poller   PollerStatus
	fallback SnapshotReader // may be nil when caching is disabled
	deviceID string
}

// NewTelemetryHandler creates a TelemetryHandler.
func NewTelemetryHandler(poller PollerStatus, fallback SnapshotReader, deviceID string) *TelemetryHandler {
	return &TelemetryHandler{poller: poller, fallback: fallback, deviceID: deviceID}
}

// deviceInfo is the JSON shape of one account device.
type deviceInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Latest handles GET /api/v1/device/latest.
// Serves the in-memory snapshot from the most recent successful poll,
// falling back to the Redis-cached snapshot right after a restart.
// Responds 503 when neither is available yet.
func (h *TelemetryHandler) Latest(w http.ResponseWriter, r *http.Request) {
	if snapshot, ok := h.poller.Snapshot(); ok {
		utils.RespondWithJSON(w, r, http.StatusOK, snapshot)
		return
	}

	if h.fallback != nil {
		snapshot, err := h.fallback.GetLatest(r.Context(), h.deviceID)
		if err == nil {
			utils.RespondWithJSON(w, r, http.StatusOK, snapshot)
			return
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Warn().Err(err).Msg("Snapshot cache lookup failed")
		}
	}

	msg := "no data available yet"
	if err := h.poller.LastError(); err != nil {
		msg = fmt.Sprintf("%s: last update failed: %v", msg, err)
	}
	utils.RespondWithError(w, r, http.StatusServiceUnavailable, msg)
}

// Devices handles GET /api/v1/device.
// Returns the account's device list captured at startup validation.
func (h *TelemetryHandler) Devices(w http.ResponseWriter, r *http.Request) {
	devices := h.poller.Devices()
	out := make([]deviceInfo, 0, len(devices))
	for _, d := range devices {
		out = append(out, deviceInfo{ID: d.Identifier(), Name: d.DisplayName()})
	}
	utils.RespondWithJSON(w, r, http.StatusOK, map[string]interface{}{"devices": out})
}
