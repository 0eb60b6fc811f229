package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datalexum/aquawiz-monitor/internal/aquawiz"
	"github.com/datalexum/aquawiz-monitor/internal/models"
	"github.com/datalexum/aquawiz-monitor/pkg/cache"
)

type fakePoller struct {
	snapshot models.UpdateSnapshot
	hasData  bool
	success  bool
	lastErr  error
	devices  []aquawiz.Device
}

func (f *fakePoller) Snapshot() (models.UpdateSnapshot, bool) { return f.snapshot, f.hasData }
func (f *fakePoller) LastUpdateSuccess() bool                 { return f.success }
func (f *fakePoller) LastError() error                        { return f.lastErr }
func (f *fakePoller) Devices() []aquawiz.Device               { return f.devices }

type fakeReader struct {
	snapshot models.UpdateSnapshot
	err      error
}

func (f *fakeReader) GetLatest(ctx context.Context, deviceID string) (models.UpdateSnapshot, error) {
	if f.err != nil {
		return models.UpdateSnapshot{}, f.err
	}
	return f.snapshot, nil
}

func sampleSnapshot() models.UpdateSnapshot {
	reading := models.NewSensorReading(1706745600000, 8500, 2500, 8200, 8100)
	return models.UpdateSnapshot{
		Reading:    &reading,
		DeviceID:   "AW-1234",
		LastUpdate: time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestLatest(t *testing.T) {
	t.Run("serves in-memory snapshot", func(t *testing.T) {
		h := NewTelemetryHandler(&fakePoller{snapshot: sampleSnapshot(), hasData: true}, nil, "AW-1234")

		rec := httptest.NewRecorder()
		h.Latest(rec, httptest.NewRequest(http.MethodGet, "/api/v1/device/latest", nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var got models.UpdateSnapshot
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.NotNil(t, got.Reading)
		assert.Equal(t, "AW-1234", got.DeviceID)
		assert.InDelta(t, 8.2, got.Reading.PH, 1e-9)
	})

	t.Run("falls back to cached snapshot", func(t *testing.T) {
		reader := &fakeReader{snapshot: sampleSnapshot()}
		h := NewTelemetryHandler(&fakePoller{}, reader, "AW-1234")

		rec := httptest.NewRecorder()
		h.Latest(rec, httptest.NewRequest(http.MethodGet, "/api/v1/device/latest", nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var got models.UpdateSnapshot
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "AW-1234", got.DeviceID)
	})

	t.Run("503 before any data exists", func(t *testing.T) {
		reader := &fakeReader{err: cache.ErrCacheMiss}
		h := NewTelemetryHandler(&fakePoller{}, reader, "AW-1234")

		rec := httptest.NewRecorder()
		h.Latest(rec, httptest.NewRequest(http.MethodGet, "/api/v1/device/latest", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "no data available yet")
	})

	t.Run("503 without a cache configured", func(t *testing.T) {
		h := NewTelemetryHandler(&fakePoller{}, nil, "AW-1234")

		rec := httptest.NewRecorder()
		h.Latest(rec, httptest.NewRequest(http.MethodGet, "/api/v1/device/latest", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestDevices(t *testing.T) {
	h := NewTelemetryHandler(&fakePoller{devices: []aquawiz.Device{
		{ID: "AW-1234", Name: "Main Tank"},
		{DeviceID: "AW-5678"},
	}}, nil, "AW-1234")

	rec := httptest.NewRecorder()
	h.Devices(rec, httptest.NewRequest(http.MethodGet, "/api/v1/device", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Devices []deviceInfo `json:"devices"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Devices, 2)
	assert.Equal(t, "Main Tank", got.Devices[0].Name)
	assert.Equal(t, "AW-5678", got.Devices[1].ID)
	assert.Equal(t, "Device AW-5678", got.Devices[1].Name)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	h := NewHealthHandler(stubPinger{}, stubPinger{}, &fakePoller{})

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestReady(t *testing.T) {
	t.Run("ready when dependencies respond", func(t *testing.T) {
		h := NewHealthHandler(stubPinger{}, stubPinger{}, &fakePoller{success: true})

		rec := httptest.NewRecorder()
		h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"last_update_success":true`)
	})

	t.Run("not ready when database is down", func(t *testing.T) {
		h := NewHealthHandler(stubPinger{err: errors.New("db down")}, stubPinger{}, &fakePoller{})

		rec := httptest.NewRecorder()
		h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "db down")
	})

	t.Run("failing poller does not block readiness", func(t *testing.T) {
		h := NewHealthHandler(stubPinger{}, stubPinger{}, &fakePoller{
			success: false,
			lastErr: errors.New("upstream unreachable"),
		})

		rec := httptest.NewRecorder()
		h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "upstream unreachable")
	})
}
