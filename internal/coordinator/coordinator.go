// Package coordinator drives the polling lifecycle for one AquaWiz
// device: a one-shot historical backfill into the statistics store,
// then the steady current-day poll that maintains the latest snapshot.
package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/datalexum/aquawiz-monitor/internal/aquawiz"
	"github.com/datalexum/aquawiz-monitor/internal/middleware"
	"github.com/datalexum/aquawiz-monitor/internal/models"
	"github.com/datalexum/aquawiz-monitor/internal/statistics"
	"github.com/datalexum/aquawiz-monitor/pkg/config"
)

// backfillDays is how far back the one-shot historical import reaches.
const backfillDays = 7

// DeviceAPI is the subset of the AquaWiz client the coordinator needs.
// Satisfied by *aquawiz.Client; tests substitute a fake.
type DeviceAPI interface {
	Authenticate(ctx context.Context, username, password string) (*aquawiz.AuthResponse, error)
	GetDeviceData(ctx context.Context, username, password, deviceID string, date time.Time) (aquawiz.Page, error)
	GetHistoricalData(ctx context.Context, username, password, deviceID string, start, end time.Time) ([]aquawiz.Page, error)
	Close()
}

// SnapshotStore mirrors the latest snapshot into an external cache so it
// survives restarts. Satisfied by *cache.SnapshotCache.
type SnapshotStore interface {
	SetLatest(ctx context.Context, snapshot models.UpdateSnapshot) error
}

// Coordinator owns the poll state for a single device. All exported
// methods are safe for concurrent use; Poll itself is expected to run
// from a single scheduler goroutine.
type Coordinator struct {
	api   DeviceAPI
	sink  statistics.Sink
	store SnapshotStore

	username string
	password string
	deviceID string

	now func() time.Time

	mu           sync.RWMutex
	snapshot     models.UpdateSnapshot
	lastErr      error
	lastSuccess  bool
	backfillDone bool
	devices      []aquawiz.Device
	interval     time.Duration
}

// New creates a coordinator for the configured device. The statistics
// sink and snapshot store are optional; a nil value disables that
// output.
func New(api DeviceAPI, sink statistics.Sink, store SnapshotStore, cfg *config.AquaWizConfig) *Coordinator {
	return &Coordinator{
		api:      api,
		sink:     sink,
		store:    store,
		username: cfg.Username,
		password: cfg.Password,
		deviceID: cfg.DeviceID,
		interval: cfg.UpdateInterval,
		now:      time.Now,
	}
}

// ValidateDevice authenticates with the configured credentials and checks
// the configured device against the account's device list. Accounts with
// no devices are an error; an unrecognized device ID is only logged,
// since the upstream's device list keys are not reliable enough to hard
// fail on.
func (c *Coordinator) ValidateDevice(ctx context.Context) error {
	auth, err := c.api.Authenticate(ctx, c.username, c.password)
	if err != nil {
		return err
	}

	if len(auth.Devices) == 0 {
		return &aquawiz.AuthError{Message: "account has no registered devices"}
	}

	c.mu.Lock()
	c.devices = auth.Devices
	c.mu.Unlock()

	for _, d := range auth.Devices {
		if d.Identifier() == c.deviceID {
			log.Info().
				Str("device_id", c.deviceID).
				Str("name", d.DisplayName()).
				Msg("Configured device found on account")
			return nil
		}
	}

	log.Warn().
		Str("device_id", c.deviceID).
		Int("account_devices", len(auth.Devices)).
		Msg("Configured device not in account device list, continuing anyway")
	return nil
}

// Poll performs one update cycle: fetch the current day, update the
// snapshot, then run the one-shot historical backfill if it has not
// happened yet. A failed fetch preserves the previous snapshot and does
// not consume the backfill; backfill problems never fail the cycle.
func (c *Coordinator) Poll(ctx context.Context) error {
	start := c.now()

	page, err := c.api.GetDeviceData(ctx, c.username, c.password, c.deviceID, time.Time{})
	if err != nil {
		c.mu.Lock()
		c.lastErr = err
		c.lastSuccess = false
		c.mu.Unlock()

		middleware.RecordPollCycle("error", c.now().Sub(start))
		log.Error().Err(err).Str("device_id", c.deviceID).Msg("Poll cycle failed")
		return err
	}

	result := aquawiz.ParseSensorData(page)
	for _, s := range result.Skipped {
		log.Debug().Int("index", s.Index).Str("reason", s.Reason).Msg("Skipped malformed sensor entry")
	}

	c.mu.Lock()
	runBackfill := !c.backfillDone
	// The backfill is consumed by reaching it, not by succeeding; a
	// failed import is not retried on later cycles.
	c.backfillDone = true
	c.mu.Unlock()

	if runBackfill {
		c.backfillHistory(ctx)
	}

	snapshot := models.UpdateSnapshot{
		DeviceID:   c.deviceID,
		LastUpdate: c.now().UTC(),
	}
	if latest, ok := models.LatestReading(result.Readings); ok {
		snapshot.Reading = &latest
	}

	c.mu.Lock()
	c.snapshot = snapshot
	c.lastErr = nil
	c.lastSuccess = true
	c.mu.Unlock()

	if c.store != nil && snapshot.Reading != nil {
		if err := c.store.SetLatest(ctx, snapshot); err != nil {
			log.Warn().Err(err).Msg("Failed to cache latest snapshot")
		}
	}

	middleware.RecordPollCycle("success", c.now().Sub(start))
	log.Info().
		Str("device_id", c.deviceID).
		Int("samples", len(result.Readings)).
		Bool("has_reading", snapshot.Reading != nil).
		Msg("Poll cycle completed")

	return nil
}

// backfillHistory imports the last backfillDays of samples into the
// statistics sink. Every failure path logs and returns; history import
// never propagates errors into the poll cycle.
func (c *Coordinator) backfillHistory(ctx context.Context) {
	if c.sink == nil {
		log.Debug().Msg("No statistics sink configured, skipping backfill")
		return
	}

	end := c.now()
	start := end.AddDate(0, 0, -backfillDays)

	pages, err := c.api.GetHistoricalData(ctx, c.username, c.password, c.deviceID, start, end)
	if err != nil {
		middleware.RecordBackfill("error", 0)
		log.Warn().Err(err).Str("device_id", c.deviceID).Msg("Historical backfill fetch failed")
		return
	}

	var readings []models.SensorReading
	for _, page := range pages {
		readings = append(readings, aquawiz.ParseSensorData(page).Readings...)
	}
	if len(readings) == 0 {
		middleware.RecordBackfill("success", 0)
		log.Info().Str("device_id", c.deviceID).Msg("Historical backfill found no samples")
		return
	}

	written := 0
	failed := false
	for _, info := range models.MetricCatalog() {
		meta := statistics.MetadataFor(c.deviceID, info)
		points := statistics.BuildSeries(info, readings)
		if len(points) == 0 {
			continue
		}
		if err := c.sink.AddStatistics(ctx, meta, points); err != nil {
			failed = true
			log.Warn().
				Err(err).
				Str("statistic_id", meta.StatisticID).
				Msg("Failed to write backfill statistics")
			continue
		}
		written += len(points)
	}

	outcome := "success"
	if failed {
		outcome = "partial"
	}
	middleware.RecordBackfill(outcome, written)
	log.Info().
		Str("device_id", c.deviceID).
		Int("days", backfillDays).
		Int("samples", len(readings)).
		Int("points", written).
		Msg("Historical backfill completed")
}

// Snapshot returns the latest update snapshot. The second return reports
// whether any poll has succeeded yet in this process.
func (c *Coordinator) Snapshot() (models.UpdateSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot, c.snapshot.DeviceID != ""
}

// LastUpdateSuccess reports whether the most recent poll cycle succeeded.
func (c *Coordinator) LastUpdateSuccess() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSuccess
}

// LastError returns the error from the most recent failed poll, or nil.
func (c *Coordinator) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Devices returns the account device list captured during validation.
func (c *Coordinator) Devices() []aquawiz.Device {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]aquawiz.Device, len(c.devices))
	copy(out, c.devices)
	return out
}

// Interval returns the current poll interval.
func (c *Coordinator) Interval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.interval
}

// UpdateOptions adjusts the poll interval at runtime. Values outside the
// allowed range are clamped rather than rejected; the new interval takes
// effect after the next scheduled poll.
func (c *Coordinator) UpdateOptions(interval time.Duration) time.Duration {
	clamped := interval
	if clamped < config.MinUpdateInterval {
		clamped = config.MinUpdateInterval
	}
	if clamped > config.MaxUpdateInterval {
		clamped = config.MaxUpdateInterval
	}
	if clamped != interval {
		log.Warn().
			Dur("requested", interval).
			Dur("applied", clamped).
			Msg("Poll interval outside allowed range, clamped")
	}

	c.mu.Lock()
	c.interval = clamped
	c.mu.Unlock()
	return clamped
}

// Shutdown releases the underlying API client.
func (c *Coordinator) Shutdown() {
	c.api.Close()
}
