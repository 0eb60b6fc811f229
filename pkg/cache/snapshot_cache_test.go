package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datalexum/aquawiz-monitor/internal/models"
)

func setupCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return New(client), mr
}

func TestSnapshotCache(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		c, _ := setupCache(t)
		sc := NewSnapshotCache(c, time.Hour)

		reading := models.NewSensorReading(1706745600000, 8500, 2500, 8200, 8100)
		snapshot := models.UpdateSnapshot{
			Reading:    &reading,
			DeviceID:   "AW-1234",
			LastUpdate: time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC),
		}

		require.NoError(t, sc.SetLatest(ctx, snapshot))

		got, err := sc.GetLatest(ctx, "AW-1234")
		require.NoError(t, err)
		require.NotNil(t, got.Reading)
		assert.Equal(t, "AW-1234", got.DeviceID)
		assert.InDelta(t, 8.5, got.Reading.Alkalinity, 1e-9)
		assert.InDelta(t, 0.1, got.Reading.DeltaPH, 1e-9)
		assert.True(t, got.Reading.Timestamp.Equal(reading.Timestamp))
	})

	t.Run("miss for unknown device", func(t *testing.T) {
		c, _ := setupCache(t)
		sc := NewSnapshotCache(c, time.Hour)

		_, err := sc.GetLatest(ctx, "unknown")
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("expires after ttl", func(t *testing.T) {
		c, mr := setupCache(t)
		sc := NewSnapshotCache(c, time.Minute)

		snapshot := models.UpdateSnapshot{DeviceID: "AW-1234", LastUpdate: time.Now().UTC()}
		require.NoError(t, sc.SetLatest(ctx, snapshot))

		mr.FastForward(2 * time.Minute)

		_, err := sc.GetLatest(ctx, "AW-1234")
		assert.ErrorIs(t, err, ErrCacheMiss)
	})
}
