package statistics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datalexum/aquawiz-monitor/internal/models"
)

func TestStatisticID(t *testing.T) {
	assert.Equal(t, "aquawiz:AW-1234_dosing", StatisticID("AW-1234", models.MetricDosing))
	assert.Equal(t, "aquawiz:AW-1234_ph_o", StatisticID("AW-1234", models.MetricPHAfterSaturation))
}

func TestMetadataFor(t *testing.T) {
	catalog := models.MetricCatalog()

	var dosing models.MetricInfo
	for _, info := range catalog {
		if info.Metric == models.MetricDosing {
			dosing = info
		}
	}

	meta := MetadataFor("AW-1234", dosing)
	assert.Equal(t, "aquawiz:AW-1234_dosing", meta.StatisticID)
	assert.Equal(t, StatisticSource, meta.Source)
	assert.Equal(t, "ml", meta.Unit)
	assert.True(t, meta.HasMean)
	assert.True(t, meta.HasSum)

	for _, info := range catalog {
		if info.Metric == models.MetricDosing {
			continue
		}
		m := MetadataFor("AW-1234", info)
		assert.True(t, m.HasMean, string(info.Metric))
		assert.False(t, m.HasSum, string(info.Metric))
	}
}

func TestBuildSeries(t *testing.T) {
	base := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	readings := []models.SensorReading{
		models.NewSensorReading(base.UnixMilli(), 8500, 2500, 8200, 8100),
		models.NewSensorReading(base.Add(10*time.Minute).UnixMilli(), 8600, 1500, 8300, 8100),
		models.NewSensorReading(base.Add(20*time.Minute).UnixMilli(), 8400, 0, 8100, 8000),
	}

	t.Run("mean-only metric has no sums", func(t *testing.T) {
		info := models.MetricInfo{Metric: models.MetricAlkalinity, HasMean: true}
		points := BuildSeries(info, readings)
		require.Len(t, points, 3)

		assert.Equal(t, base, points[0].Start)
		assert.InDelta(t, 8.5, points[0].Mean, 1e-9)
		assert.InDelta(t, 8.6, points[1].Mean, 1e-9)
		for _, p := range points {
			assert.Nil(t, p.Sum)
		}
	})

	t.Run("dosing accumulates a running sum", func(t *testing.T) {
		info := models.MetricInfo{Metric: models.MetricDosing, HasMean: true, HasSum: true}
		points := BuildSeries(info, readings)
		require.Len(t, points, 3)

		require.NotNil(t, points[0].Sum)
		assert.InDelta(t, 2.5, *points[0].Sum, 1e-9)
		assert.InDelta(t, 4.0, *points[1].Sum, 1e-9)
		assert.InDelta(t, 4.0, *points[2].Sum, 1e-9)
		assert.InDelta(t, 0.0, points[2].Mean, 1e-9)
	})

	t.Run("empty input yields no points", func(t *testing.T) {
		info := models.MetricInfo{Metric: models.MetricPH, HasMean: true}
		assert.Nil(t, BuildSeries(info, nil))
	})
}
