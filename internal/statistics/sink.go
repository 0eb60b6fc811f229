// Package statistics provides the durable statistics sink: long-term
// per-metric series derived from sensor readings. The coordinator shapes
// and tags the data during the one-time historical backfill; this package
// owns how it is persisted.
package statistics

import (
	"context"
	"fmt"
	"time"

	"github.com/datalexum/aquawiz-monitor/internal/models"
)

// StatisticSource tags every series this service produces, so external
// consumers can tell them apart from other producers writing to the same
// store.
const StatisticSource = "aquawiz"

// Metadata describes one statistics series: its stable identifier,
// display metadata, and which aggregations apply.
type Metadata struct {
	StatisticID string // e.g. "aquawiz:AW123_dosing"
	Source      string
	Name        string
	Unit        string
	HasMean     bool
	HasSum      bool
}

// Point is a single statistics sample. Sum is set only for series whose
// metadata has HasSum, and carries the running total up to and including
// this sample.
type Point struct {
	Start time.Time
	Mean  float64
	Sum   *float64
}

// Sink persists statistics series. Implementations must be idempotent per
// (statistic ID, start) pair so a repeated backfill cannot duplicate
// rows.
type Sink interface {
	AddStatistics(ctx context.Context, meta Metadata, points []Point) error
}

// StatisticID builds the stable series identifier for a device metric.
func StatisticID(deviceID string, metric models.Metric) string {
	return fmt.Sprintf("%s:%s_%s", StatisticSource, deviceID, metric)
}

// MetadataFor builds the sink metadata for one metric of a device from
// the shared metric catalog.
func MetadataFor(deviceID string, info models.MetricInfo) Metadata {
	return Metadata{
		StatisticID: StatisticID(deviceID, info.Metric),
		Source:      StatisticSource,
		Name:        info.Name,
		Unit:        info.Unit,
		HasMean:     info.HasMean,
		HasSum:      info.HasSum,
	}
}

// BuildSeries turns readings into the points of one metric's series,
// preserving input order. For sum-bearing metrics the sum accumulates
// across the readings, because each sample reports an incremental
// quantity rather than a level.
func BuildSeries(info models.MetricInfo, readings []models.SensorReading) []Point {
	if len(readings) == 0 {
		return nil
	}

	points := make([]Point, 0, len(readings))
	var runningSum float64
	for _, r := range readings {
		value := r.MetricValue(info.Metric)
		p := Point{Start: r.Timestamp, Mean: value}
		if info.HasSum {
			runningSum += value
			sum := runningSum
			p.Sum = &sum
		}
		points = append(points, p)
	}
	return points
}
