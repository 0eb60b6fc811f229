// Package models defines the core domain models for the application.
// These models represent the data structures shared between the API client,
// the update coordinator, the statistics sink, and the HTTP surface.
//
// All models include JSON struct tags so they can be served directly from
// the API and cached as-is in Redis.
package models

import "time"

// SensorReading is a single parsed measurement from the AquaWiz cloud API.
// The upstream reports all four scaled fields as integers multiplied by
// 1000; readings always carry the already-divided values.
//
// DeltaPH is derived, not reported: it is PH − PHAfterSaturation when both
// values are positive and 0 otherwise, because a zero field means the probe
// did not produce a measurement for that sample.
//
// Readings are immutable once constructed and carry no identity beyond
// their timestamp.
//
// JSON example:
//
//	{
//	  "timestamp": "2024-02-01T00:00:00Z",
//	  "alkalinity": 8.5,
//	  "dosing": 2.5,
//	  "ph": 8.2,
//	  "ph_after_saturation": 8.1,
//	  "delta_ph": 0.1
//	}
type SensorReading struct {
	Timestamp         time.Time `json:"timestamp"`           // Sample time (UTC, from upstream epoch millis)
	Alkalinity        float64   `json:"alkalinity"`          // Carbonate hardness in dKH
	Dosing            float64   `json:"dosing"`              // Dosed volume for this sample in ml
	PH                float64   `json:"ph"`                  // Tank pH
	PHAfterSaturation float64   `json:"ph_after_saturation"` // pH after air equilibration
	DeltaPH           float64   `json:"delta_ph"`            // PH − PHAfterSaturation, or 0
}

// NewSensorReading builds a reading from the raw integer fields of an API
// result entry, applying the ÷1000 scaling and the delta-pH rule.
func NewSensorReading(timestampMillis int64, alkalinity, dosing, ph, phO int64) SensorReading {
	r := SensorReading{
		Timestamp:         time.UnixMilli(timestampMillis).UTC(),
		Alkalinity:        float64(alkalinity) / 1000,
		Dosing:            float64(dosing) / 1000,
		PH:                float64(ph) / 1000,
		PHAfterSaturation: float64(phO) / 1000,
	}
	if r.PH > 0 && r.PHAfterSaturation > 0 {
		r.DeltaPH = r.PH - r.PHAfterSaturation
	}
	return r
}

// MetricValue returns the reading's value for the given metric.
// Unknown metrics return 0.
func (r SensorReading) MetricValue(m Metric) float64 {
	switch m {
	case MetricAlkalinity:
		return r.Alkalinity
	case MetricDosing:
		return r.Dosing
	case MetricPH:
		return r.PH
	case MetricPHAfterSaturation:
		return r.PHAfterSaturation
	case MetricDeltaPH:
		return r.DeltaPH
	}
	return 0
}

// UpdateSnapshot is the freshest known state published by the coordinator
// after each successful poll cycle. It is replaced wholesale, never
// partially updated, so readers always observe a consistent pair of
// reading and update time.
//
// Reading is nil when the current day has produced no samples yet; the
// snapshot is still published so consumers can distinguish "device quiet"
// from "update failing".
type UpdateSnapshot struct {
	Reading    *SensorReading `json:"reading,omitempty"` // Latest reading of the day, nil when none
	DeviceID   string         `json:"device_id"`         // Device this snapshot belongs to
	LastUpdate time.Time      `json:"last_update"`       // When the poll cycle completed
}

// LatestReading returns the reading with the maximum timestamp, or false
// when the slice is empty. Ties keep the earlier entry, matching input
// order.
func LatestReading(readings []SensorReading) (SensorReading, bool) {
	if len(readings) == 0 {
		return SensorReading{}, false
	}
	latest := readings[0]
	for _, r := range readings[1:] {
		if r.Timestamp.After(latest.Timestamp) {
			latest = r
		}
	}
	return latest, true
}
