package aquawiz

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeTestPage(t *testing.T, body string) Page {
	t.Helper()
	var page Page
	require.NoError(t, json.Unmarshal([]byte(body), &page))
	return page
}

func TestParseSensorData(t *testing.T) {
	t.Run("parses scaled fields", func(t *testing.T) {
		page := decodeTestPage(t, `{
			"sample_size": 1,
			"results": [
				[1706745600000, {"field22": 8500, "field26": 2500, "field27": 8200, "field28": 8100}]
			]
		}`)

		result := ParseSensorData(page)
		require.Len(t, result.Readings, 1)
		assert.Empty(t, result.Skipped)

		r := result.Readings[0]
		assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), r.Timestamp)
		assert.InDelta(t, 8.5, r.Alkalinity, 1e-9)
		assert.InDelta(t, 2.5, r.Dosing, 1e-9)
		assert.InDelta(t, 8.2, r.PH, 1e-9)
		assert.InDelta(t, 8.1, r.PHAfterSaturation, 1e-9)
		assert.InDelta(t, 0.1, r.DeltaPH, 1e-9)
	})

	t.Run("empty results", func(t *testing.T) {
		page := decodeTestPage(t, `{"sample_size": 0, "results": []}`)

		result := ParseSensorData(page)
		assert.Empty(t, result.Readings)
		assert.Empty(t, result.Skipped)
	})

	t.Run("missing results key", func(t *testing.T) {
		page := decodeTestPage(t, `{"sample_size": 0}`)

		result := ParseSensorData(page)
		assert.Empty(t, result.Readings)
		assert.Empty(t, result.Skipped)
	})

	t.Run("missing fields read as zero", func(t *testing.T) {
		page := decodeTestPage(t, `{
			"results": [[1706745600000, {"field22": 8500}]]
		}`)

		result := ParseSensorData(page)
		require.Len(t, result.Readings, 1)

		r := result.Readings[0]
		assert.InDelta(t, 8.5, r.Alkalinity, 1e-9)
		assert.Zero(t, r.Dosing)
		assert.Zero(t, r.PH)
		assert.Zero(t, r.PHAfterSaturation)
		assert.Zero(t, r.DeltaPH)
	})

	t.Run("delta ph zero unless both probes reported", func(t *testing.T) {
		page := decodeTestPage(t, `{
			"results": [
				[1706745600000, {"field27": 8200, "field28": 0}],
				[1706746200000, {"field27": 0, "field28": 8100}],
				[1706746800000, {"field27": 8200, "field28": 8100}]
			]
		}`)

		result := ParseSensorData(page)
		require.Len(t, result.Readings, 3)
		assert.Zero(t, result.Readings[0].DeltaPH)
		assert.Zero(t, result.Readings[1].DeltaPH)
		assert.InDelta(t, 0.1, result.Readings[2].DeltaPH, 1e-9)
	})

	t.Run("malformed rows are skipped, valid rows kept", func(t *testing.T) {
		page := decodeTestPage(t, `{
			"results": [
				[1706745600000],
				["not-a-timestamp", {"field22": 8500}],
				[1706746200000, [1, 2, 3]],
				[1706746800000, {"field22": 9000}]
			]
		}`)

		result := ParseSensorData(page)
		require.Len(t, result.Readings, 1)
		assert.InDelta(t, 9.0, result.Readings[0].Alkalinity, 1e-9)

		require.Len(t, result.Skipped, 3)
		assert.Equal(t, 0, result.Skipped[0].Index)
		assert.Contains(t, result.Skipped[0].Reason, "expected 2 elements")
		assert.Equal(t, 1, result.Skipped[1].Index)
		assert.Contains(t, result.Skipped[1].Reason, "invalid timestamp")
		assert.Equal(t, 2, result.Skipped[2].Index)
		assert.Contains(t, result.Skipped[2].Reason, "invalid field map")
	})
}
