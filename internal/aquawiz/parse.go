package aquawiz

import (
	"encoding/json"
	"fmt"

	"github.com/datalexum/aquawiz-monitor/internal/models"
)

// Page is one decoded response from the device graph endpoint, covering a
// single calendar day of samples.
type Page struct {
	SampleSize int             `json:"sample_size"`
	Device     json.RawMessage `json:"device,omitempty"`
	Results    []Entry         `json:"results"`
}

// Entry is one raw result row: a two-element array of
// [timestampMillis, {fieldKey: int, ...}]. The elements stay raw until
// parsing so a malformed row can be skipped instead of failing the whole
// page decode.
type Entry []json.RawMessage

// SkippedEntry records a result row that could not be parsed, with the
// reason it was rejected. Skips are reported alongside the readings so
// callers can log or assert on them without treating them as failures.
type SkippedEntry struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// ParseResult carries the readings parsed from a page plus the rows that
// were skipped as malformed.
type ParseResult struct {
	Readings []models.SensorReading
	Skipped  []SkippedEntry
}

// Field keys of the four meaningful measurements in a result row. All
// other keys the upstream sends are ignored.
const (
	fieldAlkalinity        = "field22"
	fieldDosing            = "field26"
	fieldPH                = "field27"
	fieldPHAfterSaturation = "field28"
)

// ParseSensorData converts a raw page into sensor readings. A page with a
// missing or empty results list yields an empty result, never an error.
// Rows with fewer than two elements, a non-integer timestamp, or a field
// map that does not decode are skipped with a reason; valid rows keep
// their input order. Missing field keys read as 0, matching the upstream
// contract for samples where a probe produced no value.
func ParseSensorData(page Page) ParseResult {
	var result ParseResult

	for i, entry := range page.Results {
		if len(entry) < 2 {
			result.Skipped = append(result.Skipped, SkippedEntry{
				Index:  i,
				Reason: fmt.Sprintf("expected 2 elements, got %d", len(entry)),
			})
			continue
		}

		var timestampMillis int64
		if err := json.Unmarshal(entry[0], &timestampMillis); err != nil {
			result.Skipped = append(result.Skipped, SkippedEntry{
				Index:  i,
				Reason: fmt.Sprintf("invalid timestamp: %v", err),
			})
			continue
		}

		var fields map[string]int64
		if err := json.Unmarshal(entry[1], &fields); err != nil {
			result.Skipped = append(result.Skipped, SkippedEntry{
				Index:  i,
				Reason: fmt.Sprintf("invalid field map: %v", err),
			})
			continue
		}

		result.Readings = append(result.Readings, models.NewSensorReading(
			timestampMillis,
			fields[fieldAlkalinity],
			fields[fieldDosing],
			fields[fieldPH],
			fields[fieldPHAfterSaturation],
		))
	}

	return result
}
