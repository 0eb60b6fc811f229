package testutil

import (
	"encoding/json"
	"fmt"
)

// SamplePageJSON builds a graph endpoint response body with one result
// row per entry of fields, assigning timestamps baseMillis, baseMillis+
// stepMillis, and so on. Field values are the raw integer encoding
// (value × 1000) the upstream uses.
func SamplePageJSON(baseMillis, stepMillis int64, fields []map[string]int64) []byte {
	results := make([]json.RawMessage, 0, len(fields))
	for i, f := range fields {
		ts := baseMillis + int64(i)*stepMillis
		fieldJSON, _ := json.Marshal(f)
		row := fmt.Sprintf("[%d,%s]", ts, fieldJSON)
		results = append(results, json.RawMessage(row))
	}

	page := map[string]interface{}{
		"sample_size": len(fields),
		"results":     results,
	}
	body, _ := json.Marshal(page)
	return body
}

// DefaultFields returns a raw field map encoding alkalinity 8.5 dKH,
// dosing 2.5 ml, pH 8.2 and pH(O) 8.1.
func DefaultFields() map[string]int64 {
	return map[string]int64{
		"field22": 8500,
		"field26": 2500,
		"field27": 8200,
		"field28": 8100,
	}
}

// EmptyPageJSON returns a graph response with no samples.
func EmptyPageJSON() []byte {
	return []byte(`{"sample_size":0,"results":[]}`)
}
