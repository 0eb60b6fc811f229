package models

// Metric identifies one of the statistics series derived from a
// SensorReading. The string values double as the suffix of the statistic
// IDs persisted by the statistics sink, so they must stay stable.
type Metric string

// Metrics derived from each reading.
const (
	MetricAlkalinity        Metric = "alkalinity"
	MetricDosing            Metric = "dosing"
	MetricPH                Metric = "ph"
	MetricPHAfterSaturation Metric = "ph_o"
	MetricDeltaPH           Metric = "delta_ph"
)

// MetricInfo carries display metadata and aggregation hints for a metric.
// HasSum marks metrics whose samples are incremental quantities (dosed
// volume) and therefore get a cumulative sum next to the mean; pure
// measurements are mean-only.
type MetricInfo struct {
	Metric  Metric `json:"metric"`
	Name    string `json:"name"`
	Unit    string `json:"unit"`
	HasMean bool   `json:"has_mean"`
	HasSum  bool   `json:"has_sum"`
}

// MetricCatalog returns the full set of metrics produced per device, in
// stable order. The catalog drives both the statistics sink tags and the
// metric listing in the HTTP API.
func MetricCatalog() []MetricInfo {
	return []MetricInfo{
		{Metric: MetricAlkalinity, Name: "Alkalinity", Unit: "dKH", HasMean: true, HasSum: false},
		{Metric: MetricPH, Name: "pH", Unit: "pH", HasMean: true, HasSum: false},
		{Metric: MetricPHAfterSaturation, Name: "pH(O)", Unit: "pH", HasMean: true, HasSum: false},
		{Metric: MetricDosing, Name: "Dosing", Unit: "ml", HasMean: true, HasSum: true},
		{Metric: MetricDeltaPH, Name: "ΔpH", Unit: "pH", HasMean: true, HasSum: false},
	}
}
