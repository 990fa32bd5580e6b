package domain

import "time"

// ExportRow is one flat row of the trace export: one row per stored trace.
// Durations and distances are raw seconds and kilometers.
type ExportRow struct {
	TraceID    string    `json:"trace_id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Timezone   string    `json:"timezone"`
	Kilometers float64   `json:"kilometers"`
	Seconds    float64   `json:"seconds"`
	AverageKmH float64   `json:"average_kmh"`
	MinLat     float64   `json:"min_lat"`
	MinLon     float64   `json:"min_lon"`
	MaxLat     float64   `json:"max_lat"`
	MaxLon     float64   `json:"max_lon"`
	Tracks     int       `json:"tracks"`
	Points     int       `json:"points"`
	Waypoints  int       `json:"waypoints"`
}
