// Package domain contains the core data types for the GPX viewer.
// This package has no dependencies beyond uuid and is imported by every other
// internal package (geo, gpx, repo, service, handler).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Trace is a single parsed track-log document.
// A trace is the top-level aggregate; it exclusively owns its tracks and waypoints.
type Trace struct {
	ID         uuid.UUID        `json:"id"`
	Name       string           `json:"name"`
	Tracks     []Track          `json:"tracks"`
	Waypoints  []Waypoint       `json:"waypoints"`
	Bounds     Bounds           `json:"bounds"`
	StartTime  time.Time        `json:"start_time"`
	EndTime    time.Time        `json:"end_time"`
	Kilometers float64          `json:"kilometers"`
	Seconds    float64          `json:"seconds"`
	Timezone   string           `json:"timezone"`
	Enrichment *TraceEnrichment `json:"enrichment,omitempty"` // nil when the document carries none
	CreatedAt  time.Time        `json:"created_at"`
}

// Track is one recording session. Kilometers is the sum of its segments.
type Track struct {
	Name       string           `json:"name,omitempty"`
	Segments   []Segment        `json:"segments"`
	Kilometers float64          `json:"kilometers"`
	Enrichment *TrackEnrichment `json:"enrichment,omitempty"`
}

// Segment is a run of points with no inter-point gap above the split threshold.
type Segment struct {
	Points     []Point            `json:"points"`
	Kilometers float64            `json:"kilometers"`
	Seconds    float64            `json:"seconds"`
	Timezone   string             `json:"timezone"`
	Visible    bool               `json:"visible"`
	Enrichment *SegmentEnrichment `json:"enrichment,omitempty"`
}

// Point is one timestamped sample. The Calculated* fields are relative to the
// previous point in the same segment and are zero on a segment's first point.
type Point struct {
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lon"`
	Elevation float64   `json:"ele"`
	Speed     *float64  `json:"speed,omitempty"`  // as recorded by the device, m/s
	Course    *float64  `json:"course,omitempty"` // as recorded by the device, degrees
	Timestamp time.Time `json:"time"`

	CalculatedMeters float64 `json:"calculated_meters"`
	CalculatedCourse float64 `json:"calculated_course"`
	CalculatedKmH    float64 `json:"calculated_kmh"`
}

// Waypoint is a standalone named location, independent of tracks.
type Waypoint struct {
	Latitude  float64       `json:"lat"`
	Longitude float64       `json:"lon"`
	Time      time.Time     `json:"time"`
	Name      string        `json:"name"`
	Comment   string        `json:"comment,omitempty"`
	Timezone  string        `json:"timezone"`
	Visible   bool          `json:"visible"`
	Seconds   float64       `json:"seconds"`
	Stop      *WaypointStop `json:"stop,omitempty"`
}

// GeoPoint is a bare coordinate pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Bounds is an axis-aligned lat/lon bounding box.
// MinLat <= MaxLat and MinLon <= MaxLon once at least one point has been seen.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Extend returns b grown to include lat/lon.
func (b Bounds) Extend(lat, lon float64) Bounds {
	if lat < b.MinLat {
		b.MinLat = lat
	}
	if lat > b.MaxLat {
		b.MaxLat = lat
	}
	if lon < b.MinLon {
		b.MinLon = lon
	}
	if lon > b.MaxLon {
		b.MaxLon = lon
	}
	return b
}

// TraceEnrichment holds aggregates previously computed and embedded in the
// source document. It is informational; parsed values are always recomputed.
type TraceEnrichment struct {
	Kilometers float64  `json:"kilometers"`
	Seconds    float64  `json:"seconds"`
	Regions    []string `json:"regions,omitempty"`
	Sites      []string `json:"sites,omitempty"`
}

// TrackEnrichment duplicates track aggregates from the source document.
type TrackEnrichment struct {
	Kilometers float64 `json:"kilometers"`
	Seconds    float64 `json:"seconds"`
	Bounds     *Bounds `json:"bounds,omitempty"`
}

// SegmentEnrichment duplicates segment aggregates from the source document.
type SegmentEnrichment struct {
	Kilometers float64         `json:"kilometers"`
	KmH        float64         `json:"kmh"`
	Course     float64         `json:"course"`
	Bounds     *Bounds         `json:"bounds,omitempty"`
	Transport  []TransportMode `json:"transport,omitempty"`
}

// TransportMode is one transportation classification with its probability.
type TransportMode struct {
	Mode        string  `json:"mode"`
	Probability float64 `json:"probability"`
}

// WaypointStop describes a stop: where and when it began and finished.
type WaypointStop struct {
	Begin      GeoPoint  `json:"begin"`
	Finish     GeoPoint  `json:"finish"`
	BeginTime  time.Time `json:"begin_time"`
	FinishTime time.Time `json:"finish_time"`
	Seconds    float64   `json:"seconds"`
	Bounds     *Bounds   `json:"bounds,omitempty"`
}

// TraceSummary is the listing view of a stored trace: no point data.
type TraceSummary struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Kilometers    float64   `json:"kilometers"`
	Seconds       float64   `json:"seconds"`
	Timezone      string    `json:"timezone"`
	Bounds        Bounds    `json:"bounds"`
	TrackCount    int       `json:"track_count"`
	PointCount    int       `json:"point_count"`
	WaypointCount int       `json:"waypoint_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// TraceRecord is what the store persists: the summary plus the source
// document it was derived from, so the full Trace can be re-derived on read.
type TraceRecord struct {
	TraceSummary
	SplitOnGaps bool
	Document    []byte
}

// Summary returns the listing view of t.
func (t Trace) Summary() TraceSummary {
	points := 0
	for _, tr := range t.Tracks {
		for _, s := range tr.Segments {
			points += len(s.Points)
		}
	}
	return TraceSummary{
		ID:            t.ID,
		Name:          t.Name,
		StartTime:     t.StartTime,
		EndTime:       t.EndTime,
		Kilometers:    t.Kilometers,
		Seconds:       t.Seconds,
		Timezone:      t.Timezone,
		Bounds:        t.Bounds,
		TrackCount:    len(t.Tracks),
		PointCount:    points,
		WaypointCount: len(t.Waypoints),
		CreatedAt:     t.CreatedAt,
	}
}

// TraceLocation locates the point of a trace nearest to a query coordinate.
// Meters and Duration are measured from the first point of the matched segment.
// TraceMeters is the distance recorded across every segment up to Point's
// time; pauses between segments add nothing.
type TraceLocation struct {
	Track       int           `json:"track"`
	Segment     int           `json:"segment"`
	Index       int           `json:"index"`
	Point       Point         `json:"point"`
	PrevPoint   Point         `json:"prev_point"`
	Meters      float64       `json:"meters"`
	TraceMeters float64       `json:"trace_meters"`
	Duration    time.Duration `json:"-"`
	Seconds     float64       `json:"seconds"`  // Duration in seconds, for clients
	Distance    float64       `json:"distance"` // meters between Point and the query coordinate
}
