// Package export renders parsed traces for map clients.
package export

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/pkordes/gpxviewer/internal/domain"
	"github.com/pkordes/gpxviewer/internal/geo"
)

const (
	arrowAngle        = 160.0
	arrowLengthMeters = 145.0

	// Segments at least this long get time-spaced arrows instead of fixed ones.
	arrowTimedMinPoints = 15 * 60
	arrowSpacingSeconds = 300.0
)

// ArrowIndices picks the points of a segment that carry a direction arrow.
// Every returned index is at least 1 so the arrow has a predecessor.
func ArrowIndices(points []domain.Point) []int {
	n := len(points)
	switch {
	case n < 3:
		return nil
	case n < 7*60:
		return []int{n / 2}
	case n < arrowTimedMinPoints:
		return []int{n / 3, n * 2 / 3}
	}

	var indices []int
	prev := points[10]
	for i, pt := range points {
		if pt.Timestamp.Sub(prev.Timestamp).Seconds() > arrowSpacingSeconds {
			indices = append(indices, i)
			prev = pt
		}
	}
	return indices
}

// ArrowHead returns a closed triangle with its tip at (lat, lon) pointing
// along bearing.
func ArrowHead(lat, lon, bearing float64) orb.Polygon {
	leftLat, leftLon := geo.DestinationPoint(lat, lon, geo.NormalizeDegrees(bearing+arrowAngle), arrowLengthMeters)
	rightLat, rightLon := geo.DestinationPoint(lat, lon, geo.NormalizeDegrees(bearing-arrowAngle), arrowLengthMeters)
	left := orb.Point{leftLon, leftLat}
	return orb.Polygon{orb.Ring{
		left,
		orb.Point{lon, lat},
		orb.Point{rightLon, rightLat},
		left,
	}}
}

// Options select optional layers of the FeatureCollection.
type Options struct {
	Arrows bool
}

// FeatureCollection converts a trace into GeoJSON: one LineString per segment,
// one Point per waypoint and, optionally, one Polygon per direction arrow.
// Coordinates are [lon, lat] as GeoJSON requires.
func FeatureCollection(trace domain.Trace, opts Options) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for ti, track := range trace.Tracks {
		for si, seg := range track.Segments {
			line := make(orb.LineString, 0, len(seg.Points))
			for _, p := range seg.Points {
				line = append(line, orb.Point{p.Longitude, p.Latitude})
			}
			f := geojson.NewFeature(line)
			f.Properties["kind"] = "segment"
			f.Properties["track"] = ti
			f.Properties["segment"] = si
			f.Properties["trackName"] = track.Name
			f.Properties["kilometers"] = seg.Kilometers
			f.Properties["seconds"] = seg.Seconds
			f.Properties["timezone"] = seg.Timezone
			if len(seg.Points) > 0 {
				f.Properties["start"] = seg.Points[0].Timestamp
				f.Properties["end"] = seg.Points[len(seg.Points)-1].Timestamp
			}
			fc.Append(f)

			if !opts.Arrows {
				continue
			}
			for _, idx := range ArrowIndices(seg.Points) {
				prev, pt := seg.Points[idx-1], seg.Points[idx]
				bearing := geo.Bearing(prev.Latitude, prev.Longitude, pt.Latitude, pt.Longitude)
				a := geojson.NewFeature(ArrowHead(pt.Latitude, pt.Longitude, bearing))
				a.Properties["kind"] = "arrow"
				a.Properties["track"] = ti
				a.Properties["segment"] = si
				a.Properties["bearing"] = bearing
				fc.Append(a)
			}
		}
	}

	for _, w := range trace.Waypoints {
		f := geojson.NewFeature(orb.Point{w.Longitude, w.Latitude})
		f.Properties["kind"] = "waypoint"
		f.Properties["name"] = w.Name
		if w.Comment != "" {
			f.Properties["comment"] = w.Comment
		}
		if !w.Time.IsZero() {
			f.Properties["time"] = w.Time
		}
		if w.Stop != nil {
			f.Properties["seconds"] = w.Seconds
		}
		fc.Append(f)
	}

	fc.BBox = geojson.NewBBox(orb.Bound{
		Min: orb.Point{trace.Bounds.MinLon, trace.Bounds.MinLat},
		Max: orb.Point{trace.Bounds.MaxLon, trace.Bounds.MaxLat},
	})
	return fc
}
