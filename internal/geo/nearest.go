package geo

import (
	"errors"
	"time"

	"github.com/pkordes/gpxviewer/internal/domain"
)

// ErrNoPoints is returned by NearestPoint when given an empty sequence.
var ErrNoPoints = errors.New("geo: no points to search")

// Nearest is the result of a NearestPoint scan.
type Nearest struct {
	Point     domain.Point
	PrevPoint domain.Point // the predecessor of Point, or Point itself at index 0
	Index     int
	Meters    float64       // traveled from points[0] to Point
	Duration  time.Duration // elapsed from points[0] to Point
	Distance  float64       // meters from Point to the query coordinate
}

// NearestPoint scans points in order and returns the one closest to lat/lon.
// The first point reaching the minimum distance wins.
func NearestPoint(points []domain.Point, lat, lon float64) (Nearest, error) {
	if len(points) == 0 {
		return Nearest{}, ErrNoPoints
	}

	best := Nearest{
		Point:     points[0],
		PrevPoint: points[0],
		Distance:  Distance(points[0].Latitude, points[0].Longitude, lat, lon),
	}

	var meters float64
	for i := 1; i < len(points); i++ {
		pt := points[i]
		meters += DistancePoints(points[i-1], pt)

		d := Distance(pt.Latitude, pt.Longitude, lat, lon)
		if d < best.Distance {
			best = Nearest{
				Point:     pt,
				PrevPoint: points[i-1],
				Index:     i,
				Meters:    meters,
				Distance:  d,
			}
		}
	}

	best.Duration = best.Point.Timestamp.Sub(points[0].Timestamp)
	return best, nil
}
