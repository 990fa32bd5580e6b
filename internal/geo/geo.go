// Package geo holds the spherical-earth math used to derive distances and
// headings from track points. Every function is pure.
package geo

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkordes/gpxviewer/internal/domain"
)

// EarthRadiusMeters is the mean earth radius used by every formula here.
const EarthRadiusMeters = 6372.8 * 1000

// ToRadians converts degrees to radians.
func ToRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// ToDegrees converts radians to degrees.
func ToDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// Distance returns the great-circle distance in meters between two
// coordinates using the haversine formula.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	latDelta := ToRadians(lat2 - lat1)
	lonDelta := ToRadians(lon2 - lon1)
	lat1Rad := ToRadians(lat1)
	lat2Rad := ToRadians(lat2)

	a := math.Sin(latDelta/2)*math.Sin(latDelta/2) +
		math.Sin(lonDelta/2)*math.Sin(lonDelta/2)*math.Cos(lat1Rad)*math.Cos(lat2Rad)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// DistancePoints returns the distance in meters between two track points.
func DistancePoints(from, to domain.Point) float64 {
	return Distance(from.Latitude, from.Longitude, to.Latitude, to.Longitude)
}

// Bearing returns the initial bearing in whole degrees, in [0, 360), for the
// great-circle path from the first coordinate to the second.
//
// For coincident coordinates the azimuth is undefined. The result is still in
// range but its value depends on rounding (0 when atan2 sees exact zeros).
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := ToRadians(lat1)
	lat2Rad := ToRadians(lat2)
	lonDelta := ToRadians(lon2) - ToRadians(lon1)

	y := math.Sin(lonDelta) * math.Cos(lat2Rad)
	x := math.Cos(lat1Rad)*math.Sin(lat2Rad) -
		math.Sin(lat1Rad)*math.Cos(lat2Rad)*math.Cos(lonDelta)
	bearing := ToDegrees(math.Atan2(y, x))

	return math.Floor(math.Mod(bearing+360, 360))
}

// DestinationPoint solves the direct problem: starting at lat/lon and moving
// distanceMeters along the initial bearing, it returns the arrival coordinate.
func DestinationPoint(lat, lon, bearing, distanceMeters float64) (float64, float64) {
	bearingRad := ToRadians(bearing)
	angular := distanceMeters / EarthRadiusMeters
	latRad := ToRadians(lat)
	lonRad := ToRadians(lon)

	sinLat := math.Sin(latRad)*math.Cos(angular) +
		math.Cos(latRad)*math.Sin(angular)*math.Cos(bearingRad)
	newLat := math.Asin(sinLat)

	y := math.Sin(bearingRad) * math.Sin(angular) * math.Cos(latRad)
	x := math.Cos(angular) - math.Sin(latRad)*sinLat
	newLon := lonRad + math.Atan2(y, x)

	return ToDegrees(newLat), ToDegrees(newLon)
}

// NormalizeDegrees wraps d into [0, 360] by adding or subtracting 360 once.
// Callers must reduce values outside [-360, 720] first.
func NormalizeDegrees(d float64) float64 {
	switch {
	case d > 360:
		return d - 360
	case d < 0:
		return d + 360
	default:
		return d
	}
}

// ParseLatLon parses "lat, lon" or "lat lon" in decimal degrees.
// ok is false when the text is not two numbers or the values are out of range.
func ParseLatLon(s string) (lat, lon float64, ok bool) {
	var fields []string
	if strings.Contains(s, ",") {
		fields = strings.Split(s, ",")
	} else {
		fields = strings.Fields(s)
	}
	if len(fields) != 2 {
		return 0, 0, false
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return 0, 0, false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, false
	}
	return lat, lon, true
}

// DistanceAlongSegment returns the meters traveled from the first point up to
// the last point whose timestamp is not after at.
func DistanceAlongSegment(points []domain.Point, at time.Time) float64 {
	var meters float64
	for i := 1; i < len(points) && !points[i].Timestamp.After(at); i++ {
		meters += DistancePoints(points[i-1], points[i])
	}
	return meters
}
