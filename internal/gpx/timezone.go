package gpx

import (
	"fmt"
	"math"
)

// TimezoneResolver names the timezone in effect at a coordinate. The returned
// identifier must be loadable by time.LoadLocation.
type TimezoneResolver func(lat, lon float64) string

// NauticalTimezone maps a longitude to its 15° nautical zone, e.g. "Etc/GMT+8"
// for the US west coast. The Etc sign convention is inverted: Etc/GMT+8 is UTC-8.
func NauticalTimezone(_, lon float64) string {
	offset := int(math.Round(lon / 15))
	offset = max(-12, min(12, offset))
	if offset == 0 {
		return "Etc/GMT"
	}
	return fmt.Sprintf("Etc/GMT%+d", -offset)
}
