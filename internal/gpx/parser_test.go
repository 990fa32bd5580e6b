package gpx_test

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/gpxviewer/internal/domain"
	"github.com/pkordes/gpxviewer/internal/geo"
	"github.com/pkordes/gpxviewer/internal/gpx"
)

// ---- fixtures --------------------------------------------------------------

var t0 = time.Date(2009, 10, 17, 18, 37, 26, 0, time.UTC)

// trkpt renders a track point offset seconds after t0.
func trkpt(lat, lon float64, offset int) string {
	return fmt.Sprintf(`<trkpt lat="%g" lon="%g"><ele>4.46</ele><time>%s</time></trkpt>`,
		lat, lon, t0.Add(time.Duration(offset)*time.Second).Format(time.RFC3339))
}

func trkseg(points ...string) string {
	return "<trkseg>" + strings.Join(points, "") + "</trkseg>"
}

func trk(name string, segments ...string) string {
	return "<trk><name>" + name + "</name>" + strings.Join(segments, "") + "</trk>"
}

func document(body ...string) []byte {
	return []byte(`<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1" xmlns:xt="urn:test:ext">` +
		strings.Join(body, "") + `</gpx>`)
}

// walk returns n points heading east along latitude 47.6, one per offset.
func walk(offsets ...int) []string {
	out := make([]string, len(offsets))
	for i, off := range offsets {
		out[i] = trkpt(47.6, -122.3+float64(i)*0.001, off)
	}
	return out
}

func parseErr(t *testing.T, err error) *gpx.ParseError {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, domain.ErrInvalidTrace)
	var pe *gpx.ParseError
	require.True(t, errors.As(err, &pe), "expected *gpx.ParseError, got %T", err)
	return pe
}

// ---- segment splitting -----------------------------------------------------

func TestParse_GapSplitsSegment(t *testing.T) {
	doc := document(trk("walk", trkseg(walk(0, 10, 50, 60)...)))

	trace, err := gpx.Parse("walk.gpx", doc, true)

	require.NoError(t, err)
	require.Len(t, trace.Tracks, 1)
	segs := trace.Tracks[0].Segments
	require.Len(t, segs, 2)
	require.Len(t, segs[0].Points, 2)
	require.Len(t, segs[1].Points, 2)

	assert.Equal(t, t0, segs[0].Points[0].Timestamp)
	assert.Equal(t, t0.Add(10*time.Second), segs[0].Points[1].Timestamp)
	assert.Equal(t, t0.Add(50*time.Second), segs[1].Points[0].Timestamp)
	assert.Equal(t, t0.Add(60*time.Second), segs[1].Points[1].Timestamp)

	assert.Equal(t, 10.0, segs[0].Seconds)
	assert.Equal(t, 10.0, segs[1].Seconds)

	// The first point after a gap has nothing to derive from.
	first := segs[1].Points[0]
	assert.Zero(t, first.CalculatedMeters)
	assert.Zero(t, first.CalculatedCourse)
	assert.Zero(t, first.CalculatedKmH)
}

func TestParse_GapDetectionDisabled(t *testing.T) {
	doc := document(trk("walk", trkseg(walk(0, 10, 50, 60)...)))

	trace, err := gpx.Parse("walk.gpx", doc, false)

	require.NoError(t, err)
	segs := trace.Tracks[0].Segments
	require.Len(t, segs, 1)
	require.Len(t, segs[0].Points, 4)
	assert.Greater(t, segs[0].Points[2].CalculatedMeters, 0.0)
	assert.Equal(t, 60.0, segs[0].Seconds)
}

// TestParse_ThresholdIsExclusive: exactly 30 s apart does not split.
func TestParse_ThresholdIsExclusive(t *testing.T) {
	doc := document(trk("walk", trkseg(walk(0, 30, 61)...)))

	trace, err := gpx.Parse("walk.gpx", doc, true)

	require.NoError(t, err)
	segs := trace.Tracks[0].Segments
	require.Len(t, segs, 2)
	assert.Len(t, segs[0].Points, 2)
	assert.Len(t, segs[1].Points, 1)
}

// TestParse_TrailingLonePointKept locks in the end-of-stream rule: a single
// pending point after the last gap becomes a one-point segment.
func TestParse_TrailingLonePointKept(t *testing.T) {
	doc := document(trk("walk", trkseg(walk(0, 10, 50)...)))

	trace, err := gpx.Parse("walk.gpx", doc, true)

	require.NoError(t, err)
	segs := trace.Tracks[0].Segments
	require.Len(t, segs, 2)
	assert.Len(t, segs[0].Points, 2)
	require.Len(t, segs[1].Points, 1)
	assert.Zero(t, segs[1].Kilometers)
	assert.Zero(t, segs[1].Seconds)
	assert.Equal(t, t0.Add(50*time.Second), trace.EndTime)
}

// TestParse_MidStreamLonePointDropped locks in the mid-stream rule: a single
// pending point cut off by a gap produces no segment, yet still counts
// toward the file bounds.
func TestParse_MidStreamLonePointDropped(t *testing.T) {
	points := []string{
		trkpt(10.0, 20.0, 0),  // alone before a 40 s gap: dropped
		trkpt(10.1, 20.1, 40), // alone before a 40 s gap: dropped
		trkpt(10.2, 20.2, 80), // kept
		trkpt(10.3, 20.3, 90), // kept
	}
	doc := document(trk("walk", trkseg(points...)))

	trace, err := gpx.Parse("walk.gpx", doc, true)

	require.NoError(t, err)
	segs := trace.Tracks[0].Segments
	require.Len(t, segs, 1)
	require.Len(t, segs[0].Points, 2)
	assert.Equal(t, 10.2, segs[0].Points[0].Latitude)
	assert.Equal(t, t0.Add(80*time.Second), trace.StartTime)

	assert.Equal(t, domain.Bounds{MinLat: 10.0, MinLon: 20.0, MaxLat: 10.3, MaxLon: 20.3}, trace.Bounds)
}

func TestParse_SplitResetsAccumulatedMeters(t *testing.T) {
	doc := document(trk("walk", trkseg(walk(0, 10, 20, 100, 110)...)))

	trace, err := gpx.Parse("walk.gpx", doc, true)

	require.NoError(t, err)
	segs := trace.Tracks[0].Segments
	require.Len(t, segs, 2)
	leg := geo.Distance(47.6, -122.3, 47.6, -122.299)
	assert.InDelta(t, 2*leg/1000, segs[0].Kilometers, 1e-3)
	assert.InDelta(t, leg/1000, segs[1].Kilometers, 1e-3)
}

// ---- derived values --------------------------------------------------------

func TestParse_DerivedPointFields(t *testing.T) {
	doc := document(trk("north", trkseg(
		trkpt(47.600, -122.3, 0),
		trkpt(47.601, -122.3, 10),
	)))

	trace, err := gpx.Parse("north.gpx", doc, true)

	require.NoError(t, err)
	pts := trace.Tracks[0].Segments[0].Points
	require.Len(t, pts, 2)

	wantMeters := geo.Distance(47.600, -122.3, 47.601, -122.3)
	assert.Zero(t, pts[0].CalculatedMeters)
	assert.InDelta(t, wantMeters, pts[1].CalculatedMeters, 1e-9)
	assert.Equal(t, 0.0, pts[1].CalculatedCourse, "due north")
	assert.InDelta(t, wantMeters/10*3.6, pts[1].CalculatedKmH, 1e-9)
	assert.Equal(t, 4.46, pts[1].Elevation)
}

// TestParse_KilometersRoundTrip re-derives every segment's kilometers from its
// points' calculated meters.
func TestParse_KilometersRoundTrip(t *testing.T) {
	doc := document(
		trk("a", trkseg(walk(0, 5, 12, 20, 60, 65, 70)...), trkseg(walk(200, 210, 215)...)),
		trk("b", trkseg(walk(400, 401, 402, 403, 500, 501)...)),
	)

	for _, split := range []bool{true, false} {
		trace, err := gpx.Parse("multi.gpx", doc, split)
		require.NoError(t, err)

		var totalKm float64
		for _, tr := range trace.Tracks {
			var trackKm float64
			for _, s := range tr.Segments {
				var meters float64
				for _, p := range s.Points {
					meters += p.CalculatedMeters
				}
				assert.InDelta(t, meters/1000, s.Kilometers, 1e-9)
				trackKm += s.Kilometers
			}
			assert.InDelta(t, trackKm, tr.Kilometers, 1e-9)
			totalKm += tr.Kilometers
		}
		assert.InDelta(t, totalKm, trace.Kilometers, 1e-9)
	}
}

func TestParse_FileAggregates(t *testing.T) {
	doc := document(
		trk("first", trkseg(walk(0, 10, 20)...)),
		trk("second", trkseg(walk(600, 610)...)),
	)

	trace, err := gpx.Parse("day.gpx", doc, true)

	require.NoError(t, err)
	assert.Equal(t, "day.gpx", trace.Name)
	require.Len(t, trace.Tracks, 2)
	assert.Equal(t, "first", trace.Tracks[0].Name)
	assert.Equal(t, "second", trace.Tracks[1].Name)
	assert.Equal(t, t0, trace.StartTime)
	assert.Equal(t, t0.Add(610*time.Second), trace.EndTime)
	assert.Equal(t, 610.0, trace.Seconds)
	assert.InDelta(t, trace.Tracks[0].Kilometers+trace.Tracks[1].Kilometers, trace.Kilometers, 1e-12)
	assert.Equal(t, "Etc/GMT+8", trace.Timezone)
	for _, tr := range trace.Tracks {
		for _, s := range tr.Segments {
			assert.True(t, s.Visible)
			assert.Equal(t, "Etc/GMT+8", s.Timezone)
		}
	}
}

// TestParse_BoundsSpanAllTracks: bounds cover every point of every track,
// independent of segmentation.
func TestParse_BoundsSpanAllTracks(t *testing.T) {
	doc := document(
		trk("a", trkseg(trkpt(1, 5, 0), trkpt(2, 4, 100), trkpt(3, 3, 110))),
		trk("b", trkseg(trkpt(-1, 8, 200)), trkseg(trkpt(0.5, -2, 300), trkpt(0.6, -1, 310))),
	)

	trace, err := gpx.Parse("bounds.gpx", doc, true)

	require.NoError(t, err)
	assert.Equal(t, domain.Bounds{MinLat: -1, MinLon: -2, MaxLat: 3, MaxLon: 8}, trace.Bounds)
	assert.LessOrEqual(t, trace.Bounds.MinLat, trace.Bounds.MaxLat)
	assert.LessOrEqual(t, trace.Bounds.MinLon, trace.Bounds.MaxLon)
}

func TestParse_RecordedSpeedAndCourse(t *testing.T) {
	doc := document(trk("gps", trkseg(
		`<trkpt lat="1" lon="1"><time>2009-10-17T18:37:26Z</time><speed>3.5</speed><course>271.2</course></trkpt>`,
		`<trkpt lat="1" lon="1.0001"><time>2009-10-17T18:37:27Z</time><extensions><xt:TrackPointExtension><xt:speed>4.25</xt:speed></xt:TrackPointExtension></extensions></trkpt>`,
		`<trkpt lat="1" lon="1.0002"><time>2009-10-17T18:37:28Z</time></trkpt>`,
	)))

	trace, err := gpx.Parse("gps.gpx", doc, true)

	require.NoError(t, err)
	pts := trace.Tracks[0].Segments[0].Points
	require.Len(t, pts, 3)
	require.NotNil(t, pts[0].Speed)
	require.NotNil(t, pts[0].Course)
	assert.Equal(t, 3.5, *pts[0].Speed)
	assert.Equal(t, 271.2, *pts[0].Course)
	require.NotNil(t, pts[1].Speed)
	assert.Equal(t, 4.25, *pts[1].Speed)
	assert.Nil(t, pts[1].Course)
	assert.Nil(t, pts[2].Speed)
}

// ---- failures --------------------------------------------------------------

func TestParse_NoTracks(t *testing.T) {
	doc := document(`<wpt lat="1" lon="2"><name>lonely</name></wpt>`)

	trace, err := gpx.Parse("empty.gpx", doc, true)

	pe := parseErr(t, err)
	assert.Equal(t, gpx.KindStructural, pe.Kind)
	assert.Empty(t, trace.Tracks)
}

func TestParse_Malformed(t *testing.T) {
	for name, doc := range map[string]string{
		"not xml":    "this is not markup",
		"unclosed":   `<gpx><trk><trkseg>`,
		"wrong root": `<kml><trk/></kml>`,
		"empty":      ``,
		"two roots":  `<gpx></gpx><gpx></gpx>`,
		"mismatched": `<gpx><trk></trkseg></gpx>`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := gpx.Parse("bad.gpx", []byte(doc), true)
			pe := parseErr(t, err)
			assert.Equal(t, gpx.KindStructural, pe.Kind)
		})
	}
}

func TestParse_BadPointFailsWholeDocument(t *testing.T) {
	good := trkpt(1, 1, 0)
	for name, bad := range map[string]string{
		"missing lat":  `<trkpt lon="1"><time>2009-10-17T18:37:30Z</time></trkpt>`,
		"bad lon":      `<trkpt lat="1" lon="east"><time>2009-10-17T18:37:30Z</time></trkpt>`,
		"missing time": `<trkpt lat="1" lon="1"></trkpt>`,
		"bad time":     `<trkpt lat="1" lon="1"><time>yesterday</time></trkpt>`,
		"bad ele":      `<trkpt lat="1" lon="1"><ele>high</ele><time>2009-10-17T18:37:30Z</time></trkpt>`,
	} {
		t.Run(name, func(t *testing.T) {
			doc := document(trk("t", trkseg(good, bad)))

			_, err := gpx.Parse("bad.gpx", doc, true)

			pe := parseErr(t, err)
			assert.Equal(t, gpx.KindNumeric, pe.Kind)
			assert.Equal(t, "trk[0]/trkseg[0]/trkpt[1]", pe.Element)
		})
	}
}

// strconv.ParseFloat accepts NaN and Inf spellings; none of them is a usable
// number, and a coordinate off the globe is not one either.
func TestParse_NonFiniteCoordinateFailsDocument(t *testing.T) {
	good := trkpt(1, 1, 0)
	for name, bad := range map[string]string{
		"NaN lat":       `<trkpt lat="NaN" lon="-122.3"><time>2009-10-17T18:37:30Z</time></trkpt>`,
		"Inf lon":       `<trkpt lat="47.6" lon="Inf"><time>2009-10-17T18:37:30Z</time></trkpt>`,
		"infinity lat":  `<trkpt lat="-infinity" lon="1"><time>2009-10-17T18:37:30Z</time></trkpt>`,
		"lat too large": `<trkpt lat="90.5" lon="1"><time>2009-10-17T18:37:30Z</time></trkpt>`,
		"lon too small": `<trkpt lat="1" lon="-180.01"><time>2009-10-17T18:37:30Z</time></trkpt>`,
		"NaN ele":       `<trkpt lat="1" lon="1"><ele>nan</ele><time>2009-10-17T18:37:30Z</time></trkpt>`,
		"Inf speed":     `<trkpt lat="1" lon="1"><time>2009-10-17T18:37:30Z</time><speed>+Inf</speed></trkpt>`,
	} {
		t.Run(name, func(t *testing.T) {
			doc := document(trk("t", trkseg(good, bad)))

			trace, err := gpx.Parse("bad.gpx", doc, true)

			pe := parseErr(t, err)
			assert.Equal(t, gpx.KindNumeric, pe.Kind)
			assert.Equal(t, "trk[0]/trkseg[0]/trkpt[1]", pe.Element)
			assert.Empty(t, trace.Tracks)
		})
	}

	t.Run("NaN waypoint", func(t *testing.T) {
		doc := document(`<wpt lat="NaN" lon="1"/>`, trk("t", trkseg(walk(0, 10)...)))

		_, err := gpx.Parse("bad.gpx", doc, true)

		pe := parseErr(t, err)
		assert.Equal(t, gpx.KindNumeric, pe.Kind)
		assert.Equal(t, "wpt[0]", pe.Element)
	})
}

func TestParse_BoundaryCoordinatesAccepted(t *testing.T) {
	doc := document(trk("poles", trkseg(trkpt(-90, -180, 0), trkpt(90, 180, 10))))

	trace, err := gpx.Parse("poles.gpx", doc, true)

	require.NoError(t, err)
	assert.Equal(t, domain.Bounds{MinLat: -90, MinLon: -180, MaxLat: 90, MaxLon: 180}, trace.Bounds)
}

func TestParse_NonFiniteEnrichmentIsAbsent(t *testing.T) {
	doc := document(trk("t", `<trkseg><extensions><xt:summary>
		<xt:kilometers>NaN</xt:kilometers><xt:kmh>4</xt:kmh></xt:summary></extensions>`+
		strings.Join(walk(0, 10), "")+`</trkseg>`))

	trace, err := gpx.Parse("t.gpx", doc, true)

	require.NoError(t, err)
	assert.Nil(t, trace.Tracks[0].Segments[0].Enrichment)
}

func TestParse_EmptyTrackIsAggregationFault(t *testing.T) {
	for name, body := range map[string]string{
		"no segments":     trk("empty"),
		"empty segment":   trk("empty", trkseg()),
		"second is empty": trk("ok", trkseg(walk(0, 1)...)) + trk("empty", trkseg()),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := gpx.Parse("empty.gpx", document(body), true)

			pe := parseErr(t, err)
			assert.Equal(t, gpx.KindAggregation, pe.Kind)
		})
	}
}

func TestParse_EmptySegmentBesideFullOneIsFine(t *testing.T) {
	doc := document(trk("t", trkseg(), trkseg(walk(0, 1)...)))

	trace, err := gpx.Parse("t.gpx", doc, true)

	require.NoError(t, err)
	assert.Len(t, trace.Tracks[0].Segments, 1)
}

// ---- waypoints -------------------------------------------------------------

func TestParse_Waypoints(t *testing.T) {
	doc := document(
		`<wpt lat="47.61" lon="-122.33"><time>2009-10-17T18:40:00Z</time><name>Coffee</name><cmt>SU100</cmt></wpt>`,
		`<wpt lat="47.62" lon="-122.34"><name>No time</name></wpt>`,
		trk("t", trkseg(walk(0, 10)...)),
	)

	trace, err := gpx.Parse("wpt.gpx", doc, true)

	require.NoError(t, err)
	require.Len(t, trace.Waypoints, 2)
	w := trace.Waypoints[0]
	assert.Equal(t, "Coffee", w.Name)
	assert.Equal(t, "SU100", w.Comment)
	assert.Equal(t, 47.61, w.Latitude)
	assert.Equal(t, -122.33, w.Longitude)
	assert.Equal(t, time.Date(2009, 10, 17, 18, 40, 0, 0, time.UTC), w.Time)
	assert.Equal(t, trace.Timezone, w.Timezone)
	assert.True(t, w.Visible)
	assert.Nil(t, w.Stop)
	assert.Zero(t, w.Seconds)

	assert.True(t, trace.Waypoints[1].Time.IsZero())
	// Waypoints do not widen the track bounds.
	assert.Equal(t, 47.6, trace.Bounds.MaxLat)
}

func TestParse_WaypointStop(t *testing.T) {
	doc := document(
		`<wpt lat="47.61" lon="-122.33"><name>Lunch</name><extensions><xt:stop>
			<xt:begin lat="47.6100" lon="-122.3300"><xt:time>2009-10-17T12:00:00Z</xt:time></xt:begin>
			<xt:finish lat="47.6102" lon="-122.3301"><xt:time>2009-10-17T12:45:30Z</xt:time></xt:finish>
			<xt:bounds minlat="47.61" minlon="-122.3301" maxlat="47.6102" maxlon="-122.33"/>
		</xt:stop></extensions></wpt>`,
		trk("t", trkseg(walk(0, 10)...)),
	)

	trace, err := gpx.Parse("stop.gpx", doc, true)

	require.NoError(t, err)
	w := trace.Waypoints[0]
	require.NotNil(t, w.Stop)
	assert.Equal(t, 2730.0, w.Seconds)
	assert.Equal(t, 2730.0, w.Stop.Seconds)
	assert.Equal(t, domain.GeoPoint{Lat: 47.61, Lon: -122.33}, w.Stop.Begin)
	assert.Equal(t, domain.GeoPoint{Lat: 47.6102, Lon: -122.3301}, w.Stop.Finish)
	require.NotNil(t, w.Stop.Bounds)
	assert.Equal(t, 47.6102, w.Stop.Bounds.MaxLat)
}

func TestParse_IncompleteWaypointStopIgnored(t *testing.T) {
	doc := document(
		`<wpt lat="47.61" lon="-122.33"><extensions><stop>
			<begin lat="47.61" lon="-122.33"><time>2009-10-17T12:00:00Z</time></begin>
		</stop></extensions></wpt>`,
		trk("t", trkseg(walk(0, 10)...)),
	)

	trace, err := gpx.Parse("stop.gpx", doc, true)

	require.NoError(t, err)
	assert.Nil(t, trace.Waypoints[0].Stop)
	assert.Zero(t, trace.Waypoints[0].Seconds)
}

func TestParse_BadWaypointFailsDocument(t *testing.T) {
	doc := document(`<wpt lat="north" lon="1"/>`, trk("t", trkseg(walk(0, 10)...)))

	_, err := gpx.Parse("wpt.gpx", doc, true)

	pe := parseErr(t, err)
	assert.Equal(t, gpx.KindNumeric, pe.Kind)
	assert.Equal(t, "wpt[0]", pe.Element)
}

// ---- enrichment ------------------------------------------------------------

func TestParse_EnrichmentIsAttachedNotAuthoritative(t *testing.T) {
	doc := document(
		`<metadata><extensions><xt:summary>
			<xt:kilometers>999</xt:kilometers><xt:seconds>7200</xt:seconds>
			<xt:regions><xt:region>Washington</xt:region><xt:region>King County</xt:region></xt:regions>
			<xt:sites><xt:site>Gas Works Park</xt:site></xt:sites>
		</xt:summary></extensions></metadata>`,
		`<trk><name>t</name><extensions><xt:summary><xt:kilometers>50</xt:kilometers><xt:seconds>60</xt:seconds>
			<xt:bounds minlat="1" minlon="2" maxlat="3" maxlon="4"/></xt:summary></extensions>`+
			`<trkseg><extensions><xt:summary><xt:kilometers>42</xt:kilometers><xt:kmh>88.5</xt:kmh><xt:course>90</xt:course>
			<xt:transport mode="car" probability="0.9"/><xt:transport mode="bus" probability="0.1"/></xt:summary></extensions>`+
			strings.Join(walk(0, 10, 50, 60), "")+`</trkseg></trk>`,
	)

	trace, err := gpx.Parse("rich.gpx", doc, true)

	require.NoError(t, err)

	require.NotNil(t, trace.Enrichment)
	assert.Equal(t, 999.0, trace.Enrichment.Kilometers)
	assert.Equal(t, 7200.0, trace.Enrichment.Seconds)
	assert.Equal(t, []string{"Washington", "King County"}, trace.Enrichment.Regions)
	assert.Equal(t, []string{"Gas Works Park"}, trace.Enrichment.Sites)
	assert.Less(t, trace.Kilometers, 1.0, "recomputed, not copied from enrichment")

	track := trace.Tracks[0]
	require.NotNil(t, track.Enrichment)
	assert.Equal(t, 50.0, track.Enrichment.Kilometers)
	assert.Equal(t, &domain.Bounds{MinLat: 1, MinLon: 2, MaxLat: 3, MaxLon: 4}, track.Enrichment.Bounds)

	// The source segment split in two; both halves carry the block.
	require.Len(t, track.Segments, 2)
	for _, s := range track.Segments {
		require.NotNil(t, s.Enrichment)
		assert.Equal(t, 42.0, s.Enrichment.Kilometers)
		assert.Equal(t, 88.5, s.Enrichment.KmH)
		assert.Equal(t, 90.0, s.Enrichment.Course)
		assert.Equal(t, []domain.TransportMode{{Mode: "car", Probability: 0.9}, {Mode: "bus", Probability: 0.1}}, s.Enrichment.Transport)
		assert.NotEqual(t, 42.0, s.Kilometers)
	}
	assert.NotSame(t, track.Segments[0].Enrichment, track.Segments[1].Enrichment)
}

func TestParse_IncompleteEnrichmentIsAbsent(t *testing.T) {
	doc := document(
		`<extensions><summary><kilometers>12</kilometers></summary></extensions>`,
		`<trk><extensions><summary><seconds>60</seconds></summary></extensions>`+
			`<trkseg><extensions><summary><kilometers>abc</kilometers><kmh>4</kmh></summary></extensions>`+
			strings.Join(walk(0, 10), "")+`</trkseg></trk>`,
	)

	trace, err := gpx.Parse("partial.gpx", doc, true)

	require.NoError(t, err)
	assert.Nil(t, trace.Enrichment)
	assert.Nil(t, trace.Tracks[0].Enrichment)
	assert.Nil(t, trace.Tracks[0].Segments[0].Enrichment)
}

// ---- decoding and options --------------------------------------------------

func TestParse_Latin1Document(t *testing.T) {
	// "Café" with é as the single ISO-8859-1 byte 0xE9.
	doc := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n<gpx><trk><name>Caf\xe9</name>" +
		trkseg(walk(0, 10)...) + "</trk></gpx>")

	trace, err := gpx.Parse("latin1.gpx", doc, true)

	require.NoError(t, err)
	assert.Equal(t, "Café", trace.Tracks[0].Name)
}

func TestParser_CustomOptions(t *testing.T) {
	doc := document(trk("walk", trkseg(walk(0, 10, 50, 60)...)))
	p := gpx.NewParser(gpx.Options{
		SplitOnGaps:  true,
		GapThreshold: 5 * time.Second,
		Timezone:     func(_, _ float64) string { return "America/Los_Angeles" },
	})

	trace, err := p.Parse("walk.gpx", doc)

	require.NoError(t, err)
	segs := trace.Tracks[0].Segments
	require.Len(t, segs, 1, "every gap exceeds 5 s; only the trailing point survives")
	assert.Len(t, segs[0].Points, 1)
	assert.Equal(t, "America/Los_Angeles", trace.Timezone)
}

// TestParser_ConcurrentParsesDoNotShareBounds runs two documents through one
// Parser at once; each trace must see only its own extrema.
func TestParser_ConcurrentParsesDoNotShareBounds(t *testing.T) {
	p := gpx.NewParser(gpx.Options{SplitOnGaps: true})
	north := document(trk("n", trkseg(trkpt(60, 10, 0), trkpt(61, 11, 5))))
	south := document(trk("s", trkseg(trkpt(-60, -10, 0), trkpt(-61, -11, 5))))

	var wg sync.WaitGroup
	results := make([]domain.Trace, 20)
	errs := make([]error, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc := north
			if i%2 == 1 {
				doc = south
			}
			results[i], errs[i] = p.Parse("x", doc)
		}(i)
	}
	wg.Wait()

	for i, tr := range results {
		require.NoError(t, errs[i])
		if i%2 == 0 {
			assert.Equal(t, domain.Bounds{MinLat: 60, MinLon: 10, MaxLat: 61, MaxLon: 11}, tr.Bounds)
		} else {
			assert.Equal(t, domain.Bounds{MinLat: -61, MinLon: -11, MaxLat: -60, MaxLon: -10}, tr.Bounds)
		}
	}
}
