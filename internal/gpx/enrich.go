package gpx

import (
	"time"

	"github.com/pkordes/gpxviewer/internal/domain"
)

// Enrichment blocks are aggregates a previous export embedded under
// <extensions>. They are attached when complete and silently ignored when a
// required field is missing or malformed. Parsed values never depend on them.

func extension(n *Node, name string) *Node {
	return n.Child("extensions").Find(name)
}

func childFloat(n *Node, name string) (float64, bool) {
	s, ok := n.ChildText(name)
	if !ok {
		return 0, false
	}
	v, err := parseFinite(name, s)
	if err != nil {
		return 0, false
	}
	return v, true
}

func attrFloat(n *Node, name string) (float64, bool) {
	s, ok := n.Attr(name)
	if !ok {
		return 0, false
	}
	v, err := parseFinite(name, s)
	if err != nil {
		return 0, false
	}
	return v, true
}

func boundsOf(n *Node) *domain.Bounds {
	if n == nil {
		return nil
	}
	var (
		b  domain.Bounds
		ok [4]bool
	)
	b.MinLat, ok[0] = attrFloat(n, "minlat")
	b.MinLon, ok[1] = attrFloat(n, "minlon")
	b.MaxLat, ok[2] = attrFloat(n, "maxlat")
	b.MaxLon, ok[3] = attrFloat(n, "maxlon")
	if ok != [4]bool{true, true, true, true} {
		return nil
	}
	return &b
}

func texts(n *Node, name string) []string {
	var out []string
	for _, c := range n.ChildrenNamed(name) {
		if c.Text != "" {
			out = append(out, c.Text)
		}
	}
	return out
}

func traceEnrichment(root *Node) *domain.TraceEnrichment {
	summary := root.Path("metadata", "extensions").Find("summary")
	if summary == nil {
		summary = extension(root, "summary")
	}
	if summary == nil {
		return nil
	}
	km, okKm := childFloat(summary, "kilometers")
	secs, okSecs := childFloat(summary, "seconds")
	if !okKm || !okSecs {
		return nil
	}
	return &domain.TraceEnrichment{
		Kilometers: km,
		Seconds:    secs,
		Regions:    texts(summary.Child("regions"), "region"),
		Sites:      texts(summary.Child("sites"), "site"),
	}
}

func trackEnrichment(trk *Node) *domain.TrackEnrichment {
	summary := extension(trk, "summary")
	if summary == nil {
		return nil
	}
	km, okKm := childFloat(summary, "kilometers")
	secs, okSecs := childFloat(summary, "seconds")
	if !okKm || !okSecs {
		return nil
	}
	return &domain.TrackEnrichment{
		Kilometers: km,
		Seconds:    secs,
		Bounds:     boundsOf(summary.Child("bounds")),
	}
}

func segmentEnrichment(seg *Node) *domain.SegmentEnrichment {
	summary := extension(seg, "summary")
	if summary == nil {
		return nil
	}
	km, okKm := childFloat(summary, "kilometers")
	kmh, okKmh := childFloat(summary, "kmh")
	if !okKm || !okKmh {
		return nil
	}
	e := &domain.SegmentEnrichment{
		Kilometers: km,
		KmH:        kmh,
		Bounds:     boundsOf(summary.Child("bounds")),
	}
	e.Course, _ = childFloat(summary, "course")
	for _, t := range summary.ChildrenNamed("transport") {
		mode, ok := t.Attr("mode")
		if !ok || mode == "" {
			continue
		}
		prob, _ := attrFloat(t, "probability")
		e.Transport = append(e.Transport, domain.TransportMode{Mode: mode, Probability: prob})
	}
	return e
}

// waypointStop reads a <stop> with <begin> and <finish> children, each
// carrying lat/lon attributes and a <time>. Seconds is finish minus begin.
func waypointStop(wpt *Node) *domain.WaypointStop {
	stop := extension(wpt, "stop")
	if stop == nil {
		return nil
	}
	begin, beginTime, ok := stopEnd(stop.Child("begin"))
	if !ok {
		return nil
	}
	finish, finishTime, ok := stopEnd(stop.Child("finish"))
	if !ok {
		return nil
	}
	return &domain.WaypointStop{
		Begin:      begin,
		Finish:     finish,
		BeginTime:  beginTime,
		FinishTime: finishTime,
		Seconds:    finishTime.Sub(beginTime).Seconds(),
		Bounds:     boundsOf(stop.Child("bounds")),
	}
}

func stopEnd(n *Node) (domain.GeoPoint, time.Time, bool) {
	if n == nil {
		return domain.GeoPoint{}, time.Time{}, false
	}
	lat, okLat := attrFloat(n, "lat")
	lon, okLon := attrFloat(n, "lon")
	s, okTime := n.ChildText("time")
	if !okLat || !okLon || !okTime {
		return domain.GeoPoint{}, time.Time{}, false
	}
	ts, err := parseTime(s)
	if err != nil {
		return domain.GeoPoint{}, time.Time{}, false
	}
	return domain.GeoPoint{Lat: lat, Lon: lon}, ts, true
}
