// Package gpx turns a GPX document into a fully derived domain.Trace.
//
// Parsing runs in two steps: Decode builds a generic Node tree from the markup,
// and Parser.ParseTree folds that tree into tracks, segments and points while
// deriving distances, courses, speeds, bounds and elapsed times. ParseTree does
// not touch markup, so the derivation can be exercised on hand-built trees.
package gpx

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkordes/gpxviewer/internal/domain"
	"github.com/pkordes/gpxviewer/internal/geo"
)

// DefaultGapThreshold is the pause length above which a new segment begins.
const DefaultGapThreshold = 30 * time.Second

// Options configure a Parser. The zero value splits on gaps of more than
// DefaultGapThreshold only when SplitOnGaps is set.
type Options struct {
	// SplitOnGaps starts a new segment whenever consecutive points are more
	// than GapThreshold apart. When false each source segment stays whole.
	SplitOnGaps bool

	// GapThreshold defaults to DefaultGapThreshold.
	GapThreshold time.Duration

	// Timezone defaults to NauticalTimezone.
	Timezone TimezoneResolver
}

// Parser holds immutable options and is safe for concurrent use; all running
// state lives in the per-call accumulator.
type Parser struct {
	opts Options
}

// NewParser returns a Parser with defaults filled in.
func NewParser(opts Options) *Parser {
	if opts.GapThreshold <= 0 {
		opts.GapThreshold = DefaultGapThreshold
	}
	if opts.Timezone == nil {
		opts.Timezone = NauticalTimezone
	}
	return &Parser{opts: opts}
}

// Parse decodes doc and derives a Trace labelled name.
func Parse(name string, doc []byte, splitOnGaps bool) (domain.Trace, error) {
	return NewParser(Options{SplitOnGaps: splitOnGaps}).Parse(name, doc)
}

// Parse decodes doc and derives a Trace labelled name.
// Any failure is a *ParseError and no partial trace is returned.
func (p *Parser) Parse(name string, doc []byte) (domain.Trace, error) {
	root, err := Decode(doc)
	if err != nil {
		return domain.Trace{}, structural("", err)
	}
	return p.ParseTree(name, root)
}

// ParseTree derives a Trace from an already decoded document tree.
func (p *Parser) ParseTree(name string, root *Node) (domain.Trace, error) {
	if root == nil || root.Name != "gpx" {
		return domain.Trace{}, structural("", errors.New("root element is not gpx"))
	}
	trkNodes := root.ChildrenNamed("trk")
	if len(trkNodes) == 0 {
		return domain.Trace{}, structural("gpx", errors.New("no trk elements"))
	}

	acc := &boundsAccumulator{}
	tracks := make([]domain.Track, 0, len(trkNodes))
	for i, trk := range trkNodes {
		track, err := p.foldTrack(fmt.Sprintf("trk[%d]", i), trk, acc)
		if err != nil {
			return domain.Trace{}, err
		}
		tracks = append(tracks, track)
	}

	first := tracks[0].Segments[0]
	lastTrack := tracks[len(tracks)-1]
	last := lastTrack.Segments[len(lastTrack.Segments)-1]
	start := first.Points[0].Timestamp
	end := last.Points[len(last.Points)-1].Timestamp

	var km float64
	for _, t := range tracks {
		km += t.Kilometers
	}

	waypoints, err := p.foldWaypoints(root.ChildrenNamed("wpt"), first.Timezone)
	if err != nil {
		return domain.Trace{}, err
	}

	return domain.Trace{
		Name:       name,
		Tracks:     tracks,
		Waypoints:  waypoints,
		Bounds:     acc.bounds,
		StartTime:  start,
		EndTime:    end,
		Kilometers: km,
		Seconds:    end.Sub(start).Seconds(),
		Timezone:   first.Timezone,
		Enrichment: traceEnrichment(root),
	}, nil
}

// boundsAccumulator tracks the file-wide extrema. It observes every track
// point exactly once, before any segmentation decision.
type boundsAccumulator struct {
	bounds domain.Bounds
	seen   bool
}

func (a *boundsAccumulator) observe(lat, lon float64) {
	if !a.seen {
		a.bounds = domain.Bounds{MinLat: lat, MinLon: lon, MaxLat: lat, MaxLon: lon}
		a.seen = true
		return
	}
	a.bounds = a.bounds.Extend(lat, lon)
}

func (p *Parser) foldTrack(path string, trk *Node, acc *boundsAccumulator) (domain.Track, error) {
	var segments []domain.Segment
	for i, seg := range trk.ChildrenNamed("trkseg") {
		out, err := p.foldSegment(fmt.Sprintf("%s/trkseg[%d]", path, i), seg, acc)
		if err != nil {
			return domain.Track{}, err
		}
		segments = append(segments, out...)
	}
	if len(segments) == 0 {
		return domain.Track{}, aggregation(path, errors.New("track has no points"))
	}

	var km float64
	for _, s := range segments {
		km += s.Kilometers
	}
	name, _ := trk.ChildText("name")

	return domain.Track{
		Name:       name,
		Segments:   segments,
		Kilometers: km,
		Enrichment: trackEnrichment(trk),
	}, nil
}

// segmentFold is the running state while walking one source segment.
type segmentFold struct {
	pending []domain.Point
	meters  float64
}

// foldSegment walks the points of one source segment and emits zero or more
// output segments. A lone pending point cut off by a gap mid-stream is
// dropped; a lone trailing point is kept as a one-point segment.
func (p *Parser) foldSegment(path string, seg *Node, acc *boundsAccumulator) ([]domain.Segment, error) {
	enrichment := segmentEnrichment(seg)

	var (
		out  []domain.Segment
		fold segmentFold
	)
	emit := func() {
		out = append(out, p.buildSegment(fold.pending, fold.meters, enrichment))
	}

	for i, trkpt := range seg.ChildrenNamed("trkpt") {
		pt, err := parsePoint(trkpt)
		if err != nil {
			return nil, numeric(fmt.Sprintf("%s/trkpt[%d]", path, i), err)
		}
		acc.observe(pt.Latitude, pt.Longitude)

		if n := len(fold.pending); n > 0 {
			prev := fold.pending[n-1]
			delta := pt.Timestamp.Sub(prev.Timestamp)
			if p.opts.SplitOnGaps && delta > p.opts.GapThreshold {
				if n > 1 {
					emit()
				}
				fold = segmentFold{}
			} else {
				pt.CalculatedMeters = geo.DistancePoints(prev, pt)
				pt.CalculatedCourse = geo.Bearing(prev.Latitude, prev.Longitude, pt.Latitude, pt.Longitude)
				if secs := delta.Seconds(); secs > 0 {
					pt.CalculatedKmH = pt.CalculatedMeters / secs * 3.6
				}
				fold.meters += pt.CalculatedMeters
			}
		}
		fold.pending = append(fold.pending, pt)
	}

	if len(fold.pending) > 0 {
		emit()
	}
	return out, nil
}

func (p *Parser) buildSegment(points []domain.Point, meters float64, enrichment *domain.SegmentEnrichment) domain.Segment {
	first, last := points[0], points[len(points)-1]
	s := domain.Segment{
		Points:     points,
		Kilometers: meters / 1000,
		Seconds:    last.Timestamp.Sub(first.Timestamp).Seconds(),
		Timezone:   p.opts.Timezone(first.Latitude, first.Longitude),
		Visible:    true,
	}
	if enrichment != nil {
		e := *enrichment
		e.Transport = append([]domain.TransportMode(nil), enrichment.Transport...)
		if enrichment.Bounds != nil {
			b := *enrichment.Bounds
			e.Bounds = &b
		}
		s.Enrichment = &e
	}
	return s
}

func parsePoint(n *Node) (domain.Point, error) {
	lat, lon, err := parseLatLonAttrs(n)
	if err != nil {
		return domain.Point{}, err
	}
	ts, err := parseTimeChild(n)
	if err != nil {
		return domain.Point{}, err
	}
	pt := domain.Point{Latitude: lat, Longitude: lon, Timestamp: ts}

	if s, ok := n.ChildText("ele"); ok && s != "" {
		if pt.Elevation, err = parseFinite("ele", s); err != nil {
			return domain.Point{}, err
		}
	}
	if pt.Speed, err = optionalFloat(n, "speed"); err != nil {
		return domain.Point{}, err
	}
	if pt.Course, err = optionalFloat(n, "course"); err != nil {
		return domain.Point{}, err
	}
	return pt, nil
}

// optionalFloat reads a direct child, falling back to the extensions block.
func optionalFloat(n *Node, name string) (*float64, error) {
	c := n.Child(name)
	if c == nil {
		c = n.Child("extensions").Find(name)
	}
	if c == nil || c.Text == "" {
		return nil, nil
	}
	v, err := parseFinite(name, c.Text)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseLatLonAttrs(n *Node) (float64, float64, error) {
	lat, err := requiredFloatAttr(n, "lat")
	if err != nil {
		return 0, 0, err
	}
	lon, err := requiredFloatAttr(n, "lon")
	if err != nil {
		return 0, 0, err
	}
	if lat < -90 || lat > 90 {
		return 0, 0, fmt.Errorf("lat %g out of range [-90, 90]", lat)
	}
	if lon < -180 || lon > 180 {
		return 0, 0, fmt.Errorf("lon %g out of range [-180, 180]", lon)
	}
	return lat, lon, nil
}

func requiredFloatAttr(n *Node, name string) (float64, error) {
	s, ok := n.Attr(name)
	if !ok {
		return 0, fmt.Errorf("missing %s attribute", name)
	}
	return parseFinite(name, strings.TrimSpace(s))
}

// parseFinite rejects the NaN and Inf spellings strconv accepts.
func parseFinite(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s: %q is not a finite number", name, s)
	}
	return v, nil
}

func parseTimeChild(n *Node) (time.Time, error) {
	s, ok := n.ChildText("time")
	if !ok || s == "" {
		return time.Time{}, errors.New("missing time")
	}
	return parseTime(s)
}

func parseTime(s string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("time: %w", err)
	}
	return ts, nil
}

// foldWaypoints converts each wpt independently. Waypoints share the trace
// timezone; a malformed coordinate fails the document like a track point.
func (p *Parser) foldWaypoints(nodes []*Node, timezone string) ([]domain.Waypoint, error) {
	waypoints := make([]domain.Waypoint, 0, len(nodes))
	for i, n := range nodes {
		lat, lon, err := parseLatLonAttrs(n)
		if err != nil {
			return nil, numeric(fmt.Sprintf("wpt[%d]", i), err)
		}
		wp := domain.Waypoint{
			Latitude:  lat,
			Longitude: lon,
			Timezone:  timezone,
			Visible:   true,
		}
		if s, ok := n.ChildText("time"); ok && s != "" {
			if wp.Time, err = parseTime(s); err != nil {
				return nil, numeric(fmt.Sprintf("wpt[%d]", i), err)
			}
		}
		wp.Name, _ = n.ChildText("name")
		wp.Comment, _ = n.ChildText("cmt")
		if stop := waypointStop(n); stop != nil {
			wp.Stop = stop
			wp.Seconds = stop.Seconds
		}
		waypoints = append(waypoints, wp)
	}
	return waypoints, nil
}
