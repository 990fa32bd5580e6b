// Package service contains the business logic for the trace store.
// Services validate inputs, run the parser and orchestrate repo calls.
// No SQL lives here; services depend on repo interfaces, not implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"

	"github.com/pkordes/gpxviewer/internal/domain"
	"github.com/pkordes/gpxviewer/internal/export"
	"github.com/pkordes/gpxviewer/internal/geo"
	"github.com/pkordes/gpxviewer/internal/gpx"
	"github.com/pkordes/gpxviewer/internal/repo"
)

// DefaultMaxDocumentBytes caps an imported document when no limit is configured.
const DefaultMaxDocumentBytes = 32 << 20

const maxNameLength = 200

// TraceService implements the trace store operations: import, read, list,
// remove and the geometric queries over a stored trace.
type TraceService struct {
	repo     repo.TraceRepo
	maxBytes int64
	parser   gpx.Options
}

// NewTraceService constructs a TraceService backed by r. maxBytes <= 0 means
// DefaultMaxDocumentBytes. parser supplies the gap threshold and timezone
// resolver; its SplitOnGaps is overridden per import.
func NewTraceService(r repo.TraceRepo, maxBytes int64, parser gpx.Options) *TraceService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxDocumentBytes
	}
	return &TraceService{repo: r, maxBytes: maxBytes, parser: parser}
}

// Import reads a document from body, derives a Trace from it and stores it.
// Parse failures match domain.ErrInvalidTrace and nothing is stored.
func (s *TraceService) Import(ctx context.Context, name string, body io.Reader, splitOnGaps bool) (domain.Trace, error) {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return domain.Trace{}, fmt.Errorf("service.TraceService.Import: %w", err)
	}

	doc, err := io.ReadAll(io.LimitReader(body, s.maxBytes+1))
	if err != nil {
		return domain.Trace{}, fmt.Errorf("service.TraceService.Import: read: %w", err)
	}
	if int64(len(doc)) > s.maxBytes {
		return domain.Trace{}, fmt.Errorf("service.TraceService.Import: %w: limit is %d bytes", domain.ErrTooLarge, s.maxBytes)
	}

	trace, err := s.parse(name, doc, splitOnGaps)
	if err != nil {
		return domain.Trace{}, fmt.Errorf("service.TraceService.Import: %w", err)
	}

	summary, err := s.repo.Create(ctx, domain.TraceRecord{
		TraceSummary: trace.Summary(),
		SplitOnGaps:  splitOnGaps,
		Document:     doc,
	})
	if err != nil {
		return domain.Trace{}, fmt.Errorf("service.TraceService.Import: %w", err)
	}
	trace.ID = summary.ID
	trace.CreatedAt = summary.CreatedAt
	return trace, nil
}

// GetByID re-derives the full Trace from the stored document.
func (s *TraceService) GetByID(ctx context.Context, id uuid.UUID) (domain.Trace, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Trace{}, fmt.Errorf("service.TraceService.GetByID: %w", err)
	}
	trace, err := s.parse(rec.Name, rec.Document, rec.SplitOnGaps)
	if err != nil {
		return domain.Trace{}, fmt.Errorf("service.TraceService.GetByID: stored document: %w", err)
	}
	trace.ID = rec.ID
	trace.CreatedAt = rec.CreatedAt
	return trace, nil
}

// ListPaged returns one page of trace summaries and the total count.
func (s *TraceService) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.TraceSummary, int64, error) {
	summaries, total, err := s.repo.ListPaged(ctx, p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.TraceService.ListPaged: %w", err)
	}
	return summaries, total, nil
}

// Delete removes a stored trace.
func (s *TraceService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("service.TraceService.Delete: %w", err)
	}
	return nil
}

// Nearest finds the track point of a stored trace closest to lat/lon across
// every segment. Meters and Duration are measured within the matched segment,
// TraceMeters over the whole trace up to the matched point's time.
// On equal distances the earlier segment wins.
func (s *TraceService) Nearest(ctx context.Context, id uuid.UUID, lat, lon float64) (domain.TraceLocation, error) {
	if err := validateCoordinate(lat, lon); err != nil {
		return domain.TraceLocation{}, fmt.Errorf("service.TraceService.Nearest: %w", err)
	}
	trace, err := s.GetByID(ctx, id)
	if err != nil {
		return domain.TraceLocation{}, fmt.Errorf("service.TraceService.Nearest: %w", err)
	}

	var (
		best  domain.TraceLocation
		found bool
	)
	for ti, track := range trace.Tracks {
		for si, seg := range track.Segments {
			n, err := geo.NearestPoint(seg.Points, lat, lon)
			if errors.Is(err, geo.ErrNoPoints) {
				continue
			}
			if found && n.Distance >= best.Distance {
				continue
			}
			best = domain.TraceLocation{
				Track:     ti,
				Segment:   si,
				Index:     n.Index,
				Point:     n.Point,
				PrevPoint: n.PrevPoint,
				Meters:    n.Meters,
				Duration:  n.Duration,
				Seconds:   n.Duration.Seconds(),
				Distance:  n.Distance,
			}
			found = true
		}
	}
	if !found {
		return domain.TraceLocation{}, fmt.Errorf("service.TraceService.Nearest: %w", domain.ErrNotFound)
	}
	for _, track := range trace.Tracks {
		for _, seg := range track.Segments {
			best.TraceMeters += geo.DistanceAlongSegment(seg.Points, best.Point.Timestamp)
		}
	}
	return best, nil
}

// GeoJSON renders a stored trace as a FeatureCollection.
func (s *TraceService) GeoJSON(ctx context.Context, id uuid.UUID, arrows bool) (*geojson.FeatureCollection, error) {
	trace, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service.TraceService.GeoJSON: %w", err)
	}
	return export.FeatureCollection(trace, export.Options{Arrows: arrows}), nil
}

func (s *TraceService) parse(name string, doc []byte, splitOnGaps bool) (domain.Trace, error) {
	opts := s.parser
	opts.SplitOnGaps = splitOnGaps
	return gpx.NewParser(opts).Parse(name, doc)
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name must be at most %d characters", domain.ErrValidation, maxNameLength)
	}
	return nil
}

func validateCoordinate(lat, lon float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return fmt.Errorf("%w: lat must be within [-90, 90]", domain.ErrValidation)
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return fmt.Errorf("%w: lon must be within [-180, 180]", domain.ErrValidation)
	}
	return nil
}
