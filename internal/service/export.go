package service

import (
	"context"
	"fmt"

	"github.com/pkordes/gpxviewer/internal/domain"
	"github.com/pkordes/gpxviewer/internal/repo"
)

// ExportService assembles a flat export of every stored trace.
type ExportService struct {
	traces repo.TraceRepo
}

// NewExportService constructs an ExportService backed by the provided repo.
func NewExportService(traces repo.TraceRepo) *ExportService {
	return &ExportService{traces: traces}
}

// Export returns one ExportRow per stored trace, most recent first.
// AverageKmH is zero for traces without elapsed time.
func (s *ExportService) Export(ctx context.Context) ([]domain.ExportRow, error) {
	summaries, err := s.traces.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.ExportService.Export: %w", err)
	}

	rows := make([]domain.ExportRow, 0, len(summaries))
	for _, t := range summaries {
		row := domain.ExportRow{
			TraceID:    t.ID.String(),
			Name:       t.Name,
			StartTime:  t.StartTime,
			EndTime:    t.EndTime,
			Timezone:   t.Timezone,
			Kilometers: t.Kilometers,
			Seconds:    t.Seconds,
			MinLat:     t.Bounds.MinLat,
			MinLon:     t.Bounds.MinLon,
			MaxLat:     t.Bounds.MaxLat,
			MaxLon:     t.Bounds.MaxLon,
			Tracks:     t.TrackCount,
			Points:     t.PointCount,
			Waypoints:  t.WaypointCount,
		}
		if t.Seconds > 0 {
			row.AverageKmH = t.Kilometers / (t.Seconds / 3600)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
