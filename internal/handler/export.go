package handler

// export.go implements GET /traces/export: one flat row per stored trace.
// ?format=csv returns CSV; the default (or ?format=json) returns JSON.

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/gpxviewer/internal/domain"
)

// csvHeaders defines the column names written as the first row of any CSV export.
var csvHeaders = []string{
	"trace_id", "name", "start_time", "end_time", "timezone",
	"kilometers", "seconds", "average_kmh",
	"min_lat", "min_lon", "max_lat", "max_lon",
	"tracks", "points", "waypoints",
}

// GetExport handles GET /traces/export.
func (s *Server) GetExport(w http.ResponseWriter, r *http.Request) {
	var format *string
	if err := runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &format); err != nil {
		writeJSON(w, http.StatusBadRequest, requestBody(err.Error()))
		return
	}
	if format != nil && *format != "csv" && *format != "json" {
		writeJSON(w, http.StatusBadRequest, requestBody(`format must be "csv" or "json"`))
		return
	}

	rows, err := s.export.Export(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "export not found")
		return
	}

	if format != nil && *format == "csv" {
		writeCSV(w, rows)
		return
	}
	if rows == nil {
		rows = []domain.ExportRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// writeCSV encodes rows as CSV with a header row. Numbers use the shortest
// representation that round-trips.
func writeCSV(w http.ResponseWriter, rows []domain.ExportRow) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	//nolint:errcheck // bytes.Buffer.Write never returns an error.
	cw.Write(csvHeaders)
	for _, r := range rows {
		//nolint:errcheck
		cw.Write(exportRowToCSVRecord(r))
	}
	cw.Flush()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="traces.csv"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func exportRowToCSVRecord(r domain.ExportRow) []string {
	return []string{
		r.TraceID,
		r.Name,
		formatTime(r.StartTime),
		formatTime(r.EndTime),
		r.Timezone,
		formatFloat(r.Kilometers),
		formatFloat(r.Seconds),
		formatFloat(r.AverageKmH),
		formatFloat(r.MinLat),
		formatFloat(r.MinLon),
		formatFloat(r.MaxLat),
		formatFloat(r.MaxLon),
		strconv.Itoa(r.Tracks),
		strconv.Itoa(r.Points),
		strconv.Itoa(r.Waypoints),
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatTime returns the RFC3339 representation of t, or "" for the zero time.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
