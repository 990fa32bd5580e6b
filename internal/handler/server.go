// Package handler implements the HTTP handlers for the trace API.
// All handlers are methods on Server. Methods are split into resource files
// (health.go, trace.go, export.go) but share the same Server struct.
package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"

	"github.com/pkordes/gpxviewer/internal/domain"
)

// TraceServicer defines the trace operations the handlers depend on.
// Defined in the consumer package so handler tests can inject a mock.
type TraceServicer interface {
	Import(ctx context.Context, name string, body io.Reader, splitOnGaps bool) (domain.Trace, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Trace, error)
	ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.TraceSummary, int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Nearest(ctx context.Context, id uuid.UUID, lat, lon float64) (domain.TraceLocation, error)
	GeoJSON(ctx context.Context, id uuid.UUID, arrows bool) (*geojson.FeatureCollection, error)
}

// ExportServicer defines the export operation the export handler depends on.
type ExportServicer interface {
	Export(ctx context.Context) ([]domain.ExportRow, error)
}

// Server holds the handler dependencies.
type Server struct {
	traces      TraceServicer
	export      ExportServicer
	openAPI     []byte
	splitOnGaps bool // default when an upload does not pass ?split=
}

// Option configures a Server.
type Option func(*Server)

// WithOpenAPI serves doc at GET /openapi.yaml.
func WithOpenAPI(doc []byte) Option {
	return func(s *Server) { s.openAPI = doc }
}

// WithSplitOnGaps sets the gap-detection default for uploads.
func WithSplitOnGaps(split bool) Option {
	return func(s *Server) { s.splitOnGaps = split }
}

// NewServer constructs the Server with all its dependencies.
func NewServer(traces TraceServicer, export ExportServicer, opts ...Option) *Server {
	s := &Server{traces: traces, export: export, splitOnGaps: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(nil, nil)
}

// Routes mounts every endpoint on a fresh chi router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	r.Route("/traces", func(r chi.Router) {
		r.Post("/", s.CreateTrace)
		r.Get("/", s.ListTraces)
		r.Get("/export", s.GetExport)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetTrace)
			r.Delete("/", s.DeleteTrace)
			r.Get("/nearest", s.GetNearest)
			r.Get("/geojson", s.GetGeoJSON)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, notFoundBody("route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: ErrorDetail{Code: "method_not_allowed", Message: "method not allowed"}})
	})
	return r
}
