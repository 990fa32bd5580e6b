package handler

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/gpxviewer/internal/domain"
	"github.com/pkordes/gpxviewer/internal/geo"
)

const traceNotFound = "trace not found"

// Pagination describes one page of a listing.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// TraceList is the body of GET /traces.
type TraceList struct {
	Data       []domain.TraceSummary `json:"data"`
	Pagination Pagination            `json:"pagination"`
}

// CreateTrace handles POST /traces.
// The document is either the raw request body (name from ?name=) or the
// "file" field of a multipart form (name from ?name= or the file name).
// ?split= overrides the server's gap-detection default.
func (s *Server) CreateTrace(w http.ResponseWriter, r *http.Request) {
	var (
		name  *string
		split *bool
	)
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "name", q, &name); err != nil {
		writeJSON(w, http.StatusBadRequest, requestBody(err.Error()))
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "split", q, &split); err != nil {
		writeJSON(w, http.StatusBadRequest, requestBody(err.Error()))
		return
	}

	body, filename, err := uploadBody(r)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeServiceError(w, r, err, traceNotFound)
			return
		}
		writeJSON(w, http.StatusBadRequest, requestBody(err.Error()))
		return
	}

	traceName := filename
	if name != nil && *name != "" {
		traceName = *name
	}
	splitOnGaps := s.splitOnGaps
	if split != nil {
		splitOnGaps = *split
	}

	trace, err := s.traces.Import(r.Context(), traceName, body, splitOnGaps)
	if err != nil {
		writeServiceError(w, r, err, traceNotFound)
		return
	}

	w.Header().Set("Location", "/traces/"+trace.ID.String())
	writeJSON(w, http.StatusCreated, trace)
}

// ListTraces handles GET /traces.
// Supports ?page= and ?limit= (defaults: page=1, limit=20, max=100).
func (s *Server) ListTraces(w http.ResponseWriter, r *http.Request) {
	var page, limit *int
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "page", q, &page); err != nil {
		writeJSON(w, http.StatusBadRequest, requestBody(err.Error()))
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &limit); err != nil {
		writeJSON(w, http.StatusBadRequest, requestBody(err.Error()))
		return
	}

	params := domain.NewPaginationParams(page, limit)
	traces, total, err := s.traces.ListPaged(r.Context(), params)
	if err != nil {
		writeServiceError(w, r, err, traceNotFound)
		return
	}
	if traces == nil {
		traces = []domain.TraceSummary{}
	}
	writeJSON(w, http.StatusOK, TraceList{
		Data: traces,
		Pagination: Pagination{
			Page:  params.Page,
			Limit: params.Limit,
			Total: int(total),
		},
	})
}

// GetTrace handles GET /traces/{id}.
func (s *Server) GetTrace(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	trace, err := s.traces.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, traceNotFound)
		return
	}
	writeJSON(w, http.StatusOK, trace)
}

// DeleteTrace handles DELETE /traces/{id}.
func (s *Server) DeleteTrace(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.traces.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err, traceNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetNearest handles GET /traces/{id}/nearest.
// The query coordinate is ?lat=&lon= or a single ?at="lat,lon".
func (s *Server) GetNearest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var lat, lon float64
	q := r.URL.Query()
	if at := q.Get("at"); at != "" {
		if lat, lon, ok = geo.ParseLatLon(at); !ok {
			writeJSON(w, http.StatusBadRequest, requestBody(fmt.Sprintf("at: %q is not a lat,lon pair", at)))
			return
		}
	} else {
		if err := runtime.BindQueryParameter("form", true, true, "lat", q, &lat); err != nil {
			writeJSON(w, http.StatusBadRequest, requestBody(err.Error()))
			return
		}
		if err := runtime.BindQueryParameter("form", true, true, "lon", q, &lon); err != nil {
			writeJSON(w, http.StatusBadRequest, requestBody(err.Error()))
			return
		}
	}

	loc, err := s.traces.Nearest(r.Context(), id, lat, lon)
	if err != nil {
		writeServiceError(w, r, err, traceNotFound)
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

// GetGeoJSON handles GET /traces/{id}/geojson. ?arrows=true adds direction arrows.
func (s *Server) GetGeoJSON(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var arrows *bool
	if err := runtime.BindQueryParameter("form", true, false, "arrows", r.URL.Query(), &arrows); err != nil {
		writeJSON(w, http.StatusBadRequest, requestBody(err.Error()))
		return
	}

	fc, err := s.traces.GeoJSON(r.Context(), id, arrows != nil && *arrows)
	if err != nil {
		writeServiceError(w, r, err, traceNotFound)
		return
	}
	raw, err := fc.MarshalJSON()
	if err != nil {
		writeServiceError(w, r, err, traceNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(raw)
}

// --- request helpers --------------------------------------------------------

// pathID binds the {id} path parameter, writing a 400 when it is malformed.
func pathID(w http.ResponseWriter, r *http.Request) (openapi_types.UUID, bool) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeJSON(w, http.StatusBadRequest, requestBody(err.Error()))
		return openapi_types.UUID{}, false
	}
	return id, true
}

// uploadBody returns the document stream and, for multipart uploads, the
// client's file name.
func uploadBody(r *http.Request) (io.Reader, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if r.Body == nil || r.Body == http.NoBody {
			return nil, "", errors.New("request body is required")
		}
		return r.Body, "", nil
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, "", fmt.Errorf("multipart: %w", err)
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, "", errors.New(`multipart field "file" is required`)
		}
		if err != nil {
			return nil, "", fmt.Errorf("multipart: %w", err)
		}
		if part.FormName() == "file" {
			return part, part.FileName(), nil
		}
	}
}
