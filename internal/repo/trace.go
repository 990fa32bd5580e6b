// Package repo contains all database access logic for the trace store.
// Each resource has its own file with an interface and a Postgres implementation.
// No parsing or derivation lives here, only SQL and type mapping.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/gpxviewer/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, pgx.Tx and
// pgxmock pools. Integration tests pass a transaction that is rolled back after
// each test; unit tests pass a pgxmock pool.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TraceRepo defines the persistence operations for stored traces.
// The service layer depends on this interface, not the Postgres implementation.
type TraceRepo interface {
	// Create inserts a trace record and returns its summary with the
	// DB-generated id and created_at populated.
	Create(ctx context.Context, rec domain.TraceRecord) (domain.TraceSummary, error)

	// GetByID returns the record, source document included.
	// Returns domain.ErrNotFound if no trace with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.TraceRecord, error)

	// List returns every trace summary, most recent start first.
	List(ctx context.Context) ([]domain.TraceSummary, error)

	// ListPaged returns one page of summaries and the total row count.
	ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.TraceSummary, int64, error)

	// Delete removes a trace. Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

// pgTraceRepo is the Postgres implementation of TraceRepo.
type pgTraceRepo struct {
	db db
}

// NewTraceRepo constructs a TraceRepo backed by the provided db connection.
func NewTraceRepo(db db) TraceRepo {
	return &pgTraceRepo{db: db}
}

const summaryColumns = `id, name, start_time, end_time, kilometers, seconds, timezone,
		min_lat, min_lon, max_lat, max_lon,
		track_count, point_count, waypoint_count, created_at`

// Create inserts a new trace row and returns its summary.
func (r *pgTraceRepo) Create(ctx context.Context, rec domain.TraceRecord) (domain.TraceSummary, error) {
	q := `
		INSERT INTO traces (name, start_time, end_time, kilometers, seconds, timezone,
			min_lat, min_lon, max_lat, max_lon,
			track_count, point_count, waypoint_count, split_on_gaps, document)
		VALUES (@name, @start_time, @end_time, @kilometers, @seconds, @timezone,
			@min_lat, @min_lon, @max_lat, @max_lon,
			@track_count, @point_count, @waypoint_count, @split_on_gaps, @document)
		RETURNING ` + summaryColumns

	args := pgx.NamedArgs{
		"name":           rec.Name,
		"start_time":     rec.StartTime,
		"end_time":       rec.EndTime,
		"kilometers":     rec.Kilometers,
		"seconds":        rec.Seconds,
		"timezone":       rec.Timezone,
		"min_lat":        rec.Bounds.MinLat,
		"min_lon":        rec.Bounds.MinLon,
		"max_lat":        rec.Bounds.MaxLat,
		"max_lon":        rec.Bounds.MaxLon,
		"track_count":    rec.TrackCount,
		"point_count":    rec.PointCount,
		"waypoint_count": rec.WaypointCount,
		"split_on_gaps":  rec.SplitOnGaps,
		"document":       rec.Document,
	}

	result, err := scanSummary(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.TraceSummary{}, fmt.Errorf("repo.TraceRepo.Create: %w", err)
	}
	return result, nil
}

// GetByID retrieves a trace record by primary key.
func (r *pgTraceRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.TraceRecord, error) {
	q := `
		SELECT ` + summaryColumns + `, split_on_gaps, document
		FROM traces
		WHERE id = @id`

	var (
		rec domain.TraceRecord
		pid pgtype.UUID
	)
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}).Scan(
		append(summaryDest(&rec.TraceSummary, &pid), &rec.SplitOnGaps, &rec.Document)...,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = domain.ErrNotFound
		}
		return domain.TraceRecord{}, fmt.Errorf("repo.TraceRepo.GetByID: %w", err)
	}
	rec.ID = uuid.UUID(pid.Bytes)
	return rec, nil
}

// List returns all trace summaries ordered by start_time descending.
func (r *pgTraceRepo) List(ctx context.Context) ([]domain.TraceSummary, error) {
	q := `
		SELECT ` + summaryColumns + `
		FROM traces
		ORDER BY start_time DESC, id`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repo.TraceRepo.List: %w", err)
	}
	summaries, err := collectSummaries(rows)
	if err != nil {
		return nil, fmt.Errorf("repo.TraceRepo.List: %w", err)
	}
	return summaries, nil
}

// ListPaged returns one page of trace summaries ordered by start_time
// descending, together with the total number of stored traces.
func (r *pgTraceRepo) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.TraceSummary, int64, error) {
	const countQ = `SELECT count(*) FROM traces`

	var total int64
	if err := r.db.QueryRow(ctx, countQ).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.TraceRepo.ListPaged: count: %w", err)
	}

	q := `
		SELECT ` + summaryColumns + `
		FROM traces
		ORDER BY start_time DESC, id
		LIMIT @limit OFFSET @offset`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"limit": p.Limit, "offset": p.Offset()})
	if err != nil {
		return nil, 0, fmt.Errorf("repo.TraceRepo.ListPaged: %w", err)
	}
	summaries, err := collectSummaries(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.TraceRepo.ListPaged: %w", err)
	}
	return summaries, total, nil
}

// Delete removes a trace by primary key.
func (r *pgTraceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM traces WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.TraceRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.TraceRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// summaryDest lists scan targets in summaryColumns order. The id is scanned
// through pgtype.UUID and copied by the caller.
func summaryDest(s *domain.TraceSummary, id *pgtype.UUID) []any {
	return []any{
		id, &s.Name, &s.StartTime, &s.EndTime, &s.Kilometers, &s.Seconds, &s.Timezone,
		&s.Bounds.MinLat, &s.Bounds.MinLon, &s.Bounds.MaxLat, &s.Bounds.MaxLon,
		&s.TrackCount, &s.PointCount, &s.WaypointCount, &s.CreatedAt,
	}
}

// scanSummary maps a single row into a domain.TraceSummary.
func scanSummary(sc scanner) (domain.TraceSummary, error) {
	var (
		s  domain.TraceSummary
		id pgtype.UUID
	)
	if err := sc.Scan(summaryDest(&s, &id)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TraceSummary{}, domain.ErrNotFound
		}
		return domain.TraceSummary{}, err
	}
	s.ID = uuid.UUID(id.Bytes)
	return s, nil
}

func collectSummaries(rows pgx.Rows) ([]domain.TraceSummary, error) {
	defer rows.Close()

	summaries := []domain.TraceSummary{}
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return summaries, nil
}
