// Package repo contains all database access for the showing-tours service.
// Each resource has its own file with an interface and a Postgres
// implementation. No business logic lives here, only SQL and type mapping.
package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/showing-tours/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Integration tests pass a transaction that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TourRepo defines the persistence operations for Tours.
type TourRepo interface {
	// Create inserts a new tour and returns the persisted record.
	Create(ctx context.Context, tour domain.Tour) (domain.Tour, error)

	// GetByID returns domain.ErrNotFound if no tour with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Tour, error)

	// ListByAgent returns one page of the agent's tours, most recent first,
	// and the total count across all pages.
	ListByAgent(ctx context.Context, agentID uuid.UUID, p domain.PaginationParams) ([]domain.Tour, int64, error)

	// Update applies the non-nil fields of patch and returns the updated tour.
	Update(ctx context.Context, patch domain.TourPatch) (domain.Tour, error)
}

type pgTourRepo struct {
	db db
}

// NewTourRepo constructs a TourRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewTourRepo(db db) TourRepo {
	return &pgTourRepo{db: db}
}

const tourColumns = `id, client_id, agent_id, name, status, start_time, end_time,
	custom_start_address, custom_start_lat, custom_start_lng,
	manually_ordered, route_set, current_stop_id, created_at, updated_at`

func (r *pgTourRepo) Create(ctx context.Context, tour domain.Tour) (domain.Tour, error) {
	q := `
		INSERT INTO tours (client_id, agent_id, name, status, start_time, end_time,
		                   custom_start_address, custom_start_lat, custom_start_lng,
		                   manually_ordered, route_set)
		VALUES (@client_id, @agent_id, @name, @status, @start_time, @end_time,
		        @custom_start_address, @custom_start_lat, @custom_start_lng,
		        @manually_ordered, @route_set)
		RETURNING ` + tourColumns

	status := tour.Status
	if status == "" {
		status = domain.TourDraft
	}
	lat, lng := coordArgs(tour.CustomStart)
	args := pgx.NamedArgs{
		"client_id":            tour.ClientID,
		"agent_id":             tour.AgentID,
		"name":                 tour.Name,
		"status":               string(status),
		"start_time":           tour.StartTime,
		"end_time":             tour.EndTime,
		"custom_start_address": tour.CustomStartAddress,
		"custom_start_lat":     lat,
		"custom_start_lng":     lng,
		"manually_ordered":     tour.ManuallyOrderedShowings,
		"route_set":            tour.RouteSet,
	}

	result, err := scanTour(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Tour{}, fmt.Errorf("repo.TourRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgTourRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Tour, error) {
	q := `SELECT ` + tourColumns + ` FROM tours WHERE id = @id`

	result, err := scanTour(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Tour{}, fmt.Errorf("repo.TourRepo.GetByID: %w", err)
	}
	return result, nil
}

func (r *pgTourRepo) ListByAgent(ctx context.Context, agentID uuid.UUID, p domain.PaginationParams) ([]domain.Tour, int64, error) {
	q := `
		SELECT ` + tourColumns + `, count(*) OVER () AS total
		FROM tours
		WHERE agent_id = @agent_id
		ORDER BY start_time DESC NULLS LAST, created_at DESC
		LIMIT @limit OFFSET @offset`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{
		"agent_id": agentID,
		"limit":    p.Limit,
		"offset":   p.Offset(),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("repo.TourRepo.ListByAgent: %w", err)
	}
	defer rows.Close()

	tours := []domain.Tour{}
	var total int64
	for rows.Next() {
		t, err := scanTour(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("repo.TourRepo.ListByAgent: scan: %w", err)
		}
		tours = append(tours, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo.TourRepo.ListByAgent: rows: %w", err)
	}
	return tours, total, nil
}

func (r *pgTourRepo) Update(ctx context.Context, patch domain.TourPatch) (domain.Tour, error) {
	u := newUpdate()
	if patch.Name != nil {
		u.set("name", *patch.Name)
	}
	if patch.Status != nil {
		u.set("status", string(*patch.Status))
	}
	if patch.ClearSpan {
		u.set("start_time", nil)
		u.set("end_time", nil)
	} else {
		if patch.StartTime != nil {
			u.set("start_time", *patch.StartTime)
		}
		if patch.EndTime != nil {
			u.set("end_time", *patch.EndTime)
		}
	}
	if patch.CustomStartAddress != nil {
		u.set("custom_start_address", *patch.CustomStartAddress)
	}
	if patch.CustomStart != nil {
		u.set("custom_start_lat", patch.CustomStart.Lat)
		u.set("custom_start_lng", patch.CustomStart.Lng)
	}
	if patch.ManuallyOrderedShowings != nil {
		u.set("manually_ordered", *patch.ManuallyOrderedShowings)
	}
	if patch.RouteSet != nil {
		u.set("route_set", *patch.RouteSet)
	}
	if patch.CurrentTourStopID != nil {
		u.set("current_stop_id", *patch.CurrentTourStopID)
	}
	u.args["id"] = patch.ID

	q := `
		UPDATE tours
		SET ` + u.clause() + `
		WHERE id = @id
		RETURNING ` + tourColumns

	result, err := scanTour(r.db.QueryRow(ctx, q, u.args))
	if err != nil {
		return domain.Tour{}, fmt.Errorf("repo.TourRepo.Update: %w", err)
	}
	return result, nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanTour maps one tours row. extra receives any trailing columns (such as
// a window count) selected after tourColumns.
func scanTour(s scanner, extra ...any) (domain.Tour, error) {
	var (
		t        domain.Tour
		id       pgtype.UUID
		clientID pgtype.UUID
		agentID  pgtype.UUID
		status   string
		start    pgtype.Timestamptz
		end      pgtype.Timestamptz
		lat      pgtype.Float8
		lng      pgtype.Float8
		current  pgtype.UUID
	)

	dest := []any{
		&id, &clientID, &agentID, &t.Name, &status, &start, &end,
		&t.CustomStartAddress, &lat, &lng,
		&t.ManuallyOrderedShowings, &t.RouteSet, &current, &t.CreatedAt, &t.UpdatedAt,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Tour{}, domain.ErrNotFound
		}
		return domain.Tour{}, err
	}

	t.ID = uuid.UUID(id.Bytes)
	t.ClientID = uuid.UUID(clientID.Bytes)
	t.AgentID = uuid.UUID(agentID.Bytes)
	t.Status = domain.TourStatus(status)
	t.StartTime = timePtr(start)
	t.EndTime = timePtr(end)
	if lat.Valid && lng.Valid {
		t.CustomStart = &domain.Coordinate{Lat: lat.Float64, Lng: lng.Float64}
	}
	t.CurrentTourStopID = uuidPtr(current)
	return t, nil
}

// update accumulates "col = @col" assignments for a partial UPDATE.
// updated_at is always bumped.
type update struct {
	cols []string
	args pgx.NamedArgs
}

func newUpdate() *update {
	return &update{args: pgx.NamedArgs{}}
}

func (u *update) set(col string, v any) {
	u.cols = append(u.cols, col+" = @"+col)
	u.args[col] = v
}

func (u *update) clause() string {
	return strings.Join(append(u.cols, "updated_at = now()"), ",\n\t\t    ")
}

func coordArgs(c *domain.Coordinate) (lat, lng *float64) {
	if c == nil {
		return nil, nil
	}
	return &c.Lat, &c.Lng
}

func timePtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	v := ts.Time
	return &v
}

func uuidPtr(u pgtype.UUID) *uuid.UUID {
	if !u.Valid {
		return nil
	}
	v := uuid.UUID(u.Bytes)
	return &v
}

func floatPtr(f pgtype.Float8) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
