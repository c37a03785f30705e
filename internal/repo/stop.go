package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/showing-tours/internal/domain"
)

// StopRepo defines the persistence operations for tour stops.
// Every read joins the stop's property so callers get a populated PropertyRef.
type StopRepo interface {
	// Create inserts a stop and returns it with its property joined.
	Create(ctx context.Context, in domain.NewStop) (domain.TourStop, error)

	// GetByID retrieves a live stop scoped to tourID.
	// Returns domain.ErrNotFound if it does not exist or was removed.
	GetByID(ctx context.Context, tourID, stopID uuid.UUID) (domain.TourStop, error)

	// ListByTourID returns the tour's stops ordered by stop order. Removed
	// stops are included only when includeDeleted is set.
	ListByTourID(ctx context.Context, tourID uuid.UUID, includeDeleted bool) ([]domain.TourStop, error)

	// Update applies the non-nil fields of patch to a live stop.
	Update(ctx context.Context, patch domain.StopPatch) (domain.TourStop, error)

	// Delete soft-deletes a stop scoped to tourID.
	Delete(ctx context.Context, tourID, stopID uuid.UUID) error

	// BatchReplace removes every stop of the tour and inserts inputs in their
	// place, atomically when the underlying connection can open a transaction.
	BatchReplace(ctx context.Context, tourID uuid.UUID, inputs []domain.NewStop) ([]domain.TourStop, error)
}

type pgStopRepo struct {
	db db
}

// NewStopRepo constructs a StopRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewStopRepo(db db) StopRepo {
	return &pgStopRepo{db: db}
}

// stopSelect reads from a relation aliased s (tour_stops or a CTE with the
// same shape) joined to properties p.
const stopSelect = `
	SELECT s.id, s.tour_id, s.stop_order, s.start_time, s.duration_hours,
	       s.est_drive_seconds, s.est_drive_str, s.status, s.request_sent,
	       s.showing_request_required, s.last_request_sent_by, s.approved_duration,
	       s.suggested_start_time, s.notify_before, s.notify_after, s.deleted_at,
	       s.created_at, s.updated_at,
	       p.id, p.listing_id, p.address, p.lat, p.lng, p.listing_agent_id, p.is_custom`

func (r *pgStopRepo) Create(ctx context.Context, in domain.NewStop) (domain.TourStop, error) {
	s, err := insertStop(ctx, r.db, in)
	if err != nil {
		return domain.TourStop{}, fmt.Errorf("repo.StopRepo.Create: %w", err)
	}
	return s, nil
}

func insertStop(ctx context.Context, conn db, in domain.NewStop) (domain.TourStop, error) {
	q := `
		WITH s AS (
			INSERT INTO tour_stops (tour_id, property_id, stop_order, start_time, duration_hours)
			VALUES (@tour_id, @property_id, @stop_order, @start_time, @duration_hours)
			RETURNING *
		)` + stopSelect + `
		FROM s JOIN properties p ON p.id = s.property_id`

	args := pgx.NamedArgs{
		"tour_id":        in.TourID,
		"property_id":    in.PropertyOfInterest,
		"stop_order":     in.Order,
		"start_time":     in.StartTime,
		"duration_hours": in.Duration,
	}
	return scanStop(conn.QueryRow(ctx, q, args))
}

func (r *pgStopRepo) GetByID(ctx context.Context, tourID, stopID uuid.UUID) (domain.TourStop, error) {
	q := stopSelect + `
		FROM tour_stops s JOIN properties p ON p.id = s.property_id
		WHERE s.id = @id AND s.tour_id = @tour_id AND s.deleted_at IS NULL`

	result, err := scanStop(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": stopID, "tour_id": tourID}))
	if err != nil {
		return domain.TourStop{}, fmt.Errorf("repo.StopRepo.GetByID: %w", err)
	}
	return result, nil
}

func (r *pgStopRepo) ListByTourID(ctx context.Context, tourID uuid.UUID, includeDeleted bool) ([]domain.TourStop, error) {
	q := stopSelect + `
		FROM tour_stops s JOIN properties p ON p.id = s.property_id
		WHERE s.tour_id = @tour_id AND (@include_deleted OR s.deleted_at IS NULL)
		ORDER BY s.deleted_at IS NOT NULL, s.stop_order, s.created_at`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"tour_id": tourID, "include_deleted": includeDeleted})
	if err != nil {
		return nil, fmt.Errorf("repo.StopRepo.ListByTourID: %w", err)
	}
	defer rows.Close()

	stops := []domain.TourStop{}
	for rows.Next() {
		s, err := scanStop(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.StopRepo.ListByTourID: scan: %w", err)
		}
		stops = append(stops, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.StopRepo.ListByTourID: rows: %w", err)
	}
	return stops, nil
}

func (r *pgStopRepo) Update(ctx context.Context, patch domain.StopPatch) (domain.TourStop, error) {
	u := newUpdate()
	if patch.Order != nil {
		u.set("stop_order", *patch.Order)
	}
	if patch.StartTime != nil {
		u.set("start_time", *patch.StartTime)
	}
	if patch.Duration != nil {
		u.set("duration_hours", *patch.Duration)
	}
	if patch.EstDriveSeconds != nil {
		u.set("est_drive_seconds", *patch.EstDriveSeconds)
	}
	if patch.EstDriveStr != nil {
		u.set("est_drive_str", *patch.EstDriveStr)
	}
	if patch.Status != nil {
		u.set("status", statusToDB(*patch.Status))
	}
	if patch.RequestSent != nil {
		u.set("request_sent", *patch.RequestSent)
	}
	if patch.ShowingRequestRequired != nil {
		u.set("showing_request_required", *patch.ShowingRequestRequired)
	}
	if patch.LastRequestSentByUserID != nil {
		u.set("last_request_sent_by", *patch.LastRequestSentByUserID)
	}
	if patch.ApprovedDuration != nil {
		u.set("approved_duration", *patch.ApprovedDuration)
	}
	if patch.ClearSuggestedStartTime {
		u.set("suggested_start_time", nil)
	} else if patch.SuggestedStartTime != nil {
		u.set("suggested_start_time", *patch.SuggestedStartTime)
	}
	if patch.NotifyBefore != nil {
		u.set("notify_before", *patch.NotifyBefore)
	}
	if patch.NotifyAfter != nil {
		u.set("notify_after", *patch.NotifyAfter)
	}
	u.args["id"] = patch.ID

	q := `
		WITH s AS (
			UPDATE tour_stops
			SET ` + u.clause() + `
			WHERE id = @id AND deleted_at IS NULL
			RETURNING *
		)` + stopSelect + `
		FROM s JOIN properties p ON p.id = s.property_id`

	result, err := scanStop(r.db.QueryRow(ctx, q, u.args))
	if err != nil {
		return domain.TourStop{}, fmt.Errorf("repo.StopRepo.Update: %w", err)
	}
	return result, nil
}

func (r *pgStopRepo) Delete(ctx context.Context, tourID, stopID uuid.UUID) error {
	const q = `
		UPDATE tour_stops
		SET deleted_at = now(), updated_at = now()
		WHERE id = @id AND tour_id = @tour_id AND deleted_at IS NULL`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": stopID, "tour_id": tourID})
	if err != nil {
		return fmt.Errorf("repo.StopRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.StopRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// txBeginner is implemented by *pgxpool.Pool, *pgx.Conn, and pgx.Tx (which
// opens a savepoint).
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

func (r *pgStopRepo) BatchReplace(ctx context.Context, tourID uuid.UUID, inputs []domain.NewStop) ([]domain.TourStop, error) {
	conn := r.db
	var tx pgx.Tx
	if b, ok := r.db.(txBeginner); ok {
		var err error
		tx, err = b.Begin(ctx)
		if err != nil {
			return nil, fmt.Errorf("repo.StopRepo.BatchReplace: begin: %w", err)
		}
		defer func() { _ = tx.Rollback(ctx) }()
		conn = tx
	}

	const del = `DELETE FROM tour_stops WHERE tour_id = @tour_id`
	if _, err := conn.Exec(ctx, del, pgx.NamedArgs{"tour_id": tourID}); err != nil {
		return nil, fmt.Errorf("repo.StopRepo.BatchReplace: clear: %w", err)
	}

	out := make([]domain.TourStop, 0, len(inputs))
	for _, in := range inputs {
		in.TourID = tourID
		s, err := insertStop(ctx, conn, in)
		if err != nil {
			return nil, fmt.Errorf("repo.StopRepo.BatchReplace: insert: %w", err)
		}
		out = append(out, s)
	}

	if tx != nil {
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("repo.StopRepo.BatchReplace: commit: %w", err)
		}
	}
	return out, nil
}

func statusToDB(s domain.ShowingStatus) string {
	if s == domain.StatusPending {
		return "pending"
	}
	return string(s)
}

func scanStop(s scanner) (domain.TourStop, error) {
	var (
		st          domain.TourStop
		id          pgtype.UUID
		tourID      pgtype.UUID
		start       pgtype.Timestamptz
		driveSecs   pgtype.Int4
		status      string
		lastSentBy  pgtype.UUID
		approvedDur pgtype.Float8
		suggested   pgtype.Timestamptz
		deletedAt   pgtype.Timestamptz
		propID      pgtype.UUID
		agentID     pgtype.UUID
	)

	err := s.Scan(
		&id, &tourID, &st.Order, &start, &st.Duration,
		&driveSecs, &st.EstDriveStr, &status, &st.RequestSent,
		&st.ShowingRequestRequired, &lastSentBy, &approvedDur,
		&suggested, &st.NotifyBefore, &st.NotifyAfter, &deletedAt,
		&st.CreatedAt, &st.UpdatedAt,
		&propID, &st.Property.ListingID, &st.Property.Address,
		&st.Property.Location.Lat, &st.Property.Location.Lng, &agentID, &st.Property.IsCustom,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TourStop{}, domain.ErrNotFound
		}
		return domain.TourStop{}, err
	}

	parsed, err := domain.ParseShowingStatus(status)
	if err != nil {
		return domain.TourStop{}, err
	}

	st.ID = uuid.UUID(id.Bytes)
	st.TourID = uuid.UUID(tourID.Bytes)
	st.StartTime = timePtr(start)
	if driveSecs.Valid {
		v := int(driveSecs.Int32)
		st.EstDriveSeconds = &v
	}
	st.Status = parsed
	st.LastRequestSentByUserID = uuidPtr(lastSentBy)
	st.ApprovedDuration = floatPtr(approvedDur)
	st.SuggestedStartTime = timePtr(suggested)
	st.DeletedAt = timePtr(deletedAt)
	st.Property.ID = uuid.UUID(propID.Bytes)
	st.Property.ListingAgentID = uuidPtr(agentID)
	return st, nil
}
