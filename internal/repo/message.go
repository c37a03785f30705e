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

// MessageRepo is the per-stop message log shared by the touring and listing
// agents.
type MessageRepo interface {
	// Append adds a message and returns it with its ID and timestamp.
	Append(ctx context.Context, m domain.Message) (domain.Message, error)

	// ListByStop returns a stop's messages oldest first.
	ListByStop(ctx context.Context, stopID uuid.UUID) ([]domain.Message, error)
}

type pgMessageRepo struct {
	db db
}

// NewMessageRepo constructs a MessageRepo backed by the provided db connection.
func NewMessageRepo(db db) MessageRepo {
	return &pgMessageRepo{db: db}
}

func (r *pgMessageRepo) Append(ctx context.Context, m domain.Message) (domain.Message, error) {
	const q = `
		INSERT INTO messages (stop_id, from_user_id, to_user_id, body)
		VALUES (@stop_id, @from_user_id, @to_user_id, @body)
		RETURNING id, stop_id, from_user_id, to_user_id, body, created_at`

	args := pgx.NamedArgs{
		"stop_id":      m.StopID,
		"from_user_id": m.FromUserID,
		"to_user_id":   m.ToUserID,
		"body":         m.Body,
	}

	result, err := scanMessage(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Message{}, fmt.Errorf("repo.MessageRepo.Append: %w", err)
	}
	return result, nil
}

func (r *pgMessageRepo) ListByStop(ctx context.Context, stopID uuid.UUID) ([]domain.Message, error) {
	const q = `
		SELECT id, stop_id, from_user_id, to_user_id, body, created_at
		FROM messages
		WHERE stop_id = @stop_id
		ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"stop_id": stopID})
	if err != nil {
		return nil, fmt.Errorf("repo.MessageRepo.ListByStop: %w", err)
	}
	defer rows.Close()

	msgs := []domain.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.MessageRepo.ListByStop: scan: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.MessageRepo.ListByStop: rows: %w", err)
	}
	return msgs, nil
}

func scanMessage(s scanner) (domain.Message, error) {
	var (
		m      domain.Message
		id     pgtype.UUID
		stopID pgtype.UUID
		from   pgtype.UUID
		to     pgtype.UUID
	)
	if err := s.Scan(&id, &stopID, &from, &to, &m.Body, &m.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Message{}, domain.ErrNotFound
		}
		return domain.Message{}, err
	}
	m.ID = uuid.UUID(id.Bytes)
	m.StopID = uuid.UUID(stopID.Bytes)
	m.FromUserID = uuid.UUID(from.Bytes)
	m.ToUserID = uuid.UUID(to.Bytes)
	return m, nil
}
