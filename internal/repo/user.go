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

// UserRepo resolves users to the contact details the notifier needs.
type UserRepo interface {
	// Create inserts a user.
	Create(ctx context.Context, c domain.Contact) (domain.Contact, error)

	// GetContact returns domain.ErrNotFound if the user does not exist.
	GetContact(ctx context.Context, userID uuid.UUID) (domain.Contact, error)
}

type pgUserRepo struct {
	db db
}

// NewUserRepo constructs a UserRepo backed by the provided db connection.
func NewUserRepo(db db) UserRepo {
	return &pgUserRepo{db: db}
}

func (r *pgUserRepo) Create(ctx context.Context, c domain.Contact) (domain.Contact, error) {
	const q = `
		INSERT INTO users (name, email, phone, push_tokens)
		VALUES (@name, @email, @phone, @push_tokens)
		RETURNING id, name, email, phone, push_tokens`

	tokens := c.PushTokens
	if tokens == nil {
		tokens = []string{}
	}
	args := pgx.NamedArgs{
		"name":        c.Name,
		"email":       c.Email,
		"phone":       c.Phone,
		"push_tokens": tokens,
	}

	result, err := scanContact(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Contact{}, fmt.Errorf("repo.UserRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgUserRepo) GetContact(ctx context.Context, userID uuid.UUID) (domain.Contact, error) {
	const q = `SELECT id, name, email, phone, push_tokens FROM users WHERE id = @id`

	result, err := scanContact(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": userID}))
	if err != nil {
		return domain.Contact{}, fmt.Errorf("repo.UserRepo.GetContact: %w", err)
	}
	return result, nil
}

func scanContact(s scanner) (domain.Contact, error) {
	var (
		c  domain.Contact
		id pgtype.UUID
	)
	if err := s.Scan(&id, &c.Name, &c.Email, &c.Phone, &c.PushTokens); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Contact{}, domain.ErrNotFound
		}
		return domain.Contact{}, err
	}
	c.UserID = uuid.UUID(id.Bytes)
	return c, nil
}
