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

// ListingRepo reads and writes properties of interest with their listing
// attributes.
type ListingRepo interface {
	// Create inserts a property of interest.
	Create(ctx context.Context, l domain.Listing) (domain.Listing, error)

	// GetByPropertyID returns domain.ErrNotFound if the property does not exist.
	GetByPropertyID(ctx context.Context, propertyID uuid.UUID) (domain.Listing, error)
}

type pgListingRepo struct {
	db db
}

// NewListingRepo constructs a ListingRepo backed by the provided db connection.
func NewListingRepo(db db) ListingRepo {
	return &pgListingRepo{db: db}
}

const listingColumns = `id, listing_id, address, lat, lng, listing_agent_id, is_custom, is_auto_approve`

func (r *pgListingRepo) Create(ctx context.Context, l domain.Listing) (domain.Listing, error) {
	q := `
		INSERT INTO properties (listing_id, address, lat, lng, listing_agent_id, is_custom, is_auto_approve)
		VALUES (@listing_id, @address, @lat, @lng, @listing_agent_id, @is_custom, @is_auto_approve)
		RETURNING ` + listingColumns

	args := pgx.NamedArgs{
		"listing_id":       l.ListingID,
		"address":          l.Address,
		"lat":              l.Location.Lat,
		"lng":              l.Location.Lng,
		"listing_agent_id": l.ListingAgentID,
		"is_custom":        l.IsCustom,
		"is_auto_approve":  l.IsAutoApprove,
	}

	result, err := scanListing(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Listing{}, fmt.Errorf("repo.ListingRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgListingRepo) GetByPropertyID(ctx context.Context, propertyID uuid.UUID) (domain.Listing, error) {
	q := `SELECT ` + listingColumns + ` FROM properties WHERE id = @id`

	result, err := scanListing(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": propertyID}))
	if err != nil {
		return domain.Listing{}, fmt.Errorf("repo.ListingRepo.GetByPropertyID: %w", err)
	}
	return result, nil
}

func scanListing(s scanner) (domain.Listing, error) {
	var (
		l       domain.Listing
		id      pgtype.UUID
		agentID pgtype.UUID
	)
	err := s.Scan(&id, &l.ListingID, &l.Address, &l.Location.Lat, &l.Location.Lng, &agentID, &l.IsCustom, &l.IsAutoApprove)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Listing{}, domain.ErrNotFound
		}
		return domain.Listing{}, err
	}
	l.ID = uuid.UUID(id.Bytes)
	l.ListingAgentID = uuidPtr(agentID)
	return l, nil
}
