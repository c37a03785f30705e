// Package approval decides whether a touring agent may approve a showing on
// the listing agent's behalf.
package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/showing-tours/internal/domain"
	"github.com/pkordes/showing-tours/internal/timeutil"
)

// SlotSource is the availability calendar. A nil window means all time.
// *availability.Client satisfies this interface.
type SlotSource interface {
	GetSlots(ctx context.Context, listingID string, window *domain.DayWindow) ([]domain.Slot, error)
}

// ListingSource resolves a property of interest to its listing record.
// repo.ListingRepo satisfies this interface.
type ListingSource interface {
	GetByPropertyID(ctx context.Context, propertyID uuid.UUID) (domain.Listing, error)
}

// Reasons reported in Decision.Reason.
const (
	ReasonCustomListing = "custom listing needs no listing-agent approval"
	ReasonUnmanaged     = "listing has no managed availability"
	ReasonAutoApprove   = "listing allows auto-approval"
	ReasonManaged       = "listing agent must approve this showing"
)

// Decision is the outcome of CanSelfApprove.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Evaluator implements the self-approval check.
type Evaluator struct {
	slots    SlotSource
	listings ListingSource
	loc      *time.Location
}

// NewEvaluator creates an Evaluator. loc decides which calendar day a stop's
// start time falls on; nil means UTC.
func NewEvaluator(slots SlotSource, listings ListingSource, loc *time.Location) *Evaluator {
	if loc == nil {
		loc = time.UTC
	}
	return &Evaluator{slots: slots, listings: listings, loc: loc}
}

// CanSelfApprove checks the listing's calendar for the stop's day (or all
// time when the stop has no start yet). A listing with no calendar entries at
// all is treated as unmanaged and may be self-approved. A listing with entries
// may only be self-approved when its auto-approve flag is set.
func (e *Evaluator) CanSelfApprove(ctx context.Context, stop domain.TourStop) (Decision, error) {
	if stop.Property.IsCustom {
		return Decision{Allowed: true, Reason: ReasonCustomListing}, nil
	}

	var window *domain.DayWindow
	if stop.StartTime != nil {
		start, end := timeutil.DayBounds(*stop.StartTime, e.loc)
		window = &domain.DayWindow{Start: start, End: end}
	}

	slots, err := e.slots.GetSlots(ctx, stop.Property.ListingID, window)
	if err != nil {
		return Decision{}, fmt.Errorf("approval.Evaluator.CanSelfApprove: get slots: %w", err)
	}
	if len(slots) == 0 {
		return Decision{Allowed: true, Reason: ReasonUnmanaged}, nil
	}

	listing, err := e.listings.GetByPropertyID(ctx, stop.Property.ID)
	if err != nil {
		return Decision{}, fmt.Errorf("approval.Evaluator.CanSelfApprove: get listing: %w", err)
	}
	if listing.IsAutoApprove {
		return Decision{Allowed: true, Reason: ReasonAutoApprove}, nil
	}
	return Decision{Allowed: false, Reason: ReasonManaged}, nil
}
