// Package domain contains the core data types for showing tours.
// This package has no infrastructure dependencies and is imported by every
// other internal package (schedule, service, repo, handler).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// TourStatus is the lifecycle state of a tour.
type TourStatus string

const (
	TourDraft      TourStatus = "draft"
	TourInProgress TourStatus = "in_progress"
	TourComplete   TourStatus = "complete"
)

// Valid reports whether s is one of the known tour statuses.
func (s TourStatus) Valid() bool {
	switch s {
	case TourDraft, TourInProgress, TourComplete:
		return true
	}
	return false
}

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Tour is a dated itinerary of property visits owned by one touring agent for
// one client. Tour is the aggregate root; stops belong to a tour.
//
// StartTime and EndTime are derived from the stop set (see schedule.Span) and
// may briefly lag behind the stops because writes are per entity.
type Tour struct {
	ID       uuid.UUID  `json:"id"`
	ClientID uuid.UUID  `json:"client_id"`
	AgentID  uuid.UUID  `json:"agent_id"`
	Name     string     `json:"name"`
	Status   TourStatus `json:"status"`

	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	// CustomStartAddress, when set, is the origin for the first drive leg.
	CustomStartAddress string      `json:"custom_start_address,omitempty"`
	CustomStart        *Coordinate `json:"custom_start,omitempty"`

	ManuallyOrderedShowings bool       `json:"manually_ordered_showings"`
	RouteSet                bool       `json:"route_set"`
	CurrentTourStopID       *uuid.UUID `json:"current_tour_stop_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Editable reports whether the tour accepts mutations.
func (t Tour) Editable() bool {
	return t.Status != TourComplete
}

// TourPatch is a partial update of a tour. Nil fields are left untouched.
type TourPatch struct {
	ID                      uuid.UUID
	Name                    *string
	Status                  *TourStatus
	StartTime               *time.Time
	EndTime                 *time.Time
	ClearSpan               bool
	CustomStartAddress      *string
	CustomStart             *Coordinate
	ManuallyOrderedShowings *bool
	RouteSet                *bool
	CurrentTourStopID       *uuid.UUID
}
