package domain

import (
	"time"

	"github.com/google/uuid"
)

// StartHere is the drive-time label of the first stop when the tour has no
// custom start address.
const StartHere = "Start Here"

// PropertyRef is the slice of the property-of-interest a stop needs: where it
// is, who lists it, and whether it is exempt from listing-agent approval.
type PropertyRef struct {
	ID             uuid.UUID  `json:"id"`
	ListingID      string     `json:"listing_id"`
	Address        string     `json:"address"`
	Location       Coordinate `json:"location"`
	ListingAgentID *uuid.UUID `json:"listing_agent_id,omitempty"`
	// IsCustom marks a listing that did not come from the MLS feed.
	IsCustom bool `json:"is_custom"`
}

// TourStop is one visit within a tour.
//
// Duration is in hours, quantized to 0.25 and within (0,10]. EstDriveSeconds
// and EstDriveStr are derived by the drive-time annotator and are never
// authoritative.
type TourStop struct {
	ID       uuid.UUID   `json:"id"`
	TourID   uuid.UUID   `json:"tour_id"`
	Property PropertyRef `json:"property"`
	Order    int         `json:"order"`

	StartTime *time.Time `json:"start_time,omitempty"`
	Duration  float64    `json:"duration"`

	EstDriveSeconds *int   `json:"est_drive_seconds,omitempty"`
	EstDriveStr     string `json:"est_drive_str,omitempty"`

	Status                  ShowingStatus `json:"status"`
	RequestSent             bool          `json:"request_sent"`
	ShowingRequestRequired  bool          `json:"showing_request_required"`
	LastRequestSentByUserID *uuid.UUID    `json:"last_request_sent_by_user_id,omitempty"`

	// ApprovedDuration is the duration the listing agent last approved.
	// Shrinking below it never needs a new request; growing past it does.
	ApprovedDuration   *float64   `json:"approved_duration,omitempty"`
	SuggestedStartTime *time.Time `json:"suggested_start_time,omitempty"`

	NotifyBefore bool `json:"notify_before"`
	NotifyAfter  bool `json:"notify_after"`

	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Scheduled reports whether the stop has both a start time and a duration.
func (s TourStop) Scheduled() bool {
	return s.StartTime != nil && s.Duration > 0
}

// EndTime returns start + duration, or nil when the stop has no start time.
func (s TourStop) EndTime() *time.Time {
	if s.StartTime == nil {
		return nil
	}
	end := s.StartTime.Add(time.Duration(s.Duration * float64(time.Hour)))
	return &end
}

// State derives the workflow state of the stop.
//
// Precedence is fixed: an unscheduled stop is unscheduled whatever its flags;
// a stop whose request was never sent or must be re-sent needs a request even
// when its stored status is approved; only then does the stored status decide.
func (s TourStop) State() RequestState {
	if s.StartTime == nil {
		return StateUnscheduled
	}
	if s.ShowingRequestRequired || !s.RequestSent {
		return StateNeedsRequest
	}
	switch s.Status {
	case StatusApproved:
		return StateApproved
	case StatusTimeSuggested:
		return StateTimeSuggested
	case StatusNewMessage:
		return StateNewMessage
	case StatusRejected:
		return StateRejected
	default:
		return StatePending
	}
}

// Settled reports whether the stop needs no further action before the tour:
// custom listings are always settled, MLS listings once approved.
func (s TourStop) Settled() bool {
	return s.Property.IsCustom || s.State() == StateApproved
}

// StopPatch is a partial update of a stop. Nil fields are left untouched.
type StopPatch struct {
	ID                      uuid.UUID
	Order                   *int
	StartTime               *time.Time
	Duration                *float64
	EstDriveSeconds         *int
	EstDriveStr             *string
	Status                  *ShowingStatus
	RequestSent             *bool
	ShowingRequestRequired  *bool
	LastRequestSentByUserID *uuid.UUID
	ApprovedDuration        *float64
	SuggestedStartTime      *time.Time
	ClearSuggestedStartTime bool
	NotifyBefore            *bool
	NotifyAfter             *bool
}

// NewStop is the input for creating a stop.
type NewStop struct {
	TourID             uuid.UUID
	PropertyOfInterest uuid.UUID
	Order              int
	StartTime          *time.Time
	Duration           float64
}
