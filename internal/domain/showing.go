package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// ShowingStatus is the listing agent's last disposition on a stop, as stored.
// The zero value is pending.
type ShowingStatus string

const (
	StatusPending       ShowingStatus = ""
	StatusApproved      ShowingStatus = "approved"
	StatusTimeSuggested ShowingStatus = "timeSuggested"
	StatusNewMessage    ShowingStatus = "newMessage"
	StatusRejected      ShowingStatus = "rejected"
)

// ParseShowingStatus converts a stored or wire value into a ShowingStatus.
// "pending" and "" both map to StatusPending.
func ParseShowingStatus(s string) (ShowingStatus, error) {
	switch ShowingStatus(s) {
	case StatusPending, StatusApproved, StatusTimeSuggested, StatusNewMessage, StatusRejected:
		return ShowingStatus(s), nil
	}
	if s == "pending" {
		return StatusPending, nil
	}
	return StatusPending, fmt.Errorf("%w: unknown showing status %q", ErrValidation, s)
}

// RequestState is the derived position of a stop in the showing-request
// workflow. It is computed by TourStop.State and never stored.
type RequestState string

const (
	StateUnscheduled   RequestState = "unscheduled"
	StateNeedsRequest  RequestState = "needsRequest"
	StatePending       RequestState = "pending"
	StateApproved      RequestState = "approved"
	StateTimeSuggested RequestState = "timeSuggested"
	StateNewMessage    RequestState = "newMessage"
	StateRejected      RequestState = "rejected"
)

// ShowingRequestOutcome is the per-stop result of a batch send.
type ShowingRequestOutcome struct {
	StopID        uuid.UUID `json:"stop_id"`
	WasSuccessful bool      `json:"was_successful"`
	// Err is the first failure seen for the stop, if any.
	Err error `json:"-"`
}

// BatchSummaryKind is the caller-facing classification of a batch send.
type BatchSummaryKind string

const (
	SummaryAllAlreadySent   BatchSummaryKind = "allAlreadySent"
	SummaryNoRequestsNeeded BatchSummaryKind = "noRequestsNeeded"
	SummaryRequestsSent     BatchSummaryKind = "requestsSent"
)

// BatchSummary is derived from the stop set and outcomes of one batch send.
type BatchSummary struct {
	Kind   BatchSummaryKind `json:"kind"`
	Failed []uuid.UUID      `json:"failed"`
}

// BatchResult is returned by a batch send. Outcomes holds one entry per stop,
// in stop order, whether or not the stop's remote calls succeeded.
type BatchResult struct {
	Outcomes []ShowingRequestOutcome `json:"outcomes"`
	Summary  BatchSummary            `json:"summary"`
}

// ResponseKind is a listing agent's answer to a showing request.
type ResponseKind string

const (
	ResponseApprove ResponseKind = "approve"
	ResponseReject  ResponseKind = "reject"
	ResponseComment ResponseKind = "comment"
	ResponseSuggest ResponseKind = "suggest"
)
