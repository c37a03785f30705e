package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/showing-tours/internal/domain"
	"github.com/pkordes/showing-tours/internal/timeutil"
)

// Screens named in notification routing.
const (
	screenShowingRequest = "ShowingRequest"
	screenTourStop       = "TourStop"
)

// notices renders message and notification text for one stop.
type notices struct {
	loc *time.Location
	now func() time.Time
}

func (n notices) when(stop domain.TourStop) string {
	if stop.StartTime == nil {
		return "an unscheduled time"
	}
	t := stop.StartTime.In(n.loc)
	return fmt.Sprintf("%s at %s", t.Format("Mon, Jan 2"), timeutil.FormatClock(t, n.loc))
}

func (n notices) routing(screen string, tour domain.Tour, stop domain.TourStop) *domain.Routing {
	return &domain.Routing{
		Screen: screen,
		Params: map[string]string{"tourId": tour.ID.String(), "stopId": stop.ID.String()},
	}
}

// requestBody is the message-log entry for a showing request.
func (n notices) requestBody(stop domain.TourStop) string {
	return fmt.Sprintf("Showing requested for %s on %s for %s.",
		stop.Property.Address, n.when(stop), timeutil.FormatHours(stop.Duration))
}

// request notifies the listing agent of a new or renewed showing request.
func (n notices) request(to uuid.UUID, tour domain.Tour, stop domain.TourStop) domain.Notification {
	body := n.requestBody(stop)
	return domain.Notification{
		UserID:      to,
		PushMessage: "New showing request: " + stop.Property.Address,
		SMSMessage:  body,
		Email: &domain.Email{
			Subject: "Showing request for " + stop.Property.Address,
			Body:    body,
		},
		Routing:   n.routing(screenShowingRequest, tour, stop),
		CreatedAt: n.now(),
	}
}

// selfApprovedBody is the message-log entry for a self-approved showing.
func (n notices) selfApprovedBody(stop domain.TourStop) string {
	return fmt.Sprintf("Showing at %s on %s was approved under the listing's auto-approval settings.",
		stop.Property.Address, n.when(stop))
}

// selfApproved tells the listing agent a showing was approved on their behalf.
func (n notices) selfApproved(to uuid.UUID, tour domain.Tour, stop domain.TourStop) domain.Notification {
	body := n.selfApprovedBody(stop)
	return domain.Notification{
		UserID:      to,
		PushMessage: "Showing approved: " + stop.Property.Address,
		Email:       &domain.Email{Subject: "Showing approved for " + stop.Property.Address, Body: body},
		Routing:     n.routing(screenShowingRequest, tour, stop),
		CreatedAt:   n.now(),
	}
}

// responseBody is the default message-log entry for a listing-agent reply.
func (n notices) responseBody(kind domain.ResponseKind, stop domain.TourStop, suggested *time.Time) string {
	switch kind {
	case domain.ResponseApprove:
		return fmt.Sprintf("Showing at %s on %s is approved.", stop.Property.Address, n.when(stop))
	case domain.ResponseReject:
		return fmt.Sprintf("Showing at %s on %s was declined.", stop.Property.Address, n.when(stop))
	case domain.ResponseSuggest:
		alt := stop
		alt.StartTime = suggested
		return fmt.Sprintf("The listing agent suggested %s for %s.", n.when(alt), stop.Property.Address)
	}
	return "New message about " + stop.Property.Address
}

// response tells the touring agent the listing agent replied.
func (n notices) response(to uuid.UUID, kind domain.ResponseKind, body string, tour domain.Tour, stop domain.TourStop) domain.Notification {
	push := map[domain.ResponseKind]string{
		domain.ResponseApprove: "Showing approved: ",
		domain.ResponseReject:  "Showing declined: ",
		domain.ResponseSuggest: "New time suggested: ",
		domain.ResponseComment: "New message: ",
	}[kind] + stop.Property.Address
	return domain.Notification{
		UserID:      to,
		PushMessage: push,
		SMSMessage:  body,
		Routing:     n.routing(screenTourStop, tour, stop),
		CreatedAt:   n.now(),
	}
}

// acceptedBody is the message-log entry when the touring agent takes the
// suggested time.
func (n notices) acceptedBody(stop domain.TourStop) string {
	return fmt.Sprintf("Suggested time accepted: %s on %s.", stop.Property.Address, n.when(stop))
}

func (n notices) accepted(to uuid.UUID, tour domain.Tour, stop domain.TourStop) domain.Notification {
	return domain.Notification{
		UserID:      to,
		PushMessage: "Suggested time accepted: " + stop.Property.Address,
		SMSMessage:  n.acceptedBody(stop),
		Routing:     n.routing(screenShowingRequest, tour, stop),
		CreatedAt:   n.now(),
	}
}
