package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/showing-tours/internal/domain"
	"github.com/pkordes/showing-tours/internal/service"
)

type respondRequest struct {
	Kind          string     `json:"kind" validate:"required,oneof=approve reject comment suggest"`
	Message       string     `json:"message"`
	SuggestedTime *time.Time `json:"suggested_time" validate:"required_if=Kind suggest"`
}

type acceptRequest struct {
	Confirm bool `json:"confirm"`
}

// Outcome is one stop's send result. Error is set when WasSuccessful is
// false.
type Outcome struct {
	StopID        uuid.UUID `json:"stop_id"`
	WasSuccessful bool      `json:"was_successful"`
	Error         string    `json:"error,omitempty"`
}

// BatchResponse is the body of POST /tours/{tourId}/showing-requests.
type BatchResponse struct {
	Outcomes []Outcome           `json:"outcomes"`
	Summary  domain.BatchSummary `json:"summary"`
}

// MessageList is the body of GET .../messages.
type MessageList struct {
	Data []domain.Message `json:"data"`
}

func toOutcome(o domain.ShowingRequestOutcome) Outcome {
	out := Outcome{StopID: o.StopID, WasSuccessful: o.WasSuccessful}
	if o.Err != nil {
		out.Error = o.Err.Error()
	}
	return out
}

// tourStopUser binds the tour and stop path parameters and the acting user.
func tourStopUser(r *http.Request) (tourID, stopID, userID uuid.UUID, err error) {
	if tourID, err = pathUUID(r, "tourId"); err != nil {
		return
	}
	if stopID, err = pathUUID(r, "stopId"); err != nil {
		return
	}
	userID, err = actingUser(r)
	return
}

// SendShowingRequest handles POST /tours/{tourId}/stops/{stopId}/showing-request.
// A failed delivery is reported in the outcome, not as an HTTP error.
func (s *Server) SendShowingRequest(w http.ResponseWriter, r *http.Request) {
	tourID, stopID, userID, err := tourStopUser(r)
	if err != nil {
		requestError(w, err.Error())
		return
	}
	outcome, err := s.showings.SendShowingRequest(r.Context(), tourID, stopID, userID)
	if err != nil {
		writeError(w, r, err, "stop not found")
		return
	}
	writeJSON(w, http.StatusOK, toOutcome(outcome))
}

// SendAllShowingRequests handles POST /tours/{tourId}/showing-requests.
// The response carries one outcome per stop in tour order.
func (s *Server) SendAllShowingRequests(w http.ResponseWriter, r *http.Request) {
	tourID, err := pathUUID(r, "tourId")
	if err != nil {
		requestError(w, err.Error())
		return
	}
	userID, err := actingUser(r)
	if err != nil {
		requestError(w, err.Error())
		return
	}

	res, err := s.showings.SendAllShowingRequests(r.Context(), tourID, userID)
	if err != nil {
		writeError(w, r, err, "tour not found")
		return
	}
	outcomes := make([]Outcome, len(res.Outcomes))
	for i, o := range res.Outcomes {
		outcomes[i] = toOutcome(o)
	}
	writeJSON(w, http.StatusOK, BatchResponse{Outcomes: outcomes, Summary: res.Summary})
}

// CanSelfApprove handles GET /tours/{tourId}/stops/{stopId}/self-approval.
func (s *Server) CanSelfApprove(w http.ResponseWriter, r *http.Request) {
	tourID, err := pathUUID(r, "tourId")
	if err != nil {
		requestError(w, err.Error())
		return
	}
	stopID, err := pathUUID(r, "stopId")
	if err != nil {
		requestError(w, err.Error())
		return
	}
	d, err := s.showings.CanSelfApprove(r.Context(), tourID, stopID)
	if err != nil {
		writeError(w, r, err, "stop not found")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// SelfApprove handles POST /tours/{tourId}/stops/{stopId}/self-approval.
func (s *Server) SelfApprove(w http.ResponseWriter, r *http.Request) {
	tourID, stopID, userID, err := tourStopUser(r)
	if err != nil {
		requestError(w, err.Error())
		return
	}
	stop, err := s.showings.SelfApprove(r.Context(), tourID, stopID, userID)
	if err != nil {
		writeError(w, r, err, "stop not found")
		return
	}
	writeJSON(w, http.StatusOK, stop)
}

// RespondToRequest handles POST /tours/{tourId}/stops/{stopId}/response. The
// acting user is the listing agent replying.
func (s *Server) RespondToRequest(w http.ResponseWriter, r *http.Request) {
	tourID, stopID, userID, err := tourStopUser(r)
	if err != nil {
		requestError(w, err.Error())
		return
	}
	var body respondRequest
	if err := s.decode(r, &body); err != nil {
		requestError(w, err.Error())
		return
	}

	stop, err := s.showings.RespondToRequest(r.Context(), service.Response{
		TourID:        tourID,
		StopID:        stopID,
		FromUserID:    userID,
		Kind:          domain.ResponseKind(body.Kind),
		Message:       body.Message,
		SuggestedTime: body.SuggestedTime,
	})
	if err != nil {
		writeError(w, r, err, "stop not found")
		return
	}
	writeJSON(w, http.StatusOK, stop)
}

// AcceptSuggestedTime handles POST /tours/{tourId}/stops/{stopId}/suggested-time/accept.
// Like a timing edit, a conflicting move is answered 409 unless confirmed.
func (s *Server) AcceptSuggestedTime(w http.ResponseWriter, r *http.Request) {
	tourID, stopID, userID, err := tourStopUser(r)
	if err != nil {
		requestError(w, err.Error())
		return
	}
	var body acceptRequest
	if r.ContentLength > 0 {
		if err := s.decode(r, &body); err != nil {
			requestError(w, err.Error())
			return
		}
	}

	res, err := s.showings.AcceptSuggestedTime(r.Context(), tourID, stopID, userID, body.Confirm)
	if err != nil {
		writeError(w, r, err, "stop not found")
		return
	}
	status := http.StatusOK
	if !res.Committed {
		status = http.StatusConflict
	}
	writeJSON(w, status, TimingResponse{Stop: res.Stop, Check: res.Check, Committed: res.Committed})
}

// ListMessages handles GET /tours/{tourId}/stops/{stopId}/messages.
func (s *Server) ListMessages(w http.ResponseWriter, r *http.Request) {
	tourID, err := pathUUID(r, "tourId")
	if err != nil {
		requestError(w, err.Error())
		return
	}
	stopID, err := pathUUID(r, "stopId")
	if err != nil {
		requestError(w, err.Error())
		return
	}
	msgs, err := s.showings.Messages(r.Context(), tourID, stopID)
	if err != nil {
		writeError(w, r, err, "stop not found")
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	writeJSON(w, http.StatusOK, MessageList{Data: msgs})
}
