package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/showing-tours/internal/domain"
	"github.com/pkordes/showing-tours/internal/schedule"
	"github.com/pkordes/showing-tours/internal/service"
)

type addStopRequest struct {
	PropertyID uuid.UUID  `json:"property_id" validate:"required"`
	StartTime  *time.Time `json:"start_time"`
	Duration   float64    `json:"duration" validate:"gte=0"`
}

type checkStopsRequest struct {
	StopID    *uuid.UUID `json:"stop_id"`
	StartTime *time.Time `json:"start_time"`
	Duration  float64    `json:"duration" validate:"gte=0"`
}

type editTimingRequest struct {
	StartTime *time.Time `json:"start_time"`
	Duration  *float64   `json:"duration" validate:"omitempty,gt=0"`
	Confirm   bool       `json:"confirm"`
}

type reorderRequest struct {
	StopIDs []uuid.UUID `json:"stop_ids" validate:"required,min=1"`
}

// StopList is the body of endpoints that return a tour's stops.
type StopList struct {
	Data []domain.TourStop `json:"data"`
}

// TimingResponse reports an edit and the check it was made against. When
// Committed is false nothing was written and the caller must confirm.
type TimingResponse struct {
	Stop      domain.TourStop `json:"stop"`
	Check     schedule.Result `json:"check"`
	Committed bool            `json:"committed"`
}

// ReorderResponse is the re-sequenced stop list plus its integrity check.
type ReorderResponse struct {
	Stops []domain.TourStop `json:"stops"`
	Check schedule.Result   `json:"check"`
}

// ListStops handles GET /tours/{tourId}/stops. ?include_deleted=true adds
// removed stops at the end.
func (s *Server) ListStops(w http.ResponseWriter, r *http.Request) {
	tourID, err := pathUUID(r, "tourId")
	if err != nil {
		requestError(w, err.Error())
		return
	}
	includeDeleted, err := queryBool(r, "include_deleted")
	if err != nil {
		requestError(w, err.Error())
		return
	}

	stops, err := s.stops.List(r.Context(), tourID, includeDeleted)
	if err != nil {
		writeError(w, r, err, "tour not found")
		return
	}
	writeJSON(w, http.StatusOK, StopList{Data: nonNilStops(stops)})
}

// AddStop handles POST /tours/{tourId}/stops. The stop is appended at the end
// of the tour.
func (s *Server) AddStop(w http.ResponseWriter, r *http.Request) {
	tourID, err := pathUUID(r, "tourId")
	if err != nil {
		requestError(w, err.Error())
		return
	}
	var body addStopRequest
	if err := s.decode(r, &body); err != nil {
		requestError(w, err.Error())
		return
	}

	created, err := s.stops.Add(r.Context(), domain.NewStop{
		TourID:             tourID,
		PropertyOfInterest: body.PropertyID,
		StartTime:          body.StartTime,
		Duration:           body.Duration,
	})
	if err != nil {
		writeError(w, r, err, "tour or property not found")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// CheckStops handles POST /tours/{tourId}/stops/check. With stop_id set the
// check runs as if that stop had the given timing; nothing is written.
func (s *Server) CheckStops(w http.ResponseWriter, r *http.Request) {
	tourID, err := pathUUID(r, "tourId")
	if err != nil {
		requestError(w, err.Error())
		return
	}
	var body checkStopsRequest
	if r.ContentLength > 0 {
		if err := s.decode(r, &body); err != nil {
			requestError(w, err.Error())
			return
		}
	}

	var h *schedule.Hypothetical
	if body.StopID != nil {
		h = &schedule.Hypothetical{StopID: *body.StopID, StartTime: body.StartTime, Duration: body.Duration}
	}
	res, err := s.stops.Check(r.Context(), tourID, h)
	if err != nil {
		writeError(w, r, err, "tour not found")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// EditStopTiming handles PATCH /tours/{tourId}/stops/{stopId}. An edit that
// would leave the tour out of order or overlapping is answered 409 with the
// check, unless confirm is set.
func (s *Server) EditStopTiming(w http.ResponseWriter, r *http.Request) {
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
	var body editTimingRequest
	if err := s.decode(r, &body); err != nil {
		requestError(w, err.Error())
		return
	}

	res, err := s.stops.EditTiming(r.Context(), service.TimingEdit{
		TourID:    tourID,
		StopID:    stopID,
		StartTime: body.StartTime,
		Duration:  body.Duration,
		Confirm:   body.Confirm,
	})
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

// RemoveStop handles DELETE /tours/{tourId}/stops/{stopId}.
func (s *Server) RemoveStop(w http.ResponseWriter, r *http.Request) {
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
	if err := s.stops.Remove(r.Context(), tourID, stopID); err != nil {
		writeError(w, r, err, "stop not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReorderStops handles POST /tours/{tourId}/stops/reorder. The tour becomes
// manually ordered.
func (s *Server) ReorderStops(w http.ResponseWriter, r *http.Request) {
	tourID, err := pathUUID(r, "tourId")
	if err != nil {
		requestError(w, err.Error())
		return
	}
	var body reorderRequest
	if err := s.decode(r, &body); err != nil {
		requestError(w, err.Error())
		return
	}

	res, err := s.stops.Reorder(r.Context(), tourID, body.StopIDs)
	if err != nil {
		writeError(w, r, err, "tour not found")
		return
	}
	writeJSON(w, http.StatusOK, ReorderResponse{Stops: nonNilStops(res.Stops), Check: res.Check})
}

// ReorderChronologically handles POST /tours/{tourId}/stops/reorder-chronologically.
func (s *Server) ReorderChronologically(w http.ResponseWriter, r *http.Request) {
	tourID, err := pathUUID(r, "tourId")
	if err != nil {
		requestError(w, err.Error())
		return
	}
	res, err := s.stops.ReorderChronologically(r.Context(), tourID)
	if err != nil {
		writeError(w, r, err, "tour not found")
		return
	}
	writeJSON(w, http.StatusOK, ReorderResponse{Stops: nonNilStops(res.Stops), Check: res.Check})
}

// RefreshDriveTimes handles POST /tours/{tourId}/drive-times.
func (s *Server) RefreshDriveTimes(w http.ResponseWriter, r *http.Request) {
	tourID, err := pathUUID(r, "tourId")
	if err != nil {
		requestError(w, err.Error())
		return
	}
	stops, err := s.stops.RefreshDriveTimes(r.Context(), tourID)
	if err != nil {
		writeError(w, r, err, "tour not found")
		return
	}
	writeJSON(w, http.StatusOK, StopList{Data: nonNilStops(stops)})
}
