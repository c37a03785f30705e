package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/showing-tours/internal/domain"
)

type createTourRequest struct {
	Name               string             `json:"name" validate:"required"`
	ClientID           uuid.UUID          `json:"client_id" validate:"required"`
	StartTime          *time.Time         `json:"start_time"`
	EndTime            *time.Time         `json:"end_time"`
	CustomStartAddress string             `json:"custom_start_address"`
	CustomStart        *domain.Coordinate `json:"custom_start"`
}

type updateTourRequest struct {
	Name               *string            `json:"name" validate:"omitempty,min=1"`
	Status             *string            `json:"status" validate:"omitempty,oneof=draft in_progress complete"`
	CustomStartAddress *string            `json:"custom_start_address"`
	CustomStart        *domain.Coordinate `json:"custom_start"`
	CurrentTourStopID  *uuid.UUID         `json:"current_tour_stop_id"`
}

type copyTourRequest struct {
	Name string `json:"name"`
}

// Pagination describes one page of a list response.
type Pagination struct {
	Page    int   `json:"page"`
	Limit   int   `json:"limit"`
	Total   int64 `json:"total"`
	HasMore bool  `json:"has_more"`
}

// TourList is the body of GET /tours.
type TourList struct {
	Data       []domain.Tour `json:"data"`
	Pagination Pagination    `json:"pagination"`
}

// OptimizeResponse is the body of POST /tours/{tourId}/optimize.
type OptimizeResponse struct {
	Optimized bool              `json:"optimized"`
	Stops     []domain.TourStop `json:"stops"`
}

// CreateTour handles POST /tours. The acting user becomes the tour's agent.
func (s *Server) CreateTour(w http.ResponseWriter, r *http.Request) {
	agentID, err := actingUser(r)
	if err != nil {
		requestError(w, err.Error())
		return
	}
	var body createTourRequest
	if err := s.decode(r, &body); err != nil {
		requestError(w, err.Error())
		return
	}

	created, err := s.tours.Create(r.Context(), domain.Tour{
		Name:               body.Name,
		AgentID:            agentID,
		ClientID:           body.ClientID,
		StartTime:          body.StartTime,
		EndTime:            body.EndTime,
		CustomStartAddress: body.CustomStartAddress,
		CustomStart:        body.CustomStart,
	})
	if err != nil {
		writeError(w, r, err, "tour not found")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// ListTours handles GET /tours for the acting agent.
// Supports ?page= and ?limit= query parameters (defaults: page=1, limit=20, max=100).
func (s *Server) ListTours(w http.ResponseWriter, r *http.Request) {
	agentID, err := actingUser(r)
	if err != nil {
		requestError(w, err.Error())
		return
	}
	params, err := pagination(r)
	if err != nil {
		requestError(w, err.Error())
		return
	}

	tours, total, err := s.tours.List(r.Context(), agentID, params)
	if err != nil {
		writeError(w, r, err, "tour not found")
		return
	}
	if tours == nil {
		tours = []domain.Tour{}
	}
	writeJSON(w, http.StatusOK, TourList{
		Data:       tours,
		Pagination: Pagination{
			Page:    params.Page,
			Limit:   params.Limit,
			Total:   total,
			HasMore: params.HasMore(total),
		},
	})
}

// GetTour handles GET /tours/{tourId}.
func (s *Server) GetTour(w http.ResponseWriter, r *http.Request) {
	tourID, err := pathUUID(r, "tourId")
	if err != nil {
		requestError(w, err.Error())
		return
	}
	tour, err := s.tours.Get(r.Context(), tourID)
	if err != nil {
		writeError(w, r, err, "tour not found")
		return
	}
	writeJSON(w, http.StatusOK, tour)
}

// UpdateTour handles PATCH /tours/{tourId}. Only fields present in the body
// change.
func (s *Server) UpdateTour(w http.ResponseWriter, r *http.Request) {
	tourID, err := pathUUID(r, "tourId")
	if err != nil {
		requestError(w, err.Error())
		return
	}
	var body updateTourRequest
	if err := s.decode(r, &body); err != nil {
		requestError(w, err.Error())
		return
	}

	patch := domain.TourPatch{
		ID:                 tourID,
		Name:               body.Name,
		CustomStartAddress: body.CustomStartAddress,
		CustomStart:        body.CustomStart,
		CurrentTourStopID:  body.CurrentTourStopID,
	}
	if body.Status != nil {
		st := domain.TourStatus(*body.Status)
		patch.Status = &st
	}

	updated, err := s.tours.Update(r.Context(), patch)
	if err != nil {
		writeError(w, r, err, "tour not found")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// CopyTour handles POST /tours/{tourId}/copy. The body is optional.
func (s *Server) CopyTour(w http.ResponseWriter, r *http.Request) {
	tourID, err := pathUUID(r, "tourId")
	if err != nil {
		requestError(w, err.Error())
		return
	}
	var body copyTourRequest
	if r.ContentLength > 0 {
		if err := s.decode(r, &body); err != nil {
			requestError(w, err.Error())
			return
		}
	}

	copied, err := s.tours.Copy(r.Context(), tourID, body.Name)
	if err != nil {
		writeError(w, r, err, "tour not found")
		return
	}
	writeJSON(w, http.StatusCreated, copied)
}

// OptimizeRoute handles POST /tours/{tourId}/optimize. A tour that is not
// eligible answers 200 with optimized=false and its stops unchanged.
func (s *Server) OptimizeRoute(w http.ResponseWriter, r *http.Request) {
	tourID, err := pathUUID(r, "tourId")
	if err != nil {
		requestError(w, err.Error())
		return
	}
	stops, optimized, err := s.tours.OptimizeRoute(r.Context(), tourID)
	if err != nil {
		writeError(w, r, err, "tour not found")
		return
	}
	writeJSON(w, http.StatusOK, OptimizeResponse{Optimized: optimized, Stops: nonNilStops(stops)})
}

func nonNilStops(stops []domain.TourStop) []domain.TourStop {
	if stops == nil {
		return []domain.TourStop{}
	}
	return stops
}
