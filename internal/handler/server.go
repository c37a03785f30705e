// Package handler implements the HTTP API over the tour and showing-request
// workflow. All handlers are methods on Server; they are split into
// domain-specific files (health.go, tour.go, stop.go, showing.go) but share
// the same dependencies.
package handler

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pkordes/showing-tours/internal/approval"
	"github.com/pkordes/showing-tours/internal/domain"
	"github.com/pkordes/showing-tours/internal/schedule"
	"github.com/pkordes/showing-tours/internal/service"
)

// TourServicer defines the tour operations the handlers depend on.
// Defined here, in the consumer package, so tests can inject a mock without
// touching the database or the service layer.
type TourServicer interface {
	Create(ctx context.Context, tour domain.Tour) (domain.Tour, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Tour, error)
	List(ctx context.Context, agentID uuid.UUID, p domain.PaginationParams) ([]domain.Tour, int64, error)
	Update(ctx context.Context, patch domain.TourPatch) (domain.Tour, error)
	Copy(ctx context.Context, tourID uuid.UUID, name string) (domain.Tour, error)
	OptimizeRoute(ctx context.Context, tourID uuid.UUID) ([]domain.TourStop, bool, error)
}

// StopServicer defines the stop editing operations.
type StopServicer interface {
	List(ctx context.Context, tourID uuid.UUID, includeDeleted bool) ([]domain.TourStop, error)
	Add(ctx context.Context, in domain.NewStop) (domain.TourStop, error)
	Check(ctx context.Context, tourID uuid.UUID, h *schedule.Hypothetical) (schedule.Result, error)
	EditTiming(ctx context.Context, edit service.TimingEdit) (service.EditResult, error)
	Remove(ctx context.Context, tourID, stopID uuid.UUID) error
	Reorder(ctx context.Context, tourID uuid.UUID, ids []uuid.UUID) (service.ReorderResult, error)
	ReorderChronologically(ctx context.Context, tourID uuid.UUID) (service.ReorderResult, error)
	RefreshDriveTimes(ctx context.Context, tourID uuid.UUID) ([]domain.TourStop, error)
}

// ShowingServicer defines the showing-request operations.
type ShowingServicer interface {
	SendShowingRequest(ctx context.Context, tourID, stopID, userID uuid.UUID) (domain.ShowingRequestOutcome, error)
	SendAllShowingRequests(ctx context.Context, tourID, userID uuid.UUID) (domain.BatchResult, error)
	CanSelfApprove(ctx context.Context, tourID, stopID uuid.UUID) (approval.Decision, error)
	SelfApprove(ctx context.Context, tourID, stopID, userID uuid.UUID) (domain.TourStop, error)
	RespondToRequest(ctx context.Context, r service.Response) (domain.TourStop, error)
	AcceptSuggestedTime(ctx context.Context, tourID, stopID, userID uuid.UUID, confirm bool) (service.AcceptResult, error)
	Messages(ctx context.Context, tourID, stopID uuid.UUID) ([]domain.Message, error)
}

// Server holds the handler dependencies. Any servicer may be nil when only
// part of the API is mounted (health checks in tests, for instance); its
// routes are then not registered.
type Server struct {
	tours    TourServicer
	stops    StopServicer
	showings ShowingServicer
	validate *validator.Validate
}

// NewServer constructs the Server with all its dependencies.
func NewServer(tours TourServicer, stops StopServicer, showings ShowingServicer) *Server {
	return &Server{
		tours:    tours,
		stops:    stops,
		showings: showings,
		validate: newValidator(),
	}
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(nil, nil, nil)
}

// Routes returns a chi router with every endpoint registered.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	r.Route("/tours", func(r chi.Router) {
		if s.tours != nil {
			r.Get("/", s.ListTours)
			r.Post("/", s.CreateTour)
			r.Get("/{tourId}", s.GetTour)
			r.Patch("/{tourId}", s.UpdateTour)
			r.Post("/{tourId}/copy", s.CopyTour)
			r.Post("/{tourId}/optimize", s.OptimizeRoute)
		}
		if s.stops != nil {
			r.Get("/{tourId}/stops", s.ListStops)
			r.Post("/{tourId}/stops", s.AddStop)
			r.Post("/{tourId}/stops/check", s.CheckStops)
			r.Post("/{tourId}/stops/reorder", s.ReorderStops)
			r.Post("/{tourId}/stops/reorder-chronologically", s.ReorderChronologically)
			r.Patch("/{tourId}/stops/{stopId}", s.EditStopTiming)
			r.Delete("/{tourId}/stops/{stopId}", s.RemoveStop)
			r.Post("/{tourId}/drive-times", s.RefreshDriveTimes)
		}
		if s.showings != nil {
			r.Post("/{tourId}/showing-requests", s.SendAllShowingRequests)
			r.Post("/{tourId}/stops/{stopId}/showing-request", s.SendShowingRequest)
			r.Get("/{tourId}/stops/{stopId}/self-approval", s.CanSelfApprove)
			r.Post("/{tourId}/stops/{stopId}/self-approval", s.SelfApprove)
			r.Post("/{tourId}/stops/{stopId}/response", s.RespondToRequest)
			r.Post("/{tourId}/stops/{stopId}/suggested-time/accept", s.AcceptSuggestedTime)
			r.Get("/{tourId}/stops/{stopId}/messages", s.ListMessages)
		}
	})
	return r
}
