package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/pkordes/showing-tours/internal/domain"
	"github.com/pkordes/showing-tours/internal/repo"
	"github.com/pkordes/showing-tours/internal/schedule"
	"github.com/pkordes/showing-tours/internal/tracing"
)

// ErrOptimizerUnavailable is returned by OptimizeRoute when no optimizer is
// configured. The agent can still order stops by hand.
var ErrOptimizerUnavailable = errors.New("route optimizer not configured")

// TourService implements business logic for Tour operations.
type TourService struct {
	tours     repo.TourRepo
	stops     repo.StopRepo
	optimizer Optimizer
	log       *slog.Logger
}

// NewTourService constructs a TourService. optimizer may be nil.
func NewTourService(tours repo.TourRepo, stops repo.StopRepo, optimizer Optimizer, log *slog.Logger) *TourService {
	return &TourService{tours: tours, stops: stops, optimizer: optimizer, log: orDefault(log)}
}

// Create validates and persists a new draft tour.
func (s *TourService) Create(ctx context.Context, tour domain.Tour) (domain.Tour, error) {
	tour.Name = strings.TrimSpace(tour.Name)
	if tour.Name == "" {
		return domain.Tour{}, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if tour.AgentID == uuid.Nil || tour.ClientID == uuid.Nil {
		return domain.Tour{}, fmt.Errorf("%w: agent and client are required", domain.ErrValidation)
	}
	if tour.StartTime != nil && tour.EndTime != nil && tour.EndTime.Before(*tour.StartTime) {
		return domain.Tour{}, fmt.Errorf("%w: end_time must not be before start_time", domain.ErrValidation)
	}
	tour.Status = domain.TourDraft

	result, err := s.tours.Create(ctx, tour)
	if err != nil {
		return domain.Tour{}, fmt.Errorf("service.TourService.Create: %w", err)
	}
	return result, nil
}

// Get returns a single tour by ID.
func (s *TourService) Get(ctx context.Context, id uuid.UUID) (domain.Tour, error) {
	result, err := s.tours.GetByID(ctx, id)
	if err != nil {
		return domain.Tour{}, fmt.Errorf("service.TourService.Get: %w", err)
	}
	return result, nil
}

// List returns one page of the agent's tours and the total count.
func (s *TourService) List(ctx context.Context, agentID uuid.UUID, p domain.PaginationParams) ([]domain.Tour, int64, error) {
	tours, total, err := s.tours.ListByAgent(ctx, agentID, p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.TourService.List: %w", err)
	}
	return tours, total, nil
}

// Update applies patch to an editable tour.
// Returns domain.ErrTourComplete for complete tours.
func (s *TourService) Update(ctx context.Context, patch domain.TourPatch) (domain.Tour, error) {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return domain.Tour{}, fmt.Errorf("%w: name must not be empty", domain.ErrValidation)
		}
		patch.Name = &name
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return domain.Tour{}, fmt.Errorf("%w: unknown tour status %q", domain.ErrValidation, *patch.Status)
	}
	if _, err := editableTour(ctx, s.tours, patch.ID); err != nil {
		return domain.Tour{}, fmt.Errorf("service.TourService.Update: %w", err)
	}

	result, err := s.tours.Update(ctx, patch)
	if err != nil {
		return domain.Tour{}, fmt.Errorf("service.TourService.Update: %w", err)
	}
	return result, nil
}

// RecomputeSpan sets the tour's start and end from its live stops.
func (s *TourService) RecomputeSpan(ctx context.Context, tourID uuid.UUID) (domain.Tour, error) {
	stops, err := s.stops.ListByTourID(ctx, tourID, false)
	if err != nil {
		return domain.Tour{}, fmt.Errorf("service.TourService.RecomputeSpan: %w", err)
	}
	tour, err := syncSpan(ctx, s.tours, stops, tourID)
	if err != nil {
		return domain.Tour{}, fmt.Errorf("service.TourService.RecomputeSpan: %w", err)
	}
	return tour, nil
}

// Copy creates a new draft tour with the source tour's stops. Timings and
// order are kept; approval state starts over. Complete tours may be copied.
// An empty name means the source name with " (copy)" appended.
func (s *TourService) Copy(ctx context.Context, tourID uuid.UUID, name string) (domain.Tour, error) {
	src, err := s.tours.GetByID(ctx, tourID)
	if err != nil {
		return domain.Tour{}, fmt.Errorf("service.TourService.Copy: %w", err)
	}
	srcStops, err := s.stops.ListByTourID(ctx, tourID, false)
	if err != nil {
		return domain.Tour{}, fmt.Errorf("service.TourService.Copy: list stops: %w", err)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = src.Name + " (copy)"
	}
	dst, err := s.tours.Create(ctx, domain.Tour{
		ClientID:                src.ClientID,
		AgentID:                 src.AgentID,
		Name:                    name,
		Status:                  domain.TourDraft,
		CustomStartAddress:      src.CustomStartAddress,
		CustomStart:             src.CustomStart,
		ManuallyOrderedShowings: src.ManuallyOrderedShowings,
	})
	if err != nil {
		return domain.Tour{}, fmt.Errorf("service.TourService.Copy: create: %w", err)
	}

	inputs := make([]domain.NewStop, 0, len(srcStops))
	for _, st := range schedule.SortByOrder(srcStops) {
		inputs = append(inputs, domain.NewStop{
			PropertyOfInterest: st.Property.ID,
			Order:              st.Order,
			StartTime:          st.StartTime,
			Duration:           st.Duration,
		})
	}
	copied, err := s.stops.BatchReplace(ctx, dst.ID, inputs)
	if err != nil {
		return domain.Tour{}, fmt.Errorf("service.TourService.Copy: stops: %w", err)
	}

	dst, err = syncSpan(ctx, s.tours, copied, dst.ID)
	if err != nil {
		return domain.Tour{}, fmt.Errorf("service.TourService.Copy: span: %w", err)
	}
	s.log.InfoContext(ctx, "tour copied", "source_tour_id", tourID, "tour_id", dst.ID, "stops", len(copied))
	return dst, nil
}

// ShouldOptimizeRoute reports whether the tour is eligible for automatic
// route optimization.
func (s *TourService) ShouldOptimizeRoute(ctx context.Context, tourID uuid.UUID) (bool, error) {
	tour, err := s.tours.GetByID(ctx, tourID)
	if err != nil {
		return false, fmt.Errorf("service.TourService.ShouldOptimizeRoute: %w", err)
	}
	stops, err := s.stops.ListByTourID(ctx, tourID, false)
	if err != nil {
		return false, fmt.Errorf("service.TourService.ShouldOptimizeRoute: %w", err)
	}
	return schedule.ShouldOptimizeRoute(tour, stops), nil
}

// OptimizeRoute asks the optimizer for a visiting order and persists it when
// the tour is eligible. It reports whether the order was changed. An
// ineligible tour is returned unchanged. Optimizer failures are returned to
// the caller, who may retry or order the stops by hand.
func (s *TourService) OptimizeRoute(ctx context.Context, tourID uuid.UUID) (stops []domain.TourStop, optimized bool, err error) {
	ctx, span := tracing.Start(ctx, "OptimizeRoute")
	defer func() { span.End(err) }()
	span.Annotate("tour_id", tourID.String())

	tour, err := editableTour(ctx, s.tours, tourID)
	if err != nil {
		return nil, false, fmt.Errorf("service.TourService.OptimizeRoute: %w", err)
	}
	current, err := s.stops.ListByTourID(ctx, tourID, false)
	if err != nil {
		return nil, false, fmt.Errorf("service.TourService.OptimizeRoute: %w", err)
	}
	current = schedule.SortByOrder(current)
	if !schedule.ShouldOptimizeRoute(tour, current) {
		return current, false, nil
	}
	if s.optimizer == nil {
		return nil, false, fmt.Errorf("service.TourService.OptimizeRoute: %w", ErrOptimizerUnavailable)
	}

	points := make([]domain.RoutePoint, 0, len(current))
	for _, st := range current {
		points = append(points, domain.RoutePoint{
			ID:    st.ID,
			Order: st.Order,
			Lat:   st.Property.Location.Lat,
			Lng:   st.Property.Location.Lng,
		})
	}
	ids, err := s.optimizer.Optimize(ctx, points, tour.CustomStart)
	if err != nil {
		s.log.WarnContext(ctx, "route optimization failed", "tour_id", tourID, "error", err)
		return nil, false, fmt.Errorf("service.TourService.OptimizeRoute: %w", err)
	}

	next := schedule.AssignOrder(current, ids)
	if err := persistOrder(ctx, s.stops, current, next); err != nil {
		return nil, false, fmt.Errorf("service.TourService.OptimizeRoute: %w", err)
	}
	routeSet := true
	if _, err := s.tours.Update(ctx, domain.TourPatch{ID: tourID, RouteSet: &routeSet}); err != nil {
		return nil, false, fmt.Errorf("service.TourService.OptimizeRoute: %w", err)
	}
	return next, true, nil
}
