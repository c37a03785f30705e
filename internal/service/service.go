// Package service contains the tour scheduling and showing-request workflow.
// Services validate inputs, enforce business rules, and orchestrate repo and
// gateway calls. No SQL lives here; services depend on repo interfaces.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pkordes/showing-tours/internal/approval"
	"github.com/pkordes/showing-tours/internal/domain"
	"github.com/pkordes/showing-tours/internal/repo"
	"github.com/pkordes/showing-tours/internal/schedule"
)

// Notifier publishes a notification for asynchronous delivery.
// events.Queue satisfies this interface.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// SelfApprover decides whether a stop may be approved by the touring agent.
// *approval.Evaluator satisfies this interface.
type SelfApprover interface {
	CanSelfApprove(ctx context.Context, stop domain.TourStop) (approval.Decision, error)
}

// Optimizer returns stop IDs in visiting order.
// *routing.Client satisfies this interface.
type Optimizer interface {
	Optimize(ctx context.Context, points []domain.RoutePoint, start *domain.Coordinate) ([]uuid.UUID, error)
}

// DriveTimer annotates stops with travel estimates.
// *drivetime.Annotator satisfies this interface.
type DriveTimer interface {
	AnnotateWithOverlapAwareness(ctx context.Context, stops []domain.TourStop, origin string) []domain.TourStop
}

func orDefault(log *slog.Logger) *slog.Logger {
	if log == nil {
		return slog.Default()
	}
	return log
}

// editableTour loads a tour and refuses complete ones.
func editableTour(ctx context.Context, tours repo.TourRepo, id uuid.UUID) (domain.Tour, error) {
	tour, err := tours.GetByID(ctx, id)
	if err != nil {
		return domain.Tour{}, err
	}
	if !tour.Editable() {
		return domain.Tour{}, domain.ErrTourComplete
	}
	return tour, nil
}

// findStop returns the stop with the given ID from a listed tour.
func findStop(stops []domain.TourStop, id uuid.UUID) (domain.TourStop, error) {
	for _, s := range stops {
		if s.ID == id {
			return s, nil
		}
	}
	return domain.TourStop{}, domain.ErrNotFound
}

// persistOrder writes back the stops whose order differs between before and
// after. Stops are written one at a time; stop_order carries no unique index
// so intermediate states are legal.
func persistOrder(ctx context.Context, stops repo.StopRepo, before, after []domain.TourStop) error {
	for _, s := range schedule.ChangedOrders(before, after) {
		order := s.Order
		if _, err := stops.Update(ctx, domain.StopPatch{ID: s.ID, Order: &order}); err != nil {
			return fmt.Errorf("stop %s: %w", s.ID, err)
		}
	}
	return nil
}

// reorderIfAuto re-sequences the tour's live stops by start time unless the
// agent has chosen a manual order. It returns the stops in their final order.
func reorderIfAuto(ctx context.Context, stops repo.StopRepo, tour domain.Tour) ([]domain.TourStop, error) {
	current, err := stops.ListByTourID(ctx, tour.ID, false)
	if err != nil {
		return nil, err
	}
	if tour.ManuallyOrderedShowings {
		return schedule.SortByOrder(current), nil
	}
	next := schedule.ReorderChronologically(current)
	if err := persistOrder(ctx, stops, current, next); err != nil {
		return nil, err
	}
	return next, nil
}

// syncSpan sets the tour's start and end to the span of its live stops, or
// clears both when no stop is scheduled.
func syncSpan(ctx context.Context, tours repo.TourRepo, stops []domain.TourStop, tourID uuid.UUID) (domain.Tour, error) {
	start, end := schedule.Span(stops)
	patch := domain.TourPatch{ID: tourID}
	if start == nil {
		patch.ClearSpan = true
	} else {
		patch.StartTime, patch.EndTime = start, end
	}
	return tours.Update(ctx, patch)
}
