package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/showing-tours/internal/domain"
	"github.com/pkordes/showing-tours/internal/repo"
	"github.com/pkordes/showing-tours/internal/schedule"
	"github.com/pkordes/showing-tours/internal/timeutil"
	"github.com/pkordes/showing-tours/internal/tracing"
)

// StopService implements the stop editing workflow. It holds the tour repo
// because every edit is scoped to an editable tour and keeps the tour's span
// in step with its stops.
type StopService struct {
	tours  repo.TourRepo
	stops  repo.StopRepo
	drives DriveTimer
	log    *slog.Logger
}

// NewStopService constructs a StopService.
func NewStopService(tours repo.TourRepo, stops repo.StopRepo, drives DriveTimer, log *slog.Logger) *StopService {
	return &StopService{tours: tours, stops: stops, drives: drives, log: orDefault(log)}
}

// TimingEdit is a change to one stop's start time and/or duration.
type TimingEdit struct {
	TourID    uuid.UUID
	StopID    uuid.UUID
	StartTime *time.Time
	Duration  *float64
	// Confirm commits the edit even when it leaves a conflict.
	Confirm bool
}

// EditResult reports what EditTiming found and did.
type EditResult struct {
	Stop      domain.TourStop `json:"stop"`
	Check     schedule.Result `json:"check"`
	Committed bool            `json:"committed"`
}

// ReorderResult carries the stops in their new order and the check of that
// order against their times.
type ReorderResult struct {
	Stops []domain.TourStop `json:"stops"`
	Check schedule.Result   `json:"check"`
}

// List returns the tour's stops in order. Removed stops are included, after
// the live ones, when includeDeleted is set.
func (s *StopService) List(ctx context.Context, tourID uuid.UUID, includeDeleted bool) ([]domain.TourStop, error) {
	if _, err := s.tours.GetByID(ctx, tourID); err != nil {
		return nil, fmt.Errorf("service.StopService.List: %w", err)
	}
	stops, err := s.stops.ListByTourID(ctx, tourID, includeDeleted)
	if err != nil {
		return nil, fmt.Errorf("service.StopService.List: %w", err)
	}
	if stops == nil {
		return []domain.TourStop{}, nil
	}
	return stops, nil
}

// Add appends a stop at the end of the tour. A start time requires a valid
// duration; durations are quantized to quarter hours.
func (s *StopService) Add(ctx context.Context, in domain.NewStop) (domain.TourStop, error) {
	if in.PropertyOfInterest == uuid.Nil {
		return domain.TourStop{}, fmt.Errorf("%w: property is required", domain.ErrValidation)
	}
	if in.Duration != 0 || in.StartTime != nil {
		in.Duration = timeutil.QuantizeHours(in.Duration)
		if !timeutil.ValidDuration(in.Duration) {
			return domain.TourStop{}, fmt.Errorf("%w: duration must be between 0.25 and %v hours", domain.ErrValidation, timeutil.MaxStopHours)
		}
	}
	tour, err := editableTour(ctx, s.tours, in.TourID)
	if err != nil {
		return domain.TourStop{}, fmt.Errorf("service.StopService.Add: %w", err)
	}
	current, err := s.stops.ListByTourID(ctx, tour.ID, false)
	if err != nil {
		return domain.TourStop{}, fmt.Errorf("service.StopService.Add: %w", err)
	}
	in.Order = len(current) + 1

	stop, err := s.stops.Create(ctx, in)
	if err != nil {
		return domain.TourStop{}, fmt.Errorf("service.StopService.Add: %w", err)
	}
	if stop.StartTime != nil {
		if _, err := syncSpan(ctx, s.tours, append(current, stop), tour.ID); err != nil {
			return domain.TourStop{}, fmt.Errorf("service.StopService.Add: span: %w", err)
		}
	}
	return stop, nil
}

// Check runs the ordering engine over the tour's live stops, optionally with
// one stop's timing replaced by h.
func (s *StopService) Check(ctx context.Context, tourID uuid.UUID, h *schedule.Hypothetical) (schedule.Result, error) {
	stops, err := s.List(ctx, tourID, false)
	if err != nil {
		return schedule.Result{}, fmt.Errorf("service.StopService.Check: %w", err)
	}
	if h != nil {
		if _, err := findStop(stops, h.StopID); err != nil {
			return schedule.Result{}, fmt.Errorf("service.StopService.Check: %w", err)
		}
	}
	return schedule.CheckStopTimes(stops, h), nil
}

// EditTiming validates a timing change against the rest of the tour and
// commits it unless it leaves an overlap (or, on a manually ordered tour, an
// out-of-order sequence) that the caller has not confirmed.
//
// Moving a stop or lengthening it past its approved duration requires a fresh
// showing request. Unless the tour is manually ordered, stops are then
// re-sequenced by start time. The tour's span follows its stops.
func (s *StopService) EditTiming(ctx context.Context, edit TimingEdit) (EditResult, error) {
	if edit.StartTime == nil && edit.Duration == nil {
		return EditResult{}, fmt.Errorf("%w: start_time or duration is required", domain.ErrValidation)
	}
	tour, err := editableTour(ctx, s.tours, edit.TourID)
	if err != nil {
		return EditResult{}, fmt.Errorf("service.StopService.EditTiming: %w", err)
	}
	current, err := s.stops.ListByTourID(ctx, tour.ID, false)
	if err != nil {
		return EditResult{}, fmt.Errorf("service.StopService.EditTiming: %w", err)
	}
	stop, err := findStop(current, edit.StopID)
	if err != nil {
		return EditResult{}, fmt.Errorf("service.StopService.EditTiming: %w", err)
	}

	start, dur := stop.StartTime, stop.Duration
	if edit.StartTime != nil {
		start = edit.StartTime
	}
	if edit.Duration != nil {
		dur = timeutil.QuantizeHours(*edit.Duration)
	}
	if !timeutil.ValidDuration(dur) {
		return EditResult{}, fmt.Errorf("%w: duration must be between 0.25 and %v hours", domain.ErrValidation, timeutil.MaxStopHours)
	}

	check := schedule.CheckStopTimes(current, &schedule.Hypothetical{StopID: stop.ID, StartTime: start, Duration: dur})
	if needsConfirmation(tour, check) && !edit.Confirm {
		return EditResult{Stop: stop, Check: check}, nil
	}

	patch := domain.StopPatch{ID: stop.ID, StartTime: start, Duration: &dur}
	if requiresNewRequest(stop, start, dur) {
		required := true
		patch.ShowingRequestRequired = &required
	}
	if _, err := s.stops.Update(ctx, patch); err != nil {
		return EditResult{}, fmt.Errorf("service.StopService.EditTiming: %w", err)
	}

	ordered, err := reorderIfAuto(ctx, s.stops, tour)
	if err != nil {
		return EditResult{}, fmt.Errorf("service.StopService.EditTiming: reorder: %w", err)
	}
	if _, err := syncSpan(ctx, s.tours, ordered, tour.ID); err != nil {
		return EditResult{}, fmt.Errorf("service.StopService.EditTiming: span: %w", err)
	}

	updated, err := findStop(ordered, stop.ID)
	if err != nil {
		return EditResult{}, fmt.Errorf("service.StopService.EditTiming: %w", err)
	}
	return EditResult{Stop: updated, Check: check, Committed: true}, nil
}

// Remove soft-deletes a stop and closes the gap in the order.
func (s *StopService) Remove(ctx context.Context, tourID, stopID uuid.UUID) error {
	if _, err := editableTour(ctx, s.tours, tourID); err != nil {
		return fmt.Errorf("service.StopService.Remove: %w", err)
	}
	if err := s.stops.Delete(ctx, tourID, stopID); err != nil {
		return fmt.Errorf("service.StopService.Remove: %w", err)
	}

	remaining, err := s.stops.ListByTourID(ctx, tourID, false)
	if err != nil {
		return fmt.Errorf("service.StopService.Remove: %w", err)
	}
	compacted := schedule.Compact(remaining)
	if err := persistOrder(ctx, s.stops, remaining, compacted); err != nil {
		return fmt.Errorf("service.StopService.Remove: %w", err)
	}
	if _, err := syncSpan(ctx, s.tours, compacted, tourID); err != nil {
		return fmt.Errorf("service.StopService.Remove: span: %w", err)
	}
	return nil
}

// Reorder applies a manual order. ids lists live stops in the wanted order;
// stops left out keep their relative order after the listed ones. The tour
// is flagged as manually ordered so later edits do not re-sequence it.
func (s *StopService) Reorder(ctx context.Context, tourID uuid.UUID, ids []uuid.UUID) (ReorderResult, error) {
	if _, err := editableTour(ctx, s.tours, tourID); err != nil {
		return ReorderResult{}, fmt.Errorf("service.StopService.Reorder: %w", err)
	}
	current, err := s.stops.ListByTourID(ctx, tourID, false)
	if err != nil {
		return ReorderResult{}, fmt.Errorf("service.StopService.Reorder: %w", err)
	}
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return ReorderResult{}, fmt.Errorf("%w: stop %s listed twice", domain.ErrValidation, id)
		}
		seen[id] = true
		if _, err := findStop(current, id); err != nil {
			return ReorderResult{}, fmt.Errorf("%w: stop %s is not on this tour", domain.ErrValidation, id)
		}
	}

	next := schedule.AssignOrder(current, ids)
	if err := persistOrder(ctx, s.stops, current, next); err != nil {
		return ReorderResult{}, fmt.Errorf("service.StopService.Reorder: %w", err)
	}
	manual := true
	if _, err := s.tours.Update(ctx, domain.TourPatch{ID: tourID, ManuallyOrderedShowings: &manual}); err != nil {
		return ReorderResult{}, fmt.Errorf("service.StopService.Reorder: %w", err)
	}
	return ReorderResult{Stops: next, Check: schedule.CheckStopTimes(next, nil)}, nil
}

// ReorderChronologically re-sequences the stops by start time and hands
// ordering back to the system.
func (s *StopService) ReorderChronologically(ctx context.Context, tourID uuid.UUID) (ReorderResult, error) {
	if _, err := editableTour(ctx, s.tours, tourID); err != nil {
		return ReorderResult{}, fmt.Errorf("service.StopService.ReorderChronologically: %w", err)
	}
	current, err := s.stops.ListByTourID(ctx, tourID, false)
	if err != nil {
		return ReorderResult{}, fmt.Errorf("service.StopService.ReorderChronologically: %w", err)
	}

	next := schedule.ReorderChronologically(current)
	if err := persistOrder(ctx, s.stops, current, next); err != nil {
		return ReorderResult{}, fmt.Errorf("service.StopService.ReorderChronologically: %w", err)
	}
	manual := false
	if _, err := s.tours.Update(ctx, domain.TourPatch{ID: tourID, ManuallyOrderedShowings: &manual}); err != nil {
		return ReorderResult{}, fmt.Errorf("service.StopService.ReorderChronologically: %w", err)
	}
	return ReorderResult{Stops: next, Check: schedule.CheckStopTimes(next, nil)}, nil
}

// RefreshDriveTimes recomputes travel estimates for the tour and writes back
// every stop whose estimate or order changed. Tied start times are settled by
// drive time. A stop that fails to persist is logged and skipped; the
// annotated list is returned either way.
func (s *StopService) RefreshDriveTimes(ctx context.Context, tourID uuid.UUID) (stops []domain.TourStop, err error) {
	ctx, span := tracing.Start(ctx, "RefreshDriveTimes")
	defer func() { span.End(err) }()
	span.Annotate("tour_id", tourID.String())

	tour, err := s.tours.GetByID(ctx, tourID)
	if err != nil {
		return nil, fmt.Errorf("service.StopService.RefreshDriveTimes: %w", err)
	}
	current, err := s.stops.ListByTourID(ctx, tourID, false)
	if err != nil {
		return nil, fmt.Errorf("service.StopService.RefreshDriveTimes: %w", err)
	}

	annotated := s.drives.AnnotateWithOverlapAwareness(ctx, current, tour.CustomStartAddress)

	before := make(map[uuid.UUID]domain.TourStop, len(current))
	for _, st := range current {
		before[st.ID] = st
	}
	for _, st := range annotated {
		patch, changed := driveTimePatch(before[st.ID], st)
		if !changed {
			continue
		}
		if _, err := s.stops.Update(ctx, patch); err != nil {
			s.log.WarnContext(ctx, "persist drive time failed", "tour_id", tourID, "stop_id", st.ID, "error", err)
		}
	}
	span.Annotate("stops", len(annotated))
	return annotated, nil
}

func driveTimePatch(old, cur domain.TourStop) (domain.StopPatch, bool) {
	patch := domain.StopPatch{ID: cur.ID}
	changed := false
	if old.Order != cur.Order {
		order := cur.Order
		patch.Order = &order
		changed = true
	}
	if cur.EstDriveSeconds != nil && (old.EstDriveSeconds == nil || *old.EstDriveSeconds != *cur.EstDriveSeconds) {
		secs := *cur.EstDriveSeconds
		patch.EstDriveSeconds = &secs
		changed = true
	}
	if old.EstDriveStr != cur.EstDriveStr {
		str := cur.EstDriveStr
		patch.EstDriveStr = &str
		changed = true
	}
	return patch, changed
}

// needsConfirmation reports whether a checked edit must be confirmed before
// it is committed. On an automatically ordered tour an out-of-order result is
// repaired by re-sequencing, so only overlaps need the caller's say.
func needsConfirmation(tour domain.Tour, check schedule.Result) bool {
	if check.HasOverlap {
		return true
	}
	return !check.IsChronological && tour.ManuallyOrderedShowings
}

// requiresNewRequest reports whether changing a stop to start/dur invalidates
// the request already sent for it. A shorter visit never does.
func requiresNewRequest(stop domain.TourStop, start *time.Time, dur float64) bool {
	moved := (stop.StartTime == nil) != (start == nil) ||
		(stop.StartTime != nil && start != nil && !stop.StartTime.Equal(*start))
	if moved {
		return true
	}
	baseline := stop.Duration
	if stop.ApprovedDuration != nil {
		baseline = *stop.ApprovedDuration
	}
	return dur > baseline
}
