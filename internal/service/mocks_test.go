package service_test

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/showing-tours/internal/approval"
	"github.com/pkordes/showing-tours/internal/domain"
	"github.com/pkordes/showing-tours/internal/repo"
	"github.com/pkordes/showing-tours/internal/service"
)

// ---- mock repos ------------------------------------------------------------

type mockTourRepo struct {
	create      func(ctx context.Context, tour domain.Tour) (domain.Tour, error)
	getByID     func(ctx context.Context, id uuid.UUID) (domain.Tour, error)
	listByAgent func(ctx context.Context, agentID uuid.UUID, p domain.PaginationParams) ([]domain.Tour, int64, error)
	update      func(ctx context.Context, patch domain.TourPatch) (domain.Tour, error)
}

func (m *mockTourRepo) Create(ctx context.Context, tour domain.Tour) (domain.Tour, error) {
	return m.create(ctx, tour)
}
func (m *mockTourRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Tour, error) {
	return m.getByID(ctx, id)
}
func (m *mockTourRepo) ListByAgent(ctx context.Context, agentID uuid.UUID, p domain.PaginationParams) ([]domain.Tour, int64, error) {
	return m.listByAgent(ctx, agentID, p)
}
func (m *mockTourRepo) Update(ctx context.Context, patch domain.TourPatch) (domain.Tour, error) {
	return m.update(ctx, patch)
}

var _ repo.TourRepo = (*mockTourRepo)(nil)

type mockStopRepo struct {
	create       func(ctx context.Context, in domain.NewStop) (domain.TourStop, error)
	getByID      func(ctx context.Context, tourID, stopID uuid.UUID) (domain.TourStop, error)
	listByTourID func(ctx context.Context, tourID uuid.UUID, includeDeleted bool) ([]domain.TourStop, error)
	update       func(ctx context.Context, patch domain.StopPatch) (domain.TourStop, error)
	delete       func(ctx context.Context, tourID, stopID uuid.UUID) error
	batchReplace func(ctx context.Context, tourID uuid.UUID, inputs []domain.NewStop) ([]domain.TourStop, error)
}

func (m *mockStopRepo) Create(ctx context.Context, in domain.NewStop) (domain.TourStop, error) {
	return m.create(ctx, in)
}
func (m *mockStopRepo) GetByID(ctx context.Context, tourID, stopID uuid.UUID) (domain.TourStop, error) {
	return m.getByID(ctx, tourID, stopID)
}
func (m *mockStopRepo) ListByTourID(ctx context.Context, tourID uuid.UUID, includeDeleted bool) ([]domain.TourStop, error) {
	return m.listByTourID(ctx, tourID, includeDeleted)
}
func (m *mockStopRepo) Update(ctx context.Context, patch domain.StopPatch) (domain.TourStop, error) {
	return m.update(ctx, patch)
}
func (m *mockStopRepo) Delete(ctx context.Context, tourID, stopID uuid.UUID) error {
	return m.delete(ctx, tourID, stopID)
}
func (m *mockStopRepo) BatchReplace(ctx context.Context, tourID uuid.UUID, inputs []domain.NewStop) ([]domain.TourStop, error) {
	return m.batchReplace(ctx, tourID, inputs)
}

var _ repo.StopRepo = (*mockStopRepo)(nil)

type mockMessageRepo struct {
	append     func(ctx context.Context, m domain.Message) (domain.Message, error)
	listByStop func(ctx context.Context, stopID uuid.UUID) ([]domain.Message, error)
}

func (m *mockMessageRepo) Append(ctx context.Context, msg domain.Message) (domain.Message, error) {
	return m.append(ctx, msg)
}
func (m *mockMessageRepo) ListByStop(ctx context.Context, stopID uuid.UUID) ([]domain.Message, error) {
	return m.listByStop(ctx, stopID)
}

var _ repo.MessageRepo = (*mockMessageRepo)(nil)

// ---- mock collaborators ----------------------------------------------------

type mockNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
	err  error
}

func (m *mockNotifier) Notify(_ context.Context, n domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, n)
	return m.err
}

var _ service.Notifier = (*mockNotifier)(nil)

type mockApprover struct {
	decide func(ctx context.Context, stop domain.TourStop) (approval.Decision, error)
}

func (m *mockApprover) CanSelfApprove(ctx context.Context, stop domain.TourStop) (approval.Decision, error) {
	return m.decide(ctx, stop)
}

var _ service.SelfApprover = (*mockApprover)(nil)

type mockOptimizer struct {
	optimize func(ctx context.Context, points []domain.RoutePoint, start *domain.Coordinate) ([]uuid.UUID, error)
}

func (m *mockOptimizer) Optimize(ctx context.Context, points []domain.RoutePoint, start *domain.Coordinate) ([]uuid.UUID, error) {
	return m.optimize(ctx, points, start)
}

var _ service.Optimizer = (*mockOptimizer)(nil)

type mockDriveTimer struct {
	annotate func(ctx context.Context, stops []domain.TourStop, origin string) []domain.TourStop
}

func (m *mockDriveTimer) AnnotateWithOverlapAwareness(ctx context.Context, stops []domain.TourStop, origin string) []domain.TourStop {
	return m.annotate(ctx, stops, origin)
}

var _ service.DriveTimer = (*mockDriveTimer)(nil)

// busyGuard refuses every key.
type busyGuard struct{ err error }

func (g busyGuard) Acquire(context.Context, string) (func(), error) { return nil, g.err }

// ---- in-memory store backing the repo mocks --------------------------------

// store keeps tours and stops in memory and hands out repo mocks over them,
// so workflow tests can assert on resulting state rather than call order.
type store struct {
	tours       map[uuid.UUID]domain.Tour
	stops       map[uuid.UUID]domain.TourStop
	stopUpdates []domain.StopPatch
	tourUpdates []domain.TourPatch
	// failStop makes Update fail for that stop ID.
	failStop map[uuid.UUID]error
}

func newStore() *store {
	return &store{
		tours:    map[uuid.UUID]domain.Tour{},
		stops:    map[uuid.UUID]domain.TourStop{},
		failStop: map[uuid.UUID]error{},
	}
}

func (s *store) addTour(t domain.Tour) domain.Tour {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = domain.TourDraft
	}
	if t.AgentID == uuid.Nil {
		t.AgentID = uuid.New()
	}
	if t.ClientID == uuid.Nil {
		t.ClientID = uuid.New()
	}
	s.tours[t.ID] = t
	return t
}

func (s *store) addStop(st domain.TourStop) domain.TourStop {
	if st.ID == uuid.Nil {
		st.ID = uuid.New()
	}
	if st.Property.ID == uuid.Nil {
		st.Property.ID = uuid.New()
	}
	if st.Property.ListingAgentID == nil && !st.Property.IsCustom {
		la := uuid.New()
		st.Property.ListingAgentID = &la
	}
	s.stops[st.ID] = st
	return st
}

func (s *store) tourRepo() *mockTourRepo {
	return &mockTourRepo{
		create: func(_ context.Context, t domain.Tour) (domain.Tour, error) {
			return s.addTour(t), nil
		},
		getByID: func(_ context.Context, id uuid.UUID) (domain.Tour, error) {
			t, ok := s.tours[id]
			if !ok {
				return domain.Tour{}, domain.ErrNotFound
			}
			return t, nil
		},
		listByAgent: func(_ context.Context, agentID uuid.UUID, _ domain.PaginationParams) ([]domain.Tour, int64, error) {
			var out []domain.Tour
			for _, t := range s.tours {
				if t.AgentID == agentID {
					out = append(out, t)
				}
			}
			return out, int64(len(out)), nil
		},
		update: func(_ context.Context, p domain.TourPatch) (domain.Tour, error) {
			t, ok := s.tours[p.ID]
			if !ok {
				return domain.Tour{}, domain.ErrNotFound
			}
			s.tourUpdates = append(s.tourUpdates, p)
			if p.Name != nil {
				t.Name = *p.Name
			}
			if p.Status != nil {
				t.Status = *p.Status
			}
			if p.ClearSpan {
				t.StartTime, t.EndTime = nil, nil
			}
			if p.StartTime != nil {
				t.StartTime = p.StartTime
			}
			if p.EndTime != nil {
				t.EndTime = p.EndTime
			}
			if p.ManuallyOrderedShowings != nil {
				t.ManuallyOrderedShowings = *p.ManuallyOrderedShowings
			}
			if p.RouteSet != nil {
				t.RouteSet = *p.RouteSet
			}
			s.tours[t.ID] = t
			return t, nil
		},
	}
}

func (s *store) stopRepo() *mockStopRepo {
	return &mockStopRepo{
		create: func(_ context.Context, in domain.NewStop) (domain.TourStop, error) {
			return s.addStop(domain.TourStop{
				TourID:    in.TourID,
				Property:  domain.PropertyRef{ID: in.PropertyOfInterest},
				Order:     in.Order,
				StartTime: in.StartTime,
				Duration:  in.Duration,
			}), nil
		},
		getByID: func(_ context.Context, tourID, stopID uuid.UUID) (domain.TourStop, error) {
			st, ok := s.stops[stopID]
			if !ok || st.TourID != tourID || st.DeletedAt != nil {
				return domain.TourStop{}, domain.ErrNotFound
			}
			return st, nil
		},
		listByTourID: func(_ context.Context, tourID uuid.UUID, includeDeleted bool) ([]domain.TourStop, error) {
			return s.list(tourID, includeDeleted), nil
		},
		update: func(_ context.Context, p domain.StopPatch) (domain.TourStop, error) {
			if err := s.failStop[p.ID]; err != nil {
				return domain.TourStop{}, err
			}
			st, ok := s.stops[p.ID]
			if !ok || st.DeletedAt != nil {
				return domain.TourStop{}, domain.ErrNotFound
			}
			s.stopUpdates = append(s.stopUpdates, p)
			st = applyStopPatch(st, p)
			s.stops[st.ID] = st
			return st, nil
		},
		delete: func(_ context.Context, tourID, stopID uuid.UUID) error {
			st, ok := s.stops[stopID]
			if !ok || st.TourID != tourID || st.DeletedAt != nil {
				return domain.ErrNotFound
			}
			now := time.Now()
			st.DeletedAt = &now
			s.stops[stopID] = st
			return nil
		},
		batchReplace: func(_ context.Context, tourID uuid.UUID, inputs []domain.NewStop) ([]domain.TourStop, error) {
			for id, st := range s.stops {
				if st.TourID == tourID {
					delete(s.stops, id)
				}
			}
			var out []domain.TourStop
			for _, in := range inputs {
				out = append(out, s.addStop(domain.TourStop{
					TourID:    tourID,
					Property:  domain.PropertyRef{ID: in.PropertyOfInterest},
					Order:     in.Order,
					StartTime: in.StartTime,
					Duration:  in.Duration,
				}))
			}
			return out, nil
		},
	}
}

// list returns the tour's stops sorted by order, live ones first.
func (s *store) list(tourID uuid.UUID, includeDeleted bool) []domain.TourStop {
	var live, removed []domain.TourStop
	for _, st := range s.stops {
		if st.TourID != tourID {
			continue
		}
		if st.DeletedAt != nil {
			removed = append(removed, st)
			continue
		}
		live = append(live, st)
	}
	sortByOrder(live)
	if includeDeleted {
		sortByOrder(removed)
		live = append(live, removed...)
	}
	return live
}

func sortByOrder(stops []domain.TourStop) {
	slices.SortFunc(stops, func(a, b domain.TourStop) int { return a.Order - b.Order })
}

func applyStopPatch(st domain.TourStop, p domain.StopPatch) domain.TourStop {
	if p.Order != nil {
		st.Order = *p.Order
	}
	if p.StartTime != nil {
		st.StartTime = p.StartTime
	}
	if p.Duration != nil {
		st.Duration = *p.Duration
	}
	if p.EstDriveSeconds != nil {
		st.EstDriveSeconds = p.EstDriveSeconds
	}
	if p.EstDriveStr != nil {
		st.EstDriveStr = *p.EstDriveStr
	}
	if p.Status != nil {
		st.Status = *p.Status
	}
	if p.RequestSent != nil {
		st.RequestSent = *p.RequestSent
	}
	if p.ShowingRequestRequired != nil {
		st.ShowingRequestRequired = *p.ShowingRequestRequired
	}
	if p.LastRequestSentByUserID != nil {
		st.LastRequestSentByUserID = p.LastRequestSentByUserID
	}
	if p.ApprovedDuration != nil {
		st.ApprovedDuration = p.ApprovedDuration
	}
	if p.ClearSuggestedStartTime {
		st.SuggestedStartTime = nil
	} else if p.SuggestedStartTime != nil {
		st.SuggestedStartTime = p.SuggestedStartTime
	}
	return st
}

// ---- helpers ---------------------------------------------------------------

var day = time.Date(2025, 6, 7, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) *time.Time {
	t := day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
	return &t
}

func ptr[T any](v T) *T { return &v }
