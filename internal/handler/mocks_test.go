package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/showing-tours/internal/approval"
	"github.com/pkordes/showing-tours/internal/domain"
	"github.com/pkordes/showing-tours/internal/handler"
	"github.com/pkordes/showing-tours/internal/schedule"
	"github.com/pkordes/showing-tours/internal/service"
)

// Each mock is a test double for one servicer interface.
// Set only the method fields your test needs.

type mockTourServicer struct {
	create   func(ctx context.Context, tour domain.Tour) (domain.Tour, error)
	get      func(ctx context.Context, id uuid.UUID) (domain.Tour, error)
	list     func(ctx context.Context, agentID uuid.UUID, p domain.PaginationParams) ([]domain.Tour, int64, error)
	update   func(ctx context.Context, patch domain.TourPatch) (domain.Tour, error)
	copyTour func(ctx context.Context, tourID uuid.UUID, name string) (domain.Tour, error)
	optimize func(ctx context.Context, tourID uuid.UUID) ([]domain.TourStop, bool, error)
}

func (m *mockTourServicer) Create(ctx context.Context, t domain.Tour) (domain.Tour, error) {
	return m.create(ctx, t)
}
func (m *mockTourServicer) Get(ctx context.Context, id uuid.UUID) (domain.Tour, error) {
	return m.get(ctx, id)
}
func (m *mockTourServicer) List(ctx context.Context, agentID uuid.UUID, p domain.PaginationParams) ([]domain.Tour, int64, error) {
	return m.list(ctx, agentID, p)
}
func (m *mockTourServicer) Update(ctx context.Context, p domain.TourPatch) (domain.Tour, error) {
	return m.update(ctx, p)
}
func (m *mockTourServicer) Copy(ctx context.Context, id uuid.UUID, name string) (domain.Tour, error) {
	return m.copyTour(ctx, id, name)
}
func (m *mockTourServicer) OptimizeRoute(ctx context.Context, id uuid.UUID) ([]domain.TourStop, bool, error) {
	return m.optimize(ctx, id)
}

var _ handler.TourServicer = (*mockTourServicer)(nil)

type mockStopServicer struct {
	list       func(ctx context.Context, tourID uuid.UUID, includeDeleted bool) ([]domain.TourStop, error)
	add        func(ctx context.Context, in domain.NewStop) (domain.TourStop, error)
	check      func(ctx context.Context, tourID uuid.UUID, h *schedule.Hypothetical) (schedule.Result, error)
	editTiming func(ctx context.Context, edit service.TimingEdit) (service.EditResult, error)
	remove     func(ctx context.Context, tourID, stopID uuid.UUID) error
	reorder    func(ctx context.Context, tourID uuid.UUID, ids []uuid.UUID) (service.ReorderResult, error)
	reorderChr func(ctx context.Context, tourID uuid.UUID) (service.ReorderResult, error)
	driveTimes func(ctx context.Context, tourID uuid.UUID) ([]domain.TourStop, error)
}

func (m *mockStopServicer) List(ctx context.Context, tourID uuid.UUID, includeDeleted bool) ([]domain.TourStop, error) {
	return m.list(ctx, tourID, includeDeleted)
}
func (m *mockStopServicer) Add(ctx context.Context, in domain.NewStop) (domain.TourStop, error) {
	return m.add(ctx, in)
}
func (m *mockStopServicer) Check(ctx context.Context, tourID uuid.UUID, h *schedule.Hypothetical) (schedule.Result, error) {
	return m.check(ctx, tourID, h)
}
func (m *mockStopServicer) EditTiming(ctx context.Context, edit service.TimingEdit) (service.EditResult, error) {
	return m.editTiming(ctx, edit)
}
func (m *mockStopServicer) Remove(ctx context.Context, tourID, stopID uuid.UUID) error {
	return m.remove(ctx, tourID, stopID)
}
func (m *mockStopServicer) Reorder(ctx context.Context, tourID uuid.UUID, ids []uuid.UUID) (service.ReorderResult, error) {
	return m.reorder(ctx, tourID, ids)
}
func (m *mockStopServicer) ReorderChronologically(ctx context.Context, tourID uuid.UUID) (service.ReorderResult, error) {
	return m.reorderChr(ctx, tourID)
}
func (m *mockStopServicer) RefreshDriveTimes(ctx context.Context, tourID uuid.UUID) ([]domain.TourStop, error) {
	return m.driveTimes(ctx, tourID)
}

var _ handler.StopServicer = (*mockStopServicer)(nil)

type mockShowingServicer struct {
	send     func(ctx context.Context, tourID, stopID, userID uuid.UUID) (domain.ShowingRequestOutcome, error)
	sendAll  func(ctx context.Context, tourID, userID uuid.UUID) (domain.BatchResult, error)
	canSelf  func(ctx context.Context, tourID, stopID uuid.UUID) (approval.Decision, error)
	selfApp  func(ctx context.Context, tourID, stopID, userID uuid.UUID) (domain.TourStop, error)
	respond  func(ctx context.Context, r service.Response) (domain.TourStop, error)
	accept   func(ctx context.Context, tourID, stopID, userID uuid.UUID, confirm bool) (service.AcceptResult, error)
	messages func(ctx context.Context, tourID, stopID uuid.UUID) ([]domain.Message, error)
}

func (m *mockShowingServicer) SendShowingRequest(ctx context.Context, tourID, stopID, userID uuid.UUID) (domain.ShowingRequestOutcome, error) {
	return m.send(ctx, tourID, stopID, userID)
}
func (m *mockShowingServicer) SendAllShowingRequests(ctx context.Context, tourID, userID uuid.UUID) (domain.BatchResult, error) {
	return m.sendAll(ctx, tourID, userID)
}
func (m *mockShowingServicer) CanSelfApprove(ctx context.Context, tourID, stopID uuid.UUID) (approval.Decision, error) {
	return m.canSelf(ctx, tourID, stopID)
}
func (m *mockShowingServicer) SelfApprove(ctx context.Context, tourID, stopID, userID uuid.UUID) (domain.TourStop, error) {
	return m.selfApp(ctx, tourID, stopID, userID)
}
func (m *mockShowingServicer) RespondToRequest(ctx context.Context, r service.Response) (domain.TourStop, error) {
	return m.respond(ctx, r)
}
func (m *mockShowingServicer) AcceptSuggestedTime(ctx context.Context, tourID, stopID, userID uuid.UUID, confirm bool) (service.AcceptResult, error) {
	return m.accept(ctx, tourID, stopID, userID, confirm)
}
func (m *mockShowingServicer) Messages(ctx context.Context, tourID, stopID uuid.UUID) ([]domain.Message, error) {
	return m.messages(ctx, tourID, stopID)
}

var _ handler.ShowingServicer = (*mockShowingServicer)(nil)

// ---- helpers ---------------------------------------------------------------

// do sends one request through the full router and returns the recorder.
// user, when non-nil, is sent as X-User-ID.
func do(t *testing.T, h http.Handler, method, path string, body any, user *uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		req.Header.Set("X-User-ID", user.String())
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}
