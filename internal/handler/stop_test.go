package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/showing-tours/internal/domain"
	"github.com/pkordes/showing-tours/internal/handler"
	"github.com/pkordes/showing-tours/internal/schedule"
	"github.com/pkordes/showing-tours/internal/service"
)

func stopHandler(m *mockStopServicer) http.Handler {
	return handler.NewServer(nil, m, nil).Routes()
}

func stopsPath(tourID uuid.UUID, rest string) string {
	return "/tours/" + tourID.String() + "/stops" + rest
}

var tenAM = time.Date(2025, 6, 7, 10, 0, 0, 0, time.UTC)

func TestListStops_includeDeletedFlag(t *testing.T) {
	tourID := uuid.New()
	var gotDeleted bool
	h := stopHandler(&mockStopServicer{list: func(_ context.Context, id uuid.UUID, includeDeleted bool) ([]domain.TourStop, error) {
		gotDeleted = includeDeleted
		return []domain.TourStop{{ID: uuid.New(), TourID: id, Order: 1}}, nil
	}})

	rec := do(t, h, http.MethodGet, stopsPath(tourID, "?include_deleted=true"), nil, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, gotDeleted)
	body := decodeBody[handler.StopList](t, rec)
	require.Len(t, body.Data, 1)
	assert.Equal(t, tourID, body.Data[0].TourID)
}

func TestAddStop_returns201(t *testing.T) {
	tourID, propID := uuid.New(), uuid.New()
	var got domain.NewStop
	h := stopHandler(&mockStopServicer{add: func(_ context.Context, in domain.NewStop) (domain.TourStop, error) {
		got = in
		return domain.TourStop{ID: uuid.New(), TourID: in.TourID, Order: 1, StartTime: in.StartTime, Duration: in.Duration}, nil
	}})

	rec := do(t, h, http.MethodPost, stopsPath(tourID, ""), map[string]any{
		"property_id": propID,
		"start_time":  tenAM,
		"duration":    0.5,
	}, nil)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, tourID, got.TourID)
	assert.Equal(t, propID, got.PropertyOfInterest)
	require.NotNil(t, got.StartTime)
	assert.True(t, tenAM.Equal(*got.StartTime))
	assert.Equal(t, 0.5, got.Duration)
}

func TestAddStop_missingProperty_returns422(t *testing.T) {
	h := stopHandler(&mockStopServicer{})

	rec := do(t, h, http.MethodPost, stopsPath(uuid.New(), ""), map[string]any{"duration": 1}, nil)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeBody[handler.ErrorResponse](t, rec)
	assert.Equal(t, "property_id is required", body.Error.Message)
}

func TestAddStop_emptyBody_returns422(t *testing.T) {
	h := stopHandler(&mockStopServicer{})

	rec := do(t, h, http.MethodPost, stopsPath(uuid.New(), ""), nil, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCheckStops_withHypothetical(t *testing.T) {
	tourID, stopID := uuid.New(), uuid.New()
	var gotH *schedule.Hypothetical
	h := stopHandler(&mockStopServicer{check: func(_ context.Context, _ uuid.UUID, hyp *schedule.Hypothetical) (schedule.Result, error) {
		gotH = hyp
		return schedule.Result{IsChronological: false, OutOfOrder: []uuid.UUID{stopID}}, nil
	}})

	rec := do(t, h, http.MethodPost, stopsPath(tourID, "/check"), map[string]any{
		"stop_id": stopID, "start_time": tenAM, "duration": 1,
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, gotH)
	assert.Equal(t, stopID, gotH.StopID)
	assert.Equal(t, 1.0, gotH.Duration)
	body := decodeBody[schedule.Result](t, rec)
	assert.False(t, body.IsChronological)
	assert.Equal(t, []uuid.UUID{stopID}, body.OutOfOrder)
}

func TestCheckStops_withoutBodyChecksCurrentTimes(t *testing.T) {
	var called bool
	h := stopHandler(&mockStopServicer{check: func(_ context.Context, _ uuid.UUID, hyp *schedule.Hypothetical) (schedule.Result, error) {
		called = true
		assert.Nil(t, hyp)
		return schedule.Result{IsChronological: true}, nil
	}})

	rec := do(t, h, http.MethodPost, stopsPath(uuid.New(), "/check"), nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}

func TestEditStopTiming_committed_returns200(t *testing.T) {
	tourID, stopID := uuid.New(), uuid.New()
	var got service.TimingEdit
	h := stopHandler(&mockStopServicer{editTiming: func(_ context.Context, e service.TimingEdit) (service.EditResult, error) {
		got = e
		return service.EditResult{Stop: domain.TourStop{ID: e.StopID}, Check: schedule.Result{IsChronological: true}, Committed: true}, nil
	}})

	rec := do(t, h, http.MethodPatch, stopsPath(tourID, "/"+stopID.String()), map[string]any{"duration": 1.5}, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, tourID, got.TourID)
	assert.Equal(t, stopID, got.StopID)
	assert.Nil(t, got.StartTime)
	require.NotNil(t, got.Duration)
	assert.Equal(t, 1.5, *got.Duration)
	assert.False(t, got.Confirm)
	body := decodeBody[handler.TimingResponse](t, rec)
	assert.True(t, body.Committed)
}

func TestEditStopTiming_needsConfirmation_returns409WithCheck(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	h := stopHandler(&mockStopServicer{editTiming: func(_ context.Context, e service.TimingEdit) (service.EditResult, error) {
		return service.EditResult{
			Stop:  domain.TourStop{ID: e.StopID},
			Check: schedule.Result{IsChronological: true, HasOverlap: true, Overlapping: [][2]uuid.UUID{{a, b}}},
		}, nil
	}})

	rec := do(t, h, http.MethodPatch, stopsPath(uuid.New(), "/"+a.String()), map[string]any{"start_time": tenAM}, nil)

	require.Equal(t, http.StatusConflict, rec.Code)
	body := decodeBody[handler.TimingResponse](t, rec)
	assert.False(t, body.Committed)
	assert.True(t, body.Check.HasOverlap)
	assert.Equal(t, [][2]uuid.UUID{{a, b}}, body.Check.Overlapping)
}

func TestEditStopTiming_zeroDurationRejected(t *testing.T) {
	h := stopHandler(&mockStopServicer{})

	rec := do(t, h, http.MethodPatch, stopsPath(uuid.New(), "/"+uuid.NewString()), map[string]any{"duration": 0}, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRemoveStop(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"removed", nil, http.StatusNoContent},
		{"missing", fmt.Errorf("repo: %w", domain.ErrNotFound), http.StatusNotFound},
		{"complete tour", fmt.Errorf("service: %w", domain.ErrTourComplete), http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := stopHandler(&mockStopServicer{remove: func(context.Context, uuid.UUID, uuid.UUID) error { return tt.err }})

			rec := do(t, h, http.MethodDelete, stopsPath(uuid.New(), "/"+uuid.NewString()), nil, nil)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestReorderStops_passesIDsInOrder(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	var got []uuid.UUID
	h := stopHandler(&mockStopServicer{reorder: func(_ context.Context, _ uuid.UUID, in []uuid.UUID) (service.ReorderResult, error) {
		got = in
		return service.ReorderResult{Check: schedule.Result{IsChronological: true}}, nil
	}})

	rec := do(t, h, http.MethodPost, stopsPath(uuid.New(), "/reorder"), map[string]any{"stop_ids": ids}, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, ids, got)
	body := decodeBody[handler.ReorderResponse](t, rec)
	assert.NotNil(t, body.Stops)
	assert.True(t, body.Check.IsChronological)
}

func TestReorderStops_emptyList_returns422(t *testing.T) {
	h := stopHandler(&mockStopServicer{})

	rec := do(t, h, http.MethodPost, stopsPath(uuid.New(), "/reorder"), map[string]any{"stop_ids": []uuid.UUID{}}, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestReorderChronologically(t *testing.T) {
	s1 := domain.TourStop{ID: uuid.New(), Order: 1}
	h := stopHandler(&mockStopServicer{reorderChr: func(context.Context, uuid.UUID) (service.ReorderResult, error) {
		return service.ReorderResult{Stops: []domain.TourStop{s1}, Check: schedule.Result{IsChronological: true}}, nil
	}})

	rec := do(t, h, http.MethodPost, stopsPath(uuid.New(), "/reorder-chronologically"), nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[handler.ReorderResponse](t, rec)
	require.Len(t, body.Stops, 1)
	assert.Equal(t, s1.ID, body.Stops[0].ID)
}

func TestRefreshDriveTimes(t *testing.T) {
	secs := 600
	h := stopHandler(&mockStopServicer{driveTimes: func(_ context.Context, tourID uuid.UUID) ([]domain.TourStop, error) {
		return []domain.TourStop{{ID: uuid.New(), TourID: tourID, EstDriveSeconds: &secs, EstDriveStr: "10 mins"}}, nil
	}})

	rec := do(t, h, http.MethodPost, "/tours/"+uuid.NewString()+"/drive-times", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[handler.StopList](t, rec)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "10 mins", body.Data[0].EstDriveStr)
}
