package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/showing-tours/internal/domain"
)

func TestTourRepo_Create(t *testing.T) {
	r := newTestRepos(t)

	got := mustTour(t, r)

	assert.NotEqual(t, uuid.Nil, got.ID, "ID should be DB-generated")
	assert.Equal(t, "Saturday tour", got.Name)
	assert.Equal(t, domain.TourDraft, got.Status, "status defaults to draft")
	assert.Nil(t, got.StartTime)
	assert.Nil(t, got.CustomStart)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestTourRepo_GetByID_NotFound(t *testing.T) {
	r := newTestRepos(t)

	_, err := r.tours.GetByID(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTourRepo_Update_Partial(t *testing.T) {
	r := newTestRepos(t)
	ctx := context.Background()
	tour := mustTour(t, r)

	start := time.Date(2025, 6, 7, 14, 0, 0, 0, time.UTC)
	end := start.Add(3 * time.Hour)
	manual := true
	addr := "1 Main St"
	got, err := r.tours.Update(ctx, domain.TourPatch{
		ID:                      tour.ID,
		StartTime:               &start,
		EndTime:                 &end,
		ManuallyOrderedShowings: &manual,
		CustomStartAddress:      &addr,
		CustomStart:             &domain.Coordinate{Lat: 40.7, Lng: -73.9},
	})

	require.NoError(t, err)
	assert.Equal(t, tour.Name, got.Name, "untouched fields are preserved")
	require.NotNil(t, got.StartTime)
	assert.True(t, got.StartTime.Equal(start))
	assert.True(t, got.EndTime.Equal(end))
	assert.True(t, got.ManuallyOrderedShowings)
	assert.Equal(t, "1 Main St", got.CustomStartAddress)
	require.NotNil(t, got.CustomStart)
	assert.Equal(t, 40.7, got.CustomStart.Lat)

	cleared, err := r.tours.Update(ctx, domain.TourPatch{ID: tour.ID, ClearSpan: true})
	require.NoError(t, err)
	assert.Nil(t, cleared.StartTime)
	assert.Nil(t, cleared.EndTime)
}

func TestTourRepo_Update_NotFound(t *testing.T) {
	r := newTestRepos(t)
	name := "x"

	_, err := r.tours.Update(context.Background(), domain.TourPatch{ID: uuid.New(), Name: &name})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTourRepo_ListByAgent(t *testing.T) {
	r := newTestRepos(t)
	ctx := context.Background()
	first := mustTour(t, r)

	second, err := r.tours.Create(ctx, domain.Tour{AgentID: first.AgentID, ClientID: first.ClientID, Name: "Sunday tour"})
	require.NoError(t, err)

	page, total, err := r.tours.ListByAgent(ctx, first.AgentID, domain.PaginationParams{Page: 1, Limit: 1})

	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, page, 1)
	assert.Contains(t, []uuid.UUID{first.ID, second.ID}, page[0].ID)

	none, total, err := r.tours.ListByAgent(ctx, uuid.New(), domain.NewPaginationParams(nil, nil))
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.Zero(t, total)
}
