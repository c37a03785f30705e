package availability_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/showing-tours/internal/availability"
	"github.com/pkordes/showing-tours/internal/domain"
)

func TestNewClient_RequiresURL(t *testing.T) {
	_, err := availability.NewClient("", "key")
	assert.Error(t, err)
}

func TestGetSlots_DayWindow(t *testing.T) {
	var gotPath, gotStart, gotEnd, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotStart = r.URL.Query().Get("start")
		gotEnd = r.URL.Query().Get("end")
		gotKey = r.Header.Get("X-API-Key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"startTime":"2025-06-02T13:00:00Z","endTime":"2025-06-02T14:00:00Z","status":"booked"},
			{"startTime":"2025-06-02T15:00:00Z","endTime":"2025-06-02T17:00:00Z","status":"available"}
		]`))
	}))
	defer srv.Close()

	c, err := availability.NewClient(srv.URL+"/", "secret")
	require.NoError(t, err)

	window := &domain.DayWindow{
		Start: time.Date(2025, 6, 2, 4, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 6, 3, 4, 0, 0, 0, time.UTC),
	}
	slots, err := c.GetSlots(context.Background(), "MLS 42", window)

	require.NoError(t, err)
	assert.Equal(t, "/listings/MLS 42/slots", gotPath)
	assert.Equal(t, "2025-06-02T04:00:00Z", gotStart)
	assert.Equal(t, "2025-06-03T04:00:00Z", gotEnd)
	assert.Equal(t, "secret", gotKey)
	require.Len(t, slots, 2)
	assert.Equal(t, domain.SlotBooked, slots[0].Status)
	assert.Equal(t, time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC), slots[1].StartTime.UTC())
}

func TestGetSlots_AllTime(t *testing.T) {
	var rawQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`null`))
	}))
	defer srv.Close()

	c, err := availability.NewClient(srv.URL, "")
	require.NoError(t, err)

	slots, err := c.GetSlots(context.Background(), "MLS-1", nil)

	require.NoError(t, err)
	assert.Empty(t, rawQuery)
	assert.NotNil(t, slots)
	assert.Empty(t, slots)
}

func TestGetSlots_UnknownListingIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c, err := availability.NewClient(srv.URL, "")
	require.NoError(t, err)

	slots, err := c.GetSlots(context.Background(), "MLS-1", nil)

	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestGetSlots_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "calendar offline", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := availability.NewClient(srv.URL, "")
	require.NoError(t, err)

	_, err = c.GetSlots(context.Background(), "MLS-1", nil)

	var se *availability.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
	assert.Equal(t, "calendar offline", se.Body)
}

func TestGetSlots_RequiresListingID(t *testing.T) {
	c, err := availability.NewClient("http://example.invalid", "")
	require.NoError(t, err)

	_, err = c.GetSlots(context.Background(), "", nil)
	assert.Error(t, err)
}
