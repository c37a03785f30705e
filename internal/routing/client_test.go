package routing_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/showing-tours/internal/domain"
	"github.com/pkordes/showing-tours/internal/routing"
)

func TestTravelDuration(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "12 Oak Ave", q.Get("origins"))
		assert.Equal(t, "99 Pine Rd", q.Get("destinations"))
		assert.Equal(t, "k", q.Get("key"))
		_, _ = w.Write([]byte(`{"status":"OK","rows":[{"elements":[{"status":"OK","duration":{"value":754,"text":"13 mins"}}]}]}`))
	}))
	defer srv.Close()

	c := routing.NewClient(srv.URL, "k", "")
	got, err := c.TravelDuration(context.Background(), "12 Oak Ave", "99 Pine Rd")

	require.NoError(t, err)
	assert.Equal(t, domain.TravelEstimate{Seconds: 754, Text: "13 mins"}, got)
}

func TestTravelDuration_NoRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"OK","rows":[{"elements":[{"status":"ZERO_RESULTS"}]}]}`))
	}))
	defer srv.Close()

	_, err := routing.NewClient(srv.URL, "", "").TravelDuration(context.Background(), "a", "b")

	assert.ErrorIs(t, err, routing.ErrNoRoute)
}

func TestTravelDuration_ProviderStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"REQUEST_DENIED","rows":[]}`))
	}))
	defer srv.Close()

	_, err := routing.NewClient(srv.URL, "", "").TravelDuration(context.Background(), "a", "b")

	assert.ErrorContains(t, err, "REQUEST_DENIED")
}

func TestTravelDuration_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := routing.NewClient(srv.URL, "", "").TravelDuration(context.Background(), "a", "b")

	var se *routing.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
}

func TestTravelDuration_RequiresAddresses(t *testing.T) {
	_, err := routing.NewClient("http://example.invalid", "", "").TravelDuration(context.Background(), "", "b")
	assert.Error(t, err)
}

func TestOptimize(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var req struct {
			Points []domain.RoutePoint `json:"points"`
			Start  *domain.Coordinate  `json:"start"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Points, 3)
		if assert.NotNil(t, req.Start) {
			assert.Equal(t, 40.7, req.Start.Lat)
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"points": []domain.RoutePoint{{ID: c, Order: 1}, {ID: a, Order: 2}, {ID: b, Order: 3}},
		})
	}))
	defer srv.Close()

	cl := routing.NewClient("", "", srv.URL)
	got, err := cl.Optimize(context.Background(), []domain.RoutePoint{
		{ID: a, Order: 1}, {ID: b, Order: 2}, {ID: c, Order: 3},
	}, &domain.Coordinate{Lat: 40.7, Lng: -74})

	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{c, a, b}, got)
}

func TestOptimize_PointCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"points":[]}`))
	}))
	defer srv.Close()

	_, err := routing.NewClient("", "", srv.URL).Optimize(context.Background(), []domain.RoutePoint{{ID: uuid.New()}}, nil)

	assert.Error(t, err)
}

func TestOptimize_NotConfigured(t *testing.T) {
	_, err := routing.NewClient("", "", "").Optimize(context.Background(), nil, nil)
	assert.Error(t, err)
}
