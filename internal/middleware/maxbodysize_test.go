package middleware_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/showing-tours/internal/middleware"
)

// drainHandler reads the whole body the way a JSON decoder would and reports
// 413 when MaxBytesReader cuts it off.
func drainHandler(t *testing.T) (http.Handler, *bool) {
	t.Helper()
	reached := new(bool)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*reached = true
		if _, err := io.ReadAll(r.Body); err != nil {
			var tooBig *http.MaxBytesError
			require.True(t, errors.As(err, &tooBig), "unexpected read error %v", err)
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	}), reached
}

func TestMaxBodySizeHandler(t *testing.T) {
	const limit = 64

	tests := []struct {
		name          string
		method        string
		body          string
		contentLength int64 // -1 means unknown (chunked)
		wantStatus    int
		wantReached   bool
	}{
		{"stop edit within limit", http.MethodPatch, `{"duration":0.5}`, 16, http.StatusOK, true},
		{"advertised oversize rejected early", http.MethodPost, strings.Repeat("x", 200), 200, http.StatusRequestEntityTooLarge, false},
		{"streamed oversize cut off while reading", http.MethodPost, strings.Repeat("x", 200), -1, http.StatusRequestEntityTooLarge, true},
		{"exactly at the limit", http.MethodPost, strings.Repeat("x", limit), limit, http.StatusOK, true},
		{"GET without body", http.MethodGet, "", 0, http.StatusOK, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, reached := drainHandler(t)
			h := middleware.NewMaxBodySizeHandler(limit)(next)

			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, "/tours/t1/stops/s1", body)
			req.ContentLength = tt.contentLength
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantReached, *reached)
		})
	}
}

func TestMaxBodySizeHandler_RejectionBodyIsAPIError(t *testing.T) {
	next, _ := drainHandler(t)
	h := middleware.NewMaxBodySizeHandler(8)(next)

	req := httptest.NewRequest(http.MethodPost, "/tours", strings.NewReader(`{"name":"Saturday showings"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var got struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "body_too_large", got.Error.Code)
}
