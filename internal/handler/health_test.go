package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/showing-tours/internal/handler"
)

// TestGetHealth_returns200WithOKStatus verifies that GET /healthz returns
// HTTP 200 and a JSON body of {"status":"ok"}.
func TestGetHealth_returns200WithOKStatus(t *testing.T) {
	h := handler.NewHealthHandler().Routes()

	rec := do(t, h, http.MethodGet, "/healthz", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[handler.HealthResponse](t, rec)
	assert.Equal(t, "ok", body.Status)
}

func TestGetOpenAPI_servesEmbeddedDocument(t *testing.T) {
	h := handler.NewHealthHandler().Routes()

	req := httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "openapi: 3.0.3")
}

// Routes for unset servicers are not registered.
func TestRoutes_healthOnlyServerHasNoTourRoutes(t *testing.T) {
	h := handler.NewHealthHandler().Routes()

	rec := do(t, h, http.MethodGet, "/tours", nil, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
