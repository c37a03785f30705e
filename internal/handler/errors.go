package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pkordes/showing-tours/internal/availability"
	"github.com/pkordes/showing-tours/internal/domain"
	"github.com/pkordes/showing-tours/internal/routing"
	"github.com/pkordes/showing-tours/internal/service"
)

// ErrorDetail is the machine-readable code plus a human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", slog.String("error", err.Error()))
	}
}

func writeErrorBody(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// requestError answers a request rejected before it reached the service
// layer (missing header, malformed body, bad path parameter).
func requestError(w http.ResponseWriter, message string) {
	writeErrorBody(w, http.StatusUnprocessableEntity, "validation_error", message)
}

// writeError maps a service error onto a status code. The caller supplies
// what was being looked up so a 404 can say so.
func writeError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	var routeStatus *routing.StatusError
	var slotStatus *availability.StatusError

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeErrorBody(w, http.StatusNotFound, "not_found", notFound)
	case errors.Is(err, domain.ErrTourComplete):
		writeErrorBody(w, http.StatusUnprocessableEntity, "tour_complete", "tour is complete and can no longer be edited")
	case errors.Is(err, domain.ErrValidation):
		writeErrorBody(w, http.StatusUnprocessableEntity, "validation_error", unwrapMessage(err, domain.ErrValidation))
	case errors.Is(err, domain.ErrConflict):
		writeErrorBody(w, http.StatusConflict, "conflict", unwrapMessage(err, domain.ErrConflict))
	case errors.Is(err, domain.ErrNotAllowed):
		writeErrorBody(w, http.StatusForbidden, "not_allowed", unwrapMessage(err, domain.ErrNotAllowed))
	case errors.Is(err, service.ErrOptimizerUnavailable):
		writeErrorBody(w, http.StatusBadGateway, "upstream_unavailable", "route optimizer is not configured")
	case errors.As(err, &routeStatus), errors.As(err, &slotStatus), errors.Is(err, routing.ErrNoRoute):
		slog.WarnContext(r.Context(), "upstream failure", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		writeErrorBody(w, http.StatusBadGateway, "upstream_error", "an upstream service failed")
	default:
		slog.ErrorContext(r.Context(), "request failed", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		writeErrorBody(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// unwrapMessage extracts the human-readable part after a wrapped sentinel.
// e.g. "service.StopService.Add: validation error: duration is required" → "duration is required"
func unwrapMessage(err, sentinel error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	prefix := sentinel.Error() + ": "
	if i := strings.LastIndex(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return sentinel.Error()
}
