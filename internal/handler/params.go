package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/showing-tours/internal/domain"
)

// userHeader carries the acting user. Authentication happens upstream.
const userHeader = "X-User-ID"

// pathUUID binds a UUID path parameter.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	var id uuid.UUID
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return id, nil
}

// actingUser binds the X-User-ID header.
func actingUser(r *http.Request) (uuid.UUID, error) {
	v := r.Header.Get(userHeader)
	if v == "" {
		return uuid.Nil, fmt.Errorf("%s header is required", userHeader)
	}
	var id uuid.UUID
	err := runtime.BindStyledParameterWithOptions("simple", userHeader, v, &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationHeader, Required: true})
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", userHeader, err)
	}
	return id, nil
}

// pagination binds ?page= and ?limit=.
func pagination(r *http.Request) (domain.PaginationParams, error) {
	var page, limit *int
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "page", q, &page); err != nil {
		return domain.PaginationParams{}, fmt.Errorf("invalid page: %w", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &limit); err != nil {
		return domain.PaginationParams{}, fmt.Errorf("invalid limit: %w", err)
	}
	return domain.NewPaginationParams(page, limit), nil
}

// queryBool binds an optional boolean query flag.
func queryBool(r *http.Request, name string) (bool, error) {
	var v *bool
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &v); err != nil {
		return false, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v != nil && *v, nil
}

// decode reads a JSON body into dst and runs its validate tags.
func (s *Server) decode(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return errors.New("request body is required")
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		}
		return fmt.Errorf("malformed JSON: %w", err)
	}
	if err := s.validate.Struct(dst); err != nil {
		return validationMessage(err)
	}
	return nil
}

// validationMessage flattens validator field errors into one line.
func validationMessage(err error) error {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return err
	}
	parts := make([]string, 0, len(fields))
	for _, fe := range fields {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", fe.Field()))
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		}
	}
	return errors.New(strings.Join(parts, "; "))
}
