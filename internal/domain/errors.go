package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing start time, duration outside (0,10] hours).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrConflict is returned when an operation cannot proceed without the caller
// deciding something first: a schedule conflict that needs explicit
// confirmation, or a batch that is already in flight for the same tour.
// Handlers should map this to HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrNotAllowed is returned when the acting user may not perform the
// transition, e.g. self-approving a listing that requires the listing agent.
// Handlers should map this to HTTP 403.
var ErrNotAllowed = errors.New("not allowed")

// ErrTourComplete is returned by any mutation against a complete tour.
// Complete tours can only be copied.
var ErrTourComplete = errors.New("tour is complete")
