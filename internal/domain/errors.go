package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing trace name).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrInvalidTrace is matched by every parse failure: a document that is not a
// valid trace, a point with an unparseable coordinate or time, or a container
// that reduces to nothing. No partial trace accompanies it.
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrInvalidTrace = errors.New("not a valid trace document")

// ErrTooLarge is returned when an uploaded document exceeds the configured
// size limit. Handlers should map this to HTTP 413.
var ErrTooLarge = errors.New("document too large")
