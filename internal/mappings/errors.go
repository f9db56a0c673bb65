package mappings

import "errors"

var (
	// ErrNotFound is returned when no mapping session exists for an id.
	ErrNotFound = errors.New("mapping session not found")

	// ErrInvalidTransition is returned when an operation is attempted in
	// a state that does not allow it.
	ErrInvalidTransition = errors.New("invalid state transition")
)

// Stable error codes surfaced on failed sessions and API responses.
const (
	CodeTransportError        = "TRANSPORT_ERROR"
	CodeParseError            = "PARSE_ERROR"
	CodeSchemaValidationError = "SCHEMA_VALIDATION_ERROR"
	CodeInternalError         = "INTERNAL_ERROR"
)
