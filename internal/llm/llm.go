package llm

import (
	"context"
	"errors"
)

// GenerationConfig carries the provider generation parameters loaded from
// configuration. Nil fields defer to provider defaults.
type GenerationConfig struct {
	Temperature *float32
	TopP        *float32
	TopK        *int32
}

// Client abstracts the LLM provider. Implementations must request a
// JSON-only response mode; callers treat the returned text as an opaque
// candidate JSON document and validate it separately.
type Client interface {
	GenerateJSON(ctx context.Context, prompt string, cfg GenerationConfig) (string, error)
}

// TransportError marks a provider or network failure, as opposed to a
// response that arrived but failed parsing or validation. Deadline expiry
// on the call context is also surfaced this way.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "llm transport: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
