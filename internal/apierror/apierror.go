// Package apierror provides the standard error envelopes for the API.
// Everything returned to clients on failure goes through here so internal
// details (stack traces, SQL errors) never leak. Capacity conflicts are the
// exception: they carry their own structured bodies (see internal/dto).
package apierror

// APIError is the canonical error envelope for plain 4xx/5xx responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Fields: fields}
}
