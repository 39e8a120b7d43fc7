// Package apperror defines the error kinds shared by every layer.
//
// Services and repositories return these; only the HTTP handlers translate
// them into status codes (see handler.writeError).
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation error")
	ErrConflict          = errors.New("conflict")
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidToken      = errors.New("invalid token")
	ErrProvider          = errors.New("identity provider error")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Status  int    // Optional: upstream HTTP status (provider errors only)
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// MissingCredential reports that no code or cookie was supplied.
func MissingCredential(name string) *AppError {
	return &AppError{
		Err:     ErrMissingCredential,
		Message: fmt.Sprintf("%s is required", name),
		Field:   name,
	}
}

// InvalidToken reports a credential that failed verification: bad
// signature, expired, or a refresh token that matches no user.
func InvalidToken(message string) *AppError {
	return &AppError{
		Err:     ErrInvalidToken,
		Message: message,
	}
}

// ProviderFailed wraps a non-200 answer from the identity provider.
// status is the provider's own status code and is passed through to the
// client unchanged.
func ProviderFailed(status int, message string) *AppError {
	if status < 400 || status > 599 {
		status = http.StatusBadGateway
	}
	return &AppError{
		Err:     ErrProvider,
		Message: message,
		Status:  status,
	}
}
