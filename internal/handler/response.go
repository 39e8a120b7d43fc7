package handler

// RESPONSE HELPERS:
// Every error response has the same shape:
//   {"error": "invalid_token", "message": "token expired"}
//
// so the front end can always parse it, whatever the status code.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/discord-relay/internal/apperror"
)

// ErrorResponse is the standard error format returned by all endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"` // Human-readable description
}

// writeJSON sends a JSON response with the given status code.
// Headers and status must be written before the body.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// WriteError maps a domain error to the appropriate HTTP status code and
// sends it. It is exported so auth.RequireAuth can render its failures the
// same way the handlers do.
//
// ERROR MAPPING:
//
//	ErrValidation        → 400
//	ErrMissingCredential → 401
//	ErrInvalidToken      → 401
//	ErrNotFound          → 404
//	ErrConflict          → 409
//	ErrProvider          → the provider's own status
//	anything else        → 500, details withheld
func WriteError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError

	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrMissingCredential):
			status = http.StatusUnauthorized
			errorType = "missing_credential"
		case errors.Is(err, apperror.ErrInvalidToken):
			status = http.StatusUnauthorized
			errorType = "invalid_token"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			errorType = "conflict"
		case errors.Is(err, apperror.ErrProvider):
			status = appErr.Status
			if status == 0 {
				status = http.StatusBadGateway
			}
			errorType = "provider_error"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
		})
		return
	}

	// Unknown error: the raw message may contain SQL or file paths.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}
