package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("user", "42"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("code", "code is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("user", "a@x.com"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "MissingCredential wraps ErrMissingCredential",
			err:       MissingCredential("refresh_token"),
			target:    ErrMissingCredential,
			wantMatch: true,
		},
		{
			name:      "InvalidToken wraps ErrInvalidToken",
			err:       InvalidToken("token expired"),
			target:    ErrInvalidToken,
			wantMatch: true,
		},
		{
			name:      "ProviderFailed wraps ErrProvider",
			err:       ProviderFailed(http.StatusUnauthorized, "bad code"),
			target:    ErrProvider,
			wantMatch: true,
		},
		{
			name:      "wrapped with fmt.Errorf still matches",
			err:       fmt.Errorf("service/auth: %w", InvalidToken("nope")),
			target:    ErrInvalidToken,
			wantMatch: true,
		},
		{
			name:      "InvalidToken does NOT match ErrMissingCredential",
			err:       InvalidToken("nope"),
			target:    ErrMissingCredential,
			wantMatch: false,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("user", "42"),
			target:    ErrValidation,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("user", "42"),
			wantMessage: "user not found with id 42",
		},
		{
			name:        "MissingCredential names the credential",
			err:         MissingCredential("access_token"),
			wantMessage: "access_token is required",
		},
		{
			name:        "Conflict message includes resource and id",
			err:         Conflict("user", "a@x.com"),
			wantMessage: "user conflict with id a@x.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestProviderFailedStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   int
	}{
		{"client error passes through", http.StatusBadRequest, http.StatusBadRequest},
		{"server error passes through", http.StatusServiceUnavailable, http.StatusServiceUnavailable},
		{"success status becomes bad gateway", http.StatusOK, http.StatusBadGateway},
		{"zero becomes bad gateway", 0, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProviderFailed(tt.status, "x").Status; got != tt.want {
				t.Errorf("Status = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	err := NotFound("user", "42")
	if unwrapped := err.Unwrap(); unwrapped != ErrNotFound {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, ErrNotFound)
	}
}
