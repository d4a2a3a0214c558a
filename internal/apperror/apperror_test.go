package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestConstructorsMatchSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		sentinel error
	}{
		{"not found", NotFound("letter", "l1"), ErrNotFound},
		{"validation", ValidationFailed("emoji", "emoji is required"), ErrValidation},
		{"conflict", Conflict("user", "username already in use"), ErrConflict},
		{"forbidden", Forbidden("not allowed"), ErrForbidden},
		{"unauthorized", Unauthorized("invalid credentials"), ErrUnauthorized},
		{"unavailable", Unavailable("storage failed", nil), ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%v, sentinel) = false", tt.err)
			}
			if tt.err.Error() == "" {
				t.Error("Error() is empty")
			}
		})
	}
}

func TestUnavailablePreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Unavailable("storage write failed", cause)

	if !errors.Is(err, ErrUnavailable) {
		t.Error("lost the unavailable sentinel")
	}
	if !errors.Is(err, cause) {
		t.Error("lost the wrapped cause")
	}
	if err.Error() != "storage write failed" {
		t.Errorf("Error() = %q, want the message only", err.Error())
	}
}

func TestIsMatchesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("handling request: %w", NotFound("photo", "p1"))

	if !errors.Is(err, ErrNotFound) {
		t.Error("errors.Is through fmt.Errorf wrap = false")
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatal("errors.As through fmt.Errorf wrap = false")
	}
	if appErr.Message != "photo not found with id p1" {
		t.Errorf("Message = %q", appErr.Message)
	}
}

func TestValidationFailedCarriesField(t *testing.T) {
	err := ValidationFailed("title", "title is required")
	if err.Field != "title" {
		t.Errorf("Field = %q, want title", err.Field)
	}
	if err.Error() != "title is required" {
		t.Errorf("Error() = %q", err.Error())
	}
}
