package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Validation("bad %s", "input"), http.StatusBadRequest},
		{NotFound("missing"), http.StatusNotFound},
		{Forbidden("admin only"), http.StatusForbidden},
		{Conflict("taken"), http.StatusConflict},
		{Unauthorized("login"), http.StatusUnauthorized},
		{fmt.Errorf("wrapped: %w", NotFound("missing")), http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestErrorMessageIsUserFacing(t *testing.T) {
	err := Validation("quantity must be at least %d", 1)
	if err.Error() != "quantity must be at least 1" {
		t.Fatalf("message = %q", err.Error())
	}
	if !errors.Is(err, ErrValidation) {
		t.Fatal("kind lost")
	}
}
