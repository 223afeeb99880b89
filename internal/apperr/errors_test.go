package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("email is required"), http.StatusBadRequest},
		{"unauthorized", Unauthorized("invalid token"), http.StatusUnauthorized},
		{"forbidden", Forbidden("access denied"), http.StatusForbidden},
		{"not found", NotFound("figure not found"), http.StatusNotFound},
		{"conflict", Conflict("email value is already taken"), http.StatusConflict},
		{"double wrapped", fmt.Errorf("refresh: %w", Unauthorized("x")), http.StatusUnauthorized},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Status(tc.err))
		})
	}
}

func TestMessageKeepsSentinelPrefix(t *testing.T) {
	err := Conflict("email value is already taken")
	assert.EqualError(t, err, "conflict: email value is already taken")
	assert.ErrorIs(t, err, ErrConflict)
}
