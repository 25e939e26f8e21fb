package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredicatesSurviveWrapping(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		code  int
	}{
		{"validation", NewValidationError("log_line is required"), IsValidation, http.StatusBadRequest},
		{"insufficient users", NewInsufficientUsersError("engineer"), IsInsufficientUsers, http.StatusConflict},
		{"not found", NewNotFoundError("Ticket not found"), IsNotFound, http.StatusNotFound},
		{"backend", NewBackendError("insert ticket", errors.New("connection reset")), IsBackend, http.StatusInternalServerError},
		{"upstream", NewUpstreamError("start agent", errors.New("refused")), IsBackend, http.StatusBadGateway},
		{"auth", NewAuthError("Invalid token"), IsAuth, http.StatusUnauthorized},
		{"forbidden", NewForbiddenError("Admin access required"), IsForbidden, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("handler: %w", tt.err)
			assert.True(t, tt.check(wrapped))
			assert.Equal(t, tt.code, StatusCode(wrapped))
		})
	}
}

func TestPredicatesDoNotCrossTypes(t *testing.T) {
	err := NewNotFoundError("Ticket not found")
	assert.False(t, IsValidation(err))
	assert.False(t, IsBackend(err))
	assert.False(t, IsNotFound(errors.New("plain")))
}

func TestBackendErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("deadlock detected")
	err := NewBackendError("advance tracker", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "advance tracker")
	assert.Contains(t, err.Error(), "deadlock detected")
}

func TestPublicMessageHidesDetail(t *testing.T) {
	err := NewBackendError("insert ticket", errors.New("pq: duplicate key value"))
	assert.NotContains(t, PublicMessage(err), "pq:")

	assert.Equal(t, "Something went wrong, please try again", PublicMessage(errors.New("raw")))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(errors.New("raw")))
}

func TestInsufficientUsersNamesRoles(t *testing.T) {
	err := NewInsufficientUsersError("engineer", "support")

	appErr, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, "empty role pools: engineer, support", appErr.Details)
}
