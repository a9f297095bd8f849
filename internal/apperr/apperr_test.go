package apperr_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"taskmate/internal/apperr"
)

type netErr struct{}

func (netErr) Error() string        { return "connection refused" }
func (netErr) NetworkFailure() bool { return true }

func TestFromHTTP(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind apperr.Kind
		wantMsg  string
		status   int
	}{
		{
			name:     "unauthorized with server message",
			err:      &googleapi.Error{Code: 401, Message: "Invalid credentials"},
			wantKind: apperr.Authentication,
			wantMsg:  "Invalid credentials",
			status:   401,
		},
		{
			name:     "validation without message uses fallback",
			err:      &googleapi.Error{Code: 422},
			wantKind: apperr.Validation,
			wantMsg:  "Failed to add task.",
			status:   422,
		},
		{
			name:     "server error",
			err:      fmt.Errorf("send: %w", &googleapi.Error{Code: 503, Message: "down"}),
			wantKind: apperr.Internal,
			wantMsg:  "down",
			status:   503,
		},
		{
			name:     "network failure",
			err:      netErr{},
			wantKind: apperr.Network,
			wantMsg:  "Failed to add task.",
		},
		{
			name:     "deadline",
			err:      context.DeadlineExceeded,
			wantKind: apperr.Network,
			wantMsg:  "Failed to add task.",
		},
		{
			name:     "unknown",
			err:      errors.New("boom"),
			wantKind: apperr.Internal,
			wantMsg:  "Failed to add task.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := apperr.FromHTTP("addTask", tt.err, "Failed to add task.")
			require.NotNil(t, got)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantMsg, got.Message)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, "addTask", got.Op)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestFromHTTP_Nil(t *testing.T) {
	assert.Nil(t, apperr.FromHTTP("op", nil, "fallback"))
}

func TestIsUnauthorized(t *testing.T) {
	assert.True(t, apperr.IsUnauthorized(&googleapi.Error{Code: 401}))
	assert.True(t, apperr.IsUnauthorized(apperr.FromHTTP("op", &googleapi.Error{Code: 401}, "x")))
	assert.False(t, apperr.IsUnauthorized(&googleapi.Error{Code: 403}))
	assert.False(t, apperr.IsUnauthorized(errors.New("401")))
}

func TestKindOf(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", apperr.New(apperr.NotAuthenticated, "fetchTasks", apperr.MsgNotAuthenticated))
	assert.Equal(t, apperr.NotAuthenticated, apperr.KindOf(err))
	assert.Equal(t, apperr.Internal, apperr.KindOf(errors.New("plain")))
}
