package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{
			name:       "domain error passes through",
			err:        NewForbidden("nope"),
			wantCode:   CodeForbidden,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "wrapped domain error",
			err:        fmt.Errorf("escalate: %w", NewNotFound("ticket", nil)),
			wantCode:   CodeNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "no rows becomes not found",
			err:        pgx.ErrNoRows,
			wantCode:   CodeNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unknown error is internal",
			err:        errors.New("connection reset by peer"),
			wantCode:   CodeInternal,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "generation exhausted",
			err:        NewGenerationExhausted(5, nil),
			wantCode:   CodeGenerationExhausted,
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToDomainError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.wantStatus, got.HTTPStatus)
		})
	}
}

func TestInternalErrorHidesCause(t *testing.T) {
	cause := errors.New("pq: relation \"incident_tickets\" does not exist")
	got := ToDomainError(cause)

	assert.Equal(t, internalErrorMessage, got.Message)
	assert.ErrorIs(t, got, cause)
}

func TestHasCode(t *testing.T) {
	assert.True(t, HasCode(NewConflict("no default assignee", nil), CodeConflict))
	assert.False(t, HasCode(errors.New("plain"), CodeConflict))
	assert.Nil(t, MapError(nil))
}
