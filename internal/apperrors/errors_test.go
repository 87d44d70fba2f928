package apperrors_test

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/jonesrussell/north-cloud/draft-review/internal/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestParseHTTPError(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantNil    bool
		wantMsg    string
		wantCode   string
		wantStatus int
	}{
		{name: "success is nil", status: http.StatusOK, body: "{}", wantNil: true},
		{
			name: "error field", status: http.StatusConflict,
			body:    `{"error":"draft is not pending","code":"invalid_transition"}`,
			wantMsg: "draft is not pending", wantCode: "invalid_transition", wantStatus: http.StatusConflict,
		},
		{
			name: "message field", status: http.StatusNotFound,
			body:    `{"message":"draft not found"}`,
			wantMsg: "draft not found", wantStatus: http.StatusNotFound,
		},
		{
			name: "plain body", status: http.StatusBadGateway,
			body:    "upstream down",
			wantMsg: "upstream down", wantStatus: http.StatusBadGateway,
		},
		{
			name: "empty body", status: http.StatusInternalServerError,
			wantMsg: "Internal Server Error", wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := apperrors.ParseHTTPError(response(tt.status, tt.body))
			if tt.wantNil {
				assert.NoError(t, err)
				return
			}

			var se *apperrors.ServiceError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.wantMsg, se.Message)
			assert.Equal(t, tt.wantCode, se.Code)
			assert.Equal(t, tt.wantStatus, apperrors.StatusOf(err))
		})
	}
}

func TestTaxonomy(t *testing.T) {
	transport := &apperrors.TransportError{Op: "list drafts", Err: errors.New("connection refused")}
	wrapped := fmt.Errorf("load: %w", transport)

	assert.True(t, apperrors.IsTransport(wrapped))
	assert.Equal(t, apperrors.StatusTransport, apperrors.StatusOf(wrapped))
	assert.False(t, apperrors.IsValidation(wrapped))

	validation := apperrors.NewValidation("id", "is required")
	assert.True(t, apperrors.IsValidation(validation))
	assert.Equal(t, "validation failed on id: is required", validation.Error())

	conflict := &apperrors.ServiceError{StatusCode: http.StatusConflict, Message: "nope"}
	assert.True(t, apperrors.IsConflict(conflict))
	assert.False(t, errors.Is(conflict, apperrors.ErrSessionExpired))
}

func TestSessionExpiredMatchesByStatusAndCode(t *testing.T) {
	err := fmt.Errorf("stats: %w", &apperrors.ServiceError{
		StatusCode: http.StatusUnauthorized,
		Message:    "token expired",
		Code:       "session_expired",
	})

	assert.ErrorIs(t, err, apperrors.ErrSessionExpired)
	assert.True(t, apperrors.IsUnauthorized(err))
}
