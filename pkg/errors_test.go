package pkg

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		err     error
		code    string
		status  int
		message string
	}{
		{fmt.Errorf("%w: content is required", ErrBadRequest), CodeInputError, http.StatusBadRequest, "bad request: content is required"},
		{fmt.Errorf("%w: not a participant", ErrForbidden), CodeAccessDenied, http.StatusForbidden, "access denied: not a participant"},
		{fmt.Errorf("%w: message", ErrNotFound), CodeNotFound, http.StatusNotFound, "not found: message"},
		{ErrEditWindowExpired, CodeEditWindowExpired, http.StatusForbidden, "edit window expired"},
		{ErrRateLimited, CodeRateLimited, http.StatusTooManyRequests, "rate limited"},
		{ErrExpiredToken, CodeUnauthorized, http.StatusUnauthorized, "unauthorized: expired token"},
		{fmt.Errorf("%w: failed to create message: disk full", ErrInternal), CodeOperationFailed, http.StatusInternalServerError, "operation failed"},
		{errors.New("database is locked"), CodeOperationFailed, http.StatusInternalServerError, "operation failed"},
	}

	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			require.Equal(t, tc.code, ErrorCode(tc.err))
			require.Equal(t, tc.status, mapErrorToStatus(tc.err))
			require.Equal(t, tc.message, PublicMessage(tc.err))
		})
	}
}

func TestAuthErrorsWrapUnauthorized(t *testing.T) {
	for _, err := range []error{ErrMissingToken, ErrInvalidToken, ErrExpiredToken, ErrUnknownUser} {
		require.ErrorIs(t, err, ErrUnauthorized)
	}
}

func TestErrorResponse(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, fmt.Errorf("%w: failed to load chat c1: boom", ErrInternal))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.False(t, resp.Success)
	require.Equal(t, "operation failed", resp.Error)
	require.NotContains(t, w.Body.String(), "boom")
}
