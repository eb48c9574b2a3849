package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/akinalp/yapyap/handlers"
	"github.com/akinalp/yapyap/models"
	"github.com/akinalp/yapyap/pkg"
)

type stubAuth struct{}

func (stubAuth) Authenticate(_ context.Context, token string) (*models.UserSummary, error) {
	switch token {
	case "":
		return nil, pkg.ErrMissingToken
	case "good":
		return &models.UserSummary{ID: "u1", Username: "alice"}, nil
	case "expired":
		return nil, pkg.ErrExpiredToken
	default:
		return nil, errors.New("database is locked")
	}
}

func TestAuthMiddleware_Require(t *testing.T) {
	var seen *models.UserSummary
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = handlers.UserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := NewAuthMiddleware(stubAuth{}).Require(next)

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid", "Bearer good", http.StatusNoContent, ""},
		{"missing", "", http.StatusUnauthorized, "missing token"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "invalid authorization format"},
		{"expired", "Bearer expired", http.StatusUnauthorized, "expired token"},
		{"lookup failure", "Bearer boom", http.StatusInternalServerError, "operation failed"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen = nil
			r := httptest.NewRequest(http.MethodGet, "/api/presence", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			require.Equal(t, tc.status, w.Code)
			require.Contains(t, w.Body.String(), tc.body)
			if tc.status == http.StatusNoContent {
				require.Equal(t, "u1", seen.ID)
			} else {
				require.Nil(t, seen)
			}
		})
	}
}
