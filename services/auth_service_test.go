package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/yapyap/models"
	"github.com/akinalp/yapyap/pkg"
	"github.com/akinalp/yapyap/pkg/cache"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims models.TokenClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims(userID string) models.TokenClaims {
	return models.TokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestAuthService_RejectionReasons(t *testing.T) {
	users := newFakeUserRepo(models.User{ID: "u1", Username: "alice"})
	svc := NewAuthService(users, nil, testSecret)

	expired := validClaims("u1")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims("u1")).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := []struct {
		name  string
		token string
		want  error
	}{
		{"missing", "", pkg.ErrMissingToken},
		{"malformed", "not-a-jwt", pkg.ErrInvalidToken},
		{"wrong secret", signToken(t, "other-secret", validClaims("u1")), pkg.ErrInvalidToken},
		{"alg none", unsigned, pkg.ErrInvalidToken},
		{"no subject", signToken(t, testSecret, validClaims("")), pkg.ErrInvalidToken},
		{"expired", signToken(t, testSecret, expired), pkg.ErrExpiredToken},
		{"unknown user", signToken(t, testSecret, validClaims("ghost")), pkg.ErrUnknownUser},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Authenticate(context.Background(), tc.token)
			require.ErrorIs(t, err, tc.want)
			require.ErrorIs(t, err, pkg.ErrUnauthorized)
			require.Equal(t, pkg.CodeUnauthorized, pkg.ErrorCode(err))
		})
	}
}

func TestAuthService_AcceptsSubClaim(t *testing.T) {
	users := newFakeUserRepo(models.User{ID: "u1", Username: "alice"})
	svc := NewAuthService(users, nil, testSecret)

	claims := validClaims("")
	claims.Subject = "u1"

	user, err := svc.Authenticate(context.Background(), signToken(t, testSecret, claims))
	require.NoError(t, err)
	require.Equal(t, &models.UserSummary{ID: "u1", Username: "alice"}, user)
}

func TestAuthService_CachesUserLookup(t *testing.T) {
	users := newFakeUserRepo(models.User{ID: "u1", Username: "alice"})
	summaries := cache.New[string, models.UserSummary](time.Minute, 0)
	defer summaries.Close()
	svc := NewAuthService(users, summaries, testSecret)

	token := signToken(t, testSecret, validClaims("u1"))
	for i := 0; i < 3; i++ {
		user, err := svc.Authenticate(context.Background(), token)
		require.NoError(t, err)
		require.Equal(t, "alice", user.Username)
	}
	require.Equal(t, 1, users.getCalls)
}

func TestAuthService_LookupFailureIsInternal(t *testing.T) {
	users := newFakeUserRepo()
	users.getErr = errors.New("database is locked")
	svc := NewAuthService(users, nil, testSecret)

	_, err := svc.Authenticate(context.Background(), signToken(t, testSecret, validClaims("u1")))
	require.ErrorIs(t, err, pkg.ErrInternal)
	require.NotErrorIs(t, err, pkg.ErrUnauthorized)
}
