// Package middleware, HTTP request pipeline'ına eklenen ara katmanları barındırır.
//
// Middleware bir fonksiyondur: func(next http.Handler) http.Handler.
// Kendi işini yapar (ör: token doğrula), sonra next'i çağırır; hata varsa
// next'i çağırmaz ve request burada durur.
package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/akinalp/yapyap/handlers"
	"github.com/akinalp/yapyap/models"
	"github.com/akinalp/yapyap/pkg"
)

// Authenticator, token'ı kullanıcıya çevirir (services.AuthService karşılar).
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.UserSummary, error)
}

// AuthMiddleware, Bearer token doğrulama middleware'ı.
type AuthMiddleware struct {
	auth Authenticator
}

// NewAuthMiddleware, constructor.
func NewAuthMiddleware(auth Authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// Require, geçerli token zorunlu kılar.
//
// Format: Authorization: Bearer <token>
// Token geçerliyse kullanıcı context'e eklenir, handler'lar
// handlers.UserFromContext ile okur. Aksi halde 401 ve reddetme sebebi
// ("unauthorized: expired token") döner.
func (m *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header != "" && !strings.HasPrefix(header, "Bearer ") {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "invalid authorization format, use: Bearer <token>")
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

		user, err := m.auth.Authenticate(r.Context(), token)
		if err != nil {
			if !errors.Is(err, pkg.ErrUnauthorized) {
				log.Printf("[auth] token authentication failed: %v", err)
			}
			pkg.Error(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(handlers.WithUser(r.Context(), user)))
	})
}
