// Package services, business logic katmanını barındırır.
//
// Handler / ws katmanı ile Repository arasında oturur. İş kuralları burada
// yaşar: yetki kontrolleri, düzenleme süresi, otomatik okundu bilgisi.
//
// Service ASLA http.Request bilmez ve doğrudan SQL çalıştırmaz: Repository
// interface'lerini ve ws.EventPublisher'ı kullanır. Her operasyonun sırası:
// persist → hesapla → broadcast.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/akinalp/yapyap/models"
	"github.com/akinalp/yapyap/pkg"
	"github.com/akinalp/yapyap/pkg/cache"
	"github.com/akinalp/yapyap/repository"
)

// AuthService, access token doğrulama.
//
// Token'ları bu süreç üretmez: login/register dış auth servisinin işi.
// Burada sadece imza, süre ve kullanıcının varlığı kontrol edilir.
type AuthService interface {
	// ValidateAccessToken, token'ı parse eder ve claim'leri döner.
	ValidateAccessToken(tokenString string) (*models.TokenClaims, error)
	// Authenticate, token'ı doğrular ve kullanıcıyı bulur. ws.Handler
	// ve HTTP middleware tarafından kullanılır.
	Authenticate(ctx context.Context, tokenString string) (*models.UserSummary, error)
}

type authService struct {
	userRepo  repository.UserRepository
	users     *cache.TTLCache[string, models.UserSummary]
	jwtSecret []byte
}

// NewAuthService, constructor. users nil olabilir (cache'siz lookup).
func NewAuthService(
	userRepo repository.UserRepository,
	users *cache.TTLCache[string, models.UserSummary],
	jwtSecret string,
) AuthService {
	return &authService{
		userRepo:  userRepo,
		users:     users,
		jwtSecret: []byte(jwtSecret),
	}
}

// ValidateAccessToken, HMAC imzalı token'ı doğrular.
//
// Reddetme sebepleri ayrı error'lardır: süresi dolmuş token ErrExpiredToken,
// imza / format / algoritma hatası ErrInvalidToken.
func (s *authService) ValidateAccessToken(tokenString string) (*models.TokenClaims, error) {
	if tokenString == "" {
		return nil, pkg.ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(t *jwt.Token) (any, error) {
		// "alg: none" ve RSA/HMAC karışıklığı saldırılarına karşı
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, pkg.ErrExpiredToken
		}
		return nil, pkg.ErrInvalidToken
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok || !token.Valid || claims.SubjectID() == "" {
		return nil, pkg.ErrInvalidToken
	}
	return claims, nil
}

// Authenticate, token'daki kullanıcıyı (cache'ten veya DB'den) döner.
// Var olmayan kullanıcı ErrUnknownUser'dır; DB hataları ErrInternal sarar.
func (s *authService) Authenticate(ctx context.Context, tokenString string) (*models.UserSummary, error) {
	claims, err := s.ValidateAccessToken(tokenString)
	if err != nil {
		return nil, err
	}

	userID := claims.SubjectID()
	load := func() (models.UserSummary, error) {
		user, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, pkg.ErrNotFound) {
				return models.UserSummary{}, pkg.ErrUnknownUser
			}
			return models.UserSummary{}, fmt.Errorf("%w: failed to load user %s: %v", pkg.ErrInternal, userID, err)
		}
		return user.Summary(), nil
	}

	var summary models.UserSummary
	if s.users != nil {
		summary, err = s.users.GetOrLoad(userID, load)
	} else {
		summary, err = load()
	}
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
