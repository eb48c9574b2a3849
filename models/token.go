package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims, JWT access token'ın payload'ı.
//
// Token'lar bu servis tarafından üretilmez: auth servisi imzalar, biz sadece
// doğrularız. Eski token'larda kullanıcı kimliği "userId" yerine standart
// "sub" claim'inde gelebilir; SubjectID ikisini de destekler.
type TokenClaims struct {
	UserID   string `json:"userId,omitempty"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// SubjectID, token'ın taşıdığı kullanıcı kimliğini döner.
// userId yoksa sub claim'ine düşer; ikisi de boşsa "" döner.
func (c *TokenClaims) SubjectID() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}
