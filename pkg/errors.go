// Package pkg, projede paylaşılan utility'leri barındırır.
// Bu dosya domain-level error tanımlarını ve WebSocket error kodlarını içerir.
//
// Error karşılaştırması string yerine errors.Is ile yapılır:
//
//	if errors.Is(err, pkg.ErrNotFound) { ... }
//
// Service katmanı error'ları fmt.Errorf("%w: ...", pkg.ErrX) ile sarar,
// handler ve ws katmanı errors.Is ile sınıflandırır.
package pkg

import (
	"errors"
	"fmt"
)

// Domain-level error'lar.
var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("access denied")
	ErrAlreadyExists = errors.New("already exists")
	ErrBadRequest    = errors.New("bad request")
	ErrInternal      = errors.New("internal error")

	// ErrEditWindowExpired, düzenleme süresi dolmuş mesajlar için döner.
	// ErrForbidden'dan ayrı tutulur: client özel bir uyarı gösterebilsin.
	ErrEditWindowExpired = errors.New("edit window expired")

	// ErrRateLimited, kullanıcı mesaj limitini aştığında döner.
	ErrRateLimited = errors.New("rate limited")
)

// Auth reddetme sebepleri. Hepsi ErrUnauthorized'ı sarar:
// errors.Is(pkg.ErrExpiredToken, pkg.ErrUnauthorized) == true
var (
	ErrMissingToken = fmt.Errorf("%w: missing token", ErrUnauthorized)
	ErrInvalidToken = fmt.Errorf("%w: invalid token", ErrUnauthorized)
	ErrExpiredToken = fmt.Errorf("%w: expired token", ErrUnauthorized)
	ErrUnknownUser  = fmt.Errorf("%w: unknown user", ErrUnauthorized)
)

// WebSocket error event'inde gönderilen kodlar.
// Frontend mesajı değil kodu kontrol eder.
const (
	CodeInputError        = "input_error"
	CodeAccessDenied      = "access_denied"
	CodeNotFound          = "not_found"
	CodeEditWindowExpired = "edit_window_expired"
	CodeRateLimited       = "rate_limited"
	CodeUnauthorized      = "unauthorized"
	CodeOperationFailed   = "operation_failed"
)

// operationFailedMessage, sınıflandırılamayan (persistence vb.) hatalarda
// client'a gösterilen genel mesaj. Asıl hata loglanır, dışarı sızmaz.
const operationFailedMessage = "operation failed"

// ErrorCode, bir error'ı WebSocket error koduna eşler.
// Sıralama önemli: ErrEditWindowExpired, ErrForbidden'dan önce kontrol edilir.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrBadRequest):
		return CodeInputError
	case errors.Is(err, ErrEditWindowExpired):
		return CodeEditWindowExpired
	case errors.Is(err, ErrForbidden):
		return CodeAccessDenied
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimited
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	default:
		return CodeOperationFailed
	}
}

// PublicMessage, client'a gösterilecek hata mesajını döner.
// Domain error'larında wrap edilmiş mesaj aynen gider
// ("access denied: not a participant"), diğerlerinde genel mesaj döner.
func PublicMessage(err error) string {
	if ErrorCode(err) == CodeOperationFailed {
		return operationFailedMessage
	}
	return err.Error()
}
