// Package handlers, HTTP request/response işlemlerini yönetir.
//
// Handler "ince" olmalı: request'i parse et, service'i çağır, sonucu
// pkg.JSON / pkg.Error ile döndür. İş mantığı service'te kalır.
//
// Realtime trafiğin tamamı /ws üzerinden akar; buradaki endpoint'ler
// WebSocket'i olmayan client'lar ve operasyon için okuma yüzeyidir.
package handlers

import (
	"net/http"

	"github.com/akinalp/yapyap/models"
	"github.com/akinalp/yapyap/pkg"
)

// PresenceSource, presence endpoint'lerinin ihtiyacı.
type PresenceSource interface {
	Online() models.PresenceSnapshot
}

// OnlineChecker, tek bir kullanıcının online durumunu söyler (*ws.Hub).
type OnlineChecker interface {
	IsOnline(userID string) bool
}

// PresenceHandler, presence endpoint'leri.
type PresenceHandler struct {
	presence PresenceSource
	online   OnlineChecker
}

// NewPresenceHandler, constructor.
func NewPresenceHandler(presence PresenceSource, online OnlineChecker) *PresenceHandler {
	return &PresenceHandler{presence: presence, online: online}
}

// UserPresence, GET /api/presence/{userId} yanıtı.
type UserPresence struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

// List, online kullanıcı sayısını ve roster'ı döner.
//
// GET /api/presence
// Response: { "success": true, "data": { "count": 2, "users": [{id, username}] } }
func (h *PresenceHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := UserFromContext(r.Context()); !ok {
		pkg.Error(w, pkg.ErrUnauthorized)
		return
	}

	pkg.JSON(w, http.StatusOK, h.presence.Online())
}

// Get, tek bir kullanıcının online olup olmadığını döner.
//
// GET /api/presence/{userId}
func (h *PresenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := UserFromContext(r.Context()); !ok {
		pkg.Error(w, pkg.ErrUnauthorized)
		return
	}

	userID := r.PathValue("userId")
	if userID == "" {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "userId is required")
		return
	}

	pkg.JSON(w, http.StatusOK, UserPresence{UserID: userID, IsOnline: h.online.IsOnline(userID)})
}
