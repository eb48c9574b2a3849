package ws

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/akinalp/yapyap/models"
	"github.com/akinalp/yapyap/pkg"
)

// ConnectionAuthenticator, bağlantı kurulmadan önce token'ı kullanıcıya çevirir.
//
// services paketi ws.EventPublisher'ı kullandığı için ws services'i import
// edemez: küçük bir interface tanımlanır, AuthService bunu implicit karşılar.
// Dönen error'lar pkg.ErrMissingToken / ErrInvalidToken / ErrExpiredToken /
// ErrUnknownUser olmalı.
type ConnectionAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*models.UserSummary, error)
}

// Handler, /ws endpoint'i.
type Handler struct {
	hub      *Hub
	auth     ConnectionAuthenticator
	upgrader websocket.Upgrader
}

// NewHandler, constructor. allowedOrigins boşsa her origin kabul edilir
// (development). "*" de her origin anlamına gelir.
func NewHandler(hub *Hub, auth ConnectionAuthenticator, allowedOrigins []string) *Handler {
	return &Handler{
		hub:  hub,
		auth: auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// HandleConnection, token'ı doğrular, bağlantıyı upgrade eder ve pump'ları başlatır.
//
// Tarayıcılar WebSocket upgrade'inde custom header gönderemez; token
// ?token= query parametresinden okunur. Header gönderebilen client'lar için
// "Authorization: Bearer <token>" da kabul edilir.
//
// Auth reddi upgrade'den önce 401 ile döner: Connection hiç oluşmaz.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.Authenticate(r.Context(), TokenFromRequest(r))
	if err != nil {
		if errors.Is(err, pkg.ErrUnauthorized) {
			http.Error(w, pkg.PublicMessage(err), http.StatusUnauthorized)
			return
		}
		log.Printf("[ws] connection auth failed: %v", err)
		http.Error(w, pkg.PublicMessage(err), http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed for user %s: %v", user.ID, err)
		return
	}

	client := NewClient(h.hub, conn, user.ID, user.Username)
	h.hub.Admit(client)

	go client.WritePump()
	client.ReadPump() // bağlantı kapanana kadar bloklar
}

// TokenFromRequest, token'ı query parametresinden, yoksa Authorization
// header'ından okur. İkisi de yoksa "" döner.
func TokenFromRequest(r *http.Request) string {
	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return token
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Tarayıcı dışı client'lar (mobil, CLI) Origin göndermez
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
