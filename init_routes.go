// Package main, HTTP route registration.
package main

import (
	"net/http"

	"github.com/akinalp/yapyap/middleware"
	"github.com/akinalp/yapyap/pkg/ratelimit"
	"github.com/akinalp/yapyap/services"
)

// initRoutes, middleware chain'i kurar ve tüm endpoint'leri mux'a bağlar.
//
// Literal path'ler parametrik path'lerden önce tanımlanır.
func initRoutes(
	mux *http.ServeMux,
	h *Handlers,
	authService services.AuthService,
	connectLimiter *ratelimit.ConnectRateLimiter,
) {
	authMw := middleware.NewAuthMiddleware(authService)

	auth := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(handler)
	}

	// Health, auth gerektirmez
	mux.HandleFunc("GET /api/health", h.Health.Check)

	// Presence
	mux.Handle("GET /api/presence", auth(h.Presence.List))
	mux.Handle("GET /api/presence/{userId}", auth(h.Presence.Get))

	// WebSocket: tarayıcılar upgrade sırasında header gönderemediği için
	// token ?token= ile gelir, doğrulamayı ws handler kendisi yapar.
	// Upgrade denemeleri IP bazlı limitlenir.
	mux.Handle("GET /ws", connectLimiter.Middleware(http.HandlerFunc(h.WS.HandleConnection)))
}
