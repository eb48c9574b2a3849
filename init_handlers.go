// Package main, handler katmanı başlatma.
//
// Handler'lar "thin" dir: HTTP parse, service call ve response write.
package main

import (
	"database/sql"

	"github.com/akinalp/yapyap/config"
	"github.com/akinalp/yapyap/handlers"
	"github.com/akinalp/yapyap/ws"
)

// Handlers, handler instance'larını tutan container struct.
type Handlers struct {
	Presence *handlers.PresenceHandler
	Health   *handlers.HealthHandler
	WS       *ws.Handler
}

// initHandlers, tüm HTTP handler'larını oluşturur.
func initHandlers(conn *sql.DB, svcs *Services, hub *ws.Hub, cfg *config.Config) *Handlers {
	return &Handlers{
		Presence: handlers.NewPresenceHandler(svcs.Presence, hub),
		Health:   handlers.NewHealthHandler(conn, hub),
		WS:       ws.NewHandler(hub, svcs.Auth, cfg.Server.CORSOrigins),
	}
}
