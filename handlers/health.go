package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/akinalp/yapyap/pkg"
)

// Pinger, veritabanı bağlantısını kontrol eder (*sql.DB karşılar).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Counter, online kullanıcı sayısını döner (*ws.Hub karşılar).
type Counter interface {
	Count() int
}

// HealthResponse, health endpoint'inin yanıtı.
type HealthResponse struct {
	Status      string `json:"status"`
	OnlineUsers int    `json:"onlineUsers"`
}

// HealthHandler, auth gerektirmeyen sağlık kontrolü.
type HealthHandler struct {
	db  Pinger
	hub Counter
}

// NewHealthHandler, constructor.
func NewHealthHandler(db Pinger, hub Counter) *HealthHandler {
	return &HealthHandler{db: db, hub: hub}
}

// Check, DB'ye ping atar ve online sayısını döner.
//
// GET /api/health
// DB erişilemiyorsa 503.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		pkg.ErrorWithMessage(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}

	pkg.JSON(w, http.StatusOK, HealthResponse{Status: "ok", OnlineUsers: h.hub.Count()})
}
