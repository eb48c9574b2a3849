// Package main, yapyap realtime mesajlaşma sunucusunun giriş noktasıdır.
//
// Bu dosyanın görevi Dependency Injection "wire-up":
//  1. Config'i yükle
//  2. Database'i aç, gömülü migration'ları uygula
//  3. Repository'leri oluştur
//  4. WebSocket Hub'ı oluştur
//  5. Service'leri ve rate limiter'ları oluştur
//  6. Hub callback'lerini bağla, hub'ı başlat
//  7. Handler'ları ve route'ları kur, CORS ile sar
//  8. HTTP Server'ı başlat, sinyal gelince graceful shutdown
//
// Global değişken yok; her şey newApp içinde oluşturulup birbirine bağlanır.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/akinalp/yapyap/config"
	"github.com/akinalp/yapyap/database"
	"github.com/akinalp/yapyap/models"
	"github.com/akinalp/yapyap/pkg/cache"
	"github.com/akinalp/yapyap/ws"
)

// shutdownTimeout, açık HTTP isteklerinin bitmesi için beklenen süre.
const shutdownTimeout = 5 * time.Second

// app, çalışan sunucunun bütün parçalarını tutar.
// Testler newApp ile aynı grafiği httptest.Server arkasında kurar.
type app struct {
	db       *database.DB
	hub      *ws.Hub
	limiters *RateLimiters
	users    *cache.TTLCache[string, models.UserSummary]
	handler  http.Handler
}

// newApp, config'e göre bütün katmanları oluşturur ve hub'ı başlatır.
func newApp(cfg *config.Config) (*app, error) {
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	repos := initRepositories(db.Conn)
	hub := ws.NewHub()
	svcs, limiters, users := initServices(repos, hub, cfg)

	// Callback'ler Run'dan önce set edilmeli, Run sonrası değişmez
	registerHubCallbacks(hub, svcs)
	go hub.Run()

	h := initHandlers(db.Conn, svcs, hub, cfg)
	mux := http.NewServeMux()
	initRoutes(mux, h, svcs.Auth, limiters.Connect)

	return &app{
		db:       db,
		hub:      hub,
		limiters: limiters,
		users:    users,
		handler:  newCORS(cfg.Server.CORSOrigins).Handler(mux),
	}, nil
}

// newCORS, REST endpoint'leri için CORS ayarları. Liste boşsa her origin kabul edilir.
func newCORS(origins []string) *cors.Cors {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	})
}

// Close, websocket bağlantılarını kapatır ve arka plan goroutine'lerini durdurur.
func (a *app) Close() error {
	a.hub.Shutdown()
	a.limiters.Stop()
	a.users.Close()
	return a.db.Close()
}

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("[main] yapyap server starting...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[main] failed to load config: %v", err)
	}
	log.Printf("[main] config loaded (port=%d)", cfg.Server.Port)

	a, err := newApp(cfg)
	if err != nil {
		log.Fatalf("[main] %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("[main] server listening on %s", cfg.Server.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[main] server error: %v", err)
		}
	}()

	<-done
	log.Println("[main] shutting down...")

	// Önce yeni istek kabulü durur, sonra websocket'ler kapanır, en son DB.
	// Hijack edilmiş ws bağlantılarını srv.Shutdown beklemez.
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[main] forced shutdown: %v", err)
	}
	if err := a.Close(); err != nil {
		log.Printf("[main] failed to close database: %v", err)
	}

	log.Println("[main] server stopped gracefully")
}
