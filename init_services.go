// Package main, service katmanı başlatma.
//
// Sıralama: hub service'lerden önce oluşturulur (service'ler hub'a
// EventPublisher olarak yayın yapar), callback'ler service'lerden sonra
// bağlanır.
package main

import (
	"log"
	"time"

	"github.com/akinalp/yapyap/config"
	"github.com/akinalp/yapyap/models"
	"github.com/akinalp/yapyap/pkg/cache"
	"github.com/akinalp/yapyap/pkg/email"
	"github.com/akinalp/yapyap/pkg/ratelimit"
	"github.com/akinalp/yapyap/services"
	"github.com/akinalp/yapyap/ws"
)

// userCacheCleanup, süresi dolmuş kullanıcı özetlerinin temizlenme aralığı.
const userCacheCleanup = 5 * time.Minute

// Services, service instance'larını tutan container struct.
type Services struct {
	Auth     services.AuthService
	Message  services.MessageService
	Room     services.RoomService
	Presence services.PresenceService
}

// RateLimiters, rate limiter instance'larını tutan container.
type RateLimiters struct {
	Connect *ratelimit.ConnectRateLimiter
	Message *ratelimit.MessageRateLimiter
}

// Stop, limiter'ların cleanup goroutine'lerini durdurur.
func (r *RateLimiters) Stop() {
	r.Connect.Stop()
	r.Message.Stop()
}

// initServices, service'leri, rate limiter'ları ve kullanıcı cache'ini oluşturur.
func initServices(repos *Repositories, hub *ws.Hub, cfg *config.Config) (*Services, *RateLimiters, *cache.TTLCache[string, models.UserSummary]) {
	limiters := &RateLimiters{
		Connect: ratelimit.NewConnectRateLimiter(cfg.Connect.MaxAttempts, cfg.Connect.Window, cfg.Connect.TrustedProxies),
		Message: ratelimit.NewMessageRateLimiter(cfg.Messaging.RateLimit, cfg.Messaging.RateWindow, cfg.Messaging.RateCooldown),
	}

	users := cache.New[string, models.UserSummary](cfg.Cache.UserTTL, userCacheCleanup)

	svcs := &Services{
		Auth: services.NewAuthService(repos.User, users, cfg.JWT.Secret),
		Message: services.NewMessageService(repos.Message, repos.Chat, hub, services.MessageOptions{
			Limiter: limiters.Message,
			Offline: initNotifier(repos, cfg.Email),
		}),
		Room:     services.NewRoomService(repos.Chat, hub, hub),
		Presence: services.NewPresenceService(repos.User, repos.Chat, hub, nil),
	}

	return svcs, limiters, users
}

// initNotifier, email ayarları tamsa Resend notifier'ı, değilse log notifier'ı döner.
func initNotifier(repos *Repositories, cfg config.EmailConfig) services.OfflineNotifier {
	if !cfg.Enabled() {
		log.Println("[main] email not configured, offline notifications are logged only")
		return services.LogNotifier{}
	}
	sender := email.NewResendSender(cfg.ResendAPIKey, cfg.From, cfg.AppURL)
	log.Printf("[main] offline email notifications enabled (from=%s)", cfg.From)
	return services.NewEmailNotifier(repos.User, sender)
}
