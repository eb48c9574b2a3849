// Package config, uygulamanın tüm konfigürasyonunu merkezi olarak yönetir.
// Environment variable'lardan okur, .env dosyasını da destekler.
//
// Her yerde ayrı ayrı os.Getenv() çağırmak yerine tek bir Config nesnesi taşınır;
// service'lere sadece ihtiyaç duydukları alt struct verilir.
package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/akinalp/yapyap/pkg/ratelimit"
)

// Config, uygulamanın tüm konfigürasyon değerlerini taşır.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Messaging MessagingConfig
	Connect   ConnectConfig
	Cache     CacheConfig
	Email     EmailConfig
}

// ServerConfig, HTTP server ayarları.
type ServerConfig struct {
	Host        string
	Port        int
	CORSOrigins []string // Boşsa her origin kabul edilir (development)
}

// DatabaseConfig, SQLite database ayarları.
type DatabaseConfig struct {
	Path string // SQLite dosya yolu (ör: ./data/yapyap.db)
}

// JWTConfig, token doğrulama ayarları. Token'ı auth servisi üretir,
// bu süreç sadece imzayı ve süreyi kontrol eder: secret iki tarafta aynı olmalı.
type JWTConfig struct {
	Secret string
}

// MessagingConfig, send_message limitleri. Düzenleme süresi sabittir
// (services.EditWindow) ve buradan değiştirilemez.
type MessagingConfig struct {
	RateLimit    int // RateWindow içinde izin verilen send_message sayısı
	RateWindow   time.Duration
	RateCooldown time.Duration // Limit aşılınca uygulanan bekleme
}

// ConnectConfig, /ws upgrade denemeleri için IP bazlı limit.
type ConnectConfig struct {
	MaxAttempts int
	Window      time.Duration
	// TrustedProxies, X-Forwarded-For / X-Real-IP okunacak reverse proxy
	// adresleri. Boşsa IP her zaman RemoteAddr'dan alınır.
	TrustedProxies []netip.Prefix
}

// CacheConfig, bağlanırken yapılan kullanıcı lookup'ının cache süresi.
type CacheConfig struct {
	UserTTL time.Duration
}

// EmailConfig, offline email bildirimi (Resend). Üç alan da doluysa aktif olur.
type EmailConfig struct {
	ResendAPIKey string
	From         string
	AppURL       string
}

// Enabled, email bildiriminin açık olup olmadığını döner.
func (c EmailConfig) Enabled() bool {
	return c.ResendAPIKey != "" && c.From != "" && c.AppURL != ""
}

// Load, environment variable'lardan Config oluşturur.
// .env dosyası varsa önce onu yükler (development kolaylığı için).
func Load() (*Config, error) {
	// .env dosyası yoksa hata vermez: production'da gerçek env kullanılır
	_ = godotenv.Load()

	port, err := getInt("SERVER_PORT", 9090)
	if err != nil {
		return nil, err
	}

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	rateLimit, err := getInt("MESSAGE_RATE_LIMIT", 10)
	if err != nil {
		return nil, err
	}
	rateWindow, err := getInt("MESSAGE_RATE_WINDOW_SECONDS", 5)
	if err != nil {
		return nil, err
	}
	rateCooldown, err := getInt("MESSAGE_RATE_COOLDOWN_SECONDS", 10)
	if err != nil {
		return nil, err
	}
	connectAttempts, err := getInt("WS_CONNECT_MAX_ATTEMPTS", 20)
	if err != nil {
		return nil, err
	}
	connectWindow, err := getInt("WS_CONNECT_WINDOW_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	userCacheTTL, err := getInt("USER_CACHE_TTL_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	trustedProxies, err := ratelimit.ParseTrustedProxies(splitList(getEnv("TRUSTED_PROXIES", "")))
	if err != nil {
		return nil, fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			Port:        port,
			CORSOrigins: splitList(getEnv("CORS_ORIGINS", "")),
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", "./data/yapyap.db"),
		},
		JWT: JWTConfig{
			Secret: jwtSecret,
		},
		Messaging: MessagingConfig{
			RateLimit:    rateLimit,
			RateWindow:   time.Duration(rateWindow) * time.Second,
			RateCooldown: time.Duration(rateCooldown) * time.Second,
		},
		Connect: ConnectConfig{
			MaxAttempts:    connectAttempts,
			Window:         time.Duration(connectWindow) * time.Second,
			TrustedProxies: trustedProxies,
		},
		Cache: CacheConfig{
			UserTTL: time.Duration(userCacheTTL) * time.Second,
		},
		Email: EmailConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			From:         getEnv("RESEND_FROM", ""),
			AppURL:       strings.TrimRight(getEnv("APP_URL", ""), "/"),
		},
	}

	return cfg, nil
}

// Addr, HTTP server'ın dinleyeceği adresi döner (ör: "0.0.0.0:9090").
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv, environment variable'ı okur, yoksa fallback değeri döner.
func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

// getInt, pozitif tam sayı bekleyen değişkenleri okur.
func getInt(key string, fallback int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return n, nil
}

// splitList, virgülle ayrılmış listeyi parçalar, boş elemanları atar.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
