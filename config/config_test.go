package config

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0:9090", cfg.Server.Addr())
	require.Empty(t, cfg.Server.CORSOrigins)
	require.Equal(t, "./data/yapyap.db", cfg.Database.Path)
	require.Equal(t, 10, cfg.Messaging.RateLimit)
	require.Equal(t, 5*time.Second, cfg.Messaging.RateWindow)
	require.Equal(t, 10*time.Second, cfg.Messaging.RateCooldown)
	require.Equal(t, 60*time.Second, cfg.Cache.UserTTL)
	require.Empty(t, cfg.Connect.TrustedProxies)
	require.False(t, cfg.Email.Enabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SERVER_PORT", "8081")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("MESSAGE_RATE_LIMIT", "3")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.1")
	t.Setenv("RESEND_API_KEY", "re_123")
	t.Setenv("RESEND_FROM", "noreply@yapyap.app")
	t.Setenv("APP_URL", "https://yapyap.app/")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, 8081, cfg.Server.Port)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	require.Equal(t, 3, cfg.Messaging.RateLimit)
	require.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("192.0.2.1/32"),
	}, cfg.Connect.TrustedProxies)
	require.True(t, cfg.Email.Enabled())
	require.Equal(t, "https://yapyap.app", cfg.Email.AppURL)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		_, err := Load()
		require.ErrorContains(t, err, "JWT_SECRET")
	})

	t.Run("bad number", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s")
		t.Setenv("MESSAGE_RATE_LIMIT", "ten")
		_, err := Load()
		require.ErrorContains(t, err, "MESSAGE_RATE_LIMIT")
	})

	t.Run("bad proxy", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s")
		t.Setenv("TRUSTED_PROXIES", "not-an-ip")
		_, err := Load()
		require.ErrorContains(t, err, "TRUSTED_PROXIES")
	})

	t.Run("non positive", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s")
		t.Setenv("WS_CONNECT_MAX_ATTEMPTS", "0")
		_, err := Load()
		require.ErrorContains(t, err, "must be positive")
	})
}
