// Package ratelimit, in-memory rate limiter'lar.
//
//   - ConnectRateLimiter: /ws upgrade denemelerini IP bazlı sınırlar.
//     Geçersiz token ile ardı ardına bağlanmaya çalışan client'lar auth
//     doğrulamasına ulaşmadan 429 alır.
//   - MessageRateLimiter: send_message komutlarını kullanıcı bazlı sınırlar.
//
// Tek instance deploy için in-memory yeterli; state paylaşılmaz.
// pkg/ratelimit hiçbir proje içi pakete bağımlı değildir (leaf dependency).
package ratelimit

import (
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"
)

type bucket struct {
	count       int
	windowStart time.Time
}

// ConnectRateLimiter, sabit pencereli IP bazlı limiter.
//
//	limiter := NewConnectRateLimiter(20, time.Minute, nil)
//	mux.Handle("GET /ws", limiter.Middleware(wsHandler))
type ConnectRateLimiter struct {
	mu          sync.Mutex
	buckets     map[string]*bucket
	maxAttempts int
	window      time.Duration
	trusted     []netip.Prefix
	now         func() time.Time

	stopOnce    sync.Once
	stopCleanup chan struct{}
}

// NewConnectRateLimiter, limiter oluşturur ve temizleme goroutine'ini başlatır.
// trustedProxies boşsa forwarding header'ları yok sayılır, IP RemoteAddr'dan alınır.
func NewConnectRateLimiter(maxAttempts int, window time.Duration, trustedProxies []netip.Prefix) *ConnectRateLimiter {
	rl := &ConnectRateLimiter{
		buckets:     make(map[string]*bucket),
		maxAttempts: maxAttempts,
		window:      window,
		trusted:     trustedProxies,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}
	go cleanupEvery(time.Minute, rl.stopCleanup, rl.cleanup)
	return rl
}

// Allow, ip için bir deneme sayar. Pencere içinde limit aşıldıysa false döner.
func (rl *ConnectRateLimiter) Allow(ip string) bool {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[ip]
	if !ok || now.Sub(b.windowStart) >= rl.window {
		rl.buckets[ip] = &bucket{count: 1, windowStart: now}
		return true
	}

	b.count++
	return b.count <= rl.maxAttempts
}

// RetryAfterSeconds, pencerenin bitmesine kalan süre (yukarı yuvarlanmış).
func (rl *ConnectRateLimiter) RetryAfterSeconds(ip string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[ip]
	if !ok {
		return 0
	}
	return ceilSeconds(rl.window - rl.now().Sub(b.windowStart))
}

// Middleware, limit aşıldığında 429 + Retry-After döner.
func (rl *ConnectRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ExtractIP(r, rl.trusted)
		if !rl.Allow(ip) {
			w.Header().Set("Retry-After", strconv.Itoa(rl.RetryAfterSeconds(ip)))
			http.Error(w, "too many connection attempts", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Stop, temizleme goroutine'ini durdurur.
func (rl *ConnectRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCleanup) })
}

func (rl *ConnectRateLimiter) cleanup() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, b := range rl.buckets {
		if now.Sub(b.windowStart) >= rl.window {
			delete(rl.buckets, ip)
		}
	}
}

// ExtractIP, HTTP request'ten client IP adresini çıkarır.
//
// X-Forwarded-For ve X-Real-IP client tarafından yazılabilir; sadece
// bağlantının geldiği adres trusted içindeyse okunur. X-Forwarded-For
// sağdan sola taranır, trusted olmayan ilk adres client kabul edilir.
// Aksi halde RemoteAddr kullanılır.
func ExtractIP(r *http.Request, trusted []netip.Prefix) string {
	peer := remoteHost(r.RemoteAddr)
	if !isTrusted(peer, trusted) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if !isTrusted(hop, trusted) {
				return hop
			}
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return peer
}

// ParseTrustedProxies, "10.0.0.1" veya "10.0.0.0/8" biçimindeki girdileri prefix'e çevirir.
func ParseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(entries))
	for _, e := range entries {
		if strings.Contains(e, "/") {
			p, err := netip.ParsePrefix(e)
			if err != nil {
				return nil, err
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(e)
		if err != nil {
			return nil, err
		}
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

func remoteHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

func isTrusted(ip string, trusted []netip.Prefix) bool {
	if len(trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func cleanupEvery(interval time.Duration, stop <-chan struct{}, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fn()
		case <-stop:
			return
		}
	}
}

// ceilSeconds, client tam süreyi beklesin diye yukarı yuvarlar.
func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
