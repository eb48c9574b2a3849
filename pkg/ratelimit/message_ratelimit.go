package ratelimit

import (
	"sync"
	"time"
)

// messageBucket, bir kullanıcının pencere sayacı ve cooldown bitişi.
// cooldownUntil zero value ise cooldown yok.
type messageBucket struct {
	count         int
	windowStart   time.Time
	cooldownUntil time.Time
}

// MessageRateLimiter, kullanıcı bazlı send_message limiti.
//
// window içinde maxMessages mesaja izin verilir. Bir fazlası cooldown'u
// başlatır; cooldown boyunca bütün mesajlar reddedilir, bitince yeni
// pencere açılır.
//
//	limiter := NewMessageRateLimiter(10, 5*time.Second, 10*time.Second)
//	if !limiter.Allow(userID) { return pkg.ErrRateLimited }
type MessageRateLimiter struct {
	mu          sync.Mutex
	buckets     map[string]*messageBucket
	maxMessages int
	window      time.Duration
	cooldown    time.Duration
	now         func() time.Time

	stopOnce    sync.Once
	stopCleanup chan struct{}
}

// NewMessageRateLimiter, limiter oluşturur ve temizleme goroutine'ini başlatır.
func NewMessageRateLimiter(maxMessages int, window, cooldown time.Duration) *MessageRateLimiter {
	rl := &MessageRateLimiter{
		buckets:     make(map[string]*messageBucket),
		maxMessages: maxMessages,
		window:      window,
		cooldown:    cooldown,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}
	go cleanupEvery(30*time.Second, rl.stopCleanup, rl.cleanup)
	return rl
}

// Allow, kullanıcının bir mesaj daha gönderip gönderemeyeceğini döner ve sayar.
func (rl *MessageRateLimiter) Allow(userID string) bool {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[userID]
	if !ok {
		rl.buckets[userID] = &messageBucket{count: 1, windowStart: now}
		return true
	}

	if !b.cooldownUntil.IsZero() {
		if now.Before(b.cooldownUntil) {
			return false
		}
		*b = messageBucket{count: 1, windowStart: now}
		return true
	}

	if now.Sub(b.windowStart) >= rl.window {
		b.count = 1
		b.windowStart = now
		return true
	}

	b.count++
	if b.count > rl.maxMessages {
		b.cooldownUntil = now.Add(rl.cooldown)
		return false
	}
	return true
}

// CooldownSeconds, kalan cooldown süresi. Cooldown yoksa 0.
func (rl *MessageRateLimiter) CooldownSeconds(userID string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[userID]
	if !ok || b.cooldownUntil.IsZero() {
		return 0
	}
	return ceilSeconds(b.cooldownUntil.Sub(rl.now()))
}

// Stop, temizleme goroutine'ini durdurur.
func (rl *MessageRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCleanup) })
}

// cleanup, penceresi ve cooldown'u bitmiş bucket'ları siler.
// Cooldown'daki kullanıcının bucket'ı silinmez.
func (rl *MessageRateLimiter) cleanup() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for userID, b := range rl.buckets {
		windowExpired := now.Sub(b.windowStart) >= rl.window
		cooldownExpired := b.cooldownUntil.IsZero() || !now.Before(b.cooldownUntil)
		if windowExpired && cooldownExpired {
			delete(rl.buckets, userID)
		}
	}
}
