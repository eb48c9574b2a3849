// Package models, uygulamanın domain modellerini (veri yapıları) tanımlar.
//
// Model nedir?
// Veritabanındaki bir tablonun Go karşılığıdır.
// Aynı zamanda WebSocket üzerinden gelen/giden verilerin şeklini de belirler.
//
// JSON alan adları camelCase'dir: mevcut client'lar (conversationId,
// readBy, usersInRoom) bu formatı bekliyor.
package models

import "time"

// User, bir kullanıcıyı temsil eder.
//
// Kullanıcı oluşturma, şifre ve profil işlemleri bu servisin dışında kalır;
// realtime katman sadece kimlik, isim ve online durumu ile ilgilenir.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     *string   `json:"-"` // Offline email bildirimi için: API'ye dahil edilmez
	IsOnline  bool      `json:"isOnline"`
	LastSeen  time.Time `json:"lastSeen"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserSummary, bağlantı sırasında cache'lenen minimal kullanıcı bilgisi.
// online_count roster'ı ve typing event'leri bu bilgiyle doldurulur.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Summary, User'dan UserSummary üretir.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username}
}
