// Package repository, veritabanı erişim katmanını tanımlar.
//
// Service'ler SQL bilmez: bu paketteki interface'ler üzerinden çalışır.
// Her interface'in yanında bir SQLite implementasyonu bulunur
// (sqlite_*.go); testlerde service'lere in-memory fake verilebilir.
//
// Bulunamayan kayıtlarda her implementasyon pkg.ErrNotFound döner.
package repository

import (
	"context"
	"time"

	"github.com/akinalp/yapyap/models"
)

// UserRepository, kullanıcı kayıtlarına erişim.
//
// Kullanıcı oluşturma asıl olarak auth servisinin işidir; Create burada
// seed ve test verisi için bulunur.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetByIDs, verilen kimliklerden bulunanları döner. Bulunamayan
	// kimlikler sessizce atlanır.
	GetByIDs(ctx context.Context, ids []string) ([]models.User, error)
	// UpdatePresence, online bayrağını ve lastSeen zamanını yazar.
	// Bağlantı kabul edildiğinde ve koptuğunda çağrılır.
	UpdatePresence(ctx context.Context, userID string, isOnline bool, lastSeen time.Time) error
}
