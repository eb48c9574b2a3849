package repository

import (
	"context"

	"github.com/akinalp/yapyap/models"
)

// MessageRepository, mesajlara ve okundu bilgilerine erişim.
//
// Mesajlar fiziksel olarak silinmez; silme Update ile IsDeleted set ederek
// yapılır.
type MessageRepository interface {
	// Create, mesajı yazar ve sohbetin son mesaj referansını aynı
	// transaction'da günceller. Sohbet yoksa hiçbir şey yazılmaz.
	Create(ctx context.Context, msg *models.Message) error
	// GetByID, mesajı ReadBy listesiyle birlikte döner.
	GetByID(ctx context.Context, id string) (*models.Message, error)
	// Update, MessageUpdate'teki nil olmayan alanları yazar.
	Update(ctx context.Context, id string, upd models.MessageUpdate) error
	// AppendReadReceipts, tek bir mesaja birden fazla receipt'i tek
	// statement'ta ekler. Aynı kullanıcı için ikinci receipt readAt'i
	// geriye taşımaz.
	AppendReadReceipts(ctx context.Context, messageID string, receipts []models.ReadReceipt) error
	// MarkRead, messageIDs içinden chatID'ye ait olanlara receipt ekler.
	// Başka sohbete ait veya var olmayan kimlikler yok sayılır. Bütün
	// receipt'ler tek transaction'da yazılır.
	MarkRead(ctx context.Context, chatID string, messageIDs []string, receipt models.ReadReceipt) error
}
