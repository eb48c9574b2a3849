package repository

import (
	"context"

	"github.com/akinalp/yapyap/models"
)

// ChatRepository, sohbet kayıtlarına ve katılımcı listelerine erişim.
type ChatRepository interface {
	// Create, sohbeti katılımcılarıyla birlikte tek transaction'da yazar.
	Create(ctx context.Context, chat *models.Chat) error
	// GetByID, sohbeti katılımcı listesiyle birlikte döner.
	GetByID(ctx context.Context, id string) (*models.Chat, error)
	// ListByParticipant, userID'nin katılımcı olduğu bütün sohbetleri döner.
	ListByParticipant(ctx context.Context, userID string) ([]models.Chat, error)
}
