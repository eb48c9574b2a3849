package handlers

import (
	"context"

	"github.com/akinalp/yapyap/models"
)

// contextKey, context'te değer taşımak için kullanılan key tipi.
// Başka paketlerin string key'leriyle çakışmasın diye ayrı tip.
type contextKey string

// UserContextKey, auth middleware'ın doğrulanmış kullanıcıyı koyduğu key.
const UserContextKey contextKey = "user"

// WithUser, kullanıcıyı context'e ekler.
func WithUser(ctx context.Context, user *models.UserSummary) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

// UserFromContext, auth middleware'ın eklediği kullanıcıyı döner.
func UserFromContext(ctx context.Context) (*models.UserSummary, bool) {
	user, ok := ctx.Value(UserContextKey).(*models.UserSummary)
	return user, ok && user != nil
}
