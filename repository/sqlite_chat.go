package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/akinalp/yapyap/database"
	"github.com/akinalp/yapyap/models"
	"github.com/akinalp/yapyap/pkg"
)

// sqliteChatRepo, ChatRepository'nin SQLite implementasyonu.
//
// Create katılımcıları ayrı tabloya yazdığı için transaction gerekir;
// bu yüzden TxQuerier yerine *sql.DB alır.
type sqliteChatRepo struct {
	db *sql.DB
}

// NewSQLiteChatRepo, constructor.
func NewSQLiteChatRepo(db *sql.DB) ChatRepository {
	return &sqliteChatRepo{db: db}
}

const chatColumns = `id, type, name, is_active, last_message_id, last_message_at, created_at, updated_at`

func (r *sqliteChatRepo) Create(ctx context.Context, chat *models.Chat) error {
	if chat.ID == "" {
		chat.ID = uuid.NewString()
	}
	if chat.Type == "" {
		chat.Type = models.ChatTypeDirect
	}
	now := time.Now().UTC()
	if chat.CreatedAt.IsZero() {
		chat.CreatedAt = now
	}
	chat.UpdatedAt = chat.CreatedAt

	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chats (id, type, name, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			chat.ID, chat.Type, chat.Name, chat.IsActive, chat.CreatedAt.UTC(), chat.UpdatedAt.UTC(),
		); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: chat already exists", pkg.ErrAlreadyExists)
			}
			return fmt.Errorf("failed to create chat: %w", err)
		}

		for _, userID := range chat.Participants {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO chat_participants (chat_id, user_id) VALUES (?, ?)`,
				chat.ID, userID,
			); err != nil {
				return fmt.Errorf("failed to add chat participant %s: %w", userID, err)
			}
		}
		return nil
	})
}

func (r *sqliteChatRepo) GetByID(ctx context.Context, id string) (*models.Chat, error) {
	chat, err := scanChat(r.db.QueryRowContext(ctx, `SELECT `+chatColumns+` FROM chats WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chat by id: %w", err)
	}

	participants, err := r.participants(ctx, []string{chat.ID})
	if err != nil {
		return nil, err
	}
	chat.Participants = participants[chat.ID]
	return chat, nil
}

func (r *sqliteChatRepo) ListByParticipant(ctx context.Context, userID string) ([]models.Chat, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+chatColumns+`
		FROM chats
		WHERE id IN (SELECT chat_id FROM chat_participants WHERE user_id = ?)
		ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats by participant: %w", err)
	}
	defer rows.Close()

	var (
		chats []models.Chat
		ids   []string
	)
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat row: %w", err)
		}
		chats = append(chats, *chat)
		ids = append(ids, chat.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat rows: %w", err)
	}

	if len(chats) == 0 {
		return []models.Chat{}, nil
	}

	// Katılımcıları tek sorguda çek: sohbet başına bir sorgu N+1 olurdu
	participants, err := r.participants(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range chats {
		chats[i].Participants = participants[chats[i].ID]
	}
	return chats, nil
}

// participants, chatIDs için chatID → userID listesi map'i döner.
func (r *sqliteChatRepo) participants(ctx context.Context, chatIDs []string) (map[string][]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT chat_id, user_id FROM chat_participants
		WHERE chat_id IN (`+placeholders(len(chatIDs))+`)
		ORDER BY chat_id, rowid`, lo.ToAnySlice(chatIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat participants: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]string, len(chatIDs))
	for rows.Next() {
		var chatID, userID string
		if err := rows.Scan(&chatID, &userID); err != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", err)
		}
		result[chatID] = append(result[chatID], userID)
	}
	return result, rows.Err()
}

func scanChat(s rowScanner) (*models.Chat, error) {
	var (
		chat          models.Chat
		name          sql.NullString
		lastMessageID sql.NullString
		lastMessageAt sql.NullTime
	)
	if err := s.Scan(
		&chat.ID, &chat.Type, &name, &chat.IsActive,
		&lastMessageID, &lastMessageAt, &chat.CreatedAt, &chat.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if name.Valid {
		chat.Name = &name.String
	}
	if lastMessageID.Valid {
		chat.LastMessageID = &lastMessageID.String
	}
	if lastMessageAt.Valid {
		t := lastMessageAt.Time
		chat.LastMessageAt = &t
	}
	return &chat, nil
}
