package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/akinalp/yapyap/database"
	"github.com/akinalp/yapyap/models"
	"github.com/akinalp/yapyap/pkg"
)

// sqliteMessageRepo, MessageRepository'nin SQLite implementasyonu.
//
// Receipt'ler message_reads tablosunda tutulur; (message_id, user_id)
// primary key'i bir kullanıcıya mesaj başına tek receipt garantisi verir.
// read_at unix milisaniye: upsert'teki "geriye gitme" karşılaştırması
// string formatına bağlı kalmasın.
type sqliteMessageRepo struct {
	db *sql.DB
}

// NewSQLiteMessageRepo, constructor.
func NewSQLiteMessageRepo(db *sql.DB) MessageRepository {
	return &sqliteMessageRepo{db: db}
}

const messageColumns = `id, chat_id, sender_id, content, type, reply_to_id,
	edited, edited_at, is_deleted, deleted_at, delete_type, created_at`

// upsertReceipt, aynı kullanıcı için ikinci receipt'te readAt'i sadece
// ileri taşır. Tekrar eden çağrılar idempotent'tir.
const upsertReceiptConflict = `
	ON CONFLICT (message_id, user_id)
	DO UPDATE SET read_at = excluded.read_at
	WHERE excluded.read_at > message_reads.read_at`

func (r *sqliteMessageRepo) Create(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	if msg.Type == "" {
		msg.Type = models.MessageTypeText
	}
	if msg.ReadBy == nil {
		msg.ReadBy = []models.ReadReceipt{}
	}

	// Mesaj ve sohbetin son mesaj referansı birlikte yazılır; ikincisi
	// başarısız olursa mesaj da geri alınır.
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO messages (id, chat_id, sender_id, content, type, reply_to_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			msg.ID, msg.ChatID, msg.SenderID, msg.Content, msg.Type, msg.ReplyToID, msg.CreatedAt.UTC(),
		); err != nil {
			return fmt.Errorf("failed to create message: %w", err)
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE chats SET last_message_id = ?, last_message_at = ?, updated_at = ?
			WHERE id = ?`,
			msg.ID, msg.CreatedAt.UTC(), msg.CreatedAt.UTC(), msg.ChatID,
		)
		if err != nil {
			return fmt.Errorf("failed to update chat last message: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: chat %s", pkg.ErrNotFound, msg.ChatID)
		}
		return nil
	})
}

func (r *sqliteMessageRepo) GetByID(ctx context.Context, id string) (*models.Message, error) {
	msg, err := scanMessage(r.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message by id: %w", err)
	}

	readBy, err := r.receipts(ctx, msg.ID)
	if err != nil {
		return nil, err
	}
	msg.ReadBy = readBy
	return msg, nil
}

// Update, nil olmayan alanları COALESCE ile yazar: nil parametre NULL
// olarak gider ve mevcut değer korunur.
func (r *sqliteMessageRepo) Update(ctx context.Context, id string, upd models.MessageUpdate) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE messages SET
			content     = COALESCE(?, content),
			edited      = COALESCE(?, edited),
			edited_at   = COALESCE(?, edited_at),
			is_deleted  = COALESCE(?, is_deleted),
			deleted_at  = COALESCE(?, deleted_at),
			delete_type = COALESCE(?, delete_type)
		WHERE id = ?`,
		upd.Content, upd.Edited, utcPtr(upd.EditedAt),
		upd.IsDeleted, utcPtr(upd.DeletedAt), deleteTypeArg(upd.DeleteType),
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return pkg.ErrNotFound
	}
	return nil
}

func (r *sqliteMessageRepo) AppendReadReceipts(ctx context.Context, messageID string, receipts []models.ReadReceipt) error {
	receipts = lo.UniqBy(receipts, func(rc models.ReadReceipt) string { return rc.UserID })
	if len(receipts) == 0 {
		return nil
	}

	// Tek statement, çok satırlı VALUES: bütün viewer receipt'leri birlikte yazılır
	values := make([]string, 0, len(receipts))
	args := make([]any, 0, len(receipts)*3)
	for _, rc := range receipts {
		values = append(values, "(?, ?, ?)")
		args = append(args, messageID, rc.UserID, rc.ReadAt.UnixMilli())
	}

	query := `INSERT INTO message_reads (message_id, user_id, read_at) VALUES ` +
		strings.Join(values, ", ") + upsertReceiptConflict

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to append read receipts: %w", err)
	}
	return nil
}

func (r *sqliteMessageRepo) MarkRead(ctx context.Context, chatID string, messageIDs []string, receipt models.ReadReceipt) error {
	messageIDs = lo.Uniq(messageIDs)
	if len(messageIDs) == 0 {
		return nil
	}

	// INSERT ... SELECT: mesaj bu sohbete ait değilse SELECT satır üretmez,
	// receipt yazılmaz. WHERE şart: SQLite upsert'te SELECT'ten sonra
	// WHERE yoksa ON CONFLICT'i JOIN'in ON'u ile karıştırır.
	query := `
		INSERT INTO message_reads (message_id, user_id, read_at)
		SELECT id, ?, ? FROM messages WHERE id = ? AND chat_id = ?` + upsertReceiptConflict

	readAt := receipt.ReadAt.UnixMilli()
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, id := range messageIDs {
			if _, err := tx.ExecContext(ctx, query, receipt.UserID, readAt, id, chatID); err != nil {
				return fmt.Errorf("failed to mark message %s read: %w", id, err)
			}
		}
		return nil
	})
}

func (r *sqliteMessageRepo) receipts(ctx context.Context, messageID string) ([]models.ReadReceipt, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, read_at FROM message_reads WHERE message_id = ? ORDER BY read_at, user_id`,
		messageID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get read receipts: %w", err)
	}
	defer rows.Close()

	receipts := []models.ReadReceipt{}
	for rows.Next() {
		var (
			rc     models.ReadReceipt
			readAt int64
		)
		if err := rows.Scan(&rc.UserID, &readAt); err != nil {
			return nil, fmt.Errorf("failed to scan read receipt: %w", err)
		}
		rc.ReadAt = time.UnixMilli(readAt).UTC()
		receipts = append(receipts, rc)
	}
	return receipts, rows.Err()
}

func scanMessage(s rowScanner) (*models.Message, error) {
	var (
		msg        models.Message
		replyTo    sql.NullString
		editedAt   sql.NullTime
		deletedAt  sql.NullTime
		deleteType sql.NullString
	)
	if err := s.Scan(
		&msg.ID, &msg.ChatID, &msg.SenderID, &msg.Content, &msg.Type, &replyTo,
		&msg.Edited, &editedAt, &msg.IsDeleted, &deletedAt, &deleteType, &msg.CreatedAt,
	); err != nil {
		return nil, err
	}

	if replyTo.Valid {
		msg.ReplyToID = &replyTo.String
	}
	if editedAt.Valid {
		t := editedAt.Time
		msg.EditedAt = &t
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		msg.DeletedAt = &t
	}
	if deleteType.Valid {
		dt := models.DeleteType(deleteType.String)
		msg.DeleteType = &dt
	}
	return &msg, nil
}

func utcPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func deleteTypeArg(dt *models.DeleteType) any {
	if dt == nil {
		return nil
	}
	return string(*dt)
}
