package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/samber/lo"

	"github.com/akinalp/yapyap/models"
	"github.com/akinalp/yapyap/pkg"
	"github.com/akinalp/yapyap/repository"
	"github.com/akinalp/yapyap/ws"
)

// EditWindow, mesajın createdAt'ten itibaren düzenlenebildiği süre.
// Client'lar bu süreye göre düzenle butonunu gösterir; ayarlanamaz.
const EditWindow = 15 * time.Minute

// MessageService, mesaj gönderme, düzenleme, silme ve okundu işaretleme.
//
// Her metod ws komut callback'i olarak hub'a bağlanır; dönen error sadece
// isteği yapan bağlantıya "error" event'i olarak gider.
type MessageService interface {
	Send(ctx context.Context, conn ws.ConnRef, data ws.SendMessageData) error
	Edit(ctx context.Context, conn ws.ConnRef, data ws.EditMessageData) error
	Delete(ctx context.Context, conn ws.ConnRef, data ws.DeleteMessageData) error
	MarkRead(ctx context.Context, conn ws.ConnRef, data ws.MarkReadData) error
}

// SendLimiter, kullanıcı bazlı gönderim limiti (ratelimit.MessageRateLimiter).
type SendLimiter interface {
	Allow(userID string) bool
}

// MessageHub, MessageService'in hub'dan ihtiyaç duyduğu her şey.
// *ws.Hub bunu karşılar; testlerde fake verilir.
type MessageHub interface {
	ws.EventPublisher
	ws.PresenceReader
	IsInRoom(connID, chatID string) bool
}

// MessageOptions, MessageService ayarları. Sıfır değerler varsayılana döner.
type MessageOptions struct {
	Limiter SendLimiter      // nil ise limit yok
	Offline OfflineNotifier  // nil ise offline hook çağrılmaz
	Now     func() time.Time // testler için saat kaynağı
}

type messageService struct {
	msgRepo  repository.MessageRepository
	chatRepo repository.ChatRepository
	hub      MessageHub
	limiter  SendLimiter
	offline  OfflineNotifier
	now      func() time.Time
}

// NewMessageService, constructor.
func NewMessageService(
	msgRepo repository.MessageRepository,
	chatRepo repository.ChatRepository,
	hub MessageHub,
	opts MessageOptions,
) MessageService {
	s := &messageService{
		msgRepo:  msgRepo,
		chatRepo: chatRepo,
		hub:      hub,
		limiter:  opts.Limiter,
		offline:  opts.Offline,
		now:      opts.Now,
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// Send, yeni mesajı kaydeder ve odaya yayınlar.
//
// Akış:
//  1. Validate (trim, varsayılan tip "text")
//  2. Katılımcı kontrolü, replyTo aynı sohbette mi
//  3. Mesajı kaydet, sohbetin son mesajını güncelle
//  4. Sohbeti aktif görüntüleyenleri hesapla (gönderen hariç)
//  5. new_message'ı odaya yayınla
//  6. Görüntüleyenler için receipt'leri tek seferde ekle
//  7. Offline katılımcıları bildirim hook'una ver
//
// 3. adımda hata olursa hiçbir şey yayınlanmaz.
func (s *messageService) Send(ctx context.Context, conn ws.ConnRef, data ws.SendMessageData) error {
	req := models.SendMessageRequest{
		ChatID:    data.ConversationID,
		Content:   data.Content,
		Type:      models.MessageType(data.Type),
		ReplyToID: data.ReplyTo,
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
	}

	chat, err := requireParticipant(ctx, s.chatRepo, req.ChatID, conn.UserID)
	if err != nil {
		return err
	}

	if s.limiter != nil && !s.limiter.Allow(conn.UserID) {
		return fmt.Errorf("%w: too many messages, slow down", pkg.ErrRateLimited)
	}

	if req.ReplyToID != nil {
		if err := s.checkReplyTarget(ctx, chat.ID, *req.ReplyToID); err != nil {
			return err
		}
	}

	now := s.now()
	msg := &models.Message{
		ChatID:    chat.ID,
		SenderID:  conn.UserID,
		Content:   req.Content,
		Type:      req.Type,
		ReplyToID: req.ReplyToID,
		CreatedAt: now,
	}
	// Create sohbetin son mesaj referansını da aynı transaction'da taşır
	if err := s.msgRepo.Create(ctx, msg); err != nil {
		return fmt.Errorf("%w: failed to create message in %s: %v", pkg.ErrInternal, chat.ID, err)
	}

	viewers := s.hub.ActiveViewers(chat.ID, conn.UserID)

	s.hub.BroadcastToRoom(chat.ID, ws.Event{
		Op: ws.OpNewMessage,
		Data: ws.NewMessageData{
			Message:        msg,
			ConversationID: chat.ID,
			UsersInRoom:    viewers,
		},
	})

	if len(viewers) > 0 {
		receipts := lo.Map(viewers, func(userID string, _ int) models.ReadReceipt {
			return models.ReadReceipt{UserID: userID, ReadAt: now}
		})
		// Mesaj zaten yayınlandı; receipt hatası geri alınamaz, sadece loglanır
		if err := s.msgRepo.AppendReadReceipts(ctx, msg.ID, receipts); err != nil {
			log.Printf("[message] failed to append auto-read receipts msg=%s chat=%s: %v", msg.ID, chat.ID, err)
		}
	}

	if s.offline != nil {
		offline := lo.Filter(chat.Participants, func(userID string, _ int) bool {
			return userID != conn.UserID && !s.hub.IsOnline(userID)
		})
		if len(offline) > 0 {
			s.offline.NotifyOffline(ctx, OfflineNotice{
				Message:    msg,
				SenderName: conn.Username,
				Recipients: offline,
			})
		}
	}

	return nil
}

// checkReplyTarget, yanıtlanan mesajın aynı sohbette var olduğunu doğrular.
func (s *messageService) checkReplyTarget(ctx context.Context, chatID, replyToID string) error {
	parent, err := s.msgRepo.GetByID(ctx, replyToID)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return fmt.Errorf("%w: replied message", pkg.ErrNotFound)
		}
		return fmt.Errorf("%w: failed to load replied message %s: %v", pkg.ErrInternal, replyToID, err)
	}
	if parent.ChatID != chatID {
		return fmt.Errorf("%w: replied message", pkg.ErrNotFound)
	}
	return nil
}

// Edit, mesaj içeriğini günceller ve message_edited'ı bütün odaya yayınlar.
// İsteyen bağlantı odada değilse ona ayrıca gönderilir.
//
// Sadece gönderen düzenleyebilir. Düzenleme süresi createdAt'ten ölçülür;
// süre sınırında (tam 15. dakikada) düzenleme hâlâ kabul edilir.
func (s *messageService) Edit(ctx context.Context, conn ws.ConnRef, data ws.EditMessageData) error {
	req := models.EditMessageRequest{MessageID: data.MessageID, Content: data.Content}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
	}

	msg, err := s.loadOwnMessage(ctx, req.MessageID, conn.UserID, "edit")
	if err != nil {
		return err
	}

	now := s.now()
	if now.Sub(msg.CreatedAt) > EditWindow {
		return fmt.Errorf("%w: messages can only be edited within %s of sending", pkg.ErrEditWindowExpired, EditWindow)
	}

	edited := true
	if err := s.msgRepo.Update(ctx, msg.ID, models.MessageUpdate{
		Content:  &req.Content,
		Edited:   &edited,
		EditedAt: &now,
	}); err != nil {
		return fmt.Errorf("%w: failed to edit message %s: %v", pkg.ErrInternal, msg.ID, err)
	}

	msg.Content = req.Content
	msg.Edited = true
	msg.EditedAt = &now

	event := ws.Event{
		Op: ws.OpMessageEdited,
		Data: ws.MessageEditedData{
			Message:        msg,
			ConversationID: msg.ChatID,
		},
	}
	s.hub.BroadcastToRoom(msg.ChatID, event)
	if !s.hub.IsInRoom(conn.ConnID, msg.ChatID) {
		s.hub.SendToConnection(conn.ConnID, event)
	}
	return nil
}

// Delete, mesajı soft delete ile tombstone'a çevirir.
//
//   - everyone: message_deleted odadaki bütün bağlantılara gider. İsteyen
//     bağlantı odada değilse ona ayrıca gönderilir.
//   - self: sadece isteyen bağlantıya gider, diğer görünümler değişmez.
//
// everyone ile silinmiş mesaj tekrar silinemez (not found). self ile
// silinmiş mesaj sonradan everyone ile silinebilir.
func (s *messageService) Delete(ctx context.Context, conn ws.ConnRef, data ws.DeleteMessageData) error {
	scope := models.DeleteType(data.DeleteType)
	if !scope.Valid() {
		return fmt.Errorf("%w: deleteType must be self or everyone", pkg.ErrBadRequest)
	}

	msg, err := s.msgRepo.GetByID(ctx, data.MessageID)
	if err != nil {
		return messageLoadError(err, data.MessageID)
	}
	if msg.SenderID != conn.UserID {
		return fmt.Errorf("%w: you can only delete your own messages", pkg.ErrForbidden)
	}
	if msg.IsDeleted && msg.DeleteType != nil && *msg.DeleteType == models.DeleteTypeEveryone {
		return fmt.Errorf("%w: message", pkg.ErrNotFound)
	}

	now := s.now()
	deleted := true
	if err := s.msgRepo.Update(ctx, msg.ID, models.MessageUpdate{
		IsDeleted:  &deleted,
		DeletedAt:  &now,
		DeleteType: &scope,
	}); err != nil {
		return fmt.Errorf("%w: failed to delete message %s: %v", pkg.ErrInternal, msg.ID, err)
	}

	event := ws.Event{
		Op: ws.OpMessageDeleted,
		Data: ws.MessageDeletedData{
			MessageID:      msg.ID,
			ConversationID: msg.ChatID,
			DeleteType:     string(scope),
			DeletedAt:      now,
		},
	}

	if scope == models.DeleteTypeSelf {
		s.hub.SendToConnection(conn.ConnID, event)
		return nil
	}

	s.hub.BroadcastToRoom(msg.ChatID, event)
	if !s.hub.IsInRoom(conn.ConnID, msg.ChatID) {
		s.hub.SendToConnection(conn.ConnID, event)
	}
	return nil
}

// MarkRead, geçmişteki mesajlar için toplu okundu işaretler ve
// messages_read'i odadaki diğer bağlantılara yayınlar.
func (s *messageService) MarkRead(ctx context.Context, conn ws.ConnRef, data ws.MarkReadData) error {
	chat, err := requireParticipant(ctx, s.chatRepo, data.ConversationID, conn.UserID)
	if err != nil {
		return err
	}

	ids := lo.Uniq(data.MessageIDs)
	now := s.now()
	if err := s.msgRepo.MarkRead(ctx, chat.ID, ids, models.ReadReceipt{UserID: conn.UserID, ReadAt: now}); err != nil {
		return fmt.Errorf("%w: failed to mark %d message(s) read in %s: %v", pkg.ErrInternal, len(ids), chat.ID, err)
	}

	s.hub.BroadcastToRoomExcept(chat.ID, conn.ConnID, ws.Event{
		Op: ws.OpMessagesRead,
		Data: ws.MessagesReadData{
			ConversationID: chat.ID,
			MessageIDs:     ids,
			ReadBy:         conn.UserID,
			ReadAt:         now,
		},
	})
	return nil
}

// loadOwnMessage, mesajı getirir; silinmişse not found, başkasınınsa
// forbidden döner.
func (s *messageService) loadOwnMessage(ctx context.Context, messageID, userID, action string) (*models.Message, error) {
	msg, err := s.msgRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, messageLoadError(err, messageID)
	}
	if msg.IsDeleted {
		return nil, fmt.Errorf("%w: message", pkg.ErrNotFound)
	}
	if msg.SenderID != userID {
		return nil, fmt.Errorf("%w: you can only %s your own messages", pkg.ErrForbidden, action)
	}
	return msg, nil
}

func messageLoadError(err error, messageID string) error {
	if errors.Is(err, pkg.ErrNotFound) {
		return fmt.Errorf("%w: message", pkg.ErrNotFound)
	}
	return fmt.Errorf("%w: failed to load message %s: %v", pkg.ErrInternal, messageID, err)
}
