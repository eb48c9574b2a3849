package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/akinalp/yapyap/models"
	"github.com/akinalp/yapyap/pkg"
	"github.com/akinalp/yapyap/repository"
	"github.com/akinalp/yapyap/ws"
)

// RoomService, bağlantının aktif olarak görüntülediği sohbeti yönetir.
//
// Oda üyeliğinin kendisi hub'da (in-memory) tutulur; service sadece
// katılımcı kontrolünü yapar ve cevabı isteyen bağlantıya gönderir.
type RoomService interface {
	Join(ctx context.Context, conn ws.ConnRef, data ws.RoomData) error
	Leave(ctx context.Context, conn ws.ConnRef, data ws.RoomData) error
}

type roomService struct {
	chatRepo repository.ChatRepository
	rooms    ws.RoomMembership
	hub      ws.EventPublisher
}

// NewRoomService, constructor.
func NewRoomService(chatRepo repository.ChatRepository, rooms ws.RoomMembership, hub ws.EventPublisher) RoomService {
	return &roomService{chatRepo: chatRepo, rooms: rooms, hub: hub}
}

// Join, katılımcı kontrolünden sonra bağlantıyı odaya alır.
// Yetki hatasında üyelik değişmez.
func (s *roomService) Join(ctx context.Context, conn ws.ConnRef, data ws.RoomData) error {
	if _, err := requireParticipant(ctx, s.chatRepo, data.ConversationID, conn.UserID); err != nil {
		return err
	}

	if err := s.rooms.JoinRoom(conn.ConnID, data.ConversationID); err != nil {
		return err
	}

	s.hub.SendToConnection(conn.ConnID, ws.Event{
		Op:   ws.OpChatRoomJoined,
		Data: ws.RoomAckData{ConversationID: data.ConversationID},
	})
	return nil
}

// Leave, bağlantıyı odadan çıkarır. Yetki kontrolü yoktur: olmayan bir
// odadan ayrılmak da aktif sohbeti temizler ve onaylanır.
func (s *roomService) Leave(_ context.Context, conn ws.ConnRef, data ws.RoomData) error {
	s.rooms.LeaveRoom(conn.ConnID, data.ConversationID)

	s.hub.SendToConnection(conn.ConnID, ws.Event{
		Op:   ws.OpChatRoomLeft,
		Data: ws.RoomAckData{ConversationID: data.ConversationID},
	})
	return nil
}

// requireParticipant, sohbeti getirir ve userID'nin katılımcı olduğunu doğrular.
func requireParticipant(ctx context.Context, chats repository.ChatRepository, chatID, userID string) (*models.Chat, error) {
	chat, err := chats.GetByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, fmt.Errorf("%w: conversation", pkg.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: failed to load conversation %s: %v", pkg.ErrInternal, chatID, err)
	}

	if !chat.HasParticipant(userID) {
		return nil, fmt.Errorf("%w: not a participant of this conversation", pkg.ErrForbidden)
	}
	return chat, nil
}
