// Package ws, WebSocket bağlantılarını, presence kaydını ve sohbet odalarını
// yönetir.
//
// Mimari:
//   - Hub: bağlantı kaydı (connection registry), kullanıcı başına presence
//     kaydı ve oda (room) üyelikleri. Bütün mutasyonlar hub lock'u altında.
//   - Client: tek bir WebSocket bağlantısı. ReadPump gelen komutları sırayla
//     işler, WritePump send channel'ını sokete yazar.
//   - Handler: HTTP → WebSocket upgrade ve token doğrulama.
//
// Komut akışı:
//  1. Client { op: "send_message", d: {...} } gönderir
//  2. ReadPump payload'ı decode + validate eder
//  3. Hub'a main'den bağlanan callback (service) çağrılır
//  4. Service persist eder, sonra hub üzerinden broadcast eder
//  5. Service error dönerse sadece bu bağlantıya "error" event'i gider
package ws

import (
	"time"

	"github.com/akinalp/yapyap/models"
)

// Event, WebSocket üzerinden iletilen zarf.
//
// Seq: hub'ın her outbound event'e verdiği artan numara. Numara global
// olduğu için bir client'ın gördüğü seq'lerde boşluk olması normaldir;
// sıra ise her zaman artandır.
type Event struct {
	Op   string `json:"op"`
	Data any    `json:"d,omitempty"`
	Seq  int64  `json:"seq,omitempty"`
}

// Client → Server operasyonları
const (
	OpHeartbeat     = "heartbeat"
	OpJoinChatRoom  = "join_chat_room"
	OpLeaveChatRoom = "leave_chat_room"
	OpSendMessage   = "send_message"
	OpEditMessage   = "edit_message"
	OpDeleteMessage = "delete_message"
	OpMarkRead      = "mark_read"
	OpTypingStart   = "typing_start"
	OpTypingStop    = "typing_stop"
)

// Server → Client operasyonları
const (
	OpHeartbeatAck     = "heartbeat_ack"
	OpChatRoomJoined   = "chat_room_joined"
	OpChatRoomLeft     = "chat_room_left"
	OpNewMessage       = "new_message"
	OpMessageEdited    = "message_edited"
	OpMessageDeleted   = "message_deleted"
	OpMessagesRead     = "messages_read"
	OpUserTyping       = "user_typing"
	OpUserStopTyping   = "user_stop_typing"
	OpOnlineCount      = "online_count"
	OpUserStatusChange = "user_status_change"
	OpError            = "error"
)

// ─── Client → Server payload'ları ───
//
// validate tag'leri decodePayload'da kontrol edilir. Hata mesajlarında
// alan adı olarak json tag'i kullanılır ("conversationId is required").

// RoomData, join_chat_room / leave_chat_room / typing_* payload'ı.
type RoomData struct {
	ConversationID string `json:"conversationId" validate:"required"`
}

// SendMessageData, send_message payload'ı. Type boşsa "text" kabul edilir.
type SendMessageData struct {
	ConversationID string  `json:"conversationId" validate:"required"`
	Content        string  `json:"content" validate:"required"`
	Type           string  `json:"type" validate:"omitempty,oneof=text image file audio"`
	ReplyTo        *string `json:"replyTo,omitempty"`
}

// EditMessageData, edit_message payload'ı.
type EditMessageData struct {
	MessageID string `json:"messageId" validate:"required"`
	Content   string `json:"content" validate:"required"`
}

// DeleteMessageData, delete_message payload'ı.
type DeleteMessageData struct {
	MessageID  string `json:"messageId" validate:"required"`
	DeleteType string `json:"deleteType" validate:"required,oneof=self everyone"`
}

// MarkReadData, mark_read payload'ı.
type MarkReadData struct {
	ConversationID string   `json:"conversationId" validate:"required"`
	MessageIDs     []string `json:"messageIds" validate:"required,min=1,dive,required"`
}

// ─── Server → Client payload'ları ───

// RoomAckData, chat_room_joined / chat_room_left yanıtı.
type RoomAckData struct {
	ConversationID string `json:"conversationId"`
}

// NewMessageData, new_message payload'ı. UsersInRoom, mesaj gönderildiği
// anda sohbeti aktif olarak görüntüleyen kullanıcılar (gönderen hariç):
// bu kullanıcılar için receipt otomatik eklenir.
type NewMessageData struct {
	Message        *models.Message `json:"message"`
	ConversationID string          `json:"conversationId"`
	UsersInRoom    []string        `json:"usersInRoom"`
}

// MessageEditedData, message_edited payload'ı.
type MessageEditedData struct {
	Message        *models.Message `json:"message"`
	ConversationID string          `json:"conversationId"`
}

// MessageDeletedData, message_deleted payload'ı.
type MessageDeletedData struct {
	MessageID      string    `json:"messageId"`
	ConversationID string    `json:"conversationId"`
	DeleteType     string    `json:"deleteType"`
	DeletedAt      time.Time `json:"deletedAt"`
}

// MessagesReadData, messages_read payload'ı.
type MessagesReadData struct {
	ConversationID string    `json:"conversationId"`
	MessageIDs     []string  `json:"messageIds"`
	ReadBy         string    `json:"readBy"`
	ReadAt         time.Time `json:"readAt"`
}

// TypingBroadcastData, user_typing / user_stop_typing payload'ı.
type TypingBroadcastData struct {
	UserID         string `json:"userId"`
	Username       string `json:"username"`
	ConversationID string `json:"conversationId"`
}

// OnlineCountData, online_count payload'ı.
type OnlineCountData struct {
	Count int                  `json:"count"`
	Users []models.UserSummary `json:"users"`
}

// UserStatusChangeData, user_status_change payload'ı. Sadece kullanıcının
// kontaklarına (ortak sohbeti olanlara) kişisel kanaldan gönderilir.
type UserStatusChangeData struct {
	UserID   string    `json:"userId"`
	IsOnline bool      `json:"isOnline"`
	LastSeen time.Time `json:"lastSeen"`
}

// ErrorData, error payload'ı. Sadece isteği yapan bağlantıya gider.
type ErrorData struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}
