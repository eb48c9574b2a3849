package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MessageType, mesaj içeriğinin türü.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeFile  MessageType = "file"
	MessageTypeAudio MessageType = "audio"
)

// DeleteType, soft delete kapsamı.
//
//   - self: sadece silen bağlantının görünümünden kalkar
//   - everyone: odadaki herkes için tombstone olur
type DeleteType string

const (
	DeleteTypeSelf     DeleteType = "self"
	DeleteTypeEveryone DeleteType = "everyone"
)

// maxContentLength, mesaj içeriğinin rune cinsinden üst sınırı.
const maxContentLength = 4000

// Message, bir sohbet mesajını temsil eder.
//
// Mesajlar fiziksel olarak silinmez: IsDeleted + DeleteType ile tombstone'a
// dönüşür. History'yi yeniden kuran client'lar bu ayrımı kullanır.
type Message struct {
	ID         string        `json:"id"`
	ChatID     string        `json:"conversationId"`
	SenderID   string        `json:"sender"`
	Content    string        `json:"content"`
	Type       MessageType   `json:"type"`
	ReplyToID  *string       `json:"replyTo,omitempty"`
	Edited     bool          `json:"edited"`
	EditedAt   *time.Time    `json:"editedAt,omitempty"`
	IsDeleted  bool          `json:"isDeleted"`
	DeletedAt  *time.Time    `json:"deletedAt,omitempty"`
	DeleteType *DeleteType   `json:"deleteType,omitempty"`
	ReadBy     []ReadReceipt `json:"readBy"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// ReadReceipt, bir kullanıcının mesajı okuduğu anı işaretler.
// Bir mesajda her kullanıcı için en fazla bir receipt bulunur.
type ReadReceipt struct {
	UserID string    `json:"user"`
	ReadAt time.Time `json:"readAt"`
}

// IsReadBy, userID için receipt olup olmadığını döner.
func (m *Message) IsReadBy(userID string) bool {
	for _, r := range m.ReadBy {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// MessageUpdate, kısmi mesaj güncellemesi. nil alanlar değiştirilmez.
type MessageUpdate struct {
	Content    *string
	Edited     *bool
	EditedAt   *time.Time
	IsDeleted  *bool
	DeletedAt  *time.Time
	DeleteType *DeleteType
}

// SendMessageRequest, send_message event'inden gelen veri.
type SendMessageRequest struct {
	ChatID    string
	Content   string
	Type      MessageType
	ReplyToID *string
}

// Validate, isteği normalize eder (trim, varsayılan tip) ve kontrol eder.
func (r *SendMessageRequest) Validate() error {
	r.ChatID = strings.TrimSpace(r.ChatID)
	if r.ChatID == "" {
		return fmt.Errorf("conversationId is required")
	}

	if err := validateContent(&r.Content); err != nil {
		return err
	}

	if r.Type == "" {
		r.Type = MessageTypeText
	}
	if !r.Type.Valid() {
		return fmt.Errorf("invalid message type: %s", r.Type)
	}

	if r.ReplyToID != nil && strings.TrimSpace(*r.ReplyToID) == "" {
		r.ReplyToID = nil
	}
	return nil
}

// EditMessageRequest, edit_message event'inden gelen veri.
type EditMessageRequest struct {
	MessageID string
	Content   string
}

// Validate, EditMessageRequest'in geçerli olup olmadığını kontrol eder.
func (r *EditMessageRequest) Validate() error {
	if strings.TrimSpace(r.MessageID) == "" {
		return fmt.Errorf("messageId is required")
	}
	return validateContent(&r.Content)
}

// Valid, tipin izin verilen değerlerden biri olup olmadığını döner.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile, MessageTypeAudio:
		return true
	}
	return false
}

// Valid, silme kapsamının self veya everyone olup olmadığını döner.
func (d DeleteType) Valid() bool {
	return d == DeleteTypeSelf || d == DeleteTypeEveryone
}

// validateContent, içeriği trim'ler ve uzunluk kontrolü yapar.
func validateContent(content *string) error {
	*content = strings.TrimSpace(*content)
	n := utf8.RuneCountInString(*content)
	if n < 1 {
		return fmt.Errorf("message content is required")
	}
	if n > maxContentLength {
		return fmt.Errorf("message content must be at most %d characters", maxContentLength)
	}
	return nil
}
