package models

import (
	"slices"
	"time"
)

// ChatType, sohbetin direkt (iki kişi) veya grup olduğunu belirtir.
type ChatType string

const (
	ChatTypeDirect ChatType = "direct"
	ChatTypeGroup  ChatType = "group"
)

// Chat, kalıcı bir konuşmayı temsil eder.
//
// Realtime katman Chat'i çoğunlukla okur: katılımcı listesi yetki kontrolü
// ve kontak listesi için kullanılır. Tek yazma işlemi mesaj gönderildikten
// sonra LastMessageID / LastMessageAt güncellemesidir.
type Chat struct {
	ID            string     `json:"id"`
	Type          ChatType   `json:"type"`
	Name          *string    `json:"name"` // Sadece grup sohbetlerinde dolu
	Participants  []string   `json:"participants"`
	LastMessageID *string    `json:"lastMessage"`
	LastMessageAt *time.Time `json:"lastMessageAt"`
	IsActive      bool       `json:"isActive"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// HasParticipant, userID'nin bu sohbetin katılımcısı olup olmadığını döner.
// Kimlikler string olarak değerle karşılaştırılır.
func (c *Chat) HasParticipant(userID string) bool {
	return slices.Contains(c.Participants, userID)
}
