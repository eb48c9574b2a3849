package services

import (
	"context"
	"log"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/akinalp/yapyap/models"
	"github.com/akinalp/yapyap/pkg/email"
	"github.com/akinalp/yapyap/repository"
)

// OfflineNotice, gönderim anında bağlı olmayan katılımcılar.
type OfflineNotice struct {
	Message    *models.Message
	SenderName string
	Recipients []string // Gönderen hariç, presence kaydı olmayan katılımcılar
}

// OfflineNotifier, mesaj gönderildikten sonra çağrılan bildirim hook'u.
//
// NotifyOffline Send'in içinde çağrılır; uzun sürecek iş (email, push)
// kendi goroutine'inde yapılmalı. ctx komut bittiğinde iptal olur.
type OfflineNotifier interface {
	NotifyOffline(ctx context.Context, notice OfflineNotice)
}

// LogNotifier, sadece loglayan varsayılan notifier.
type LogNotifier struct{}

// NotifyOffline, alıcıları loglar.
func (LogNotifier) NotifyOffline(_ context.Context, n OfflineNotice) {
	log.Printf("[notify] message %s in %s has %d offline recipient(s): %v",
		n.Message.ID, n.Message.ChatID, len(n.Recipients), n.Recipients)
}

// previewLength, email'deki mesaj önizlemesinin rune sınırı.
const previewLength = 140

// emailSendTimeout, tek bir bildirim turunun (lookup + bütün email'ler) süresi.
const emailSendTimeout = 30 * time.Second

// EmailNotifier, offline alıcılara Resend üzerinden email gönderir.
//
// Email'i olmayan alıcılar atlanır. Gönderim arka planda yapılır; hatalar
// loglanır, mesaj gönderimini etkilemez.
type EmailNotifier struct {
	users  repository.UserRepository
	sender email.Sender

	// spawn, gönderimi başlatır; testlerde senkron çalıştırılır.
	spawn func(func())
}

// NewEmailNotifier, constructor.
func NewEmailNotifier(users repository.UserRepository, sender email.Sender) *EmailNotifier {
	return &EmailNotifier{
		users:  users,
		sender: sender,
		spawn:  func(fn func()) { go fn() },
	}
}

// NotifyOffline, alıcıların email adreslerini bulup bildirimleri gönderir.
func (n *EmailNotifier) NotifyOffline(ctx context.Context, notice OfflineNotice) {
	// Komut context'i Send dönünce iptal olur: gönderim ondan bağımsız
	bg := context.WithoutCancel(ctx)

	n.spawn(func() {
		ctx, cancel := context.WithTimeout(bg, emailSendTimeout)
		defer cancel()
		n.deliver(ctx, notice)
	})
}

func (n *EmailNotifier) deliver(ctx context.Context, notice OfflineNotice) {
	users, err := n.users.GetByIDs(ctx, notice.Recipients)
	if err != nil {
		log.Printf("[notify] failed to load offline recipients for message %s: %v", notice.Message.ID, err)
		return
	}

	withEmail := lo.Filter(users, func(u models.User, _ int) bool {
		return u.Email != nil && *u.Email != ""
	})

	msg := email.OfflineMessage{
		SenderName:     notice.SenderName,
		ConversationID: notice.Message.ChatID,
		Preview:        preview(notice.Message),
	}
	for _, u := range withEmail {
		if err := n.sender.SendOfflineMessage(ctx, *u.Email, msg); err != nil {
			log.Printf("[notify] failed to email user %s about message %s: %v", u.ID, notice.Message.ID, err)
		}
	}
}

// preview, metin mesajlarında içeriğin başını, diğer tiplerde tip adını döner.
func preview(m *models.Message) string {
	if m.Type != models.MessageTypeText {
		return "[" + string(m.Type) + "]"
	}
	if utf8.RuneCountInString(m.Content) <= previewLength {
		return m.Content
	}
	runes := []rune(m.Content)
	return string(runes[:previewLength]) + "…"
}
