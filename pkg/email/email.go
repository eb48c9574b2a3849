// Package email, offline kullanıcılara yeni mesaj bildirimi gönderir.
//
// Sender interface'i ile gönderim detayları soyutlanır. Şu anki implementasyon
// Resend API kullanır; service katmanı sadece interface'e bağımlıdır.
package email

import (
	"context"
	"fmt"
	"html"
	"net/url"

	"github.com/resend/resend-go/v3"
)

// OfflineMessage, bildirim email'inin içeriği.
type OfflineMessage struct {
	SenderName     string
	ConversationID string
	Preview        string // Kısaltılmış mesaj içeriği
}

// Sender, email gönderimi için interface.
type Sender interface {
	SendOfflineMessage(ctx context.Context, toEmail string, msg OfflineMessage) error
}

// resendSender, Resend API ile email gönderen Sender implementasyonu.
type resendSender struct {
	client    *resend.Client
	fromEmail string // Resend'de doğrulanmış domain altında olmalı
	appURL    string // Sohbet linkleri için public URL
}

// NewResendSender, Resend client'ı ile Sender oluşturur.
// apiKey: Resend dashboard'dan alınan key (re_xxxxxxxx).
func NewResendSender(apiKey, fromEmail, appURL string) Sender {
	return &resendSender{
		client:    resend.NewClient(apiKey),
		fromEmail: fromEmail,
		appURL:    appURL,
	}
}

// SendOfflineMessage, "yeni mesajın var" email'i gönderir.
// Link formatı: {appURL}/chats/{conversationID}
func (s *resendSender) SendOfflineMessage(ctx context.Context, toEmail string, msg OfflineMessage) error {
	params := BuildOfflineMessage(s.fromEmail, s.appURL, toEmail, msg)

	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to send offline message email: %w", err)
	}
	return nil
}

// BuildOfflineMessage, Resend isteğini oluşturur. Kullanıcıdan gelen
// alanlar HTML'e gömülmeden önce escape edilir.
func BuildOfflineMessage(from, appURL, to string, msg OfflineMessage) *resend.SendEmailRequest {
	link := fmt.Sprintf("%s/chats/%s", appURL, url.PathEscape(msg.ConversationID))
	sender := html.EscapeString(msg.SenderName)

	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="margin:0;padding:24px;background-color:#1a1a2e;font-family:Arial,Helvetica,sans-serif;">
  <table width="480" cellpadding="0" cellspacing="0" style="background-color:#16213e;border-radius:8px;padding:32px;">
    <tr>
      <td>
        <h2 style="color:#e2e8f0;font-size:18px;margin:0 0 16px 0;">%s sent you a message</h2>
        <p style="color:#94a3b8;font-size:15px;line-height:1.6;margin:0 0 24px 0;">%s</p>
        <a href="%s" style="color:#6366f1;font-size:15px;font-weight:600;">Open conversation</a>
      </td>
    </tr>
  </table>
</body>
</html>`, sender, html.EscapeString(msg.Preview), link)

	return &resend.SendEmailRequest{
		From:    fmt.Sprintf("yapyap <%s>", from),
		To:      []string{to},
		Subject: fmt.Sprintf("New message from %s", msg.SenderName),
		Html:    body,
	}
}
