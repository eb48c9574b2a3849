package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/akinalp/yapyap/models"
	"github.com/akinalp/yapyap/pkg/email"
)

type sentEmail struct {
	to  string
	msg email.OfflineMessage
}

type fakeSender struct {
	sent []sentEmail
	fail map[string]bool
}

func (s *fakeSender) SendOfflineMessage(_ context.Context, to string, msg email.OfflineMessage) error {
	if s.fail[to] {
		return errors.New("resend: 500")
	}
	s.sent = append(s.sent, sentEmail{to, msg})
	return nil
}

func TestEmailNotifier_SendsToRecipientsWithEmail(t *testing.T) {
	users := newFakeUserRepo(
		models.User{ID: "u2", Email: strPtr("bob@example.com")},
		models.User{ID: "u3"},
		models.User{ID: "u4", Email: strPtr("dan@example.com")},
	)
	sender := &fakeSender{fail: map[string]bool{"dan@example.com": true}}
	n := NewEmailNotifier(users, sender)
	n.spawn = func(fn func()) { fn() }

	ctx, cancel := context.WithCancel(context.Background())
	n.NotifyOffline(ctx, OfflineNotice{
		Message:    &models.Message{ID: "m1", ChatID: "c1", Type: models.MessageTypeText, Content: "selam"},
		SenderName: "alice",
		Recipients: []string{"u2", "u3", "u4", "ghost"},
	})
	cancel()

	require.Equal(t, []sentEmail{{
		to:  "bob@example.com",
		msg: email.OfflineMessage{SenderName: "alice", ConversationID: "c1", Preview: "selam"},
	}}, sender.sent)
}

func TestEmailNotifier_OutlivesCommandContext(t *testing.T) {
	users := newFakeUserRepo(models.User{ID: "u2", Email: strPtr("bob@example.com")})
	sender := &fakeSender{}
	n := NewEmailNotifier(users, sender)

	var deferred func()
	n.spawn = func(fn func()) { deferred = fn }

	ctx, cancel := context.WithCancel(context.Background())
	n.NotifyOffline(ctx, OfflineNotice{
		Message:    &models.Message{ID: "m1", ChatID: "c1", Type: models.MessageTypeImage},
		Recipients: []string{"u2"},
	})
	cancel()
	deferred()

	require.Len(t, sender.sent, 1)
	require.Equal(t, "[image]", sender.sent[0].msg.Preview)
}

func TestPreview(t *testing.T) {
	long := strings.Repeat("ğ", previewLength+10)

	got := preview(&models.Message{Type: models.MessageTypeText, Content: long})
	require.Equal(t, strings.Repeat("ğ", previewLength)+"…", got)

	require.Equal(t, "kısa", preview(&models.Message{Type: models.MessageTypeText, Content: "kısa"}))
	require.Equal(t, "[audio]", preview(&models.Message{Type: models.MessageTypeAudio}))
}

func TestLogNotifier(t *testing.T) {
	require.NotPanics(t, func() {
		LogNotifier{}.NotifyOffline(context.Background(), OfflineNotice{
			Message:    &models.Message{ID: "m1", ChatID: "c1"},
			Recipients: []string{"u2"},
		})
	})
}
