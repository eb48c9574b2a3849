package services

import (
	"context"
	"log"
	"time"

	"github.com/samber/lo"

	"github.com/akinalp/yapyap/models"
	"github.com/akinalp/yapyap/repository"
	"github.com/akinalp/yapyap/ws"
)

// presenceTimeout, tek bir admit/remove callback'inin DB süresi.
const presenceTimeout = 10 * time.Second

// PresenceHub, PresenceService'in hub'dan ihtiyaç duyduğu her şey.
type PresenceHub interface {
	ws.EventPublisher
	ws.PresenceReader
}

// PresenceService, bağlanma / kopma sonrası yan etkiler.
//
// Hub'ın OnAdmit / OnRemove callback'lerine bağlanır. Callback'ler hub'ın
// kuyruğunda sırayla çalışır; aynı kullanıcının online ve offline
// yazımları yer değiştirmez.
type PresenceService interface {
	UserConnected(rec models.PresenceRecord)
	UserDisconnected(rec models.PresenceRecord)
	// Online, HTTP presence endpoint'i için anlık görüntü.
	Online() models.PresenceSnapshot
}

type presenceService struct {
	userRepo repository.UserRepository
	chatRepo repository.ChatRepository
	hub      PresenceHub
	now      func() time.Time
}

// NewPresenceService, constructor. now nil ise time.Now kullanılır.
func NewPresenceService(
	userRepo repository.UserRepository,
	chatRepo repository.ChatRepository,
	hub PresenceHub,
	now func() time.Time,
) PresenceService {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &presenceService{userRepo: userRepo, chatRepo: chatRepo, hub: hub, now: now}
}

// UserConnected, online durumunu yazar, sayacı herkese ve durumu
// kontaklara yayınlar.
func (s *presenceService) UserConnected(rec models.PresenceRecord) {
	s.changed(rec.User.ID, true)
}

// UserDisconnected, offline durumunu ve lastSeen'i yazar, sonra yayınlar.
func (s *presenceService) UserDisconnected(rec models.PresenceRecord) {
	s.changed(rec.User.ID, false)
}

func (s *presenceService) changed(userID string, online bool) {
	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()

	lastSeen := s.now()
	// DB yazımı başarısız olsa da in-memory presence doğru: yayın devam eder
	if err := s.userRepo.UpdatePresence(ctx, userID, online, lastSeen); err != nil {
		log.Printf("[presence] failed to persist presence user=%s online=%t: %v", userID, online, err)
	}

	snapshot := s.Online()
	s.hub.BroadcastToAll(ws.Event{
		Op:   ws.OpOnlineCount,
		Data: ws.OnlineCountData{Count: snapshot.Count, Users: snapshot.Users},
	})

	contacts, err := s.contacts(ctx, userID)
	if err != nil {
		log.Printf("[presence] failed to list contacts of user %s: %v", userID, err)
		return
	}

	event := ws.Event{
		Op: ws.OpUserStatusChange,
		Data: ws.UserStatusChangeData{
			UserID:   userID,
			IsOnline: online,
			LastSeen: lastSeen,
		},
	}
	for _, contactID := range contacts {
		s.hub.BroadcastToUser(contactID, event)
	}
}

// contacts, kullanıcının ortak sohbeti olan diğer katılımcıları döner.
func (s *presenceService) contacts(ctx context.Context, userID string) ([]string, error) {
	chats, err := s.chatRepo.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}

	all := lo.FlatMap(chats, func(c models.Chat, _ int) []string { return c.Participants })
	return lo.Without(lo.Uniq(all), userID), nil
}

// Online, hub'daki presence kayıtlarından anlık görüntü üretir.
func (s *presenceService) Online() models.PresenceSnapshot {
	users := s.hub.Snapshot()
	return models.PresenceSnapshot{Count: len(users), Users: users}
}
