package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/akinalp/yapyap/models"
	"github.com/akinalp/yapyap/ws"
)

func newPresenceFixture() (*presenceService, *fakeHub, *fakeUserRepo, *fakeChatRepo) {
	hub := newFakeHub()
	users := newFakeUserRepo(models.User{ID: "u1", Username: "alice"})
	chats := newFakeChatRepo(
		models.Chat{ID: "c1", Participants: []string{"u1", "u2"}},
		models.Chat{ID: "c2", Participants: []string{"u1", "u2", "u3"}},
		models.Chat{ID: "c3", Participants: []string{"u4", "u5"}},
	)
	svc := NewPresenceService(users, chats, hub, fixedClock(t0)).(*presenceService)
	return svc, hub, users, chats
}

func statusTargets(events []sent) map[string]ws.UserStatusChangeData {
	out := map[string]ws.UserStatusChangeData{}
	for _, e := range events {
		if e.kind == "user" && e.event.Op == ws.OpUserStatusChange {
			out[e.target] = e.event.Data.(ws.UserStatusChangeData)
		}
	}
	return out
}

func TestPresenceService_UserConnected(t *testing.T) {
	svc, hub, users, _ := newPresenceFixture()
	hub.snapshot = []models.UserSummary{{ID: "u1", Username: "alice"}}

	svc.UserConnected(models.PresenceRecord{ConnectionID: "conn-1", User: models.UserSummary{ID: "u1", Username: "alice"}})

	require.Equal(t, []presenceWrite{{userID: "u1", online: true, lastSeen: t0}}, users.presence)

	events := hub.events()
	require.Equal(t, "all", events[0].kind)
	require.Equal(t, ws.Event{
		Op:   ws.OpOnlineCount,
		Data: ws.OnlineCountData{Count: 1, Users: []models.UserSummary{{ID: "u1", Username: "alice"}}},
	}, events[0].event)

	targets := statusTargets(events)
	require.Len(t, targets, 2)
	require.Contains(t, targets, "u2")
	require.Contains(t, targets, "u3")
	require.Equal(t, ws.UserStatusChangeData{UserID: "u1", IsOnline: true, LastSeen: t0}, targets["u2"])
}

func TestPresenceService_UserDisconnected(t *testing.T) {
	svc, hub, users, _ := newPresenceFixture()

	svc.UserDisconnected(models.PresenceRecord{ConnectionID: "conn-1", User: models.UserSummary{ID: "u1"}})

	require.Equal(t, []presenceWrite{{userID: "u1", online: false, lastSeen: t0}}, users.presence)

	events := hub.events()
	require.Equal(t, ws.OnlineCountData{Count: 0, Users: nil}, events[0].event.Data)
	require.False(t, statusTargets(events)["u3"].IsOnline)
	require.Len(t, statusTargets(events), 2)
}

func TestPresenceService_PersistFailureStillBroadcasts(t *testing.T) {
	svc, hub, users, _ := newPresenceFixture()
	users.updateErr = errors.New("database is locked")

	svc.UserConnected(models.PresenceRecord{User: models.UserSummary{ID: "u1"}})

	require.Len(t, statusTargets(hub.events()), 2)
}

func TestPresenceService_ContactLookupFailure(t *testing.T) {
	svc, hub, _, chats := newPresenceFixture()
	chats.listErr = errors.New("database is locked")

	svc.UserConnected(models.PresenceRecord{User: models.UserSummary{ID: "u1"}})

	events := hub.events()
	require.Len(t, events, 1, "online_count only")
	require.Equal(t, ws.OpOnlineCount, events[0].event.Op)
}

func TestPresenceService_Online(t *testing.T) {
	svc, hub, _, _ := newPresenceFixture()
	hub.snapshot = []models.UserSummary{{ID: "u1"}, {ID: "u2"}}

	require.Equal(t, models.PresenceSnapshot{Count: 2, Users: hub.snapshot}, svc.Online())
}
