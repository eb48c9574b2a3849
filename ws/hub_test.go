package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/akinalp/yapyap/models"
	"github.com/akinalp/yapyap/pkg"
)

type frame struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"d"`
	Seq  int64           `json:"seq"`
}

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub()
	go h.Run()
	t.Cleanup(h.Shutdown)
	return h
}

func admit(t *testing.T, h *Hub, userID string) *Client {
	t.Helper()
	c := NewClient(h, nil, userID, "name-"+userID)
	h.Admit(c)
	return c
}

func nextFrame(t *testing.T, c *Client) frame {
	t.Helper()
	select {
	case raw, ok := <-c.Send():
		require.True(t, ok, "send channel closed")
		var f frame
		require.NoError(t, json.Unmarshal(raw, &f))
		return f
	case <-time.After(time.Second):
		t.Fatalf("no frame for conn %s", c.ID())
		return frame{}
	}
}

func requireNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw := <-c.Send():
		t.Fatalf("unexpected frame for conn %s: %s", c.ID(), raw)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHub_AdmitAndRemove(t *testing.T) {
	h := newTestHub(t)

	admitted := make(chan models.PresenceRecord, 4)
	removed := make(chan models.PresenceRecord, 4)
	h.OnAdmit(func(rec models.PresenceRecord) { admitted <- rec })
	h.OnRemove(func(rec models.PresenceRecord) { removed <- rec })

	a := admit(t, h, "u1")
	admit(t, h, "u2")

	require.Equal(t, 2, h.Count())
	require.True(t, h.IsOnline("u1"))
	require.Equal(t, []string{"u1", "u2"}, h.OnlineUserIDs())

	snap := h.Snapshot()
	require.Len(t, snap, 2)
	require.Equal(t, models.UserSummary{ID: "u1", Username: "name-u1"}, snap[0])

	rec, ok := h.Presence("u1")
	require.True(t, ok)
	require.Equal(t, a.ID(), rec.ConnectionID)

	require.Equal(t, "u1", (<-admitted).User.ID)
	require.Equal(t, "u2", (<-admitted).User.ID)

	h.Remove(a)
	h.Remove(a) // idempotent

	require.Equal(t, 1, h.Count())
	require.False(t, h.IsOnline("u1"))
	require.Equal(t, "u1", (<-removed).User.ID)

	select {
	case rec := <-removed:
		t.Fatalf("second remove fired callback: %+v", rec)
	case <-time.After(20 * time.Millisecond):
	}

	_, open := <-a.Send()
	require.False(t, open)
}

func TestHub_RemoveNeverAdmitted(t *testing.T) {
	h := newTestHub(t)
	c := NewClient(h, nil, "u1", "one")

	require.NotPanics(t, func() { h.Remove(c) })
	require.Equal(t, 0, h.Count())
}

func TestHub_SecondAdmitEvictsPrevious(t *testing.T) {
	h := newTestHub(t)

	removed := make(chan models.PresenceRecord, 2)
	h.OnRemove(func(rec models.PresenceRecord) { removed <- rec })

	first := admit(t, h, "u1")
	require.NoError(t, h.JoinRoom(first.ID(), "chat-1"))

	second := admit(t, h, "u1")

	require.Equal(t, 1, h.Count())
	require.False(t, h.IsInRoom(first.ID(), "chat-1"))
	_, open := <-first.Send()
	require.False(t, open)

	// Eski bağlantının teardown'u yeni presence kaydına dokunmaz
	h.Remove(first)
	rec, ok := h.Presence("u1")
	require.True(t, ok)
	require.Equal(t, second.ID(), rec.ConnectionID)

	select {
	case rec := <-removed:
		t.Fatalf("evicted connection fired remove: %+v", rec)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHub_JoinRoomLeavesOtherRooms(t *testing.T) {
	h := newTestHub(t)
	c := admit(t, h, "u1")

	require.NoError(t, h.JoinRoom(c.ID(), "chat-1"))
	require.Equal(t, "chat-1", h.ActiveRoom(c.ID()))

	require.NoError(t, h.JoinRoom(c.ID(), "chat-2"))
	require.False(t, h.IsInRoom(c.ID(), "chat-1"))
	require.True(t, h.IsInRoom(c.ID(), "chat-2"))
	require.Equal(t, "chat-2", h.ActiveRoom(c.ID()))

	// Tekrar katılmak no-op, activeRoom korunur
	require.NoError(t, h.JoinRoom(c.ID(), "chat-2"))
	require.True(t, h.IsInRoom(c.ID(), "chat-2"))
	require.Equal(t, "chat-2", h.ActiveRoom(c.ID()))
}

func TestHub_JoinRoomUnknownConnection(t *testing.T) {
	h := newTestHub(t)

	err := h.JoinRoom("missing", "chat-1")
	require.ErrorIs(t, err, pkg.ErrNotFound)
	require.False(t, h.IsInRoom("missing", "chat-1"))
}

func TestHub_LeaveRoomAlwaysClearsActiveRoom(t *testing.T) {
	h := newTestHub(t)
	c := admit(t, h, "u1")
	require.NoError(t, h.JoinRoom(c.ID(), "chat-1"))

	// Başka bir odadan ayrılmak da aktif sohbeti temizler
	h.LeaveRoom(c.ID(), "chat-other")
	require.Equal(t, "", h.ActiveRoom(c.ID()))
	require.True(t, h.IsInRoom(c.ID(), "chat-1"))

	h.LeaveRoom(c.ID(), "chat-1")
	require.False(t, h.IsInRoom(c.ID(), "chat-1"))
}

func TestHub_ActiveViewers(t *testing.T) {
	h := newTestHub(t)
	sender := admit(t, h, "u1")
	viewer := admit(t, h, "u2")
	idle := admit(t, h, "u3")
	admit(t, h, "u4") // odada değil

	for _, c := range []*Client{sender, viewer, idle} {
		require.NoError(t, h.JoinRoom(c.ID(), "chat-1"))
	}
	// idle abone kalır ama aktif görüntülemez
	h.LeaveRoom(idle.ID(), "chat-unrelated")

	require.Equal(t, []string{"u2"}, h.ActiveViewers("chat-1", "u1"))
	require.Equal(t, []string{"u1", "u2"}, h.ActiveViewers("chat-1", ""))
	require.Empty(t, h.ActiveViewers("chat-2", "u1"))
}

func TestHub_BroadcastTargets(t *testing.T) {
	h := newTestHub(t)
	a := admit(t, h, "u1")
	b := admit(t, h, "u2")
	c := admit(t, h, "u3")
	require.NoError(t, h.JoinRoom(a.ID(), "chat-1"))
	require.NoError(t, h.JoinRoom(b.ID(), "chat-1"))

	h.BroadcastToRoom("chat-1", Event{Op: OpNewMessage})
	require.Equal(t, OpNewMessage, nextFrame(t, a).Op)
	require.Equal(t, OpNewMessage, nextFrame(t, b).Op)
	requireNoFrame(t, c)

	h.BroadcastToRoomExcept("chat-1", a.ID(), Event{Op: OpUserTyping})
	requireNoFrame(t, a)
	require.Equal(t, OpUserTyping, nextFrame(t, b).Op)

	h.BroadcastToUser("u3", Event{Op: OpUserStatusChange})
	require.Equal(t, OpUserStatusChange, nextFrame(t, c).Op)
	requireNoFrame(t, a)

	h.SendToConnection(b.ID(), Event{Op: OpChatRoomJoined})
	require.Equal(t, OpChatRoomJoined, nextFrame(t, b).Op)

	h.BroadcastToAll(Event{Op: OpOnlineCount})
	for _, cl := range []*Client{a, b, c} {
		require.Equal(t, OpOnlineCount, nextFrame(t, cl).Op)
	}
}

func TestHub_SeqIncreasesPerConnection(t *testing.T) {
	h := newTestHub(t)
	a := admit(t, h, "u1")
	b := admit(t, h, "u2")
	require.NoError(t, h.JoinRoom(a.ID(), "chat-1"))
	require.NoError(t, h.JoinRoom(b.ID(), "chat-1"))

	for i := 0; i < 5; i++ {
		h.BroadcastToRoom("chat-1", Event{Op: OpNewMessage})
		h.SendToConnection(b.ID(), Event{Op: OpHeartbeatAck})
	}

	var last int64
	for i := 0; i < 5; i++ {
		f := nextFrame(t, a)
		require.Greater(t, f.Seq, last)
		last = f.Seq
	}

	last = 0
	for i := 0; i < 10; i++ {
		f := nextFrame(t, b)
		require.Greater(t, f.Seq, last)
		last = f.Seq
	}
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	h := newTestHub(t)
	slow := admit(t, h, "u1")

	for i := 0; i < sendBufferSize+1; i++ {
		h.SendToConnection(slow.ID(), Event{Op: OpHeartbeatAck})
	}

	require.Eventually(t, func() bool { return !h.IsOnline("u1") }, time.Second, 5*time.Millisecond)
}

func TestHub_SendAfterRemoveIsDropped(t *testing.T) {
	h := newTestHub(t)
	c := admit(t, h, "u1")
	h.Remove(c)

	require.NotPanics(t, func() {
		h.BroadcastToAll(Event{Op: OpOnlineCount})
		h.SendToConnection(c.ID(), Event{Op: OpHeartbeatAck})
	})
}
