package services

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/akinalp/yapyap/models"
	"github.com/akinalp/yapyap/pkg"
	"github.com/akinalp/yapyap/ws"
)

// ─── Hub ───

type sent struct {
	kind   string // all, user, room, room_except, conn
	target string
	except string
	event  ws.Event
}

type fakeHub struct {
	mu       sync.Mutex
	sent     []sent
	online   map[string]bool
	viewers  map[string][]string // chatID → aktif görüntüleyen kullanıcılar
	rooms    map[string]string   // connID → chatID
	snapshot []models.UserSummary
	joinErr  error
}

func newFakeHub() *fakeHub {
	return &fakeHub{
		online:  map[string]bool{},
		viewers: map[string][]string{},
		rooms:   map[string]string{},
	}
}

func (h *fakeHub) record(s sent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, s)
}

func (h *fakeHub) events() []sent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.sent)
}

func (h *fakeHub) BroadcastToAll(e ws.Event) { h.record(sent{kind: "all", event: e}) }
func (h *fakeHub) BroadcastToUser(userID string, e ws.Event) {
	h.record(sent{kind: "user", target: userID, event: e})
}
func (h *fakeHub) BroadcastToRoom(chatID string, e ws.Event) {
	h.record(sent{kind: "room", target: chatID, event: e})
}
func (h *fakeHub) BroadcastToRoomExcept(chatID, connID string, e ws.Event) {
	h.record(sent{kind: "room_except", target: chatID, except: connID, event: e})
}
func (h *fakeHub) SendToConnection(connID string, e ws.Event) {
	h.record(sent{kind: "conn", target: connID, event: e})
}

func (h *fakeHub) IsOnline(userID string) bool { return h.online[userID] }
func (h *fakeHub) ActiveViewers(chatID, exclude string) []string {
	return lo.Without(h.viewers[chatID], exclude)
}
func (h *fakeHub) Count() int                     { return len(h.snapshot) }
func (h *fakeHub) Snapshot() []models.UserSummary { return h.snapshot }

func (h *fakeHub) JoinRoom(connID, chatID string) error {
	if h.joinErr != nil {
		return h.joinErr
	}
	h.rooms[connID] = chatID
	return nil
}
func (h *fakeHub) LeaveRoom(connID, _ string) { delete(h.rooms, connID) }
func (h *fakeHub) IsInRoom(connID, chatID string) bool {
	return h.rooms[connID] == chatID
}

// ─── Repositories ───

type fakeUserRepo struct {
	mu        sync.Mutex
	users     map[string]*models.User
	getCalls  int
	getErr    error
	presence  []presenceWrite
	updateErr error
}

type presenceWrite struct {
	userID   string
	online   bool
	lastSeen time.Time
}

func newFakeUserRepo(users ...models.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[string]*models.User{}}
	for i := range users {
		u := users[i]
		r.users[u.ID] = &u
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getCalls++
	if r.getErr != nil {
		return nil, r.getErr
	}
	u, ok := r.users[id]
	if !ok {
		return nil, pkg.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByIDs(_ context.Context, ids []string) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.User
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) UpdatePresence(_ context.Context, userID string, online bool, lastSeen time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presence = append(r.presence, presenceWrite{userID, online, lastSeen})
	return r.updateErr
}

type fakeChatRepo struct {
	chats   map[string]*models.Chat
	getErr  error
	listErr error
}

func newFakeChatRepo(chats ...models.Chat) *fakeChatRepo {
	r := &fakeChatRepo{chats: map[string]*models.Chat{}}
	for i := range chats {
		c := chats[i]
		r.chats[c.ID] = &c
	}
	return r
}

func (r *fakeChatRepo) Create(_ context.Context, c *models.Chat) error {
	r.chats[c.ID] = c
	return nil
}

func (r *fakeChatRepo) GetByID(_ context.Context, id string) (*models.Chat, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	c, ok := r.chats[id]
	if !ok {
		return nil, pkg.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeChatRepo) ListByParticipant(_ context.Context, userID string) ([]models.Chat, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []models.Chat
	for _, c := range r.chats {
		if c.HasParticipant(userID) {
			out = append(out, *c)
		}
	}
	return out, nil
}

type markReadCall struct {
	chatID  string
	ids     []string
	receipt models.ReadReceipt
}

type fakeMessageRepo struct {
	msgs       map[string]*models.Message
	nextID     int
	createErr  error
	updateErr  error
	appendErr  error
	markErr    error
	appended   map[string][]models.ReadReceipt
	marked     []markReadCall
	lastInChat map[string]string // chatID → Create ile yazılan son messageID
}

func newFakeMessageRepo(msgs ...models.Message) *fakeMessageRepo {
	r := &fakeMessageRepo{
		msgs:       map[string]*models.Message{},
		appended:   map[string][]models.ReadReceipt{},
		lastInChat: map[string]string{},
	}
	for i := range msgs {
		m := msgs[i]
		r.msgs[m.ID] = &m
	}
	return r
}

func (r *fakeMessageRepo) Create(_ context.Context, m *models.Message) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	m.ID = fmt.Sprintf("m-%d", r.nextID)
	if m.ReadBy == nil {
		m.ReadBy = []models.ReadReceipt{}
	}
	cp := *m
	r.msgs[m.ID] = &cp
	r.lastInChat[m.ChatID] = m.ID
	return nil
}

func (r *fakeMessageRepo) GetByID(_ context.Context, id string) (*models.Message, error) {
	m, ok := r.msgs[id]
	if !ok {
		return nil, pkg.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMessageRepo) Update(_ context.Context, id string, upd models.MessageUpdate) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	m, ok := r.msgs[id]
	if !ok {
		return pkg.ErrNotFound
	}
	if upd.Content != nil {
		m.Content = *upd.Content
	}
	if upd.Edited != nil {
		m.Edited = *upd.Edited
	}
	if upd.EditedAt != nil {
		m.EditedAt = upd.EditedAt
	}
	if upd.IsDeleted != nil {
		m.IsDeleted = *upd.IsDeleted
	}
	if upd.DeletedAt != nil {
		m.DeletedAt = upd.DeletedAt
	}
	if upd.DeleteType != nil {
		m.DeleteType = upd.DeleteType
	}
	return nil
}

func (r *fakeMessageRepo) AppendReadReceipts(_ context.Context, messageID string, receipts []models.ReadReceipt) error {
	if r.appendErr != nil {
		return r.appendErr
	}
	r.appended[messageID] = append(r.appended[messageID], receipts...)
	return nil
}

func (r *fakeMessageRepo) MarkRead(_ context.Context, chatID string, ids []string, receipt models.ReadReceipt) error {
	if r.markErr != nil {
		return r.markErr
	}
	r.marked = append(r.marked, markReadCall{chatID, ids, receipt})
	return nil
}

// ─── Diğer ───

type fakeLimiter struct{ allow bool }

func (l fakeLimiter) Allow(string) bool { return l.allow }

type fakeNotifier struct{ notices []OfflineNotice }

func (n *fakeNotifier) NotifyOffline(_ context.Context, notice OfflineNotice) {
	n.notices = append(n.notices, notice)
}

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }
