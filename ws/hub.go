package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"slices"
	"sort"
	"sync"

	"github.com/akinalp/yapyap/models"
	"github.com/akinalp/yapyap/pkg"
)

// EventPublisher, service katmanının event göndermek için kullandığı interface.
//
// Service'ler Hub'ın concrete struct'ına değil bu interface'e bağımlıdır;
// testlerde kayıt tutan bir fake verilir.
type EventPublisher interface {
	BroadcastToAll(event Event)
	BroadcastToUser(userID string, event Event)
	BroadcastToRoom(chatID string, event Event)
	BroadcastToRoomExcept(chatID, excludeConnID string, event Event)
	SendToConnection(connID string, event Event)
}

// RoomMembership, oda üyeliği işlemleri.
type RoomMembership interface {
	JoinRoom(connID, chatID string) error
	LeaveRoom(connID, chatID string)
	IsInRoom(connID, chatID string) bool
}

// PresenceReader, presence kaydını okuyan service'lerin ihtiyacı.
type PresenceReader interface {
	IsOnline(userID string) bool
	ActiveViewers(chatID, excludeUserID string) []string
	Count() int
	Snapshot() []models.UserSummary
}

// ConnRef, callback'lere verilen bağlantı kimliği.
// Service'ler *Client'a değil bu değere bağımlıdır.
type ConnRef struct {
	ConnID   string
	UserID   string
	Username string
}

// CommandFunc, bir client komutunu işleyen callback.
// Dönen error "error" event'i olarak sadece bu bağlantıya gönderilir.
type CommandFunc[T any] func(ctx context.Context, conn ConnRef, data T) error

// Hub, bağlantı kaydını, presence kayıtlarını ve oda üyeliklerini tutar.
//
// Kilit düzeni:
//   - mu: conns, presence, rooms ve her Client'ın activeRoom alanını korur.
//     Bütün mutasyonlar Lock altında, okumalar RLock altında yapılır.
//   - emitMu: seq ataması + frame'lerin send channel'larına konulmasını
//     tek sıraya sokar. Önce emitMu, sonra mu alınır; tersi yapılmaz.
//
// Hub lock'u tutulurken DB'ye gidilmez ve callback çağrılmaz.
type Hub struct {
	mu sync.RWMutex

	// conns: connID → Client. Sadece kabul edilmiş (Admit) bağlantılar.
	conns map[string]*Client

	// presence: userID → PresenceRecord. Kullanıcı başına en fazla bir kayıt.
	presence map[string]models.PresenceRecord

	// rooms: chatID → connID → Client. Bir bağlantı en fazla bir odada bulunur.
	rooms map[string]map[string]*Client

	emitMu sync.Mutex
	seq    int64

	// unregister: broadcast sırasında buffer'ı dolu bulunan yavaş client'lar.
	// Broadcast hub lock'unu tutarken Remove çağıramaz; Run loop'u kaldırır.
	unregister chan *Client
	done       chan struct{}
	closeOnce  sync.Once

	// callbacks: presence callback'leri tek goroutine'de, Admit/Remove
	// sırasıyla çalışır. Hızlı connect+disconnect'te offline yazımı
	// online yazımının önüne geçemez.
	callbacks *callbackQueue

	// Presence callback'leri: Admit/Remove sonrası callbacks kuyruğunda çağrılır.
	onAdmit  func(rec models.PresenceRecord)
	onRemove func(rec models.PresenceRecord)

	// Komut callback'leri: ReadPump goroutine'inde senkron çağrılır, böylece
	// bir bağlantının komutları geldiği sırayla işlenir.
	onJoinRoom      CommandFunc[RoomData]
	onLeaveRoom     CommandFunc[RoomData]
	onSendMessage   CommandFunc[SendMessageData]
	onEditMessage   CommandFunc[EditMessageData]
	onDeleteMessage CommandFunc[DeleteMessageData]
	onMarkRead      CommandFunc[MarkReadData]
}

// NewHub, boş bir Hub oluşturur. main'de `go hub.Run()` ile başlatılır.
func NewHub() *Hub {
	h := &Hub{
		conns:      make(map[string]*Client),
		presence:   make(map[string]models.PresenceRecord),
		rooms:      make(map[string]map[string]*Client),
		unregister: make(chan *Client, 64),
		done:       make(chan struct{}),
		callbacks:  newCallbackQueue(),
	}
	go h.callbacks.run(h.done)
	return h
}

// ─── Callback kayıtları ───

// OnAdmit, bağlantı kabul edildikten sonra çağrılacak callback'i ayarlar.
func (h *Hub) OnAdmit(fn func(rec models.PresenceRecord)) { h.onAdmit = fn }

// OnRemove, presence kaydı silindikten sonra çağrılacak callback'i ayarlar.
// Yerine yenisi gelmiş (evicted) bağlantılar için çağrılmaz.
func (h *Hub) OnRemove(fn func(rec models.PresenceRecord)) { h.onRemove = fn }

func (h *Hub) OnJoinRoom(fn CommandFunc[RoomData])               { h.onJoinRoom = fn }
func (h *Hub) OnLeaveRoom(fn CommandFunc[RoomData])              { h.onLeaveRoom = fn }
func (h *Hub) OnSendMessage(fn CommandFunc[SendMessageData])     { h.onSendMessage = fn }
func (h *Hub) OnEditMessage(fn CommandFunc[EditMessageData])     { h.onEditMessage = fn }
func (h *Hub) OnDeleteMessage(fn CommandFunc[DeleteMessageData]) { h.onDeleteMessage = fn }
func (h *Hub) OnMarkRead(fn CommandFunc[MarkReadData])           { h.onMarkRead = fn }

// Run, yavaş client'ları kaldıran döngü. Shutdown ile durur.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.unregister:
			log.Printf("[ws] dropping slow connection %s (user=%s)", c.id, c.userID)
			h.Remove(c)
		case <-h.done:
			return
		}
	}
}

// ─── Connection Registry ───

// Admit, bağlantıyı kayda alır ve kullanıcının presence kaydını yazar.
//
// Aynı kullanıcının önceki bağlantısı varsa kaydı yenisiyle değiştirilir,
// önceki bağlantı odalarından çıkarılıp kapatılır. Önceki bağlantının
// sonradan gelen Remove'u presence'a dokunmaz.
func (h *Hub) Admit(c *Client) models.PresenceRecord {
	rec := models.PresenceRecord{
		ConnectionID: c.id,
		User:         models.UserSummary{ID: c.userID, Username: c.username},
		ConnectedAt:  c.connectedAt,
	}

	h.mu.Lock()
	var evicted *Client
	if prev, ok := h.presence[c.userID]; ok && prev.ConnectionID != c.id {
		if old, exists := h.conns[prev.ConnectionID]; exists {
			h.detachLocked(old)
			evicted = old
		}
	}
	h.conns[c.id] = c
	h.presence[c.userID] = rec
	total := len(h.presence)
	h.mu.Unlock()

	if evicted != nil {
		log.Printf("[ws] user %s reconnected, closing previous connection %s", c.userID, evicted.id)
	}
	log.Printf("[ws] connection admitted: user=%s conn=%s (online users: %d)", c.userID, c.id, total)

	if h.onAdmit != nil {
		h.callbacks.push(func() { h.onAdmit(rec) })
	}
	return rec
}

// Remove, bağlantıyı kayıttan ve bütün odalardan çıkarır.
//
// Idempotent: ikinci çağrı bir şey yapmaz. Admit edilmemiş veya yarım
// kalmış bağlantılarda da güvenle çağrılabilir. Presence kaydı sadece
// bu bağlantıya aitse silinir ve onRemove tetiklenir.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	h.detachLocked(c)

	rec, owned := h.presence[c.userID]
	owned = owned && rec.ConnectionID == c.id
	if owned {
		delete(h.presence, c.userID)
	}
	total := len(h.presence)
	h.mu.Unlock()

	if !owned {
		return
	}

	log.Printf("[ws] connection removed: user=%s conn=%s (online users: %d)", c.userID, c.id, total)
	if h.onRemove != nil {
		h.callbacks.push(func() { h.onRemove(rec) })
	}
}

// detachLocked, client'ı conns ve rooms'tan çıkarır, send channel'ını kapatır.
// h.mu Lock altında çağrılmalı.
func (h *Hub) detachLocked(c *Client) {
	if cur, ok := h.conns[c.id]; ok && cur == c {
		delete(h.conns, c.id)
	}

	// activeRoom'a güvenmeden bütün odalar taranır: yarım kalmış join
	// sonrası tutarsızlık kalmasın
	for chatID, members := range h.rooms {
		if _, ok := members[c.id]; ok {
			delete(members, c.id)
			if len(members) == 0 {
				delete(h.rooms, chatID)
			}
		}
	}
	c.activeRoom = ""
	c.closeSend()
}

// Count, online kullanıcı sayısını döner.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.presence)
}

// IsOnline, kullanıcının kabul edilmiş bir bağlantısı olup olmadığını döner.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.presence[userID]
	return ok
}

// OnlineUserIDs, online kullanıcıların ID'lerini döner.
func (h *Hub) OnlineUserIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.presence))
	for userID := range h.presence {
		ids = append(ids, userID)
	}
	sort.Strings(ids)
	return ids
}

// Snapshot, online kullanıcıların {id, username} listesini bağlanma
// sırasına göre döner.
func (h *Hub) Snapshot() []models.UserSummary {
	h.mu.RLock()
	records := make([]models.PresenceRecord, 0, len(h.presence))
	for _, rec := range h.presence {
		records = append(records, rec)
	}
	h.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		if records[i].ConnectedAt.Equal(records[j].ConnectedAt) {
			return records[i].User.ID < records[j].User.ID
		}
		return records[i].ConnectedAt.Before(records[j].ConnectedAt)
	})

	users := make([]models.UserSummary, len(records))
	for i, rec := range records {
		users[i] = rec.User
	}
	return users
}

// Presence, kullanıcının presence kaydını döner.
func (h *Hub) Presence(userID string) (models.PresenceRecord, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rec, ok := h.presence[userID]
	return rec, ok
}

// ─── Room Membership ───

// JoinRoom, bağlantıyı chatID odasına alır ve diğer bütün odalardan çıkarır.
// Zaten o odadaysa sadece activeRoom yeniden yazılır. Yetki kontrolü
// çağıranın (RoomService) işidir.
func (h *Hub) JoinRoom(connID, chatID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.conns[connID]
	if !ok {
		return fmt.Errorf("%w: connection %s is not active", pkg.ErrNotFound, connID)
	}

	for id, members := range h.rooms {
		if id == chatID {
			continue
		}
		if _, in := members[connID]; in {
			delete(members, connID)
			if len(members) == 0 {
				delete(h.rooms, id)
			}
		}
	}

	members, ok := h.rooms[chatID]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[chatID] = members
	}
	members[connID] = c
	c.activeRoom = chatID
	return nil
}

// LeaveRoom, bağlantıyı odadan çıkarır. activeRoom her durumda temizlenir.
func (h *Hub) LeaveRoom(connID, chatID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[chatID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, chatID)
		}
	}
	if c, ok := h.conns[connID]; ok {
		c.activeRoom = ""
	}
}

// IsInRoom, bağlantının chatID odasına abone olup olmadığını döner.
func (h *Hub) IsInRoom(connID, chatID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[chatID][connID]
	return ok
}

// ActiveRoom, bağlantının aktif olarak görüntülediği sohbeti döner.
func (h *Hub) ActiveRoom(connID string) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.conns[connID]; ok {
		return c.activeRoom
	}
	return ""
}

// ActiveViewers, chatID odasında olup sohbeti aktif olarak görüntüleyen
// kullanıcıları döner. excludeUserID (genelde gönderen) listeye girmez.
func (h *Hub) ActiveViewers(chatID, excludeUserID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	viewers := make([]string, 0, len(h.rooms[chatID]))
	for _, c := range h.rooms[chatID] {
		if c.activeRoom != chatID || c.userID == excludeUserID {
			continue
		}
		if !slices.Contains(viewers, c.userID) {
			viewers = append(viewers, c.userID)
		}
	}
	sort.Strings(viewers)
	return viewers
}

// ─── Broadcast ───

// BroadcastToAll, kabul edilmiş bütün bağlantılara event gönderir.
func (h *Hub) BroadcastToAll(event Event) {
	h.emit(event, func(send func(*Client)) {
		for _, c := range h.conns {
			send(c)
		}
	})
}

// BroadcastToUser, kullanıcının kişisel kanalına (aktif bağlantısına)
// event gönderir. Odalardan bağımsızdır.
func (h *Hub) BroadcastToUser(userID string, event Event) {
	h.emit(event, func(send func(*Client)) {
		if rec, ok := h.presence[userID]; ok {
			if c, ok := h.conns[rec.ConnectionID]; ok {
				send(c)
			}
		}
	})
}

// BroadcastToRoom, chatID odasındaki bütün bağlantılara event gönderir.
func (h *Hub) BroadcastToRoom(chatID string, event Event) {
	h.emit(event, func(send func(*Client)) {
		for _, c := range h.rooms[chatID] {
			send(c)
		}
	})
}

// BroadcastToRoomExcept, odadaki excludeConnID dışındaki bağlantılara gönderir.
func (h *Hub) BroadcastToRoomExcept(chatID, excludeConnID string, event Event) {
	h.emit(event, func(send func(*Client)) {
		for id, c := range h.rooms[chatID] {
			if id != excludeConnID {
				send(c)
			}
		}
	})
}

// SendToConnection, tek bir bağlantıya event gönderir.
func (h *Hub) SendToConnection(connID string, event Event) {
	h.emit(event, func(send func(*Client)) {
		if c, ok := h.conns[connID]; ok {
			send(c)
		}
	})
}

// emit, event'e seq verir, bir kez marshal eder ve seçilen client'ların
// send channel'larına koyar.
//
// emitMu, iki broadcast'in frame'lerinin client'lara farklı sırayla
// ulaşmasını engeller. Frame'ler mu RLock altında konur: Remove aynı anda
// send channel'ını kapatamaz.
func (h *Hub) emit(event Event, each func(send func(*Client))) {
	h.emitMu.Lock()
	defer h.emitMu.Unlock()

	h.seq++
	event.Seq = h.seq

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[ws] failed to marshal %s event: %v", event.Op, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	each(func(c *Client) {
		if !c.enqueue(data) {
			// Buffer dolu: client yavaş, Run loop'u kaldırsın
			select {
			case h.unregister <- c:
			default:
				go func() {
					select {
					case h.unregister <- c:
					case <-h.done:
					}
				}()
			}
		}
	})
}

// Shutdown, bütün bağlantıları kapatır ve Run loop'unu durdurur.
func (h *Hub) Shutdown() {
	h.closeOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	for _, c := range h.conns {
		c.closeSend()
	}
	h.conns = make(map[string]*Client)
	h.presence = make(map[string]models.PresenceRecord)
	h.rooms = make(map[string]map[string]*Client)
	h.mu.Unlock()

	log.Println("[ws] hub shut down, all connections closed")
}

// callbackQueue, fonksiyonları eklendikleri sırayla tek goroutine'de çalıştırır.
// push hiçbir zaman bloklamaz.
type callbackQueue struct {
	mu    sync.Mutex
	items []func()
	wake  chan struct{}
}

func newCallbackQueue() *callbackQueue {
	return &callbackQueue{wake: make(chan struct{}, 1)}
}

func (q *callbackQueue) push(fn func()) {
	q.mu.Lock()
	q.items = append(q.items, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *callbackQueue) run(done <-chan struct{}) {
	for {
		select {
		case <-q.wake:
		case <-done:
			return
		}

		for {
			q.mu.Lock()
			if len(q.items) == 0 {
				q.mu.Unlock()
				break
			}
			fn := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()

			fn()
		}
	}
}
