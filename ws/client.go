package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/akinalp/yapyap/pkg"
)

// WebSocket bağlantı sabitleri
const (
	// writeWait: tek bir frame'i yazmak için en fazla bekleme süresi.
	writeWait = 10 * time.Second

	// pongWait: heartbeat gelmeden geçebilecek en uzun süre.
	// Client 30sn'de bir heartbeat gönderir; 3 kaçırma = kopmuş.
	pongWait = 90 * time.Second

	// maxMessageSize: client'tan kabul edilen en büyük frame (byte).
	// Mesaj içeriği en fazla 4000 karakter; JSON zarfı ve çok byte'lı
	// karakterler için pay bırakılır.
	maxMessageSize = 32 * 1024

	// sendBufferSize: client başına bekleyen outbound frame sayısı.
	// Dolarsa client yavaş sayılır ve bağlantısı kapatılır.
	sendBufferSize = 256

	// commandTimeout: tek bir komutun (DB + broadcast) en uzun süresi.
	commandTimeout = 10 * time.Second
)

// Client, tek bir WebSocket bağlantısı.
//
// Her bağlantı için iki goroutine çalışır: ReadPump komutları okuyup sırayla
// işler, WritePump send channel'ındaki frame'leri sokete yazar. gorilla/websocket
// aynı anda tek okuyucu ve tek yazıcıya izin verir.
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	id          string
	userID      string
	username    string
	connectedAt time.Time

	// activeRoom: aktif görüntülenen sohbet. hub.mu altında okunur/yazılır.
	activeRoom string

	send     chan []byte
	sendOnce sync.Once
	closed   bool // sendOnce içinde set edilir, hub.mu altında okunur
	writeMu  sync.Mutex
}

// NewClient, kimliği doğrulanmış kullanıcı için bağlantı oluşturur.
// Bağlantı kimliği burada atanır. conn nil olabilir (testler pump
// çalıştırmadan hub davranışını sınar).
func NewClient(hub *Hub, conn *websocket.Conn, userID, username string) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		id:          uuid.NewString(),
		userID:      userID,
		username:    username,
		connectedAt: time.Now().UTC(),
		send:        make(chan []byte, sendBufferSize),
	}
}

// ID, bağlantı kimliğini döner.
func (c *Client) ID() string { return c.id }

// UserID, bağlantının kullanıcı kimliğini döner.
func (c *Client) UserID() string { return c.userID }

// Ref, callback'lere verilen bağlantı kimliği.
func (c *Client) Ref() ConnRef {
	return ConnRef{ConnID: c.id, UserID: c.userID, Username: c.username}
}

// Send, outbound frame'leri okumak için kanal. Hub kapattığında kapanır.
func (c *Client) Send() <-chan []byte { return c.send }

// enqueue, frame'i buffer'a koyar. Buffer doluysa false döner; kanal
// kapanmışsa frame düşer. hub.mu (en az RLock) altında çağrılır.
func (c *Client) enqueue(data []byte) bool {
	if c.closed {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// closeSend, send channel'ını bir kez kapatır. hub.mu Lock altında çağrılır.
func (c *Client) closeSend() {
	c.sendOnce.Do(func() {
		c.closed = true
		close(c.send)
	})
}

// ReadPump, bağlantıdan gelen komutları okur ve sırayla işler.
// Bağlantı kapanınca client hub'dan çıkarılır.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("[ws] failed to set read deadline for user %s: %v", c.userID, err)
		return
	}

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] unexpected close for user %s: %v", c.userID, err)
			}
			return
		}

		var event Event
		if err := json.Unmarshal(raw, &event); err != nil {
			log.Printf("[ws] invalid frame from user %s: %v", c.userID, err)
			c.sendError(pkg.ErrBadRequest)
			continue
		}

		c.handleEvent(event)
	}
}

// handleEvent, tek bir komutu işler. Hatalar sadece bu bağlantıya
// "error" event'i olarak döner; bağlantı kapatılmaz, komut tekrar denenmez.
func (c *Client) handleEvent(event Event) {
	if event.Op == OpHeartbeat {
		if c.conn != nil {
			if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
				log.Printf("[ws] failed to set read deadline for user %s: %v", c.userID, err)
				return
			}
		}
		c.hub.SendToConnection(c.id, Event{Op: OpHeartbeatAck})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := c.dispatch(ctx, event); err != nil {
		if pkg.ErrorCode(err) == pkg.CodeOperationFailed {
			log.Printf("[ws] %s failed for user %s conn %s: %v", event.Op, c.userID, c.id, err)
		}
		c.sendError(err)
	}
}

func (c *Client) dispatch(ctx context.Context, event Event) error {
	h := c.hub
	ref := c.Ref()

	switch event.Op {
	case OpJoinChatRoom:
		return runCommand(ctx, ref, event.Data, h.onJoinRoom)
	case OpLeaveChatRoom:
		return runCommand(ctx, ref, event.Data, h.onLeaveRoom)
	case OpSendMessage:
		return runCommand(ctx, ref, event.Data, h.onSendMessage)
	case OpEditMessage:
		return runCommand(ctx, ref, event.Data, h.onEditMessage)
	case OpDeleteMessage:
		return runCommand(ctx, ref, event.Data, h.onDeleteMessage)
	case OpMarkRead:
		return runCommand(ctx, ref, event.Data, h.onMarkRead)
	case OpTypingStart:
		return c.relayTyping(event.Data, OpUserTyping)
	case OpTypingStop:
		return c.relayTyping(event.Data, OpUserStopTyping)
	default:
		log.Printf("[ws] unknown op from user %s: %s", c.userID, event.Op)
		return pkg.ErrBadRequest
	}
}

// runCommand, payload'ı T'ye decode edip callback'i çağırır.
// Callback bağlanmamışsa komut sessizce yok sayılır.
func runCommand[T any](ctx context.Context, ref ConnRef, data any, fn CommandFunc[T]) error {
	var payload T
	if err := decodePayload(data, &payload); err != nil {
		return err
	}
	if fn == nil {
		return nil
	}
	return fn(ctx, ref, payload)
}

// relayTyping, typing göstergesini odadaki diğer bağlantılara iletir.
// Persist edilmez, katılımcı kontrolü ve timeout yoktur.
func (c *Client) relayTyping(data any, op string) error {
	var room RoomData
	if err := decodePayload(data, &room); err != nil {
		return err
	}

	c.hub.BroadcastToRoomExcept(room.ConversationID, c.id, Event{
		Op: op,
		Data: TypingBroadcastData{
			UserID:         c.userID,
			Username:       c.username,
			ConversationID: room.ConversationID,
		},
	})
	return nil
}

// sendError, error event'ini sadece bu bağlantıya gönderir.
func (c *Client) sendError(err error) {
	c.hub.SendToConnection(c.id, Event{
		Op: OpError,
		Data: ErrorData{
			Message: pkg.PublicMessage(err),
			Code:    pkg.ErrorCode(err),
		},
	})
}

// WritePump, send channel'ındaki frame'leri sokete yazar.
// Kanal kapanınca (hub client'ı çıkardı) close frame gönderip çıkar.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.writeMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.writeMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// writeMessage, deadline ile tek frame yazar.
func (c *Client) writeMessage(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}
