// Package live streams booking events to connected websocket clients.
package live

import (
	"context"
	"sync"
	"time"

	"hotelrides/internal/domain"
	"hotelrides/internal/events"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 16
)

type client struct {
	conn *websocket.Conn
	send chan interface{}
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub fans events out to every client watching a booking.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
	log     *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{clients: make(map[string]map[*client]struct{}), log: log}
}

// Subscribe attaches the hub to the event bus.
func (h *Hub) Subscribe(bus *events.Bus) {
	bus.Subscribe(func(_ context.Context, e domain.BookingEvent) {
		h.Broadcast(e.BookingReference, e)
	})
}

func (h *Hub) register(ref string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[ref]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[ref] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(ref string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[ref]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			c.close()
		}
		if len(set) == 0 {
			delete(h.clients, ref)
		}
	}
}

// Broadcast returns how many clients the message was queued for. Slow
// clients with a full buffer are dropped. Sends happen under the read lock
// because send channels are only closed under the write lock.
func (h *Hub) Broadcast(ref string, msg interface{}) int {
	var slow []*client
	sent := 0

	h.mu.RLock()
	for c := range h.clients[ref] {
		select {
		case c.send <- msg:
			sent++
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn("live client too slow, dropping", zap.String("booking_reference", ref))
		h.unregister(ref, c)
	}
	return sent
}

// Watchers reports the number of clients watching ref.
func (h *Hub) Watchers(ref string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[ref])
}

func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ref, set := range h.clients {
		for c := range set {
			c.close()
		}
		delete(h.clients, ref)
	}
}

// writePump is the only writer on c.conn.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains client frames so pongs and close frames are processed.
func (h *Hub) readPump(ref string, c *client) {
	defer h.unregister(ref, c)
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("live connection closed", zap.String("booking_reference", ref), zap.Error(err))
			}
			return
		}
	}
}
