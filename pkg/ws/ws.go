// Package ws is the staff live feed: every placed and fulfilled order is
// pushed to connected WebSocket clients as the JSON form of event.Event.
//
//	hub := ws.NewHub()
//	hub.Follow(bus)
//	go hub.Run(ctx)
//	r.Handle("/ws/orders", "ws.orders", hub)
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shashiranjanraj/canteen/pkg/event"
	"github.com/shashiranjanraj/canteen/pkg/logger"
)

const (
	writeTimeout = 10 * time.Second
	idleTimeout  = 60 * time.Second
	pingEvery    = idleTimeout * 9 / 10
	readLimit    = 4 << 10
	backlog      = 64
)

// subscriber is one connected screen. out is closed exactly once, by the
// hub, when the subscriber is removed.
type subscriber struct {
	conn *websocket.Conn
	out  chan []byte
}

// Hub fans messages out to subscribers. A subscriber that falls backlog
// messages behind is disconnected rather than slowing the others down.
type Hub struct {
	upgrader websocket.Upgrader

	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
}

func NewHub() *Hub {
	return &Hub{
		// The feed sits behind staff auth, not behind an origin check.
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		subs:     make(map[*subscriber]struct{}),
	}
}

// Run blocks until ctx ends, then disconnects everyone and refuses new
// connections.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.mu.Lock()
	h.closed = true
	for s := range h.subs {
		h.removeLocked(s)
	}
	h.mu.Unlock()
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Broadcast queues msg for every subscriber without blocking.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		select {
		case s.out <- msg:
		default:
			logger.Warn("ws: subscriber too slow, disconnecting", "remote", s.conn.RemoteAddr().String())
			h.removeLocked(s)
		}
	}
}

// Follow broadcasts order events from bus.
func (h *Hub) Follow(bus *event.Bus) {
	push := func(ctx context.Context, e event.Event) {
		msg, err := json.Marshal(e)
		if err != nil {
			logger.WithCtx(ctx).Error("ws: encode event", "event", e.Name, "error", err)
			return
		}
		h.Broadcast(msg)
	}
	bus.Listen(event.OrderPlaced, push)
	bus.Listen(event.OrderFulfilled, push)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the request.
		logger.WithCtx(r.Context()).Warn("ws: upgrade failed", "error", err)
		return
	}
	s := &subscriber{conn: conn, out: make(chan []byte, backlog)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.subs[s] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()
	logger.WithCtx(r.Context()).Info("ws: subscriber joined", "total", n)

	go h.write(s)
	go h.read(s)
}

func (h *Hub) removeLocked(s *subscriber) bool {
	if _, ok := h.subs[s]; !ok {
		return false
	}
	delete(h.subs, s)
	close(s.out)
	return true
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	removed := h.removeLocked(s)
	n := len(h.subs)
	h.mu.Unlock()
	if removed {
		logger.Info("ws: subscriber left", "total", n)
	}
}

// read discards client frames; it exists to process pongs and notice
// disconnects.
func (h *Hub) read(s *subscriber) {
	defer h.remove(s)
	s.conn.SetReadLimit(readLimit)
	_ = s.conn.SetReadDeadline(time.Now().Add(idleTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(idleTimeout))
	})
	for {
		if _, _, err := s.conn.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn("ws: read", "error", err)
			}
			return
		}
	}
}

func (h *Hub) write(s *subscriber) {
	ping := time.NewTicker(pingEvery)
	defer func() {
		ping.Stop()
		_ = s.conn.Close()
	}()

	send := func(kind int, data []byte) error {
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		return s.conn.WriteMessage(kind, data)
	}
	for {
		select {
		case msg, ok := <-s.out:
			if !ok {
				_ = send(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if send(websocket.TextMessage, msg) != nil {
				return
			}
		case <-ping.C:
			if send(websocket.PingMessage, nil) != nil {
				return
			}
		}
	}
}
