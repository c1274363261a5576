package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/race-bet-platform/pkg/contracts/events"
)

const (
	allEvents    = "*"
	writeTimeout = 5 * time.Second
)

// client serializes writes; gorilla connections allow one writer at a time.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(v)
}

// Hub tracks WebSocket clients and the events they follow.
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	subs     map[string]map[*client]struct{} // eventID -> clients
}

func NewHub(log *zap.Logger, allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		subs:     make(map[string]map[*client]struct{}),
	}
}

// HandleWS serves one connection until the client goes away.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	c := &client{conn: conn}

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "subscribe":
			if msg.EventID == "" {
				_ = c.write(map[string]string{"type": "error", "error": "eventId required"})
				continue
			}
			h.subscribe(msg.EventID, c)
			_ = c.write(map[string]string{"type": "subscribed", "eventId": msg.EventID})
		case "unsubscribe":
			h.unsubscribe(msg.EventID, c)
		case "ping":
			_ = c.write(map[string]string{"type": "pong"})
		}
	}

	h.mu.Lock()
	for id, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, id)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) subscribe(eventID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[eventID]; !ok {
		h.subs[eventID] = make(map[*client]struct{})
	}
	h.subs[eventID][c] = struct{}{}
}

func (h *Hub) unsubscribe(eventID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[eventID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, eventID)
		}
	}
}

// Broadcast pushes a settlement to the event's subscribers and to "*".
func (h *Hub) Broadcast(e events.EventSettled) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.subs[e.EventID])+len(h.subs[allEvents]))
	for c := range h.subs[e.EventID] {
		targets = append(targets, c)
	}
	for c := range h.subs[allEvents] {
		if _, dup := h.subs[e.EventID][c]; !dup {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return
	}
	upd := SettlementUpdate{Type: "event_settled", EventID: e.EventID, Payload: e}
	for _, c := range targets {
		if err := c.write(upd); err != nil {
			h.log.Debug("ws write failed", zap.String("event_id", e.EventID), zap.Error(err))
		}
	}
}

// Subscribers counts clients following eventID.
func (h *Hub) Subscribers(eventID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[eventID])
}

// decode is shared with the Redis subscriber.
func decode(payload string) (events.EventSettled, error) {
	var e events.EventSettled
	err := json.Unmarshal([]byte(payload), &e)
	return e, err
}
