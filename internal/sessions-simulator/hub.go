package simulator

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var (
	wsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sessions_simulator_ws_connections",
		Help: "Connected WebSocket clients",
	})
	wsMessagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sessions_simulator_ws_messages_sent_total",
		Help: "WebSocket messages sent",
	})
)

// Collectors returns the simulator metrics for registration by main.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{wsConnections, wsMessagesSent}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type clientConn struct {
	id   string
	conn *websocket.Conn
}

// Hub fans results out to every connected feed client.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*clientConn
	log     *zap.Logger
	seq     atomic.Int64
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{clients: make(map[string]*clientConn), log: log}
}

func (h *Hub) add(c *clientConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
	wsConnections.Inc()
	h.log.Info("ws client connected", zap.String("client_id", c.id))
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[id]; ok {
		delete(h.clients, id)
		wsConnections.Dec()
		h.log.Info("ws client disconnected", zap.String("client_id", id))
	}
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast writes v to all clients and returns how many received it.
func (h *Hub) Broadcast(v any) int {
	msg, err := json.Marshal(v)
	if err != nil {
		h.log.Error("marshal broadcast", zap.Error(err))
		return 0
	}

	// writes hold the write lock: gorilla connections allow one concurrent writer
	h.mu.Lock()
	defer h.mu.Unlock()
	sent := 0
	for id, c := range h.clients {
		_ = c.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Warn("ws write failed", zap.String("client_id", id), zap.Error(err))
			_ = c.conn.Close()
			continue
		}
		wsMessagesSent.Inc()
		sent++
	}
	return sent
}

// HandleWS upgrades the request and keeps the client registered until it
// disconnects. Inbound frames are discarded.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	id := strconv.FormatInt(h.seq.Add(1), 10)
	h.add(&clientConn{id: id, conn: conn})

	go func() {
		defer func() {
			h.remove(id)
			_ = conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
