package dashboard

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"copytrader/internal/logger"
)

// hubMessage is the envelope pushed to dashboard clients, mirroring the
// event names the frontend listens for.
type hubMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Hub fans snapshot updates out to every connected websocket client.
// A client that fails a write is dropped.
type Hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]bool
	log   *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		conns: map[*websocket.Conn]bool{},
		log:   log,
	}
}

func (h *Hub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = true
	h.mu.Unlock()
}

func (h *Hub) remove(conn *websocket.Conn) {
	delete(h.conns, conn)
	conn.Close()
}

func (h *Hub) Broadcast(event string, data any) {
	payload, err := json.Marshal(hubMessage{Event: event, Data: data})
	if err != nil {
		h.log.WithComponent("dashboard").WithError(err).Warn("Broadcast payload marshal failed.")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.remove(conn)
		}
	}
}

// Drop removes a client after its read loop saw a disconnect.
func (h *Hub) Drop(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(conn)
}

func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		h.remove(conn)
	}
}
