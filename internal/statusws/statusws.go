// Package statusws streams per-source collection-completion events to
// connected dashboards over WebSocket. Optional: cmd/fpcollect wires it up
// only when a status address is configured.
//
// Adapted from the teacher's internal/server/metrics_ws.go MetricsHub/
// MetricsWebSocket pair, narrowed from four bot-dashboard event types
// (hit/proxy_status/performance/session) down to the single event this
// repository produces: one source finishing.
package statusws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"fpcore/internal/logger"
)

// SourceEvent reports one entropy source's completion.
type SourceEvent struct {
	Source    string    `json:"source"`
	Outcome   string    `json:"outcome"`
	DurationMS int64    `json:"duration_ms"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub fans SourceEvents out to every connected WebSocket client.
type Hub struct {
	mu        sync.RWMutex
	conns     map[*websocket.Conn]chan SourceEvent
	broadcast chan SourceEvent
	upgrader  websocket.Upgrader
	log       *logger.Logger
}

// NewHub creates a Hub and starts its broadcaster goroutine.
func NewHub() *Hub {
	h := &Hub{
		conns:     make(map[*websocket.Conn]chan SourceEvent),
		broadcast: make(chan SourceEvent, 256),
		upgrader:  websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		log:       logger.Default().WithSource("statusws"),
	}
	go h.run()
	return h
}

// Publish enqueues an event for delivery to every connected client.
func (h *Hub) Publish(ev SourceEvent) {
	select {
	case h.broadcast <- ev:
	default:
		h.log.Debug("status event dropped, broadcast channel full")
	}
}

func (h *Hub) run() {
	for ev := range h.broadcast {
		h.mu.RLock()
		for _, ch := range h.conns {
			select {
			case ch <- ev:
			default:
			}
		}
		h.mu.RUnlock()
	}
}

// Handler upgrades the connection and streams SourceEvents to it until the
// client disconnects.
func (h *Hub) Handler(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ch := make(chan SourceEvent, 64)
	h.mu.Lock()
	h.conns[conn] = ch
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.conns, conn)
		h.mu.Unlock()
		close(ch)
	}()

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				conn.Close()
				return
			}
		}
	}()

	for ev := range ch {
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}
}

// Close stops the broadcaster goroutine.
func (h *Hub) Close() {
	close(h.broadcast)
}
