package progress

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Shirly8/Sift/core"
)

// Hub is a ProgressSink that broadcasts events to WebSocket clients, so
// a frontend can show analysis steps as they happen. Register its
// Handler on any mux and hand the hub to the agent as its sink.
type Hub struct {
	upgrader websocket.Upgrader
	log      zerolog.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

// NewHub creates a hub. All origins are accepted; put real origin
// checks in front of it when exposing beyond localhost.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log:   log,
		conns: map[*websocket.Conn]bool{},
	}
}

// Handler upgrades requests to WebSocket connections and keeps them
// subscribed until they close.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}
		h.mu.Lock()
		h.conns[conn] = true
		h.mu.Unlock()

		// drain reads to notice the close
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					h.remove(conn)
					return
				}
			}
		}()
	})
}

// Publish implements core.ProgressSink. Dead connections are dropped on
// write failure.
func (h *Hub) Publish(event core.ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteJSON(event); err != nil {
			conn.Close()
			delete(h.conns, conn)
		}
	}
}

// Close drops every connection.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		conn.Close()
		delete(h.conns, conn)
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[conn] {
		conn.Close()
		delete(h.conns, conn)
	}
}
