package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/carrybot-robotics/stairguard/internal/monitoring"
	"github.com/carrybot-robotics/stairguard/internal/sampling"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The UI is served from the robot itself; cross-origin tooling during
	// tuning sessions is expected.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Hub fans published classification states out to websocket clients. It
// decouples the sampling loop from slow consumers: Broadcast drops a frame
// rather than block when the hub is behind.
type Hub struct {
	mu         sync.Mutex
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{} // closed when Run returns
}

// NewHub creates an idle hub; call Run to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 8),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
	}
}

// Run services the hub until ctx is cancelled, then closes every client.
// Handlers that race a late connection against shutdown observe the done
// channel instead of blocking on the service channels.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				c.Close()
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			monitoring.Logf("websocket client connected (total %d)", n)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.Close()
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					delete(h.clients, c)
					c.Close()
				}
			}
			h.mu.Unlock()
		}
	}
}

// Notify adapts the hub into a publisher listener. The JSON encode happens
// on the loop goroutine but is small; the send is non-blocking.
func (h *Hub) Notify(pub sampling.Published) {
	msg, err := json.Marshal(pub)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		// Hub is behind; this frame is superseded by the next anyway.
	}
}

// handleWebsocket upgrades the connection and parks a reader goroutine to
// notice client disconnects.
func (ws *WebServer) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		monitoring.Logf("websocket upgrade failed: %v", err)
		return
	}
	select {
	case ws.hub.register <- conn:
	case <-ws.hub.done:
		conn.Close()
		return
	}
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				select {
				case ws.hub.unregister <- conn:
				case <-ws.hub.done:
					conn.Close()
				}
				return
			}
		}
	}()
}
