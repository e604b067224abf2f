package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ayusman/skelid/internal/monitoring"
	"github.com/ayusman/skelid/internal/presence"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// clientBuffer is how many changes a slow client may fall behind before
// changes are dropped for it.
const clientBuffer = 16

// PresenceHub pushes presence changes to WebSocket clients.
type PresenceHub struct {
	tracker *presence.Tracker
	clients map[*hubClient]struct{}
	mu      sync.RWMutex
}

type hubClient struct {
	send chan []byte
}

// NewPresenceHub creates a hub fed by t's changes.
func NewPresenceHub(t *presence.Tracker) *PresenceHub {
	h := &PresenceHub{
		tracker: t,
		clients: make(map[*hubClient]struct{}),
	}
	t.OnChange(h.Publish)
	return h
}

// register adds a client whose first message is initial.
func (h *PresenceHub) register(initial []byte) *hubClient {
	c := &hubClient{send: make(chan []byte, clientBuffer)}
	if initial != nil {
		c.send <- initial
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *PresenceHub) unregister(c *hubClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Publish sends c to every connected client without blocking.
func (h *PresenceHub) Publish(c presence.Change) {
	payload, err := json.Marshal(c)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- payload:
		default:
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *PresenceHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams changes until the client
// disconnects. The current name is sent first.
func (h *PresenceHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		monitoring.Logf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	snap := h.tracker.Snapshot()
	initial, _ := json.Marshal(presence.Change{Name: snap.Name, Time: snap.UpdatedAt})
	client := h.register(initial)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range client.send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.unregister(client)
	<-done
}
