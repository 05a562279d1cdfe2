package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 5 * time.Second

// wsClient wraps one connection with its job filter. The write mutex
// serializes frames: gorilla/websocket allows only one concurrent
// writer per connection and Publish is called from many goroutines.
type wsClient struct {
	writeMu sync.Mutex
	conn    *websocket.Conn
	filter  string // job_id filter, "" = all
}

func (c *wsClient) send(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub broadcasts progress events to connected WebSocket clients.
// Clients may filter to a single job with the ?job_id query parameter.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*wsClient]struct{}
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		clients: make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: log,
	}
}

// ServeHTTP upgrades the request and keeps the connection registered
// until the client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &wsClient{conn: conn, filter: r.URL.Query().Get("job_id")}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	h.log.Debug("websocket client connected", "job_filter", client.filter)

	// Reader loop only drains control frames; a read error means the
	// client went away.
	go func() {
		defer h.remove(client)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) remove(client *wsClient) {
	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()
	_ = client.conn.Close()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish sends the event to every client whose filter matches.
// Slow or broken clients are dropped rather than blocking the crawl.
func (h *Hub) Publish(_ context.Context, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.log.Warn("failed to marshal progress event", "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*wsClient, 0, len(h.clients))
	for client := range h.clients {
		if client.filter == "" || client.filter == ev.JobID {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range targets {
		if err := client.send(payload); err != nil {
			h.log.Debug("dropping websocket client", "error", err)
			h.remove(client)
		}
	}
}

// Close disconnects all clients.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.clients = make(map[*wsClient]struct{})
	h.mu.Unlock()

	for _, client := range clients {
		_ = client.conn.Close()
	}
}
