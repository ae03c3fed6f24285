package dev

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/enhance/pkg/transport"
)

const writeWait = 10 * time.Second

type hubClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *hubClient) write(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

// Hub manages the socket clients of the dev server. It broadcasts hot
// update notices and relays state messages between pages.
type Hub struct {
	clients  map[*hubClient]bool
	mu       sync.RWMutex
	upgrader websocket.Upgrader
	metrics  *Metrics
	logger   *slog.Logger
}

// NewHub creates a hub. metrics may be nil.
func NewHub(metrics *Metrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*hubClient]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins in dev
			},
		},
		metrics: metrics,
		logger:  logger.With("component", "hub"),
	}
}

// HandleWebSocket upgrades the request and serves the connection until the
// client goes away.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := h.upgrader.Upgrade(w, req, nil)
	if err != nil {
		h.logger.Debug("upgrade failed", "error", err)
		return
	}
	client := &hubClient{conn: conn}

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()
	h.metrics.setClients(count)
	h.logger.Debug("client connected", "clients", count)

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			break
		}
		h.relay(client, frame)
	}

	h.drop(client)
}

// relay forwards state messages from one page to every other page.
func (h *Hub) relay(from *hubClient, frame []byte) {
	msg, err := transport.Decode(frame)
	if err != nil {
		h.logger.Warn("dropping malformed frame", "error", err)
		return
	}
	switch msg.Type {
	case transport.TypeStateUpdate, transport.TypeBatchUpdate:
		h.send(msg.Type, frame, from)
	default:
		h.logger.Warn("dropping client frame", "type", msg.Type)
	}
}

// NotifyUpdate broadcasts an hmr:update for path.
func (h *Hub) NotifyUpdate(path string, at time.Time) error {
	frame, err := transport.Encode(transport.TypeHMRUpdate, transport.HMRUpdate{
		Path:      path,
		Timestamp: at.UnixMilli(),
	})
	if err != nil {
		return err
	}
	h.send(transport.TypeHMRUpdate, frame, nil)
	return nil
}

// Broadcast sends a message of the given type to every client.
func (h *Hub) Broadcast(typ string, data any) error {
	frame, err := transport.Encode(typ, data)
	if err != nil {
		return err
	}
	h.send(typ, frame, nil)
	return nil
}

// send writes frame to every client except skip.
func (h *Hub) send(typ string, frame []byte, skip *hubClient) {
	h.mu.RLock()
	clients := make([]*hubClient, 0, len(h.clients))
	for client := range h.clients {
		if client != skip {
			clients = append(clients, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if err := client.write(frame); err != nil {
			h.drop(client)
		}
	}
	h.metrics.broadcast(typ)
}

func (h *Hub) drop(client *hubClient) {
	h.mu.Lock()
	_, ok := h.clients[client]
	delete(h.clients, client)
	count := len(h.clients)
	h.mu.Unlock()
	if ok {
		client.conn.Close()
		h.metrics.setClients(count)
		h.logger.Debug("client disconnected", "clients", count)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close closes all client connections.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		client.conn.Close()
		delete(h.clients, client)
	}
	h.metrics.setClients(0)
}
