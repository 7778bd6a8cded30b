package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// StreamInterval is the period of status pushes (~15 Hz).
const StreamInterval = 66 * time.Millisecond

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// StreamHandler broadcasts device snapshots via WebSocket.
type StreamHandler struct {
	source  Source
	logger  *log.Logger
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewStreamHandler creates a StreamHandler and starts its broadcaster.
func NewStreamHandler(source Source, logger *log.Logger) *StreamHandler {
	h := &StreamHandler{
		source:  source,
		logger:  logger,
		clients: make(map[*websocket.Conn]bool),
		stopCh:  make(chan struct{}),
	}
	go h.broadcast()
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Clients returns the number of connected clients.
func (h *StreamHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops the broadcaster. Connected clients stay open until they leave.
func (h *StreamHandler) Close() {
	h.stopOnce.Do(func() { close(h.stopCh) })
}

// broadcast sends the device snapshot to all connected clients.
func (h *StreamHandler) broadcast() {
	ticker := time.NewTicker(StreamInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
		}

		if h.Clients() == 0 {
			continue
		}

		msg, err := json.Marshal(map[string]any{
			"devices":   h.source.Devices(),
			"scanning":  h.source.Scanning(),
			"timestamp": time.Now().UnixMilli(),
		})
		if err != nil {
			continue
		}

		h.mu.RLock()
		for conn := range h.clients {
			conn.SetWriteDeadline(time.Now().Add(time.Second))
			conn.WriteMessage(websocket.TextMessage, msg)
		}
		h.mu.RUnlock()
	}
}
