// Package ws delivers flash warnings to WebSocket subscribers in real time.
package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"strobeguard/internal/session"
)

// WarningHub manages WebSocket connections subscribed to per-source flash
// warnings. It implements notify.WarningHandler so it can be attached to the
// warning bus directly.
type WarningHub struct {
	// clients maps source_id -> set of connections
	clients map[string]map[*websocket.Conn]bool
	mu      sync.RWMutex
	logger  *slog.Logger
}

// NewWarningHub creates an empty hub. A nil logger falls back to
// slog.Default.
func NewWarningHub(logger *slog.Logger) *WarningHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &WarningHub{
		clients: make(map[string]map[*websocket.Conn]bool),
		logger:  logger,
	}
}

// Register adds a connection for a specific source.
func (h *WarningHub) Register(sourceID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[sourceID] == nil {
		h.clients[sourceID] = make(map[*websocket.Conn]bool)
	}
	h.clients[sourceID][conn] = true
	h.logger.Debug("websocket client registered", "source_id", sourceID, "total", len(h.clients[sourceID]))
}

// Unregister removes a connection for a specific source.
func (h *WarningHub) Unregister(sourceID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.clients[sourceID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.clients, sourceID)
		}
		h.logger.Debug("websocket client unregistered", "source_id", sourceID)
	}
}

// HasClients returns true if any clients are subscribed to a source.
func (h *WarningHub) HasClients(sourceID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns, ok := h.clients[sourceID]
	return ok && len(conns) > 0
}

// ClientCount returns the total number of connected clients.
func (h *WarningHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, conns := range h.clients {
		count += len(conns)
	}
	return count
}

// HandleWarning broadcasts a warning to the source's subscribers.
func (h *WarningHub) HandleWarning(w *session.Warning) {
	if !h.HasClients(w.SourceID) {
		return
	}

	data, err := json.Marshal(NewWarningMessage(w))
	if err != nil {
		h.logger.Error("failed to marshal warning message", "error", err)
		return
	}
	h.broadcast(w.SourceID, data)
}

// broadcast sends a message to all clients subscribed to a source, dropping
// connections that fail to accept the write.
func (h *WarningHub) broadcast(sourceID string, message []byte) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients[sourceID]))
	for conn := range h.clients[sourceID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.logger.Warn("dropping websocket client", "source_id", sourceID, "error", err)
			h.Unregister(sourceID, conn)
			conn.Close()
		}
	}
}
