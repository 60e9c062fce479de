package ws

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Warning payloads carry no secrets; subscribers are read-only.
		return true
	},
}

// Handler upgrades HTTP requests to WebSocket warning subscriptions.
// Expected URL format: /ws/warnings/{source_id}
type Handler struct {
	hub    *WarningHub
	logger *slog.Logger
}

// NewHandler creates a WebSocket handler for the given hub.
func NewHandler(hub *WarningHub, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{hub: hub, logger: logger}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/ws/warnings/")
	sourceID := strings.TrimSuffix(path, "/")

	if sourceID == "" {
		http.Error(w, "source_id required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	h.logger.Debug("websocket connection opened", "source_id", sourceID, "remote", r.RemoteAddr)
	h.hub.Register(sourceID, conn)

	go h.readPump(sourceID, conn)
}

// readPump keeps the connection alive and detects client disconnection.
// Subscribers are not expected to send anything beyond pongs.
func (h *Handler) readPump(sourceID string, conn *websocket.Conn) {
	defer func() {
		h.hub.Unregister(sourceID, conn)
		conn.Close()
	}()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	go func() {
		for range ticker.C {
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("websocket read error", "source_id", sourceID, "error", err)
			}
			break
		}
	}
}
