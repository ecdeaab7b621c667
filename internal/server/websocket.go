package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zulfikawr/freight/internal/logging"
	"github.com/zulfikawr/freight/internal/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// CORS policy is enforced by the surrounding middleware.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// progressFrame is one WebSocket push: the full set of session snapshots.
type progressFrame struct {
	Timestamp time.Time `json:"timestamp"`
	Sessions  any       `json:"sessions"`
}

// handleProgressWebSocket streams periodic progress snapshots of every
// session until the client disconnects or the server shuts down.
func (s *Server) handleProgressWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	metrics.ActiveWebSocketConnections.Inc()
	defer metrics.ActiveWebSocketConnections.Dec()

	logging.Debug("Progress subscriber connected",
		zap.String("remote", conn.RemoteAddr().String()))

	// Drain the read side so close frames and pings are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(progressPushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			frame := progressFrame{
				Timestamp: time.Now().UTC(),
				Sessions:  s.coordinator.Registry().All(),
			}
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(frame); err != nil {
				logging.Debug("Progress subscriber disconnected", zap.Error(err))
				return
			}
			metrics.WebSocketMessagesTotal.Inc()
		case <-s.shutdownCtx.Done():
			deadline := time.Now().Add(time.Second)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				deadline)
			return
		case <-r.Context().Done():
			return
		}
	}
}
