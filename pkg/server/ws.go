package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/atelier-editor/atelier/pkg/workspace/broadcaster"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// wsEvent is the wire shape of a tree event pushed to connected clients.
type wsEvent struct {
	Type      string    `json:"type"`
	ProjectID string    `json:"project_id"`
	FileID    string    `json:"file_id,omitempty"`
	Snapshot  any       `json:"snapshot,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// handleWebSocket upgrades the connection and streams broadcaster events
// until the client disconnects. Each connection gets its own subscriber,
// so a slow client drops its own events without stalling others.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	// Subscribe returns nil once the broadcaster is closed, which can
	// race with an upgrade during shutdown.
	sub := s.broadcaster.Subscribe()
	if sub == nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(wsWriteWait))
		conn.Close()
		return
	}
	s.log.Debug("websocket client connected", "subscriber", sub.ID)

	go s.writePump(conn, sub)
	s.readPump(conn, sub)
}

// checkOrigin accepts same-host requests and any configured origin.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.opts.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// readPump drains client frames so pong handlers run, and tears the
// subscription down when the peer goes away.
func (s *Server) readPump(conn *websocket.Conn, sub *broadcaster.Subscriber) {
	defer func() {
		s.broadcaster.Unsubscribe(sub.ID)
		conn.Close()
		s.log.Debug("websocket client disconnected", "subscriber", sub.ID)
	}()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump forwards subscriber events to the socket and keeps the
// connection alive with periodic pings.
func (s *Server) writePump(conn *websocket.Conn, sub *broadcaster.Subscriber) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case event, ok := <-sub.Events:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			msg := wsEvent{
				Type:      event.Type.String(),
				ProjectID: event.ProjectID,
				FileID:    event.FileID,
				Snapshot:  event.Snapshot,
				Timestamp: time.Now().UTC(),
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
