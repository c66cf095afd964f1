package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/BakeLens/galley/internal/tools"
)

const (
	pingInterval  = 30 * time.Second
	readDeadline  = 60 * time.Second
	writeDeadline = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	// The listener is loopback/socket only; origin checks add nothing here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleSessionStream handles GET /api/galley/sessions/:id/stream.
// It upgrades to a websocket and forwards stream notifications as JSON
// frames from subscription time onward. Buffered history is not
// replayed; clients that need it fetch the session with ?output=true
// first. The connection closes normally when the session ends.
func (s *Server) handleSessionStream(c *gin.Context) {
	if s.stream == nil {
		Error(c, http.StatusServiceUnavailable, "Streaming is disabled")
		return
	}

	id := c.Param("id")
	known := s.terminal.Status(tools.StatusRequest{SessionID: id}).Exists || s.stream.HasBuffer(id)
	if !known {
		NotFound(c, "Session not found")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		log.Debug("Websocket upgrade failed for %s: %v", id, err)
		return
	}

	s.forwardSession(conn, id)
}

// forwardSession pumps notifications for one session over one
// connection until the session ends or the client goes away.
func (s *Server) forwardSession(conn *websocket.Conn, id string) {
	defer conn.Close()

	subID, ch := s.stream.Subscribe(id)
	defer s.stream.Unsubscribe(id, subID)

	// Reader goroutine: pumps control frames and detects client close.
	// Data frames from the client are ignored.
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(readDeadline))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case n, ok := <-ch:
			_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				// Session ended; the end summary was already delivered.
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended")
				_ = conn.WriteMessage(websocket.CloseMessage, msg)
				return
			}
			if err := conn.WriteJSON(n); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
