package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/onnwee/reddit-pulse/internal/logger"
	"github.com/onnwee/reddit-pulse/internal/metrics"
	"github.com/onnwee/reddit-pulse/internal/monitor"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 30 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS middleware handles origin policy
		return true
	},
}

// StreamWebSocket upgrades the connection and pushes monitor updates to the
// peer, optionally narrowed to one subreddit. Each client gets its own
// subscription, so a slow client is dropped by the fan-out without affecting
// others.
// GET /ws, GET /ws/{subreddit}
func StreamWebSocket(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Monitor == nil {
			writeError(w, http.StatusServiceUnavailable, "monitor not configured")
			return
		}
		filter := streamFilter(r)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("websocket upgrade failed", "error", err)
			return
		}

		sub := d.Monitor.Subscribe()
		metrics.StreamConnections.Inc()
		logger.Info("websocket client connected", "subscriber", sub.ID, "filter", filter)

		closed := make(chan struct{})
		go readPump(conn, closed)
		go writePump(conn, d.Monitor, sub, filter, closed)
	}
}

// readPump drains the connection so close frames and pongs are processed.
func readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket unexpected close", "error", err)
			}
			return
		}
	}
}

// writePump pushes updates and pings until the subscription or connection
// ends.
func writePump(conn *websocket.Conn, mg *monitor.Manager, sub monitor.Subscription, filter string, closed <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		mg.Unsubscribe(sub.ID)
		conn.Close()
		metrics.StreamConnections.Dec()
		logger.Info("websocket client disconnected", "subscriber", sub.ID)
	}()

	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case u, ok := <-sub.C:
			if ok && !wantUpdate(filter, u) {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Dropped for falling behind.
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too slow"))
				return
			}
			data, err := json.Marshal(u)
			if err != nil {
				logger.Error("marshal websocket message", "error", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}
