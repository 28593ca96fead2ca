package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/avolkov/duochat/internal/server/hub"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func threadParticipant(threadKey, userID string) bool {
	for _, part := range strings.Split(threadKey, ":") {
		if part == userID {
			return true
		}
	}
	return false
}

// threadFeed upgrades the request to a websocket and streams full ordered
// snapshots of the thread: one immediately, then one per append.
func (s *Server) threadFeed(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	userID := UserIDFromContext(r.Context())

	if !threadParticipant(key, userID) {
		writeError(w, http.StatusForbidden, "not a participant of the thread")
		return
	}

	// Subscribe before reading the initial snapshot: an append landing in
	// between reaches the subscriber, and the duplicate delivery is harmless
	// because every frame is the full thread.
	sub := s.chat.Subscribe(key)

	initial, err := s.chat.Snapshot(r.Context(), key)
	if err != nil {
		sub.Close()
		writeServiceError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		sub.Close()
		s.logger.Error(r.Context(), "websocket upgrade failed", "error", err.Error())
		return
	}

	go s.feedReadPump(conn, sub)
	s.feedWritePump(conn, sub, toSnapshotFrame(initial))
}

// feedReadPump discards client frames and watches for disconnect. When the
// peer goes away the subscription is closed, which ends the write pump.
func (s *Server) feedReadPump(conn *websocket.Conn, sub *hub.Subscriber) {
	defer func() {
		sub.Close()
		conn.Close()
	}()

	conn.SetReadLimit(1024)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) feedWritePump(conn *websocket.Conn, sub *hub.Subscriber, initial snapshotFrame) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(initial); err != nil {
		return
	}

	for {
		select {
		case snapshot, ok := <-sub.Snapshots():
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(toSnapshotFrame(snapshot)); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
