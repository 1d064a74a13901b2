package chat

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"welfare-chat/internal/middleware"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request and attaches a new session to the hub.
// newLimiter may be nil to disable per-session rate limiting.
func ServeWS(h *Hub, newLimiter func() *middleware.RateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[HUB] Upgrade error: %v", err)
			return
		}

		var limiter *middleware.RateLimiter
		if newLimiter != nil {
			limiter = newLimiter()
		}

		s := NewSession(conn, limiter)
		if !h.Connect(s) {
			log.Printf("[HUB] Hub stopped, closing session %s", s.ID)
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "hub stopped"),
				time.Now().Add(writeWait))
			conn.Close()
			return
		}

		go h.WritePump(s)
		go h.ReadPump(s)
	}
}

// MessagesHandler serves a copy of the in-memory log.
func MessagesHandler(h *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(h.Log()); err != nil {
			log.Printf("[HUB] Failed to encode log: %v", err)
		}
	}
}

func HealthHandler(h *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := h.Stats()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":   "ok",
			"room":     h.Room(),
			"sessions": st.Sessions,
			"messages": len(st.Log),
		})
	}
}
