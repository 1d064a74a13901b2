package chat

import (
	"log"
	"time"

	"welfare-chat/internal/protocol"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// WritePump drains s.Send to the socket. Queued frames are batched into one
// WebSocket message separated by newlines.
func (h *Hub) WritePump(s *Session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.Disconnect(s)
		s.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.Send:
			s.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := s.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(s.Send)
			for i := 0; i < n; i++ {
				msg, ok := <-s.Send
				if !ok {
					break
				}
				w.Write([]byte{'\n'})
				w.Write(msg)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			s.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump decodes client frames and routes them into the hub loop.
func (h *Hub) ReadPump(s *Session) {
	defer func() {
		h.Disconnect(s)
		s.Conn.Close()
	}()

	s.Conn.SetReadLimit(maxMessageSize)
	s.Conn.SetReadDeadline(time.Now().Add(pongWait))
	s.Conn.SetPongHandler(func(string) error {
		s.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[CLIENT] Unexpected close from %s: %v", s.ID, err)
			}
			break
		}

		frame, err := protocol.Decode(data)
		if err != nil {
			log.Printf("[CLIENT] Dropping undecodable frame from %s: %v", s.ID, err)
			h.Reject(s, err.Error(), nil)
			continue
		}

		switch frame.Event {
		case protocol.EventJoin:
			h.Join(s, frame.Room)

		case protocol.EventRequestHistory:
			h.RequestHistory(s)

		case protocol.EventSend:
			if frame.Message == nil {
				log.Printf("[CLIENT] Dropping send without message from %s", s.ID)
				h.Reject(s, "send frame carries no message", nil)
				continue
			}
			if s.Limiter != nil && !s.Limiter.Allow() {
				log.Printf("[CLIENT] Rate limit exceeded by %s, dropping %s", s.ID, frame.Message.ID)
				h.Reject(s, "rate limit exceeded", frame.Message)
				continue
			}
			h.Submit(s, *frame.Message)

		default:
			log.Printf("[CLIENT] Unknown event %q from %s", frame.Event, s.ID)
		}
	}
}
