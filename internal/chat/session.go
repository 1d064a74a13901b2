package chat

import (
	"log"
	"sync"

	"welfare-chat/internal/middleware"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type SessionState int

const (
	StateDisconnected SessionState = iota
	StateConnected
	StateJoined
	StateActive
)

func (s SessionState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateJoined:
		return "joined"
	case StateActive:
		return "active"
	default:
		return "disconnected"
	}
}

const sendBufSize = 256

// Session is the hub side of one client connection. Room and state are
// written only by the hub loop.
type Session struct {
	ID      string
	Room    string
	Conn    *websocket.Conn
	Send    chan []byte
	Limiter *middleware.RateLimiter

	state         SessionState
	requestedRoom string
	once          sync.Once
}

// NewSession builds a session around conn. conn may be nil for in-process
// subscribers that only drain Send.
func NewSession(conn *websocket.Conn, limiter *middleware.RateLimiter) *Session {
	return &Session{
		ID:      uuid.NewString(),
		Conn:    conn,
		Send:    make(chan []byte, sendBufSize),
		Limiter: limiter,
	}
}

func (s *Session) State() SessionState { return s.state }

// advance only ever moves a live session forward through
// connected → joined → active.
func (s *Session) advance(to SessionState) {
	if to <= s.state {
		return
	}
	log.Printf("[HUB] Session %s: %s → %s", s.ID, s.state, to)
	s.state = to
}
