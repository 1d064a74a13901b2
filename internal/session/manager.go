// Package session owns the client's single connection to the hub. It drives
// the connect/join/history handshake and hands decoded frames to a Handler.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"welfare-chat/internal/protocol"

	"github.com/gorilla/websocket"
)

var ErrNotConnected = errors.New("session: not connected")

const (
	writeWait = 10 * time.Second
	pongWait  = 70 * time.Second

	// Snapshots carry the whole hub log.
	maxFrameSize = 16 << 20
	sendBufSize  = 64
)

// Handler receives everything the hub pushes. Callbacks run on the read
// goroutine, one at a time.
type Handler interface {
	HandleSnapshot(messages []protocol.Message)
	HandleIncoming(m protocol.Message)
	HandleStatus(connected bool)
}

type Options struct {
	URL    string
	Room   string
	Header http.Header
	Dialer *websocket.Dialer
}

type Manager struct {
	opts    Options
	handler Handler
	dialer  *websocket.Dialer

	startMu sync.Mutex

	mu    sync.Mutex
	state State
	conn  *websocket.Conn
	send  chan []byte
	done  chan struct{}
}

// NewManager binds handler for the manager's whole lifetime.
func NewManager(opts Options, handler Handler) *Manager {
	if opts.Room == "" {
		opts.Room = "global"
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &Manager{
		opts:    opts,
		handler: handler,
		dialer:  dialer,
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Start dials the hub, joins the room and asks for history. It does nothing
// unless the manager is disconnected.
func (m *Manager) Start(ctx context.Context) error {
	m.startMu.Lock()
	defer m.startMu.Unlock()

	if m.State() != Disconnected {
		return nil
	}

	conn, _, err := m.dialer.DialContext(ctx, m.opts.URL, m.opts.Header)
	if err != nil {
		log.Printf("[SESSION] Dial %s failed: %v", m.opts.URL, err)
		return fmt.Errorf("session: dial %s: %w", m.opts.URL, err)
	}

	m.mu.Lock()
	m.conn = conn
	m.send = make(chan []byte, sendBufSize)
	m.done = make(chan struct{})
	send, done := m.send, m.done

	m.transition(Connected)
	if err := m.enqueue(protocol.Frame{Event: protocol.EventJoin, Room: m.opts.Room}); err == nil {
		m.transition(Joined)
	}
	if err := m.enqueue(protocol.Frame{Event: protocol.EventRequestHistory}); err == nil {
		m.transition(Active)
	}
	m.mu.Unlock()

	log.Printf("[SESSION] Connected to %s (room %s)", m.opts.URL, m.opts.Room)

	go m.writePump(conn, send, done)
	m.handler.HandleStatus(true)
	go m.readPump(conn)

	return nil
}

// Send queues m for the hub. Nothing is returned and nothing is retried; a
// message sent while disconnected is dropped.
func (m *Manager) Send(msg protocol.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.enqueue(protocol.Frame{Event: protocol.EventSend, Message: &msg}); err != nil {
		log.Printf("[SESSION] Dropping message %s: %v", msg.ID, err)
	}
}

// Close tears the connection down. Calling it again is a no-op.
func (m *Manager) Close() {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()

	if conn == nil {
		return
	}
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	m.teardown(conn)
}

// enqueue must be called with m.mu held.
func (m *Manager) enqueue(f protocol.Frame) error {
	if m.state == Disconnected {
		return ErrNotConnected
	}

	data, err := protocol.Encode(f)
	if err != nil {
		return err
	}

	select {
	case m.send <- data:
		return nil
	default:
		return fmt.Errorf("session: send buffer full")
	}
}

// transition must be called with m.mu held.
func (m *Manager) transition(to State) bool {
	if !canTransition(m.state, to) {
		log.Printf("[SESSION] Refusing transition %s → %s", m.state, to)
		return false
	}
	m.state = to
	return true
}

// teardown only acts on the current connection so a stale pump cannot
// close a newer one.
func (m *Manager) teardown(conn *websocket.Conn) {
	m.mu.Lock()
	if m.conn != conn || m.state == Disconnected {
		m.mu.Unlock()
		return
	}
	m.transition(Disconnected)
	close(m.done)
	m.conn = nil
	m.mu.Unlock()

	conn.Close()
	log.Printf("[SESSION] Disconnected from %s", m.opts.URL)
	m.handler.HandleStatus(false)
}

func (m *Manager) writePump(conn *websocket.Conn, send <-chan []byte, done <-chan struct{}) {
	defer m.teardown(conn)

	for {
		select {
		case data := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("[SESSION] Write failed: %v", err)
				return
			}
		case <-done:
			return
		}
	}
}

func (m *Manager) readPump(conn *websocket.Conn) {
	defer m.teardown(conn)

	conn.SetReadLimit(maxFrameSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[SESSION] Unexpected close: %v", err)
			}
			return
		}
		m.dispatchBatch(data)
	}
}

// dispatchBatch handles one WebSocket message. The hub batches queued frames
// into one message, newline separated; a bad frame only costs itself.
func (m *Manager) dispatchBatch(data []byte) {
	for _, part := range bytes.Split(data, []byte{'\n'}) {
		if len(bytes.TrimSpace(part)) == 0 {
			continue
		}
		f, err := protocol.Decode(part)
		if err != nil {
			log.Printf("[SESSION] Dropping undecodable frame: %v", err)
			continue
		}
		m.dispatch(f)
	}
}

func (m *Manager) dispatch(f protocol.Frame) {
	switch f.Event {
	case protocol.EventSnapshot:
		m.handler.HandleSnapshot(f.Messages)
	case protocol.EventBroadcast:
		if f.Message == nil {
			log.Printf("[SESSION] Broadcast without message")
			return
		}
		m.handler.HandleIncoming(*f.Message)
	case protocol.EventRejected:
		id := ""
		if f.Message != nil {
			id = f.Message.ID
		}
		log.Printf("[SESSION] Hub rejected %q: %s", id, f.Reason)
	default:
		log.Printf("[SESSION] Ignoring %q frame", f.Event)
	}
}
