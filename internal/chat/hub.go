package chat

import (
	"context"
	"log"
	"sync"
	"time"

	"welfare-chat/internal/protocol"

	"github.com/google/uuid"
)

// Relay carries accepted messages between hub instances.
type Relay interface {
	Publish(ctx context.Context, env protocol.RelayEnvelope) error
	Subscribe(ctx context.Context) (<-chan protocol.RelayEnvelope, error)
}

// Archiver receives a copy of every accepted message. It never feeds the
// snapshot; the hub log lives only as long as the process.
type Archiver interface {
	Archive(ctx context.Context, m protocol.Message, receivedAt time.Time) error
}

type Options struct {
	Room            string
	InstanceID      string
	RejectMalformed bool
	Relay           Relay
	Archiver        Archiver
}

type Stats struct {
	Sessions int
	Log      []protocol.Message
}

type eventKind int

const (
	eventSubmit eventKind = iota
	eventJoin
	eventHistory
	eventReject
	eventStats
)

type inbound struct {
	kind    eventKind
	session *Session
	origin  string
	room    string
	reason  string
	message protocol.Message
	reply   chan Stats
}

const (
	inboxSize  = 256
	outboxSize = 1024
)

// Hub owns the session set and the message log. Both are only touched by the
// Run goroutine; everything else talks to it through channels.
type Hub struct {
	room            string
	instanceID      string
	rejectMalformed bool
	relay           Relay
	archiver        Archiver

	sessions map[string]*Session
	log      []protocol.Message

	register   chan *Session
	unregister chan *Session
	inbox      chan inbound

	relayOut   chan protocol.RelayEnvelope
	archiveOut chan protocol.Message

	quit     chan struct{}
	quitOnce sync.Once
	done     chan struct{}
	workers  sync.WaitGroup
}

func NewHub(opts Options) *Hub {
	log.Println("[HUB] Initializing new Hub instance...")

	if opts.Room == "" {
		opts.Room = "global"
	}
	if opts.InstanceID == "" {
		opts.InstanceID = uuid.NewString()
	}

	h := &Hub{
		room:            opts.Room,
		instanceID:      opts.InstanceID,
		rejectMalformed: opts.RejectMalformed,
		relay:           opts.Relay,
		archiver:        opts.Archiver,
		sessions:        make(map[string]*Session),
		log:             make([]protocol.Message, 0),
		register:        make(chan *Session),
		unregister:      make(chan *Session),
		inbox:           make(chan inbound, inboxSize),
		quit:            make(chan struct{}),
		done:            make(chan struct{}),
	}
	if h.relay != nil {
		h.relayOut = make(chan protocol.RelayEnvelope, outboxSize)
	}
	if h.archiver != nil {
		h.archiveOut = make(chan protocol.Message, outboxSize)
	}
	return h
}

func (h *Hub) Room() string       { return h.room }
func (h *Hub) InstanceID() string { return h.instanceID }

// Connect registers s and queues the full current log to it as a snapshot.
// It returns false once the hub has stopped.
func (h *Hub) Connect(s *Session) bool {
	select {
	case h.register <- s:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Disconnect(s *Session) {
	select {
	case h.unregister <- s:
	case <-h.done:
	}
}

// Submit hands m to the hub. There is no acknowledgement: malformed messages
// are dropped and only logged unless rejections are enabled.
func (h *Hub) Submit(s *Session, m protocol.Message) {
	h.enqueue(inbound{kind: eventSubmit, session: s, origin: h.instanceID, message: m})
}

func (h *Hub) Join(s *Session, room string) {
	h.enqueue(inbound{kind: eventJoin, session: s, room: room})
}

func (h *Hub) RequestHistory(s *Session) {
	h.enqueue(inbound{kind: eventHistory, session: s})
}

// Reject reports a refused submission back to its session when rejections are
// enabled. m may be nil when the frame could not be decoded at all.
func (h *Hub) Reject(s *Session, reason string, m *protocol.Message) {
	ev := inbound{kind: eventReject, session: s, reason: reason}
	if m != nil {
		ev.message = *m
	}
	h.enqueue(ev)
}

func (h *Hub) Stats() Stats {
	reply := make(chan Stats, 1)
	if !h.enqueue(inbound{kind: eventStats, reply: reply}) {
		return Stats{}
	}
	select {
	case st := <-reply:
		return st
	case <-h.done:
		return Stats{}
	}
}

// Log returns a copy of the message log in receipt order.
func (h *Hub) Log() []protocol.Message {
	return h.Stats().Log
}

func (h *Hub) enqueue(ev inbound) bool {
	select {
	case h.inbox <- ev:
		return true
	case <-h.done:
		return false
	}
}

// Stop ends Run, closes every session and waits for the outbound workers to
// drain.
func (h *Hub) Stop() {
	h.quitOnce.Do(func() { close(h.quit) })
	<-h.done
	h.workers.Wait()
}

func (h *Hub) Run() {
	log.Println("[HUB] Main loop started. Listening for events...")
	h.startWorkers()

	defer func() {
		if h.relayOut != nil {
			close(h.relayOut)
		}
		if h.archiveOut != nil {
			close(h.archiveOut)
		}
		close(h.done)
	}()

	for {
		select {
		case <-h.quit:
			log.Println("[HUB] Quit signal received. Shutting down all session connections...")
			for _, s := range h.sessions {
				h.cleanupSession(s)
			}
			return

		case s := <-h.register:
			s.Room = h.room
			s.advance(StateConnected)
			h.sessions[s.ID] = s
			log.Printf("[HUB] Registered session %s. Total active: %d", s.ID, len(h.sessions))
			h.sendSnapshot(s)

		case s := <-h.unregister:
			if _, ok := h.sessions[s.ID]; ok {
				log.Printf("[HUB] Unregistering session: %s", s.ID)
				h.cleanupSession(s)
			}

		case ev := <-h.inbox:
			h.handle(ev)
		}
	}
}

func (h *Hub) handle(ev inbound) {
	switch ev.kind {
	case eventSubmit:
		h.accept(ev)

	case eventJoin:
		if !h.registered(ev.session) {
			return
		}
		if ev.room != "" && ev.room != h.room {
			log.Printf("[HUB] Session %s asked for room %q; single room mode keeps it in %q", ev.session.ID, ev.room, h.room)
		}
		ev.session.requestedRoom = ev.room
		ev.session.advance(StateJoined)

	case eventHistory:
		if !h.registered(ev.session) {
			return
		}
		ev.session.advance(StateActive)
		log.Printf("[HUB] History requested by %s (%d messages)", ev.session.ID, len(h.log))
		h.sendSnapshot(ev.session)

	case eventReject:
		if h.rejectMalformed && h.registered(ev.session) {
			var m *protocol.Message
			if ev.message.ID != "" {
				m = &ev.message
			}
			h.deliver(ev.session, protocol.NewRejected(ev.reason, m))
		}

	case eventStats:
		ev.reply <- Stats{Sessions: len(h.sessions), Log: h.copyLog()}
	}
}

func (h *Hub) accept(ev inbound) {
	m := ev.message
	local := ev.origin == h.instanceID

	if err := m.WellFormed(); err != nil {
		log.Printf("[HUB] Dropping malformed submission from %s: %v", h.source(ev), err)
		if local && ev.session != nil && h.rejectMalformed && h.registered(ev.session) {
			h.deliver(ev.session, protocol.NewRejected(err.Error(), &m))
		}
		return
	}

	if ev.session != nil && h.registered(ev.session) {
		ev.session.advance(StateActive)
	}

	h.log = append(h.log, m)
	log.Printf("[HUB] Accepted %s message %s from %s (log size %d)", m.Type, m.ID, h.source(ev), len(h.log))

	payload, err := protocol.Encode(protocol.NewBroadcast(h.room, m))
	if err != nil {
		log.Printf("[HUB] CRITICAL: %v", err)
		return
	}
	for _, s := range h.sessions {
		if s.Room != h.room {
			continue
		}
		select {
		case s.Send <- payload:
		default:
			log.Printf("[HUB] WARNING: Session %s buffer full. Evicting slow consumer.", s.ID)
			h.cleanupSession(s)
		}
	}

	if local && h.relayOut != nil {
		select {
		case h.relayOut <- protocol.RelayEnvelope{Origin: h.instanceID, Message: m}:
		default:
			log.Printf("[HUB] WARNING: relay queue full, message %s not relayed", m.ID)
		}
	}
	if h.archiveOut != nil {
		select {
		case h.archiveOut <- m:
		default:
			log.Printf("[HUB] WARNING: archive queue full, message %s not archived", m.ID)
		}
	}
}

func (h *Hub) source(ev inbound) string {
	if ev.origin != h.instanceID {
		return "relay:" + ev.origin
	}
	if ev.session != nil {
		return ev.session.ID
	}
	return "server"
}

func (h *Hub) registered(s *Session) bool {
	if s == nil {
		return false
	}
	current, ok := h.sessions[s.ID]
	return ok && current == s
}

func (h *Hub) copyLog() []protocol.Message {
	out := make([]protocol.Message, len(h.log))
	copy(out, h.log)
	return out
}

func (h *Hub) sendSnapshot(s *Session) {
	h.deliver(s, protocol.NewSnapshot(h.room, h.copyLog()))
}

func (h *Hub) deliver(s *Session, f protocol.Frame) {
	payload, err := protocol.Encode(f)
	if err != nil {
		log.Printf("[HUB] CRITICAL: %v", err)
		return
	}
	select {
	case s.Send <- payload:
	default:
		log.Printf("[HUB] WARNING: Session %s buffer full. Evicting slow consumer.", s.ID)
		h.cleanupSession(s)
	}
}

func (h *Hub) cleanupSession(s *Session) {
	s.once.Do(func() {
		if current, ok := h.sessions[s.ID]; ok && current == s {
			delete(h.sessions, s.ID)
		}
		s.state = StateDisconnected
		close(s.Send)
		if s.Conn != nil {
			s.Conn.Close()
		}
		log.Printf("[HUB] Session closed for %s. Active sessions remaining: %d", s.ID, len(h.sessions))
	})
}
