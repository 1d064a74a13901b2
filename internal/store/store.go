// Package store is the client's single source of truth for the chat. It
// merges persisted history, hub snapshots and pushed messages into one
// de-duplicated sequence kept in arrival order.
package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"welfare-chat/internal/protocol"
	"welfare-chat/internal/storage"
)

var ErrAlreadyLoaded = errors.New("store: history already loaded")

const DefaultKey = "chatMessages"

// Notifier schedules a local notification. It must not block.
type Notifier interface {
	Schedule(title, body string)
}

type Options struct {
	Key      string
	Self     string
	Location *time.Location
	Notifier Notifier
}

type Store struct {
	storage storage.Storage
	key     string
	self    string
	loc     *time.Location
	notify  Notifier

	mu          sync.Mutex
	loaded      bool
	messages    []protocol.Message
	ids         map[string]struct{}
	subscribers []func([]protocol.Message)
}

func New(st storage.Storage, opts Options) *Store {
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Store{
		storage: st,
		key:     opts.Key,
		self:    opts.Self,
		loc:     opts.Location,
		notify:  opts.Notifier,
		ids:     make(map[string]struct{}),
	}
}

// Load reads the persisted history. It may run once; a failed read leaves
// the store empty but usable.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.loaded {
		s.mu.Unlock()
		return ErrAlreadyLoaded
	}
	s.loaded = true

	history, err := s.storage.Load(ctx, s.key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.mu.Unlock()
		log.Printf("[STORE] No local history under %q", s.key)
		return nil
	case err != nil:
		s.mu.Unlock()
		log.Printf("[STORE] Failed to load history, starting empty: %v", err)
		return fmt.Errorf("store: load %q: %w", s.key, err)
	}

	accepted := s.merge(history)
	snapshot := s.copyLocked()
	s.mu.Unlock()

	log.Printf("[STORE] Loaded %d messages from local history", len(accepted))
	s.publish(snapshot)
	return nil
}

// ApplySnapshot merges a full hub snapshot and returns how many messages
// were new.
func (s *Store) ApplySnapshot(ctx context.Context, messages []protocol.Message) int {
	return s.apply(ctx, messages, true)
}

func (s *Store) ApplyIncoming(ctx context.Context, m protocol.Message) bool {
	return s.apply(ctx, []protocol.Message{m}, true) == 1
}

// AppendLocal records a message the local user just sent, before the hub
// echoes it back.
func (s *Store) AppendLocal(ctx context.Context, m protocol.Message) bool {
	return s.apply(ctx, []protocol.Message{m}, false) == 1
}

func (s *Store) apply(ctx context.Context, in []protocol.Message, inbound bool) int {
	s.mu.Lock()
	accepted := s.merge(in)
	if len(accepted) == 0 {
		s.mu.Unlock()
		return 0
	}
	s.persist(ctx)
	snapshot := s.copyLocked()
	s.mu.Unlock()

	if inbound {
		for _, m := range accepted {
			if s.notify != nil && !m.IsFrom(s.self) {
				s.notify.Schedule(m.UserName, m.Text)
			}
		}
	}
	s.publish(snapshot)
	return len(accepted)
}

// merge must be called with s.mu held.
func (s *Store) merge(in []protocol.Message) []protocol.Message {
	var accepted []protocol.Message
	for _, m := range in {
		if m.ID == "" {
			log.Printf("[STORE] Dropping message without id from %q", m.UserName)
			continue
		}
		if _, dup := s.ids[m.ID]; dup {
			continue
		}
		s.ids[m.ID] = struct{}{}
		s.messages = append(s.messages, m)
		accepted = append(accepted, m)
	}
	return accepted
}

// persist must be called with s.mu held so saves land in mutation order.
func (s *Store) persist(ctx context.Context) {
	if err := s.storage.Save(ctx, s.key, s.messages); err != nil {
		log.Printf("[STORE] Failed to save %d messages: %v", len(s.messages), err)
	}
}

func (s *Store) copyLocked() []protocol.Message {
	out := make([]protocol.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Store) publish(snapshot []protocol.Message) {
	s.mu.Lock()
	subs := make([]func([]protocol.Message), len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

// Subscribe registers fn to receive a copy of the sequence after every
// change.
func (s *Store) Subscribe(fn func([]protocol.Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *Store) Messages() []protocol.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func (s *Store) Groups() []Group {
	return GroupByDay(s.Messages(), s.loc)
}
