// Package client wires the chat client together: composed messages are
// appended to the local store, then sent through the session; whatever the
// hub pushes back is reconciled into the same store.
package client

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"welfare-chat/internal/composer"
	"welfare-chat/internal/protocol"
	"welfare-chat/internal/session"
	"welfare-chat/internal/store"
)

type App struct {
	store    *store.Store
	composer *composer.Composer
	session  *session.Manager

	loadOnce  sync.Once
	connected atomic.Bool
}

func New(st *store.Store, comp *composer.Composer, opts session.Options) *App {
	a := &App{
		store:    st,
		composer: comp,
	}
	a.session = session.NewManager(opts, a)
	return a
}

// Start loads local history on first use, then connects.
func (a *App) Start(ctx context.Context) error {
	a.loadOnce.Do(func() {
		if err := a.store.Load(ctx); err != nil {
			log.Printf("[CLIENT] Continuing without local history: %v", err)
		}
	})
	return a.session.Start(ctx)
}

func (a *App) Close() {
	a.session.Close()
}

func (a *App) Store() *store.Store { return a.store }

// Connected drives the status indicator.
func (a *App) Connected() bool { return a.connected.Load() }

func (a *App) SendText(ctx context.Context, text string) (protocol.Message, error) {
	return a.post(ctx, func() (protocol.Message, error) { return a.composer.Text(ctx, text) })
}

func (a *App) ShareFile(ctx context.Context, localPath string) (protocol.Message, error) {
	return a.post(ctx, func() (protocol.Message, error) { return a.composer.File(ctx, localPath) })
}

func (a *App) ShareEvent(ctx context.Context, ev protocol.EventShare) (protocol.Message, error) {
	return a.post(ctx, func() (protocol.Message, error) { return a.composer.Event(ctx, ev) })
}

func (a *App) ShareMeeting(ctx context.Context, mt protocol.Meeting) (protocol.Message, error) {
	return a.post(ctx, func() (protocol.Message, error) { return a.composer.Meeting(ctx, mt) })
}

// post appends optimistically so the message shows even if the send is
// dropped.
func (a *App) post(ctx context.Context, compose func() (protocol.Message, error)) (protocol.Message, error) {
	m, err := compose()
	if err != nil {
		return protocol.Message{}, err
	}
	a.store.AppendLocal(ctx, m)
	a.session.Send(m)
	return m, nil
}

func (a *App) HandleSnapshot(messages []protocol.Message) {
	n := a.store.ApplySnapshot(context.Background(), messages)
	log.Printf("[CLIENT] Snapshot of %d messages, %d new", len(messages), n)
}

func (a *App) HandleIncoming(m protocol.Message) {
	a.store.ApplyIncoming(context.Background(), m)
}

func (a *App) HandleStatus(connected bool) {
	a.connected.Store(connected)
	if connected {
		log.Println("[CLIENT] 🟢 Online")
	} else {
		log.Println("[CLIENT] 🔴 Offline")
	}
}
