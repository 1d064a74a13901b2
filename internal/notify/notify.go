// Package notify schedules local notifications for inbound chat messages.
package notify

import (
	"fmt"
	"io"
	"log"
	"sync"
)

// Logger writes each notification as a log line.
type Logger struct{}

func (Logger) Schedule(title, body string) {
	log.Printf("[NOTIFY] %s: %s", title, body)
}

// Terminal prints notifications to a writer, ringing the bell when Bell is
// set. Writes are serialised so lines never interleave.
type Terminal struct {
	mu   sync.Mutex
	w    io.Writer
	Bell bool
}

func NewTerminal(w io.Writer, bell bool) *Terminal {
	return &Terminal{w: w, Bell: bell}
}

func (t *Terminal) Schedule(title, body string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	bell := ""
	if t.Bell {
		bell = "\a"
	}
	if _, err := fmt.Fprintf(t.w, "%s🔔 %s: %s\n", bell, title, body); err != nil {
		log.Printf("[NOTIFY] Failed to write notification: %v", err)
	}
}
