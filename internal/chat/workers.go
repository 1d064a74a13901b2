package chat

import (
	"context"
	"log"
	"time"
)

const workerTimeout = 5 * time.Second

func (h *Hub) startWorkers() {
	if h.relayOut != nil {
		h.workers.Add(1)
		go func() {
			defer h.workers.Done()
			for env := range h.relayOut {
				ctx, cancel := context.WithTimeout(context.Background(), workerTimeout)
				if err := h.relay.Publish(ctx, env); err != nil {
					log.Printf("[HUB] Relay publish failed for %s: %v", env.Message.ID, err)
				}
				cancel()
			}
		}()
	}

	if h.archiveOut != nil {
		h.workers.Add(1)
		go func() {
			defer h.workers.Done()
			for m := range h.archiveOut {
				ctx, cancel := context.WithTimeout(context.Background(), workerTimeout)
				if err := h.archiver.Archive(ctx, m, time.Now()); err != nil {
					log.Printf("[HUB] Archive failed for %s: %v", m.ID, err)
				}
				cancel()
			}
		}()
	}
}

// ConsumeRelay feeds messages published by other hub instances into this
// hub's loop until ctx is cancelled or the relay closes. Own echoes are
// skipped.
func (h *Hub) ConsumeRelay(ctx context.Context) error {
	if h.relay == nil {
		return nil
	}

	ch, err := h.relay.Subscribe(ctx)
	if err != nil {
		return err
	}

	log.Printf("[HUB] Consuming relay as instance %s", h.instanceID)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-ch:
			if !ok {
				return nil
			}
			if env.Origin == h.instanceID {
				continue
			}
			if !h.enqueue(inbound{kind: eventSubmit, origin: env.Origin, message: env.Message}) {
				return nil
			}
		}
	}
}
