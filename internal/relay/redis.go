// Package relay links hub instances through Redis pub/sub so sessions on
// different instances see the same conversation.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"welfare-chat/internal/protocol"

	"github.com/redis/go-redis/v9"
)

type Redis struct {
	client  *redis.Client
	channel string
}

func NewRedis(client *redis.Client, channel string) *Redis {
	return &Redis{client: client, channel: channel}
}

func (r *Redis) Publish(ctx context.Context, env protocol.RelayEnvelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("relay: encode %s: %w", env.Message.ID, err)
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("relay: publish to %s: %w", r.channel, err)
	}
	return nil
}

// Subscribe returns envelopes published on the channel until ctx is
// cancelled, at which point the returned channel is closed.
func (r *Redis) Subscribe(ctx context.Context) (<-chan protocol.RelayEnvelope, error) {
	pubsub := r.client.Subscribe(ctx, r.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("relay: subscribe to %s: %w", r.channel, err)
	}

	out := make(chan protocol.RelayEnvelope)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				env, err := decode(msg.Payload)
				if err != nil {
					log.Printf("[RELAY] Dropping payload on %s: %v", r.channel, err)
					continue
				}
				select {
				case out <- env:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	log.Printf("[RELAY] Subscribed to %s", r.channel)
	return out, nil
}

func decode(payload string) (protocol.RelayEnvelope, error) {
	var env protocol.RelayEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return env, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Origin == "" {
		return env, fmt.Errorf("decode envelope: missing origin")
	}
	return env, nil
}
