package protocol

import (
	"encoding/json"
	"fmt"
)

type Event string

// Client → hub
const (
	EventJoin           Event = "join"
	EventRequestHistory Event = "requestHistory"
	EventSend           Event = "send"
)

// Hub → client
const (
	EventSnapshot  Event = "snapshot"
	EventBroadcast Event = "broadcast"
	EventRejected  Event = "rejected"
)

// Frame is the envelope for every WebSocket text frame in either direction.
type Frame struct {
	Event    Event     `json:"event"`
	Room     string    `json:"room,omitempty"`
	Message  *Message  `json:"message,omitempty"`
	Messages []Message `json:"messages,omitempty"`
	Reason   string    `json:"reason,omitempty"`
}

func NewSnapshot(room string, messages []Message) Frame {
	return Frame{Event: EventSnapshot, Room: room, Messages: messages}
}

func NewBroadcast(room string, m Message) Frame {
	return Frame{Event: EventBroadcast, Room: room, Message: &m}
}

func NewRejected(reason string, m *Message) Frame {
	return Frame{Event: EventRejected, Reason: reason, Message: m}
}

func Encode(f Frame) ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", f.Event, err)
	}
	return data, nil
}

func Decode(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if f.Event == "" {
		return Frame{}, fmt.Errorf("decode frame: missing event")
	}
	return f, nil
}

// RelayEnvelope is what hub instances exchange over the relay. Origin is the
// publishing hub's instance id so a hub can skip its own echoes.
type RelayEnvelope struct {
	Origin  string  `json:"origin"`
	Message Message `json:"message"`
}
