package models

import (
	"encoding/json"
	"time"
)

// ArchivedMessage is one row of the hub's write-behind archive. Payload is
// the message exactly as it travelled on the wire.
type ArchivedMessage struct {
	ID         string          `json:"id"`
	RoomID     string          `json:"room_id"`
	Sender     string          `json:"sender"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	SentAt     string          `json:"sent_at"`
	ReceivedAt time.Time       `json:"received_at"`
}
