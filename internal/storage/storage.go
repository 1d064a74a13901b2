// Package storage holds the client's durable key-value history: the whole
// message sequence is stored as one JSON value under a key.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"welfare-chat/internal/protocol"
)

var ErrNotFound = errors.New("storage: key not found")

type Storage interface {
	Load(ctx context.Context, key string) ([]protocol.Message, error)
	Save(ctx context.Context, key string, messages []protocol.Message) error
}

func encode(messages []protocol.Message) ([]byte, error) {
	if messages == nil {
		messages = []protocol.Message{}
	}
	data, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("storage: encode history: %w", err)
	}
	return data, nil
}

func decode(data []byte) ([]protocol.Message, error) {
	var messages []protocol.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("storage: decode history: %w", err)
	}
	return messages, nil
}

// Memory is a process-local Storage. LoadErr and SaveErr, when set, are
// returned instead of touching the data.
type Memory struct {
	mu      sync.Mutex
	data    map[string][]byte
	saves   int
	LoadErr error
	SaveErr error
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Load(_ context.Context, key string) ([]protocol.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	data, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return decode(data)
}

func (m *Memory) Save(_ context.Context, key string, messages []protocol.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saves++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	data, err := encode(messages)
	if err != nil {
		return err
	}
	m.data[key] = data
	return nil
}

// Saves counts Save calls, failed ones included.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
