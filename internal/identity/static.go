// Package identity supplies the local user's display identity.
package identity

import (
	"context"
	"errors"

	"welfare-chat/internal/protocol"
)

var ErrNoName = errors.New("identity: user name is empty")

// Static returns a fixed identity, usually taken from configuration.
type Static protocol.Identity

func (s Static) Identity(context.Context) (protocol.Identity, error) {
	if s.Name == "" {
		return protocol.Identity{}, ErrNoName
	}
	return protocol.Identity(s), nil
}
