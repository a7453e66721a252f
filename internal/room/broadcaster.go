package room

import (
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/code-battle/internal/battle"
	ws "github.com/gokatarajesh/code-battle/pkg/http/ws"
)

// Sender delivers one message to one connection.
type Sender interface {
	SendTo(connID string, msg ws.Message) error
}

// Broadcaster fans events out to the connections a Registry holds for a room.
// Delivery is best effort: failures are logged and never retried.
type Broadcaster struct {
	registry *Registry
	sender   Sender
	logger   zerolog.Logger
}

func NewBroadcaster(registry *Registry, sender Sender, logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		registry: registry,
		sender:   sender,
		logger:   logger.With().Str("component", "room_broadcaster").Logger(),
	}
}

// Registry exposes the slot registry the broadcaster targets.
func (b *Broadcaster) Registry() *Registry { return b.registry }

// ToRoom sends msg to every connection bound to code.
func (b *Broadcaster) ToRoom(code string, msg ws.Message) int {
	return b.deliver(code, b.registry.Targets(code), msg)
}

// ToOthers sends msg to every connection in code except the originator.
func (b *Broadcaster) ToOthers(code, exceptConnID string, msg ws.Message) int {
	return b.deliver(code, b.registry.Targets(code, exceptConnID), msg)
}

// ToSide sends msg to whichever connection holds side in code.
func (b *Broadcaster) ToSide(code string, side battle.Side, msg ws.Message) int {
	connID := b.registry.Connection(code, side)
	if connID == "" {
		return 0
	}
	return b.deliver(code, []string{connID}, msg)
}

// ToConnection sends msg to a single connection, bound or not.
func (b *Broadcaster) ToConnection(connID string, msg ws.Message) bool {
	return b.deliver("", []string{connID}, msg) == 1
}

// CloseRoom notifies every bound connection and forgets the room.
func (b *Broadcaster) CloseRoom(code string, msg ws.Message) int {
	delivered := b.ToRoom(code, msg)
	b.registry.Drop(code)
	return delivered
}

func (b *Broadcaster) deliver(code string, targets []string, msg ws.Message) int {
	delivered := 0
	for _, connID := range targets {
		if err := b.sender.SendTo(connID, msg); err != nil {
			b.logger.Warn().
				Err(err).
				Str("room_code", code).
				Str("conn_id", connID).
				Str("type", msg.Type).
				Msg("event dropped")
			continue
		}
		delivered++
	}
	return delivered
}
