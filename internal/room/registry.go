package room

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/code-battle/internal/battle"
)

const mirrorTimeout = 2 * time.Second

// Slot locates a connection inside a room.
type Slot struct {
	RoomCode string
	Side     battle.Side
}

// Mirror publishes room membership somewhere observable. Failures never
// affect the in-memory registry.
type Mirror interface {
	Bind(ctx context.Context, code string, side battle.Side, connID string) error
	Unbind(ctx context.Context, code string, side battle.Side) error
	Drop(ctx context.Context, code string) error
}

type slots struct {
	creator    string
	challenger string
}

func (s *slots) get(side battle.Side) string {
	if side == battle.SideCreator {
		return s.creator
	}
	return s.challenger
}

func (s *slots) set(side battle.Side, connID string) {
	if side == battle.SideCreator {
		s.creator = connID
	} else {
		s.challenger = connID
	}
}

func (s *slots) empty() bool { return s.creator == "" && s.challenger == "" }

// Registry maps room codes to the live connection in each side's slot.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]*slots
	conns  map[string]Slot
	mirror Mirror
	logger zerolog.Logger
}

// NewRegistry builds a registry. mirror may be nil.
func NewRegistry(mirror Mirror, logger zerolog.Logger) *Registry {
	return &Registry{
		rooms:  make(map[string]*slots),
		conns:  make(map[string]Slot),
		mirror: mirror,
		logger: logger.With().Str("component", "room_registry").Logger(),
	}
}

// Bind places connID in side's slot of code, replacing any previous holder.
// It returns the connection that was displaced, if any.
func (r *Registry) Bind(code string, side battle.Side, connID string) string {
	target := Slot{RoomCode: code, Side: side}
	r.mu.Lock()
	prev, moved := r.conns[connID]
	moved = moved && prev != target
	if moved {
		r.unbindLocked(connID, prev)
	}
	room, ok := r.rooms[code]
	if !ok {
		room = &slots{}
		r.rooms[code] = room
	}
	displaced := room.get(side)
	if displaced == connID {
		displaced = ""
	} else if displaced != "" {
		delete(r.conns, displaced)
	}
	room.set(side, connID)
	r.conns[connID] = target
	r.mu.Unlock()

	if moved {
		r.mirrorDo(func(ctx context.Context) error { return r.mirror.Unbind(ctx, prev.RoomCode, prev.Side) })
	}
	r.mirrorDo(func(ctx context.Context) error { return r.mirror.Bind(ctx, code, side, connID) })
	r.logger.Debug().Str("room_code", code).Str("side", string(side)).Str("conn_id", connID).Msg("slot bound")
	return displaced
}

// Unbind clears only the slot held by connID.
func (r *Registry) Unbind(connID string) (Slot, bool) {
	r.mu.Lock()
	slot, ok := r.conns[connID]
	if ok {
		r.unbindLocked(connID, slot)
	}
	r.mu.Unlock()

	if ok {
		r.mirrorDo(func(ctx context.Context) error { return r.mirror.Unbind(ctx, slot.RoomCode, slot.Side) })
	}
	return slot, ok
}

func (r *Registry) unbindLocked(connID string, slot Slot) {
	delete(r.conns, connID)
	room, ok := r.rooms[slot.RoomCode]
	if !ok {
		return
	}
	if room.get(slot.Side) == connID {
		room.set(slot.Side, "")
	}
	if room.empty() {
		delete(r.rooms, slot.RoomCode)
	}
}

// Lookup returns where connID is bound.
func (r *Registry) Lookup(connID string) (Slot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	slot, ok := r.conns[connID]
	return slot, ok
}

// Connection returns the connection holding side in code.
func (r *Registry) Connection(code string, side battle.Side) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if room, ok := r.rooms[code]; ok {
		return room.get(side)
	}
	return ""
}

// Targets lists the connections bound to code, minus except.
func (r *Registry) Targets(code string, except ...string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[code]
	if !ok {
		return nil
	}
	out := make([]string, 0, 2)
	for _, connID := range []string{room.creator, room.challenger} {
		if connID == "" || contains(except, connID) {
			continue
		}
		out = append(out, connID)
	}
	return out
}

// Drop forgets code and returns the connections that were bound to it.
func (r *Registry) Drop(code string) []string {
	r.mu.Lock()
	room, ok := r.rooms[code]
	var released []string
	if ok {
		for _, connID := range []string{room.creator, room.challenger} {
			if connID != "" {
				delete(r.conns, connID)
				released = append(released, connID)
			}
		}
		delete(r.rooms, code)
	}
	r.mu.Unlock()

	if ok {
		r.mirrorDo(func(ctx context.Context) error { return r.mirror.Drop(ctx, code) })
	}
	return released
}

// Rooms returns how many rooms have at least one bound connection.
func (r *Registry) Rooms() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func (r *Registry) mirrorDo(fn func(ctx context.Context) error) {
	if r.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		r.logger.Warn().Err(err).Msg("room mirror update failed")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
