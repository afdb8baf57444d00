package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/speakapp/server/internal/core"
	"github.com/speakapp/server/internal/domain"
)

type binding struct {
	Room domain.RoomCode
	Host bool
}

// Registry tracks every live connection: its transport endpoint and, if
// joined, which room it belongs to and whether it hosts that room. A
// connection belongs to at most one room at a time.
type Registry struct {
	mu       sync.RWMutex
	senders  map[domain.ConnID]core.Sender
	bindings map[domain.ConnID]binding
}

func NewRegistry() *Registry {
	return &Registry{
		senders:  make(map[domain.ConnID]core.Sender),
		bindings: make(map[domain.ConnID]binding),
	}
}

func (r *Registry) Register(id domain.ConnID, s core.Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.senders[id] = s
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("connection registered")
}

func (r *Registry) Unregister(id domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.senders, id)
	delete(r.bindings, id)
}

func (r *Registry) Sender(id domain.ConnID) (core.Sender, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.senders[id]
	return s, ok
}

// Bind associates the connection with a room. A previous binding, if any,
// is replaced.
func (r *Registry) Bind(id domain.ConnID, room domain.RoomCode, host bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[id] = binding{Room: room, Host: host}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Str("room", string(room)).Bool("host", host).Msg("bound to room")
}

// RoomOf returns the room the connection is joined to, if any.
func (r *Registry) RoomOf(id domain.ConnID) (domain.RoomCode, bool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[id]
	return b.Room, b.Host, ok
}

// ClearRoom drops the room association but keeps the connection registered.
func (r *Registry) ClearRoom(id domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bindings, id)
}
