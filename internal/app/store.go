package app

import (
	"errors"
	"math/rand"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/speakapp/server/internal/core"
	"github.com/speakapp/server/internal/domain"
)

// ErrNoFreeCodes is returned when code generation cannot find an unused
// code. The code space is finite, so the retry loop is bounded.
var ErrNoFreeCodes = errors.New("room code space exhausted")

const maxCodeAttempts = 1000

// RoomStore is the authoritative mapping from room code to live room.
// It is the only global mutable state in the session core.
type RoomStore struct {
	mu      sync.RWMutex
	rooms   map[domain.RoomCode]*core.Room
	newCode func() domain.RoomCode
}

func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms:   make(map[domain.RoomCode]*core.Room),
		newCode: randomCode,
	}
}

func randomCode() domain.RoomCode {
	b := make([]byte, domain.CodeLength)
	for i := range b {
		b[i] = domain.CodeAlphabet[rand.Intn(len(domain.CodeAlphabet))]
	}
	return domain.RoomCode(b)
}

// Create allocates a fresh unique code, registers the room and marks the
// creating connection as host.
func (s *RoomStore) Create(name, hostName string, hostID domain.ConnID, hostSend core.Sender) (*core.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var code domain.RoomCode
	for i := 0; ; i++ {
		if i == maxCodeAttempts {
			return nil, ErrNoFreeCodes
		}
		code = s.newCode()
		if _, taken := s.rooms[code]; !taken {
			break
		}
	}

	room := core.NewRoom(domain.Room{Code: code, Name: name, HostName: hostName}, hostID, hostSend)
	s.rooms[code] = room
	log.Info().Str("module", "app.store").Str("room", string(code)).Str("name", name).Msg("room created")
	return room, nil
}

// Lookup resolves a room by code, case-insensitively.
func (s *RoomStore) Lookup(code string) (*core.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[normalize(code)]
	return room, ok
}

// End removes the room; idempotent, no-op if absent.
func (s *RoomStore) End(code domain.RoomCode) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[code]; !ok {
		return false
	}
	delete(s.rooms, code)
	log.Info().Str("module", "app.store").Str("room", string(code)).Msg("room ended")
	return true
}

// Count reports how many rooms are currently live.
func (s *RoomStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// Codes lists the live room codes, e.g. for an external idle reaper.
func (s *RoomStore) Codes() []domain.RoomCode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.RoomCode, 0, len(s.rooms))
	for code := range s.rooms {
		out = append(out, code)
	}
	return out
}

func normalize(code string) domain.RoomCode {
	return domain.RoomCode(strings.ToUpper(code))
}
