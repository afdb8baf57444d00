package app

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speakapp/server/internal/core"
	"github.com/speakapp/server/internal/domain"
)

type nopSender struct{}

func (nopSender) TrySend(core.Frame) error { return nil }
func (nopSender) Close()                   {}

func TestCreateGeneratesUniqueCodesConcurrently(t *testing.T) {
	s := NewRoomStore()

	const n = 1000
	codes := make(chan domain.RoomCode, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			room, err := s.Create("Event", "Host", "conn", nopSender{})
			if assert.NoError(t, err) {
				codes <- room.Code()
			}
		}()
	}
	wg.Wait()
	close(codes)

	seen := make(map[domain.RoomCode]bool, n)
	for code := range codes {
		assert.False(t, seen[code], "duplicate live code %s", code)
		seen[code] = true
		assert.Len(t, string(code), domain.CodeLength)
		for _, ch := range string(code) {
			assert.True(t, strings.ContainsRune(domain.CodeAlphabet, ch), "unexpected character %q", ch)
		}
	}
	assert.Equal(t, n, s.Count())
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	s := NewRoomStore()
	room, err := s.Create("Event", "Host", "conn", nopSender{})
	require.NoError(t, err)

	got, ok := s.Lookup(strings.ToLower(string(room.Code())))
	require.True(t, ok)
	assert.Same(t, room, got)

	_, ok = s.Lookup("ZZZZ")
	assert.False(t, ok)
}

func TestEndIsIdempotent(t *testing.T) {
	s := NewRoomStore()
	room, err := s.Create("Event", "Host", "conn", nopSender{})
	require.NoError(t, err)

	assert.True(t, s.End(room.Code()))
	assert.False(t, s.End(room.Code()))
	assert.Equal(t, 0, s.Count())

	// Codes may be reused once the room is gone.
	_, ok := s.Lookup(string(room.Code()))
	assert.False(t, ok)
}

func TestCreateSurfacesCapacityError(t *testing.T) {
	s := NewRoomStore()
	s.newCode = func() domain.RoomCode { return "AAAA" }

	_, err := s.Create("First", "Host", "c1", nopSender{})
	require.NoError(t, err)

	_, err = s.Create("Second", "Host", "c2", nopSender{})
	assert.ErrorIs(t, err, ErrNoFreeCodes)
}
