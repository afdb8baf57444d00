package adapters

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speakapp/server/internal/app"
	"github.com/speakapp/server/internal/core"
)

type captureSender struct {
	mu     sync.Mutex
	frames []core.Frame
}

func (s *captureSender) TrySend(f core.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, f)
	return nil
}

func (s *captureSender) Close() {}

func (s *captureSender) types(t *testing.T) []string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.frames))
	for _, f := range s.frames {
		var env struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(f, &env))
		out = append(out, env.Type)
	}
	return out
}

func newTestController() *WSController {
	coord := app.NewCoordinator(app.NewRegistry(), app.NewRoomStore(), nil)
	return NewWSController(coord, 0, 0)
}

func TestDispatchCreateEvent(t *testing.T) {
	ctl := newTestController()
	s := &captureSender{}
	ctl.Coord.Connect("c1", s)

	ctl.dispatch("c1", []byte(`{"type":"create_event","name":"Town Hall","hostName":"Dana"}`))

	require.Equal(t, []string{app.MsgEventCreated}, s.types(t))
	assert.Equal(t, 1, ctl.Coord.Rooms.Count())
}

func TestDispatchIgnoresMalformedAndUnknownEvents(t *testing.T) {
	ctl := newTestController()
	s := &captureSender{}
	ctl.Coord.Connect("c1", s)

	ctl.dispatch("c1", []byte(`{not json`))
	ctl.dispatch("c1", []byte(`{"type":"warp_drive"}`))
	ctl.dispatch("c1", []byte(`{"type":"join_queue","roomId":"ZZZZ"}`))

	assert.Empty(t, s.types(t))
	assert.Equal(t, 0, ctl.Coord.Rooms.Count())
}

func TestDispatchAnswerFallsBackToBoundRoom(t *testing.T) {
	ctl := newTestController()
	host := &captureSender{}
	ctl.Coord.Connect("host", host)
	ctl.dispatch("host", []byte(`{"type":"create_event","name":"AMA","hostName":"Dana"}`))

	var created struct {
		Room struct {
			ID string `json:"id"`
		} `json:"room"`
	}
	require.NoError(t, json.Unmarshal(host.frames[0], &created))

	attendee := &captureSender{}
	ctl.Coord.Connect("a", attendee)
	ctl.dispatch("a", []byte(`{"type":"join_room_attendee","roomId":"`+created.Room.ID+`","user":{"name":"Alice"}}`))

	// Host answers without a roomId; the registry binding resolves it.
	ctl.dispatch("host", []byte(`{"type":"webrtc_answer","to":"a","answer":{"sdp":"opaque"}}`))

	assert.Contains(t, attendee.types(t), app.MsgAnswer)
}
