package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/speakapp/server/internal/core"
	"github.com/speakapp/server/internal/domain"
)

// Recorder is the durable-record collaborator. Implementations must be
// best-effort and non-blocking: a slow or failing write never delays or
// fails the in-memory transition.
type Recorder interface {
	RoomCreated(code domain.RoomCode, name, hostName string)
	RoomEnded(code domain.RoomCode)
}

// NopRecorder is used when no durable store is available.
type NopRecorder struct{}

func (NopRecorder) RoomCreated(domain.RoomCode, string, string) {}
func (NopRecorder) RoomEnded(domain.RoomCode)                   {}

// Coordinator applies inbound connection events to room state and fans the
// results out. Room-internal inconsistency degrades to an ignored event,
// never an error to the caller; the only user-visible failure is "Room not
// found" on an explicit join.
type Coordinator struct {
	Registry *Registry
	Rooms    *RoomStore
	Recorder Recorder
}

func NewCoordinator(reg *Registry, rooms *RoomStore, rec Recorder) *Coordinator {
	if rec == nil {
		rec = NopRecorder{}
	}
	return &Coordinator{Registry: reg, Rooms: rooms, Recorder: rec}
}

// Connect registers a fresh connection's transport endpoint.
func (c *Coordinator) Connect(id domain.ConnID, s core.Sender) {
	c.Registry.Register(id, s)
}

// CreateRoom allocates a room and makes the connection its host.
func (c *Coordinator) CreateRoom(id domain.ConnID, name, hostName string) {
	sender, ok := c.Registry.Sender(id)
	if !ok {
		return
	}
	c.leaveCurrent(id)
	if name == "" {
		name = "Event"
	}
	hostName = domain.DisplayName(hostName)

	room, err := c.Rooms.Create(name, hostName, id, sender)
	if err != nil {
		log.Warn().Str("module", "app.coordinator").Err(err).Msg("create room")
		sender.TrySend(frame(errorMsg{Type: MsgError, Error: err.Error()}))
		return
	}
	c.Registry.Bind(id, room.Code(), true)
	c.Recorder.RoomCreated(room.Code(), name, hostName)
	sender.TrySend(frame(roomDataMsg{Type: MsgEventCreated, Room: room.Snapshot()}))
}

// EndRoom tears the room down. Host only.
func (c *Coordinator) EndRoom(id domain.ConnID, code string) {
	room, ok := c.Rooms.Lookup(code)
	if !ok || room.HostID() != id {
		return
	}
	c.teardown(room)
}

func (c *Coordinator) teardown(room *core.Room) {
	room.Broadcast(frame(typeOnlyMsg{Type: MsgEventEnded}))
	c.Rooms.End(room.Code())
	for _, id := range room.MemberIDs() {
		c.Registry.ClearRoom(id)
	}
	c.Recorder.RoomEnded(room.Code())
}

// JoinRoom adds the connection to the room as an attendee. The one place a
// not-found error is reported back to the caller.
func (c *Coordinator) JoinRoom(id domain.ConnID, code, name string) {
	sender, ok := c.Registry.Sender(id)
	if !ok {
		return
	}
	room, ok := c.Rooms.Lookup(code)
	if !ok {
		sender.TrySend(frame(errorMsg{Type: MsgError, Error: "Room not found"}))
		return
	}
	// The host already belongs to its room; re-binding it as an attendee
	// would lose the host flag and with it the disconnect teardown.
	if id == room.HostID() {
		sender.TrySend(frame(roomDataMsg{Type: MsgRoomData, Room: room.Snapshot()}))
		return
	}
	// Rejoining the same room keeps queue position; switching rooms does not.
	if prev, _, bound := c.Registry.RoomOf(id); bound && prev != room.Code() {
		c.leaveCurrent(id)
	}
	room.AddAttendee(id, name, sender)
	c.Registry.Bind(id, room.Code(), false)
	sender.TrySend(frame(roomDataMsg{Type: MsgRoomData, Room: room.Snapshot()}))
	room.SendTo(room.HostID(), frame(attendeeJoinedMsg{Type: MsgAttendeeJoined, Count: room.AttendeeCount()}))
}

// JoinQueue appends the connection to the room's speaker queue.
func (c *Coordinator) JoinQueue(id domain.ConnID, code string) {
	room, ok := c.Rooms.Lookup(code)
	if !ok {
		return
	}
	if room.JoinQueue(id) {
		c.broadcastState(room)
	}
}

func (c *Coordinator) LeaveQueue(id domain.ConnID, code string) {
	room, ok := c.Rooms.Lookup(code)
	if !ok {
		return
	}
	if room.LeaveQueue(id) {
		c.broadcastState(room)
	}
}

func (c *Coordinator) SubmitQuestion(id domain.ConnID, code, text string) {
	room, ok := c.Rooms.Lookup(code)
	if !ok {
		return
	}
	if room.SetQuestion(id, text) {
		c.broadcastState(room)
	}
}

// GrantFloor moves target from queue to floor and tells it so directly,
// beyond the room-wide state broadcast.
func (c *Coordinator) GrantFloor(code string, target domain.ConnID) {
	room, ok := c.Rooms.Lookup(code)
	if !ok {
		return
	}
	if !room.GrantFloor(target) {
		return
	}
	c.broadcastState(room)
	room.SendTo(target, frame(typeOnlyMsg{Type: MsgFloorGranted}))
}

// EndSpeech clears the floor. Intended callers are the speaker and the
// host, but any member may send it; see DESIGN.md.
func (c *Coordinator) EndSpeech(code string) {
	room, ok := c.Rooms.Lookup(code)
	if !ok {
		return
	}
	room.EndSpeech()
	c.broadcastState(room)
}

// SignalFollowup asks the host for a floor extension on the speaker's
// behalf. No room-wide broadcast; nothing is delivered when the floor is
// empty. The handshake carries no timeout.
func (c *Coordinator) SignalFollowup(code string) {
	room, ok := c.Rooms.Lookup(code)
	if !ok {
		return
	}
	speaker, ok := room.Speaker()
	if !ok {
		return
	}
	room.SendTo(room.HostID(), frame(followupSignalMsg{Type: MsgFollowupSignal, SpeakerName: speaker.Name}))
}

// RespondFollowup delivers the host's verdict to the current speaker.
// Approval changes no state; decline also clears the floor.
func (c *Coordinator) RespondFollowup(code string, approved bool) {
	room, ok := c.Rooms.Lookup(code)
	if !ok {
		return
	}
	speaker, ok := room.Speaker()
	if !ok {
		return
	}
	if approved {
		room.SendTo(speaker.ID, frame(typeOnlyMsg{Type: MsgFollowupApproved}))
		return
	}
	room.SendTo(speaker.ID, frame(typeOnlyMsg{Type: MsgFollowupDeclined}))
	room.EndSpeech()
	c.broadcastState(room)
}

// Reaction is an ephemeral fire-and-forget broadcast; nothing is stored.
func (c *Coordinator) Reaction(code, emoji string) {
	room, ok := c.Rooms.Lookup(code)
	if !ok {
		return
	}
	room.Broadcast(frame(reactionMsg{Type: MsgReaction, Emoji: emoji}))
}

// AppendTranscript stores the entry and broadcasts only the delta, not a
// full snapshot.
func (c *Coordinator) AppendTranscript(code, speaker, text string) {
	room, ok := c.Rooms.Lookup(code)
	if !ok {
		return
	}
	if speaker == "" {
		speaker = "Speaker"
	}
	entry := room.AppendTranscript(speaker, text)
	room.Broadcast(frame(transcriptMsg{Type: MsgTranscript, TranscriptEntry: entry}))
}

// RelayOffer forwards an opaque session offer to the room's host. The
// payload is never inspected.
func (c *Coordinator) RelayOffer(from domain.ConnID, code string, offer json.RawMessage) {
	room, ok := c.Rooms.Lookup(code)
	if !ok {
		return
	}
	room.SendTo(room.HostID(), frame(offerMsg{Type: MsgOffer, From: from, Offer: offer}))
}

// RelayAnswer forwards an opaque session answer to an explicit target.
// Silently dropped without a target or when the target is not a live member
// of the room (stale ids are never forwarded).
func (c *Coordinator) RelayAnswer(code string, target domain.ConnID, answer json.RawMessage) {
	if target == "" {
		return
	}
	room, ok := c.Rooms.Lookup(code)
	if !ok || !room.HasMember(target) {
		return
	}
	room.SendTo(target, frame(answerMsg{Type: MsgAnswer, Answer: answer}))
}

// RelayCandidate forwards a connectivity candidate. With an explicit target
// it goes there (membership-checked); without one it goes to the host by
// convention, never to other attendees.
func (c *Coordinator) RelayCandidate(from domain.ConnID, code string, target domain.ConnID, candidate json.RawMessage) {
	room, ok := c.Rooms.Lookup(code)
	if !ok {
		return
	}
	if target != "" {
		if room.HasMember(target) {
			room.SendTo(target, frame(candidateMsg{Type: MsgCandidate, Candidate: candidate}))
		}
		return
	}
	room.SendTo(room.HostID(), frame(candidateMsg{Type: MsgCandidate, From: from, Candidate: candidate}))
}

// Disconnect reconciles room state after an abrupt connection loss. A host
// loss tears the room down; any other member is removed from the attendee
// set, the queue and, if speaking, the floor.
func (c *Coordinator) Disconnect(id domain.ConnID) {
	c.leaveCurrent(id)
	c.Registry.Unregister(id)
}

// leaveCurrent detaches the connection from whatever room it is bound to,
// restoring that room's invariants. A connection belongs to at most one
// room at a time.
func (c *Coordinator) leaveCurrent(id domain.ConnID) {
	code, isHost, ok := c.Registry.RoomOf(id)
	if !ok {
		return
	}
	room, ok := c.Rooms.Lookup(string(code))
	if !ok {
		c.Registry.ClearRoom(id)
		return
	}
	if isHost {
		log.Info().Str("module", "app.coordinator").Str("room", string(code)).Msg("host left, ending room")
		c.teardown(room)
		return
	}
	room.RemoveMember(id)
	c.Registry.ClearRoom(id)
	c.broadcastState(room)
}

func (c *Coordinator) broadcastState(room *core.Room) {
	room.Broadcast(frame(roomDataMsg{Type: MsgRoomData, Room: room.Snapshot()}))
}
