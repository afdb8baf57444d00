package core

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/speakapp/server/internal/domain"
)

// TranscriptCap bounds the per-room transcript ring.
const TranscriptCap = 50

type member struct {
	name string
	send Sender
}

// Room is a threadsafe in-memory session. It owns the speaker queue, the
// floor, the attendee set and the transcript, and it never closes
// adapter-owned transport resources. All mutation happens under r.mu; no
// cross-room locks exist.
type Room struct {
	mu sync.RWMutex

	meta   domain.Room
	hostID domain.ConnID

	// members holds the host and every attendee, keyed by connection id.
	members    map[domain.ConnID]*member
	queue      []domain.QueueEntry
	speaker    *domain.QueueEntry
	transcript []domain.TranscriptEntry

	// now is swappable in tests.
	now func() time.Time
}

func NewRoom(meta domain.Room, hostID domain.ConnID, hostSend Sender) *Room {
	r := &Room{
		meta:    meta,
		hostID:  hostID,
		members: make(map[domain.ConnID]*member),
		now:     time.Now,
	}
	r.members[hostID] = &member{name: meta.HostName, send: hostSend}
	return r
}

func (r *Room) Code() domain.RoomCode { return r.meta.Code }
func (r *Room) Name() string          { return r.meta.Name }
func (r *Room) HostName() string      { return r.meta.HostName }
func (r *Room) HostID() domain.ConnID { return r.hostID }

// AddAttendee registers a connection as an attendee. The host is never an
// attendee; re-adding the host is ignored.
func (r *Room) AddAttendee(id domain.ConnID, name string, send Sender) {
	if id == r.hostID {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[id] = &member{name: domain.DisplayName(name), send: send}
	log.Debug().Str("module", "core.room").Str("room", string(r.meta.Code)).Str("conn", string(id)).Msg("attendee added")
}

// HasMember reports whether id is currently joined to the room (host included).
func (r *Room) HasMember(id domain.ConnID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[id]
	return ok
}

// AttendeeCount excludes the host.
func (r *Room) AttendeeCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.attendeeCountLocked()
}

func (r *Room) attendeeCountLocked() int {
	n := len(r.members)
	if _, ok := r.members[r.hostID]; ok {
		n--
	}
	return n
}

// MemberIDs returns every joined connection id, host included.
func (r *Room) MemberIDs() []domain.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ConnID, 0, len(r.members))
	for id := range r.members {
		out = append(out, id)
	}
	return out
}

// JoinQueue appends the connection to the speaker queue in strict FIFO
// order. Reports false if the connection is already queued or not a member.
func (r *Room) JoinQueue(id domain.ConnID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[id]
	if !ok {
		return false
	}
	for _, e := range r.queue {
		if e.ID == id {
			return false
		}
	}
	r.queue = append(r.queue, domain.QueueEntry{ID: id, Name: m.name})
	return true
}

// LeaveQueue removes any matching entry; no-op if absent. The current
// speaker is not touched here (end-speech and disconnect handle that).
func (r *Room) LeaveQueue(id domain.ConnID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropFromQueue(id)
}

func (r *Room) dropFromQueue(id domain.ConnID) bool {
	for i, e := range r.queue {
		if e.ID == id {
			r.queue = append(r.queue[:i], r.queue[i+1:]...)
			return true
		}
	}
	return false
}

// SetQuestion updates the question on the matching queue entry, if any.
func (r *Room) SetQuestion(id domain.ConnID, text string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.queue {
		if r.queue[i].ID == id {
			r.queue[i].Question = text
			return true
		}
	}
	return false
}

// GrantFloor moves the target from the queue to the floor. Fails if the
// floor is occupied or the target is not queued; two concurrent grants for
// the same room can never both succeed.
func (r *Room) GrantFloor(id domain.ConnID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.speaker != nil {
		return false
	}
	for i, e := range r.queue {
		if e.ID == id {
			r.queue = append(r.queue[:i], r.queue[i+1:]...)
			granted := e
			r.speaker = &granted
			log.Debug().Str("module", "core.room").Str("room", string(r.meta.Code)).Str("conn", string(id)).Msg("floor granted")
			return true
		}
	}
	return false
}

// EndSpeech unconditionally clears the floor.
func (r *Room) EndSpeech() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.speaker = nil
}

// Speaker returns the current floor holder, if any.
func (r *Room) Speaker() (domain.QueueEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.speaker == nil {
		return domain.QueueEntry{}, false
	}
	return *r.speaker, true
}

// RemoveMember restores room invariants after a member leaves: it drops the
// connection from the attendee set and the queue, and clears the floor if
// the member held it. Reports whether the member was the current speaker.
func (r *Room) RemoveMember(id domain.ConnID) (wasSpeaker bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, id)
	r.dropFromQueue(id)
	if r.speaker != nil && r.speaker.ID == id {
		r.speaker = nil
		wasSpeaker = true
	}
	return wasSpeaker
}

// AppendTranscript appends an entry with a server-assigned timestamp,
// evicting the oldest entry beyond TranscriptCap.
func (r *Room) AppendTranscript(speaker, text string) domain.TranscriptEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry := domain.TranscriptEntry{
		Speaker:   speaker,
		Text:      text,
		Timestamp: r.now().UnixMilli(),
	}
	r.transcript = append(r.transcript, entry)
	if len(r.transcript) > TranscriptCap {
		r.transcript = r.transcript[len(r.transcript)-TranscriptCap:]
	}
	return entry
}

// Broadcast fans a frame out to every joined connection. Individual
// delivery failures never block the others; slow consumers just miss the
// frame.
func (r *Room) Broadcast(f Frame) PublishResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := PublishResult{}
	for id, m := range r.members {
		if err := m.send.TrySend(f); err != nil {
			res.Dropped++
			log.Warn().Str("module", "core.room").Str("room", string(r.meta.Code)).Str("conn", string(id)).Msg("dropped frame for slow consumer")
			continue
		}
		res.SentTo++
	}
	return res
}

// SendTo delivers a frame to a single member. Reports false if the
// connection is not joined or its buffer is full.
func (r *Room) SendTo(id domain.ConnID, f Frame) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.members[id]
	if !ok {
		return false
	}
	return m.send.TrySend(f) == nil
}
