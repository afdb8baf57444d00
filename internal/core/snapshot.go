package core

import "github.com/speakapp/server/internal/domain"

// SnapshotTranscript is how many trailing transcript entries a snapshot
// carries; cheaper than shipping the whole ring on every state change.
const SnapshotTranscript = 30

// Snapshot is the read-only projection of a room broadcast to all members.
// Attendees are exposed as a count only, never as a list.
type Snapshot struct {
	Code          domain.RoomCode          `json:"id"`
	Name          string                   `json:"name"`
	HostName      string                   `json:"hostName"`
	HostID        domain.ConnID            `json:"hostId"`
	Queue         []domain.QueueEntry      `json:"queue"`
	Speaker       *domain.QueueEntry       `json:"currentSpeaker"`
	AttendeeCount int                      `json:"attendeeCount"`
	Transcript    []domain.TranscriptEntry `json:"transcript"`
}

// Snapshot builds an immutable copy of the current room state. Pure read,
// no mutation.
func (r *Room) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	queue := make([]domain.QueueEntry, len(r.queue))
	copy(queue, r.queue)

	var speaker *domain.QueueEntry
	if r.speaker != nil {
		s := *r.speaker
		speaker = &s
	}

	tail := r.transcript
	if len(tail) > SnapshotTranscript {
		tail = tail[len(tail)-SnapshotTranscript:]
	}
	transcript := make([]domain.TranscriptEntry, len(tail))
	copy(transcript, tail)

	return Snapshot{
		Code:          r.meta.Code,
		Name:          r.meta.Name,
		HostName:      r.meta.HostName,
		HostID:        r.hostID,
		Queue:         queue,
		Speaker:       speaker,
		AttendeeCount: r.attendeeCountLocked(),
		Transcript:    transcript,
	}
}
