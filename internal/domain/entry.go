package domain

// QueueEntry is one attendee waiting for (or holding) the floor.
// Question is mutable in place by its owner while queued.
type QueueEntry struct {
	ID       ConnID `json:"id"`
	Name     string `json:"name"`
	Question string `json:"question"`
}

// TranscriptEntry is append-only except for capacity eviction.
type TranscriptEntry struct {
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"` // unix millis, server-assigned
}
