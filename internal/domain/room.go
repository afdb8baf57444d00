package domain

// RoomCode identifies a live session. Codes are unique among live rooms
// only; a code may be reused after its room ends.
type RoomCode string

const (
	// CodeAlphabet excludes visually ambiguous characters (0/O, 1/I).
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	CodeLength   = 4
)

// Room is session meta-data. Live state (queue, floor, members) lives in core.
type Room struct {
	Code     RoomCode
	Name     string
	HostName string
}
