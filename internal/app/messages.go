package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/speakapp/server/internal/core"
	"github.com/speakapp/server/internal/domain"
)

// Outbound message types. Wire names match what the web client listens for.
const (
	MsgEventCreated     = "event_created"
	MsgEventEnded       = "event_ended"
	MsgRoomData         = "room_data"
	MsgError            = "error"
	MsgAttendeeJoined   = "attendee_joined"
	MsgFloorGranted     = "floor_granted"
	MsgFollowupSignal   = "followup_signal"
	MsgFollowupApproved = "followup_approved"
	MsgFollowupDeclined = "followup_declined"
	MsgReaction         = "reaction_received"
	MsgOffer            = "webrtc_offer"
	MsgAnswer           = "webrtc_answer"
	MsgCandidate        = "webrtc_ice"
	MsgTranscript       = "transcript_update"
)

type roomDataMsg struct {
	Type string        `json:"type"`
	Room core.Snapshot `json:"room"`
}

type typeOnlyMsg struct {
	Type string `json:"type"`
}

type errorMsg struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type attendeeJoinedMsg struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type followupSignalMsg struct {
	Type        string `json:"type"`
	SpeakerName string `json:"speakerName"`
}

type reactionMsg struct {
	Type  string `json:"type"`
	Emoji string `json:"emoji"`
}

type transcriptMsg struct {
	Type string `json:"type"`
	domain.TranscriptEntry
}

// Relayed signaling messages carry the sender's opaque payload verbatim.
type offerMsg struct {
	Type  string          `json:"type"`
	From  domain.ConnID   `json:"from"`
	Offer json.RawMessage `json:"offer"`
}

type answerMsg struct {
	Type   string          `json:"type"`
	Answer json.RawMessage `json:"answer"`
}

type candidateMsg struct {
	Type      string          `json:"type"`
	From      domain.ConnID   `json:"from,omitempty"`
	Candidate json.RawMessage `json:"candidate"`
}

func frame(v any) core.Frame {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Str("module", "app.coordinator").Err(err).Msg("marshal outbound message")
		return nil
	}
	return core.Frame(b)
}
