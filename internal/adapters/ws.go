package adapters

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/speakapp/server/internal/app"
	"github.com/speakapp/server/internal/core"
	"github.com/speakapp/server/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// TODO: restrict origins once the frontend host is fixed.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsConn adapts a websocket to core.Sender with a buffered send channel.
// A full buffer drops the frame instead of blocking the room.
type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame
	once sync.Once
}

func (c *wsConn) TrySend(f core.Frame) error {
	select {
	case c.send <- f:
		return nil
	default:
		return core.ErrBackpressure
	}
}

func (c *wsConn) Close() {
	c.once.Do(func() {
		close(c.send)
		_ = c.conn.Close()
	})
}

// WSController upgrades connections and dispatches the event protocol to
// the coordinator. It owns transport resources; the coordinator never does.
type WSController struct {
	Coord      *app.Coordinator
	ReadLimit  int64
	PingPeriod time.Duration
}

func NewWSController(coord *app.Coordinator, readLimit int64, pingPeriod time.Duration) *WSController {
	if readLimit <= 0 {
		readLimit = 32768
	}
	if pingPeriod <= 0 {
		pingPeriod = 54 * time.Second
	}
	return &WSController{Coord: coord, ReadLimit: readLimit, PingPeriod: pingPeriod}
}

func (ctl *WSController) HandleWS(c *gin.Context) {
	id := domain.ConnID(c.GetString("client_token"))
	if id == "" {
		id = domain.ConnID(uuid.NewString())
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Str("module", "adapters.ws").Err(err).Msg("ws upgrade")
		return
	}
	log.Info().Str("module", "adapters.ws").Str("conn", string(id)).Msg("connection opened")

	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, 256),
	}
	ctl.Coord.Connect(id, conn)

	go ctl.writePump(conn)
	go ctl.readPump(id, conn)
}

func (ctl *WSController) writePump(c *wsConn) {
	ticker := time.NewTicker(ctl.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (ctl *WSController) readPump(id domain.ConnID, c *wsConn) {
	defer func() {
		log.Info().Str("module", "adapters.ws").Str("conn", string(id)).Msg("connection closed")
		ctl.Coord.Disconnect(id)
		c.Close()
	}()

	c.conn.SetReadLimit(ctl.ReadLimit)
	deadline := ctl.PingPeriod + 10*time.Second
	_ = c.conn.SetReadDeadline(time.Now().Add(deadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(deadline))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Str("module", "adapters.ws").Str("conn", string(id)).Err(err).Msg("unexpected close")
			}
			return
		}
		ctl.dispatch(id, data)
	}
}

// dispatch routes an inbound envelope by its type field. Malformed or
// out-of-order events are ignored, never fatal.
func (ctl *WSController) dispatch(id domain.ConnID, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Str("module", "adapters.ws").Str("conn", string(id)).Err(err).Msg("bad json")
		return
	}

	switch env.Type {
	case "create_event":
		ctl.handleCreate(id, data)
	case "end_event":
		ctl.handleEnd(id, data)
	case "join_room_attendee":
		ctl.handleJoin(id, data)
	case "join_queue":
		ctl.handleJoinQueue(id, data)
	case "leave_queue":
		ctl.handleLeaveQueue(id, data)
	case "submit_question":
		ctl.handleSubmitQuestion(id, data)
	case "grant_floor":
		ctl.handleGrantFloor(id, data)
	case "end_speech":
		ctl.handleEndSpeech(id, data)
	case "signal_followup":
		ctl.handleSignalFollowup(id, data)
	case "followup_response":
		ctl.handleFollowupResponse(id, data)
	case "send_reaction":
		ctl.handleReaction(id, data)
	case "webrtc_offer":
		ctl.handleOffer(id, data)
	case "webrtc_answer":
		ctl.handleAnswer(id, data)
	case "webrtc_ice":
		ctl.handleCandidate(id, data)
	case "transcript_update":
		ctl.handleTranscript(id, data)
	default:
		log.Debug().Str("module", "adapters.ws").Str("type", env.Type).Msg("unknown event")
	}
}

type userRef struct {
	Name string `json:"name"`
}

func (ctl *WSController) handleCreate(id domain.ConnID, data []byte) {
	var p struct {
		Name     string `json:"name"`
		HostName string `json:"hostName"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	ctl.Coord.CreateRoom(id, p.Name, p.HostName)
}

func (ctl *WSController) handleEnd(id domain.ConnID, data []byte) {
	var p struct {
		RoomID string `json:"roomId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	ctl.Coord.EndRoom(id, p.RoomID)
}

func (ctl *WSController) handleJoin(id domain.ConnID, data []byte) {
	var p struct {
		RoomID string  `json:"roomId"`
		User   userRef `json:"user"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	ctl.Coord.JoinRoom(id, p.RoomID, p.User.Name)
}

func (ctl *WSController) handleJoinQueue(id domain.ConnID, data []byte) {
	var p struct {
		RoomID string `json:"roomId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	ctl.Coord.JoinQueue(id, p.RoomID)
}

func (ctl *WSController) handleLeaveQueue(id domain.ConnID, data []byte) {
	var p struct {
		RoomID string `json:"roomId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	ctl.Coord.LeaveQueue(id, p.RoomID)
}

func (ctl *WSController) handleSubmitQuestion(id domain.ConnID, data []byte) {
	var p struct {
		RoomID string `json:"roomId"`
		Text   string `json:"text"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	ctl.Coord.SubmitQuestion(id, p.RoomID, p.Text)
}

func (ctl *WSController) handleGrantFloor(_ domain.ConnID, data []byte) {
	var p struct {
		RoomID string        `json:"roomId"`
		UserID domain.ConnID `json:"userId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	ctl.Coord.GrantFloor(p.RoomID, p.UserID)
}

func (ctl *WSController) handleEndSpeech(_ domain.ConnID, data []byte) {
	var p struct {
		RoomID string `json:"roomId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	ctl.Coord.EndSpeech(p.RoomID)
}

func (ctl *WSController) handleSignalFollowup(_ domain.ConnID, data []byte) {
	var p struct {
		RoomID string `json:"roomId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	ctl.Coord.SignalFollowup(p.RoomID)
}

func (ctl *WSController) handleFollowupResponse(_ domain.ConnID, data []byte) {
	var p struct {
		RoomID   string `json:"roomId"`
		Approved bool   `json:"approved"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	ctl.Coord.RespondFollowup(p.RoomID, p.Approved)
}

func (ctl *WSController) handleReaction(_ domain.ConnID, data []byte) {
	var p struct {
		RoomID string `json:"roomId"`
		Emoji  string `json:"emoji"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	ctl.Coord.Reaction(p.RoomID, p.Emoji)
}

func (ctl *WSController) handleOffer(id domain.ConnID, data []byte) {
	var p struct {
		RoomID string          `json:"roomId"`
		Offer  json.RawMessage `json:"offer"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	ctl.Coord.RelayOffer(id, p.RoomID, p.Offer)
}

func (ctl *WSController) handleAnswer(id domain.ConnID, data []byte) {
	var p struct {
		RoomID string          `json:"roomId"`
		To     domain.ConnID   `json:"to"`
		Answer json.RawMessage `json:"answer"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	// The host's client omits roomId on answers; fall back to its binding.
	code := p.RoomID
	if code == "" {
		if bound, _, ok := ctl.Coord.Registry.RoomOf(id); ok {
			code = string(bound)
		}
	}
	ctl.Coord.RelayAnswer(code, p.To, p.Answer)
}

func (ctl *WSController) handleCandidate(id domain.ConnID, data []byte) {
	var p struct {
		RoomID    string          `json:"roomId"`
		To        domain.ConnID   `json:"to"`
		Candidate json.RawMessage `json:"candidate"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	code := p.RoomID
	if code == "" {
		if bound, _, ok := ctl.Coord.Registry.RoomOf(id); ok {
			code = string(bound)
		}
	}
	ctl.Coord.RelayCandidate(id, code, p.To, p.Candidate)
}

func (ctl *WSController) handleTranscript(_ domain.ConnID, data []byte) {
	var p struct {
		RoomID  string `json:"roomId"`
		Text    string `json:"text"`
		Speaker string `json:"speaker"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	ctl.Coord.AppendTranscript(p.RoomID, p.Speaker, p.Text)
}
