package domain

import "encoding/json"

// Client -> gateway message types.
const (
	MsgRegister           = "register"
	MsgStart              = "start"
	MsgStop               = "stop"
	MsgJoin               = "join"
	MsgLeave              = "leave"
	MsgOffer              = "offer"
	MsgAnswer             = "answer"
	MsgICECandidate       = "ice_candidate"
	MsgTranscriptFragment = "transcript_fragment"
	MsgListActive         = "list_active"
	MsgStats              = "stats"
	MsgPing               = "ping"
)

// Gateway -> client message types.
const (
	MsgConnected      = "connected"
	MsgRegistered     = "registered"
	MsgSessionStarted = "session_started"
	MsgSessionStopped = "session_stopped"
	MsgStreamStarted  = "stream_started"
	MsgStreamEnded    = "stream_ended"
	MsgJoined         = "joined"
	MsgLeft           = "left"
	MsgListenerJoined = "listener_joined"
	MsgListenerLeft   = "listener_left"
	MsgTranscript     = "transcript"
	MsgActiveSessions = "active_sessions"
	MsgError          = "error"
	MsgPong           = "pong"
)

// Peer identifies the sender of a relayed handshake message.
type Peer struct {
	ConnID   ConnID   `json:"connection_id"`
	Identity Identity `json:"identity"`
}

type StreamStartedMessage struct {
	Type     string          `json:"type"`
	Identity Identity        `json:"broadcaster_identity"`
	Info     json.RawMessage `json:"info,omitempty"`
}

type StreamEndedMessage struct {
	Type     string    `json:"type"`
	Identity Identity  `json:"broadcaster_identity"`
	Reason   EndReason `json:"reason"`
}

type ListenerMessage struct {
	Type          string `json:"type"`
	Listener      Peer   `json:"listener"`
	ListenerCount int    `json:"listener_count"`
}

// SignalMessage carries an opaque offer, answer or ICE candidate.
type SignalMessage struct {
	Type        string          `json:"type"`
	From        Peer            `json:"from"`
	Broadcaster Identity        `json:"broadcaster_identity"`
	SDP         json.RawMessage `json:"sdp,omitempty"`
	Candidate   json.RawMessage `json:"candidate,omitempty"`
}

type TranscriptMessage struct {
	Type        string   `json:"type"`
	Broadcaster Identity `json:"broadcaster_identity"`
	Text        string   `json:"text"`
	IsFinal     bool     `json:"is_final"`
	View        string   `json:"view"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorMessage(code, message string) ErrorMessage {
	return ErrorMessage{Type: MsgError, Code: code, Message: message}
}

// Stats is the counters snapshot answered to `stats`.
type Stats struct {
	TotalConnections int          `json:"total_connections"`
	ActiveSessions   int          `json:"active_sessions"`
	ByRole           map[Role]int `json:"by_role"`
	Sessions         []Session    `json:"sessions"`
}
