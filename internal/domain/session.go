package domain

import (
	"encoding/json"
	"time"
)

// Session is the live-state record of one broadcaster's stream.
type Session struct {
	Identity      Identity        `json:"identity"`
	ConnID        ConnID          `json:"connection_id"`
	Info          json.RawMessage `json:"info,omitempty"`
	ListenerCount int             `json:"listener_count"`
	IsLive        bool            `json:"is_live"`
	StartedAt     time.Time       `json:"started_at"`
}

// EndReason tells the persistence side why a session ended.
type EndReason string

const (
	ReasonExplicit   EndReason = "explicit"
	ReasonDisconnect EndReason = "disconnect"
	ReasonReplaced   EndReason = "replaced"
	ReasonShutdown   EndReason = "shutdown"
)

// SessionRecord is the "session ended" fact handed to the persistence collaborator.
type SessionRecord struct {
	Identity    Identity        `json:"identity"`
	ConnID      ConnID          `json:"connection_id"`
	ClientToken string          `json:"client_token,omitempty"`
	Info        json.RawMessage `json:"info,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	EndedAt     time.Time       `json:"ended_at"`
	DurationMS  int64           `json:"duration_ms"`
	Transcript  string          `json:"transcript"`
	Reason      EndReason       `json:"reason"`
}

func NewSessionRecord(s Session, endedAt time.Time, transcript string, reason EndReason) SessionRecord {
	return SessionRecord{
		Identity:   s.Identity,
		ConnID:     s.ConnID,
		Info:       s.Info,
		StartedAt:  s.StartedAt,
		EndedAt:    endedAt,
		DurationMS: endedAt.Sub(s.StartedAt).Milliseconds(),
		Transcript: transcript,
		Reason:     reason,
	}
}
