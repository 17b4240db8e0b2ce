package app

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/fieldcast/internal/core"
	"github.com/dkeye/fieldcast/internal/domain"
	"github.com/rs/zerolog/log"
)

// Relay is the Signaling Relay. Payloads are forwarded verbatim.
// Broadcaster->observers is room scoped; observer->broadcaster is identity
// addressed. The two never share a code path.
type Relay struct {
	conns    *Registry
	sessions *Sessions
	rooms    *Rooms
}

func NewRelay(conns *Registry, sessions *Sessions, rooms *Rooms) *Relay {
	return &Relay{conns: conns, sessions: sessions, rooms: rooms}
}

func peerOf(c domain.Connection) domain.Peer {
	return domain.Peer{ConnID: c.ID, Identity: c.Identity}
}

// RelayOfferToRoom sends the broadcaster's offer to every current listener.
func (r *Relay) RelayOfferToRoom(from domain.Connection, sdp json.RawMessage) core.PublishResult {
	return r.toRoom(domain.SignalMessage{
		Type:        domain.MsgOffer,
		From:        peerOf(from),
		Broadcaster: from.Identity,
		SDP:         sdp,
	})
}

// RelayICEFromBroadcaster sends a broadcaster candidate to the room.
func (r *Relay) RelayICEFromBroadcaster(from domain.Connection, candidate json.RawMessage) core.PublishResult {
	return r.toRoom(domain.SignalMessage{
		Type:        domain.MsgICECandidate,
		From:        peerOf(from),
		Broadcaster: from.Identity,
		Candidate:   candidate,
	})
}

// RelayAnswerToBroadcaster unicasts an observer's answer to broadcaster's link.
func (r *Relay) RelayAnswerToBroadcaster(from domain.Connection, broadcaster domain.Identity, sdp json.RawMessage) core.PublishResult {
	return r.toBroadcaster(broadcaster, domain.SignalMessage{
		Type:        domain.MsgAnswer,
		From:        peerOf(from),
		Broadcaster: broadcaster,
		SDP:         sdp,
	})
}

// RelayICEFromObserver unicasts an observer's candidate to broadcaster's link.
func (r *Relay) RelayICEFromObserver(from domain.Connection, broadcaster domain.Identity, candidate json.RawMessage) core.PublishResult {
	return r.toBroadcaster(broadcaster, domain.SignalMessage{
		Type:        domain.MsgICECandidate,
		From:        peerOf(from),
		Broadcaster: broadcaster,
		Candidate:   candidate,
	})
}

func (r *Relay) toRoom(msg domain.SignalMessage) core.PublishResult {
	if len(r.rooms.Members(msg.Broadcaster)) == 0 {
		log.Debug().Str("module", "app.relay").Str("type", msg.Type).
			Str("room", string(msg.Broadcaster)).Msg("room empty, nothing to relay")
		return core.PublishResult{}
	}
	f, ok := core.Encode(msg)
	if !ok {
		return core.PublishResult{}
	}
	return r.rooms.BroadcastToRoom(msg.Broadcaster, f)
}

func (r *Relay) toBroadcaster(broadcaster domain.Identity, msg domain.SignalMessage) core.PublishResult {
	target, ok := r.broadcasterConn(broadcaster)
	if !ok {
		log.Debug().Str("module", "app.relay").Str("type", msg.Type).
			Str("broadcaster", string(broadcaster)).Msg("broadcaster gone, dropping")
		return core.PublishResult{}
	}
	f, ok := core.Encode(msg)
	if !ok {
		return core.PublishResult{}
	}
	if err := r.rooms.SendTo(target, f); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return core.PublishResult{}
		}
		return core.PublishResult{Dropped: []domain.ConnID{target}}
	}
	return core.PublishResult{SendTo: 1}
}

// broadcasterConn prefers the link holding the live session, then any link
// registered as that broadcaster.
func (r *Relay) broadcasterConn(broadcaster domain.Identity) (domain.ConnID, bool) {
	if sess, err := r.sessions.Get(broadcaster); err == nil {
		return sess.ConnID, true
	}
	c, err := r.conns.FindByIdentity(domain.RoleBroadcaster, broadcaster)
	if err != nil {
		return "", false
	}
	return c.ID, true
}
