package orch

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/fieldcast/internal/core"
	"github.com/dkeye/fieldcast/internal/domain"
	"github.com/rs/zerolog/log"
)

// Offer relays a broadcaster's offer to its whole room.
func (o *Orchestrator) Offer(id domain.ConnID, sdp json.RawMessage) error {
	conn, err := o.Registry.Get(id)
	if err != nil || conn.Role != domain.RoleBroadcaster {
		return fmt.Errorf("offer: %w", domain.ErrUnauthorized)
	}
	o.applyPolicy(conn.Identity, o.Relay.RelayOfferToRoom(conn, sdp))
	return nil
}

// Answer relays an observer's answer to the broadcaster it listens to only.
func (o *Orchestrator) Answer(id domain.ConnID, broadcaster domain.Identity, sdp json.RawMessage) error {
	conn, err := o.Registry.Get(id)
	if err != nil || conn.Role != domain.RoleObserver {
		return fmt.Errorf("answer: %w", domain.ErrUnauthorized)
	}
	if conn.ListeningTo != broadcaster {
		log.Debug().Str("module", "orch").Str("conn_id", string(id)).
			Str("broadcaster", string(broadcaster)).Msg("answer for a room not joined, dropping")
		return nil
	}
	o.applyPolicy(broadcaster, o.Relay.RelayAnswerToBroadcaster(conn, broadcaster, sdp))
	return nil
}

// Candidate routes by sender role: broadcaster candidates go to the room,
// observer candidates go to the one broadcaster named.
func (o *Orchestrator) Candidate(id domain.ConnID, broadcaster domain.Identity, candidate json.RawMessage) error {
	conn, err := o.Registry.Get(id)
	if err != nil {
		return fmt.Errorf("ice candidate: %w", domain.ErrUnauthorized)
	}
	switch conn.Role {
	case domain.RoleBroadcaster:
		o.applyPolicy(conn.Identity, o.Relay.RelayICEFromBroadcaster(conn, candidate))
	case domain.RoleObserver:
		if broadcaster == "" {
			return fmt.Errorf("ice candidate: %w", domain.ErrIdentityEmpty)
		}
		if conn.ListeningTo != broadcaster {
			log.Debug().Str("module", "orch").Str("conn_id", string(id)).
				Str("broadcaster", string(broadcaster)).Msg("candidate for a room not joined, dropping")
			return nil
		}
		o.applyPolicy(broadcaster, o.Relay.RelayICEFromObserver(conn, broadcaster, candidate))
	default:
		return fmt.Errorf("ice candidate: %w", domain.ErrUnauthorized)
	}
	return nil
}

// Transcript merges one fragment and re-broadcasts it with the merged view.
func (o *Orchestrator) Transcript(id domain.ConnID, text string, isFinal bool) (string, error) {
	conn, err := o.Registry.Get(id)
	if err != nil || conn.Role != domain.RoleBroadcaster {
		return "", fmt.Errorf("transcript: %w", domain.ErrUnauthorized)
	}
	identity := conn.Identity

	var view string
	o.Locks.With(string(identity), func() {
		sess, serr := o.Sessions.Get(identity)
		if serr != nil || sess.ConnID != id {
			err = fmt.Errorf("transcript %s: %w", identity, domain.ErrStreamUnavailable)
			return
		}
		if isFinal {
			err = o.Transcripts.AppendFinal(identity, text)
		} else {
			err = o.Transcripts.SetPartial(identity, text)
		}
		if err == nil {
			view, err = o.Transcripts.CurrentView(identity)
		}
	})
	if errors.Is(err, domain.ErrNotFound) {
		err = fmt.Errorf("transcript %s: %w", identity, domain.ErrStreamUnavailable)
	}
	if err != nil {
		return "", err
	}

	msg := domain.TranscriptMessage{
		Type:        domain.MsgTranscript,
		Broadcaster: identity,
		Text:        text,
		IsFinal:     isFinal,
		View:        view,
	}
	if f, ok := core.Encode(msg); ok {
		o.applyPolicy(identity, o.Rooms.BroadcastToRoom(identity, f))
	}
	return view, nil
}
