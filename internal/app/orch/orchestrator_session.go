package orch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dkeye/fieldcast/internal/domain"
	"github.com/dkeye/fieldcast/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Start opens a session for the caller's identity. An identity that is
// already live is replaced: the old session ends for its listeners first.
func (o *Orchestrator) Start(id domain.ConnID, identity domain.Identity, info json.RawMessage) (domain.Session, error) {
	conn, err := o.Registry.Get(id)
	if err != nil || conn.Role != domain.RoleBroadcaster || conn.Identity != identity {
		return domain.Session{}, fmt.Errorf("start %s: %w", identity, domain.ErrUnauthorized)
	}

	var sess domain.Session
	o.Locks.With(string(identity), func() {
		o.teardown(identity, domain.ReasonReplaced)
		sess, _, err = o.Sessions.Start(identity, id, info)
		if err == nil {
			o.Transcripts.Open(identity)
			metrics.ActiveSessions.Inc()
		}
	})
	if err != nil {
		return domain.Session{}, err
	}

	o.broadcastGlobal(identity, domain.StreamStartedMessage{
		Type:     domain.MsgStreamStarted,
		Identity: identity,
		Info:     sess.Info,
	})
	return sess, nil
}

// Stop ends the caller's session. Stopping twice is fine.
func (o *Orchestrator) Stop(id domain.ConnID, identity domain.Identity) (bool, error) {
	conn, err := o.Registry.Get(id)
	if err != nil || conn.Role != domain.RoleBroadcaster || conn.Identity != identity {
		return false, fmt.Errorf("stop %s: %w", identity, domain.ErrUnauthorized)
	}
	var stopped bool
	o.Locks.With(string(identity), func() {
		stopped = o.teardown(identity, domain.ReasonExplicit)
	})
	return stopped, nil
}

// teardown ends identity's session, if any. Caller holds the identity lock.
func (o *Orchestrator) teardown(identity domain.Identity, reason domain.EndReason) bool {
	sess, ok := o.Sessions.Stop(identity)
	if !ok {
		return false
	}
	members := o.Rooms.Close(identity)
	transcript, _ := o.Transcripts.Finalize(identity)
	metrics.ActiveSessions.Dec()
	metrics.SessionsEnded.WithLabelValues(string(reason)).Inc()

	// Global, so every former member sees exactly one notice.
	o.broadcastGlobal(identity, domain.StreamEndedMessage{
		Type:     domain.MsgStreamEnded,
		Identity: identity,
		Reason:   reason,
	})

	rec := domain.NewSessionRecord(sess, o.Now(), transcript, reason)
	if conn, err := o.Registry.Get(sess.ConnID); err == nil {
		rec.ClientToken = conn.ClientToken
	}
	if o.Sink != nil {
		if err := o.Sink.SessionEnded(context.Background(), rec); err != nil {
			log.Error().Err(err).Str("module", "orch").Str("identity", string(identity)).Msg("session sink")
		}
	}
	log.Info().Str("module", "orch").Str("identity", string(identity)).Str("reason", string(reason)).
		Int("members", len(members)).Int64("duration_ms", rec.DurationMS).Msg("session ended")
	return true
}
