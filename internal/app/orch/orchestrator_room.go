package orch

import (
	"fmt"

	"github.com/dkeye/fieldcast/internal/domain"
)

// Join attaches an observer to broadcaster's room, leaving any other room first.
func (o *Orchestrator) Join(id domain.ConnID, broadcaster domain.Identity) (domain.Session, error) {
	conn, err := o.Registry.Get(id)
	if err != nil || conn.Role != domain.RoleObserver {
		return domain.Session{}, fmt.Errorf("join %s: %w", broadcaster, domain.ErrUnauthorized)
	}
	if conn.ListeningTo != "" && conn.ListeningTo != broadcaster {
		o.leave(id, conn.ListeningTo)
	}

	var (
		sess   domain.Session
		joined bool
	)
	o.Locks.With(string(broadcaster), func() {
		cur, _ := o.Registry.Get(id)
		if cur.ListeningTo == broadcaster {
			sess, err = o.Sessions.Get(broadcaster)
			if err != nil {
				err = fmt.Errorf("join %s: %w", broadcaster, domain.ErrStreamUnavailable)
			}
			return
		}
		sess, err = o.Rooms.Join(id, broadcaster)
		joined = err == nil
	})
	if err != nil {
		return domain.Session{}, err
	}
	if joined {
		o.sendTo(broadcaster, sess.ConnID, domain.ListenerMessage{
			Type:          domain.MsgListenerJoined,
			Listener:      domain.Peer{ConnID: id, Identity: conn.Identity},
			ListenerCount: sess.ListenerCount,
		})
	}
	return sess, nil
}

// Leave detaches an observer. Leaving a room it is not in is a no-op.
func (o *Orchestrator) Leave(id domain.ConnID, broadcaster domain.Identity) (bool, error) {
	conn, err := o.Registry.Get(id)
	if err != nil || conn.Role != domain.RoleObserver {
		return false, fmt.Errorf("leave %s: %w", broadcaster, domain.ErrUnauthorized)
	}
	return o.leave(id, broadcaster), nil
}

func (o *Orchestrator) leave(id domain.ConnID, broadcaster domain.Identity) bool {
	var (
		left bool
		sess domain.Session
		err  error
	)
	o.Locks.With(string(broadcaster), func() {
		left = o.Rooms.Leave(id, broadcaster)
		if left {
			sess, err = o.Sessions.Get(broadcaster)
		}
	})
	if left && err == nil {
		listener, _ := o.Registry.Get(id)
		o.sendTo(broadcaster, sess.ConnID, domain.ListenerMessage{
			Type:          domain.MsgListenerLeft,
			Listener:      domain.Peer{ConnID: id, Identity: listener.Identity},
			ListenerCount: sess.ListenerCount,
		})
	}
	return left
}
