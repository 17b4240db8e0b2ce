package signal

import (
	"fmt"

	"github.com/dkeye/fieldcast/internal/domain"
	"github.com/rs/zerolog/log"
)

type roomPayload struct {
	Broadcaster string `json:"broadcaster_identity"`
}

func (ctl *SignalWSController) handleJoin(id domain.ConnID, conn *WsSignalConn, data []byte) {
	var p roomPayload
	if !ctl.decode(conn, data, &p) {
		return
	}
	if !ctl.Limiter.Allow(id) {
		ctl.sendError(conn, fmt.Errorf("join: %w", domain.ErrRateLimited))
		return
	}
	broadcaster, err := domain.NewIdentity(p.Broadcaster)
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	sess, err := ctl.Orch.Join(id, broadcaster)
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	log.Info().Str("module", "signal").Str("conn_id", string(id)).Str("broadcaster", string(broadcaster)).Msg("join")
	ctl.sendJSON(conn, struct {
		Type    string         `json:"type"`
		Session domain.Session `json:"session"`
	}{
		Type:    domain.MsgJoined,
		Session: sess,
	})
}

// handleLeave detaches from a room; the link itself stays open.
func (ctl *SignalWSController) handleLeave(id domain.ConnID, conn *WsSignalConn, data []byte) {
	var p roomPayload
	if !ctl.decode(conn, data, &p) {
		return
	}
	broadcaster, err := domain.NewIdentity(p.Broadcaster)
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	left, err := ctl.Orch.Leave(id, broadcaster)
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	log.Info().Str("module", "signal").Str("conn_id", string(id)).Str("broadcaster", string(broadcaster)).Bool("left", left).Msg("leave")
	ctl.sendJSON(conn, struct {
		Type        string          `json:"type"`
		Broadcaster domain.Identity `json:"broadcaster_identity"`
		Left        bool            `json:"left"`
	}{
		Type:        domain.MsgLeft,
		Broadcaster: broadcaster,
		Left:        left,
	})
}
