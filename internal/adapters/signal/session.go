package signal

import (
	"encoding/json"
	"fmt"

	"github.com/dkeye/fieldcast/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleRegister(id domain.ConnID, conn *WsSignalConn, data []byte) {
	var p struct {
		Role     string `json:"role"`
		Identity string `json:"identity"`
	}
	if !ctl.decode(conn, data, &p) {
		return
	}
	role, err := domain.ParseRole(p.Role)
	if err != nil {
		ctl.sendError(conn, fmt.Errorf("register %q: %w", p.Role, err))
		return
	}
	identity, err := domain.NewIdentity(p.Identity)
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	c, err := ctl.Orch.Register(id, role, identity)
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	log.Info().Str("module", "signal").Str("conn_id", string(id)).
		Str("role", string(role)).Str("identity", string(identity)).Msg("register")
	ctl.sendJSON(conn, struct {
		Type string `json:"type"`
		domain.Connection
	}{
		Type:       domain.MsgRegistered,
		Connection: c,
	})
}

func (ctl *SignalWSController) handleStart(id domain.ConnID, conn *WsSignalConn, data []byte) {
	var p struct {
		Identity string          `json:"identity"`
		Info     json.RawMessage `json:"info"`
	}
	if !ctl.decode(conn, data, &p) {
		return
	}
	if !ctl.Limiter.Allow(id) {
		ctl.sendError(conn, fmt.Errorf("start: %w", domain.ErrRateLimited))
		return
	}
	identity, err := domain.NewIdentity(p.Identity)
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	sess, err := ctl.Orch.Start(id, identity, p.Info)
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	log.Info().Str("module", "signal").Str("conn_id", string(id)).Str("identity", string(identity)).Msg("session started")
	ctl.sendJSON(conn, struct {
		Type    string         `json:"type"`
		Session domain.Session `json:"session"`
	}{
		Type:    domain.MsgSessionStarted,
		Session: sess,
	})
}

func (ctl *SignalWSController) handleStop(id domain.ConnID, conn *WsSignalConn, data []byte) {
	var p struct {
		Identity string `json:"identity"`
	}
	if !ctl.decode(conn, data, &p) {
		return
	}
	identity, err := domain.NewIdentity(p.Identity)
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	stopped, err := ctl.Orch.Stop(id, identity)
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	ctl.sendJSON(conn, struct {
		Type     string          `json:"type"`
		Identity domain.Identity `json:"identity"`
		Stopped  bool            `json:"stopped"`
	}{
		Type:     domain.MsgSessionStopped,
		Identity: identity,
		Stopped:  stopped,
	})
}
