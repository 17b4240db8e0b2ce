package signal

import "github.com/dkeye/fieldcast/internal/domain"

func (ctl *SignalWSController) handlePing(conn *WsSignalConn) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: domain.MsgPong,
	}
	ctl.sendJSON(conn, resp)
}

func (ctl *SignalWSController) handleListActive(conn *WsSignalConn) {
	ctl.sendJSON(conn, struct {
		Type     string           `json:"type"`
		Sessions []domain.Session `json:"sessions"`
	}{
		Type:     domain.MsgActiveSessions,
		Sessions: ctl.Orch.ListActive(),
	})
}

func (ctl *SignalWSController) handleStats(conn *WsSignalConn) {
	ctl.sendJSON(conn, struct {
		Type string `json:"type"`
		domain.Stats
	}{
		Type:  domain.MsgStats,
		Stats: ctl.Orch.Stats(),
	})
}
