package signal

import "github.com/dkeye/fieldcast/internal/domain"

func (ctl *SignalWSController) handleTranscript(id domain.ConnID, conn *WsSignalConn, data []byte) {
	var p struct {
		Text    string `json:"text"`
		IsFinal bool   `json:"is_final"`
	}
	if !ctl.decode(conn, data, &p) {
		return
	}
	if _, err := ctl.Orch.Transcript(id, p.Text, p.IsFinal); err != nil {
		ctl.sendError(conn, err)
	}
}
