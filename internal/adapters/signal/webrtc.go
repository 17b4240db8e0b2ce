package signal

import (
	"encoding/json"

	"github.com/dkeye/fieldcast/internal/domain"
)

// SDP and candidates are opaque here: they are forwarded untouched.
type handshakePayload struct {
	Broadcaster string          `json:"broadcaster_identity"`
	SDP         json.RawMessage `json:"sdp"`
	Candidate   json.RawMessage `json:"candidate"`
}

func (ctl *SignalWSController) handleOffer(id domain.ConnID, conn *WsSignalConn, data []byte) {
	var p handshakePayload
	if !ctl.decode(conn, data, &p) {
		return
	}
	if len(p.SDP) == 0 {
		ctl.sendCode(conn, domain.CodeBadRequest, "offer without sdp")
		return
	}
	if err := ctl.Orch.Offer(id, p.SDP); err != nil {
		ctl.sendError(conn, err)
	}
}

func (ctl *SignalWSController) handleAnswer(id domain.ConnID, conn *WsSignalConn, data []byte) {
	var p handshakePayload
	if !ctl.decode(conn, data, &p) {
		return
	}
	if len(p.SDP) == 0 {
		ctl.sendCode(conn, domain.CodeBadRequest, "answer without sdp")
		return
	}
	broadcaster, err := domain.NewIdentity(p.Broadcaster)
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	if err := ctl.Orch.Answer(id, broadcaster, p.SDP); err != nil {
		ctl.sendError(conn, err)
	}
}

func (ctl *SignalWSController) handleCandidate(id domain.ConnID, conn *WsSignalConn, data []byte) {
	var p handshakePayload
	if !ctl.decode(conn, data, &p) {
		return
	}
	if len(p.Candidate) == 0 {
		ctl.sendCode(conn, domain.CodeBadRequest, "ice_candidate without candidate")
		return
	}
	if err := ctl.Orch.Candidate(id, domain.Identity(p.Broadcaster), p.Candidate); err != nil {
		ctl.sendError(conn, err)
	}
}
