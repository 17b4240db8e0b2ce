package signal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dkeye/fieldcast/internal/domain"
	"github.com/dkeye/fieldcast/internal/metrics"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, id domain.ConnID, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.Settings.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("conn_id", string(id)).Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.Settings.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("conn_id", string(id)).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.Settings.WriteWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump owns the link: when it returns, the connection is cleaned up
// whatever state it was in.
func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, id domain.ConnID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn_id", string(id)).Msg("readPump closing")
		cancel()
		ctl.Orch.OnDisconnect(id)
		ctl.Limiter.Forget(id)
		c.Close()
	}()

	c.conn.SetReadLimit(ctl.Settings.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.Settings.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.Settings.PongWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Str("module", "signal").Str("conn_id", string(id)).Msg("readPump read error")
				}
				return
			}
			ctl.handleSignal(id, c, data)
		}
	}
}

func (ctl *SignalWSController) handleSignal(id domain.ConnID, c *WsSignalConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Debug().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendCode(c, domain.CodeBadRequest, "invalid message format")
		return
	}

	label := env.Type
	switch env.Type {
	case domain.MsgRegister:
		ctl.handleRegister(id, c, data)
	case domain.MsgStart:
		ctl.handleStart(id, c, data)
	case domain.MsgStop:
		ctl.handleStop(id, c, data)
	case domain.MsgJoin:
		ctl.handleJoin(id, c, data)
	case domain.MsgLeave:
		ctl.handleLeave(id, c, data)
	case domain.MsgOffer:
		ctl.handleOffer(id, c, data)
	case domain.MsgAnswer:
		ctl.handleAnswer(id, c, data)
	case domain.MsgICECandidate:
		ctl.handleCandidate(id, c, data)
	case domain.MsgTranscriptFragment:
		ctl.handleTranscript(id, c, data)
	case domain.MsgListActive:
		ctl.handleListActive(c)
	case domain.MsgStats:
		ctl.handleStats(c)
	case domain.MsgPing:
		ctl.handlePing(c)
	default:
		label = "unknown"
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
		ctl.sendCode(c, domain.CodeBadRequest, "unknown message type")
	}
	metrics.Messages.WithLabelValues(label).Inc()
}

// decode unmarshals a typed payload, answering BAD_REQUEST on failure.
func (ctl *SignalWSController) decode(c *WsSignalConn, data []byte, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		log.Debug().Err(err).Str("module", "signal").Msg("bad payload")
		ctl.sendCode(c, domain.CodeBadRequest, "bad_payload")
		return false
	}
	return true
}

func (ctl *SignalWSController) sendJSON(c *WsSignalConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func (ctl *SignalWSController) sendError(c *WsSignalConn, err error) {
	code := domain.CodeFor(err)
	if errors.Is(err, domain.ErrUnauthorized) || errors.Is(err, domain.ErrStreamUnavailable) {
		log.Debug().Err(err).Str("module", "signal").Msg("rejected")
	} else {
		log.Warn().Err(err).Str("module", "signal").Str("code", code).Msg("rejected")
	}
	ctl.sendCode(c, code, err.Error())
}

func (ctl *SignalWSController) sendCode(c *WsSignalConn, code, message string) {
	metrics.Rejected.WithLabelValues(code).Inc()
	ctl.sendJSON(c, domain.NewErrorMessage(code, message))
}
