package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/fieldcast/internal/app/orch"
	"github.com/dkeye/fieldcast/internal/config"
	"github.com/dkeye/fieldcast/internal/core"
	"github.com/dkeye/fieldcast/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

var ErrConnClosed = errors.New("connection closed")

// Settings are the per-link transport limits.
type Settings struct {
	ReadLimit  int64
	PingPeriod time.Duration
	PongWait   time.Duration
	WriteWait  time.Duration
	SendBuffer int
}

func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		PongWait:   cfg.PongWait,
		WriteWait:  cfg.WriteWait,
		SendBuffer: cfg.SendBuffer,
	}
}

type SignalWSController struct {
	Orch       *orch.Orchestrator
	Limiter    *RateLimiter
	ICEServers []webrtc.ICEServer
	Settings   Settings
}

func NewSignalWSController(o *orch.Orchestrator, limiter *RateLimiter, ice []webrtc.ICEServer, s Settings) *SignalWSController {
	return &SignalWSController{
		Orch:       o,
		Limiter:    limiter,
		ICEServers: ice,
		Settings:   s,
	}
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	token := c.GetString("client_token")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	id := domain.ConnID(uuid.NewString())
	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, ctl.Settings.SendBuffer),
	}
	ctl.Orch.Connect(id, conn, token)
	log.Info().Str("module", "signal").Str("conn_id", string(id)).Msg("new WS connection")

	ctl.sendJSON(conn, struct {
		Type       string             `json:"type"`
		ConnID     domain.ConnID      `json:"connection_id"`
		ICEServers []webrtc.ICEServer `json:"ice_servers"`
	}{
		Type:       domain.MsgConnected,
		ConnID:     id,
		ICEServers: ctl.ICEServers,
	})

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, id, conn)
	go ctl.readPump(ctx, cancel, id, conn)
}
