// Package orch is the lifecycle supervisor: it dispatches every inbound
// operation and owns disconnect cleanup.
package orch

import (
	"time"

	"github.com/dkeye/fieldcast/internal/app"
	"github.com/dkeye/fieldcast/internal/core"
	"github.com/dkeye/fieldcast/internal/domain"
	"github.com/dkeye/fieldcast/internal/metrics"
	"github.com/rs/zerolog/log"
)

type Orchestrator struct {
	Registry    *app.Registry
	Sessions    *app.Sessions
	Rooms       *app.Rooms
	Relay       *app.Relay
	Transcripts *app.Transcripts
	Policy      app.Policy
	Sink        core.SessionSink

	// Locks guards everything keyed by one broadcaster identity:
	// session start/stop, room membership and listener counts.
	Locks *app.KeyedMutex

	Now func() time.Time
}

// New wires the registries together.
func New(sink core.SessionSink, policy app.Policy, separator string) *Orchestrator {
	reg := app.NewRegistry()
	sessions := app.NewSessions(reg)
	rooms := app.NewRooms(reg, sessions)
	return &Orchestrator{
		Registry:    reg,
		Sessions:    sessions,
		Rooms:       rooms,
		Relay:       app.NewRelay(reg, sessions, rooms),
		Transcripts: app.NewTranscripts(separator),
		Policy:      policy,
		Sink:        sink,
		Locks:       app.NewKeyedMutex(),
		Now:         time.Now,
	}
}

// Connect tracks a new, still anonymous link.
func (o *Orchestrator) Connect(id domain.ConnID, sig core.SignalConnection, clientToken string) {
	o.Registry.Bind(id, sig, clientToken)
	metrics.Connections.Inc()
}

// Register assigns role and identity. A link that was live or listening under
// its previous registration is released first.
func (o *Orchestrator) Register(id domain.ConnID, role domain.Role, identity domain.Identity) (domain.Connection, error) {
	if role != domain.RoleBroadcaster && role != domain.RoleObserver {
		return domain.Connection{}, domain.ErrInvalidRole
	}
	conn, err := o.Registry.Get(id)
	if err != nil {
		return domain.Connection{}, err
	}
	o.release(conn, domain.ReasonExplicit)
	if err := o.Registry.Register(id, role, identity); err != nil {
		return domain.Connection{}, err
	}
	return o.Registry.Get(id)
}

// OnDisconnect runs the full cleanup path whatever state the link was in.
// Session teardown and room leave read the connection, so Remove comes last.
func (o *Orchestrator) OnDisconnect(id domain.ConnID) {
	conn, err := o.Registry.Get(id)
	if err != nil {
		return
	}
	o.release(conn, domain.ReasonDisconnect)
	o.Registry.Remove(id)
	metrics.Connections.Dec()
	log.Info().Str("module", "orch").Str("conn_id", string(id)).
		Str("role", string(conn.Role)).Str("identity", string(conn.Identity)).Msg("connection closed")
}

func (o *Orchestrator) release(conn domain.Connection, reason domain.EndReason) {
	if conn.Role == domain.RoleBroadcaster && conn.Identity != "" {
		o.Locks.With(string(conn.Identity), func() {
			if sess, err := o.Sessions.Get(conn.Identity); err == nil && sess.ConnID == conn.ID {
				o.teardown(conn.Identity, reason)
			}
		})
	}
	if conn.ListeningTo != "" {
		o.leave(conn.ID, conn.ListeningTo)
	}
}

// ListActive is the discovery snapshot.
func (o *Orchestrator) ListActive() []domain.Session {
	return o.Sessions.ListActive()
}

func (o *Orchestrator) Stats() domain.Stats {
	total, byRole := o.Registry.Counts()
	sessions := o.Sessions.ListActive()
	return domain.Stats{
		TotalConnections: total,
		ActiveSessions:   len(sessions),
		ByRole:           byRole,
		Sessions:         sessions,
	}
}

// Shutdown ends every live session so each still yields its record.
func (o *Orchestrator) Shutdown() {
	for _, sess := range o.Sessions.ListActive() {
		o.Locks.With(string(sess.Identity), func() {
			o.teardown(sess.Identity, domain.ReasonShutdown)
		})
	}
}

func (o *Orchestrator) applyPolicy(room domain.Identity, res core.PublishResult) {
	for _, slow := range res.Dropped {
		metrics.DroppedSends.Inc()
		if o.Policy == nil {
			continue
		}
		switch o.Policy.OnBackPressure(room, slow) {
		case app.KickMember:
			if sig, ok := o.Registry.Signal(slow); ok {
				log.Warn().Str("module", "orch").Str("conn_id", string(slow)).Msg("kicking slow connection")
				// Cleanup follows through the transport's OnDisconnect.
				sig.Close()
			}
		case app.DropFrame, app.NoAction:
		}
	}
}

func (o *Orchestrator) sendTo(room domain.Identity, id domain.ConnID, v any) {
	f, ok := core.Encode(v)
	if !ok {
		return
	}
	if err := o.Rooms.SendTo(id, f); err != nil {
		o.applyPolicy(room, core.PublishResult{Dropped: []domain.ConnID{id}})
	}
}

func (o *Orchestrator) broadcastGlobal(room domain.Identity, v any) {
	f, ok := core.Encode(v)
	if !ok {
		return
	}
	o.applyPolicy(room, o.Rooms.BroadcastGlobal(f))
}
