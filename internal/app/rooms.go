package app

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dkeye/fieldcast/internal/core"
	"github.com/dkeye/fieldcast/internal/domain"
	"github.com/rs/zerolog/log"
)

const roomShards = 16

type roomShard struct {
	mu    sync.RWMutex
	rooms map[domain.Identity]map[domain.ConnID]struct{}
}

// Rooms is the Room Router: observer membership per broadcaster session and
// fan-out to it. The transport has no native groups, so membership is kept here.
type Rooms struct {
	conns    *Registry
	sessions *Sessions
	shards   [roomShards]*roomShard
}

func NewRooms(conns *Registry, sessions *Sessions) *Rooms {
	r := &Rooms{conns: conns, sessions: sessions}
	for i := range r.shards {
		r.shards[i] = &roomShard{rooms: make(map[domain.Identity]map[domain.ConnID]struct{})}
	}
	return r
}

func (r *Rooms) shard(id domain.Identity) *roomShard {
	return r.shards[xxhash.Sum64String(string(id))%roomShards]
}

// Join attaches an observer to the live session of broadcaster. Joining the
// room it is already in changes nothing.
func (r *Rooms) Join(connID domain.ConnID, broadcaster domain.Identity) (domain.Session, error) {
	conn, err := r.conns.Get(connID)
	if err != nil || conn.Role != domain.RoleObserver {
		return domain.Session{}, fmt.Errorf("join %s from %s: %w", broadcaster, connID, domain.ErrUnauthorized)
	}
	sess, err := r.sessions.Get(broadcaster)
	if err != nil || !sess.IsLive {
		return domain.Session{}, fmt.Errorf("join %s: %w", broadcaster, domain.ErrStreamUnavailable)
	}

	sh := r.shard(broadcaster)
	sh.mu.Lock()
	members, ok := sh.rooms[broadcaster]
	if !ok {
		members = make(map[domain.ConnID]struct{})
		sh.rooms[broadcaster] = members
	}
	_, already := members[connID]
	members[connID] = struct{}{}
	sh.mu.Unlock()

	if already {
		return sess, nil
	}
	r.conns.SetListening(connID, broadcaster)
	sess.ListenerCount = r.sessions.IncrementListeners(broadcaster)
	log.Info().Str("module", "app.rooms").Str("conn_id", string(connID)).
		Str("room", string(broadcaster)).Int("listeners", sess.ListenerCount).Msg("observer joined")
	return sess, nil
}

// Leave detaches an observer; a non-member leaving is a no-op.
func (r *Rooms) Leave(connID domain.ConnID, broadcaster domain.Identity) bool {
	sh := r.shard(broadcaster)
	sh.mu.Lock()
	members, ok := sh.rooms[broadcaster]
	if ok {
		_, ok = members[connID]
		delete(members, connID)
		if len(members) == 0 {
			delete(sh.rooms, broadcaster)
		}
	}
	sh.mu.Unlock()
	if !ok {
		return false
	}
	r.conns.ClearListening(connID, broadcaster)
	n := r.sessions.DecrementListeners(broadcaster)
	log.Info().Str("module", "app.rooms").Str("conn_id", string(connID)).
		Str("room", string(broadcaster)).Int("listeners", n).Msg("observer left")
	return true
}

// Members returns the current member ids, sorted.
func (r *Rooms) Members(broadcaster domain.Identity) []domain.ConnID {
	sh := r.shard(broadcaster)
	sh.mu.RLock()
	out := make([]domain.ConnID, 0, len(sh.rooms[broadcaster]))
	for id := range sh.rooms[broadcaster] {
		out = append(out, id)
	}
	sh.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Close dissolves the room and invalidates every member's back-reference.
func (r *Rooms) Close(broadcaster domain.Identity) []domain.ConnID {
	sh := r.shard(broadcaster)
	sh.mu.Lock()
	members := sh.rooms[broadcaster]
	delete(sh.rooms, broadcaster)
	sh.mu.Unlock()

	out := make([]domain.ConnID, 0, len(members))
	for id := range members {
		r.conns.ClearListening(id, broadcaster)
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	if len(out) > 0 {
		log.Info().Str("module", "app.rooms").Str("room", string(broadcaster)).
			Int("members", len(out)).Msg("room closed")
	}
	return out
}

// BroadcastToRoom delivers f to every member. A failed send is recorded and
// never holds up the rest.
func (r *Rooms) BroadcastToRoom(broadcaster domain.Identity, f core.Frame) core.PublishResult {
	res := core.PublishResult{}
	for _, id := range r.Members(broadcaster) {
		sig, ok := r.conns.Signal(id)
		if !ok {
			continue
		}
		if err := sig.TrySend(f); err != nil {
			res.Dropped = append(res.Dropped, id)
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "app.rooms").Str("room", string(broadcaster)).
		Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

// BroadcastGlobal delivers f to every registered link. Only discovery notices use it.
func (r *Rooms) BroadcastGlobal(f core.Frame) core.PublishResult {
	res := core.PublishResult{}
	for _, snap := range r.conns.Registered() {
		if err := snap.Signal.TrySend(f); err != nil {
			res.Dropped = append(res.Dropped, snap.Conn.ID)
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "app.rooms").Int("sent_to", res.SendTo).
		Int("dropped", len(res.Dropped)).Msg("global broadcast result")
	return res
}

// SendTo unicasts f to one link.
func (r *Rooms) SendTo(id domain.ConnID, f core.Frame) error {
	sig, ok := r.conns.Signal(id)
	if !ok {
		return fmt.Errorf("send to %s: %w", id, domain.ErrNotFound)
	}
	return sig.TrySend(f)
}
