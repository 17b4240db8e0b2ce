package app

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dkeye/fieldcast/internal/core"
	"github.com/dkeye/fieldcast/internal/domain"
	"github.com/rs/zerolog/log"
)

const registryShards = 16

type connEntry struct {
	Conn   domain.Connection
	Signal core.SignalConnection
}

type registryShard struct {
	mu    sync.RWMutex
	conns map[domain.ConnID]*connEntry
}

type identityKey struct {
	role     domain.Role
	identity domain.Identity
}

// Registry is the Connection Registry: every live link and the role/identity
// it was assigned. It holds no session logic.
type Registry struct {
	shards [registryShards]*registryShard

	idxMu      sync.RWMutex
	byIdentity map[identityKey]map[domain.ConnID]time.Time
}

func NewRegistry() *Registry {
	r := &Registry{byIdentity: make(map[identityKey]map[domain.ConnID]time.Time)}
	for i := range r.shards {
		r.shards[i] = &registryShard{conns: make(map[domain.ConnID]*connEntry)}
	}
	return r
}

func (r *Registry) shard(id domain.ConnID) *registryShard {
	return r.shards[xxhash.Sum64String(string(id))%registryShards]
}

// Bind tracks a new anonymous link.
func (r *Registry) Bind(id domain.ConnID, sig core.SignalConnection, clientToken string) {
	s := r.shard(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[id] = &connEntry{
		Conn: domain.Connection{
			ID:          id,
			Role:        domain.RoleUnset,
			ClientToken: clientToken,
			ConnectedAt: time.Now(),
		},
		Signal: sig,
	}
	log.Info().Str("module", "app.registry").Str("conn_id", string(id)).Msg("bound connection")
}

// Register assigns role and identity, overwriting any prior registration.
func (r *Registry) Register(id domain.ConnID, role domain.Role, identity domain.Identity) error {
	if role != domain.RoleBroadcaster && role != domain.RoleObserver {
		return fmt.Errorf("register %s as %q: %w", id, role, domain.ErrInvalidRole)
	}
	s := r.shard(id)
	s.mu.Lock()
	e, ok := s.conns[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("register %s: %w", id, domain.ErrNotFound)
	}
	prev := identityKey{e.Conn.Role, e.Conn.Identity}
	e.Conn.Role = role
	e.Conn.Identity = identity
	e.Conn.ListeningTo = ""
	s.mu.Unlock()

	r.idxMu.Lock()
	r.unindex(prev, id)
	key := identityKey{role, identity}
	if r.byIdentity[key] == nil {
		r.byIdentity[key] = make(map[domain.ConnID]time.Time)
	}
	r.byIdentity[key][id] = time.Now()
	r.idxMu.Unlock()

	log.Info().Str("module", "app.registry").Str("conn_id", string(id)).
		Str("role", string(role)).Str("identity", string(identity)).Msg("registered connection")
	return nil
}

func (r *Registry) Get(id domain.ConnID) (domain.Connection, error) {
	s := r.shard(id)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.conns[id]; ok {
		return e.Conn, nil
	}
	return domain.Connection{}, fmt.Errorf("connection %s: %w", id, domain.ErrNotFound)
}

func (r *Registry) Signal(id domain.ConnID) (core.SignalConnection, bool) {
	s := r.shard(id)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.conns[id]; ok {
		return e.Signal, true
	}
	return nil, false
}

// Remove drops the link. Absent ids are fine: disconnect can race earlier cleanup.
func (r *Registry) Remove(id domain.ConnID) {
	s := r.shard(id)
	s.mu.Lock()
	e, ok := s.conns[id]
	delete(s.conns, id)
	s.mu.Unlock()
	if !ok {
		return
	}
	r.idxMu.Lock()
	r.unindex(identityKey{e.Conn.Role, e.Conn.Identity}, id)
	r.idxMu.Unlock()
	log.Info().Str("module", "app.registry").Str("conn_id", string(id)).Msg("removed connection")
}

func (r *Registry) unindex(key identityKey, id domain.ConnID) {
	set, ok := r.byIdentity[key]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(r.byIdentity, key)
	}
}

// FindByIdentity returns the most recently registered link for role+identity.
func (r *Registry) FindByIdentity(role domain.Role, identity domain.Identity) (domain.Connection, error) {
	r.idxMu.RLock()
	var (
		best   domain.ConnID
		bestAt time.Time
	)
	for id, at := range r.byIdentity[identityKey{role, identity}] {
		if best == "" || at.After(bestAt) {
			best, bestAt = id, at
		}
	}
	r.idxMu.RUnlock()
	if best == "" {
		return domain.Connection{}, fmt.Errorf("%s %s: %w", role, identity, domain.ErrNotFound)
	}
	return r.Get(best)
}

// SetListening records which broadcaster an observer is attached to.
func (r *Registry) SetListening(id domain.ConnID, to domain.Identity) bool {
	s := r.shard(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.conns[id]
	if !ok {
		return false
	}
	e.Conn.ListeningTo = to
	return true
}

// ClearListening invalidates the back-reference only if it still points at from.
func (r *Registry) ClearListening(id domain.ConnID, from domain.Identity) {
	s := r.shard(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.conns[id]; ok && e.Conn.ListeningTo == from {
		e.Conn.ListeningTo = ""
	}
}

type regSnap struct {
	Conn   domain.Connection
	Signal core.SignalConnection
}

// Registered snapshots every link that has completed register.
func (r *Registry) Registered() []regSnap {
	var out []regSnap
	for _, s := range r.shards {
		s.mu.RLock()
		for _, e := range s.conns {
			if e.Conn.Registered() {
				out = append(out, regSnap{Conn: e.Conn, Signal: e.Signal})
			}
		}
		s.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Conn.ID < out[j].Conn.ID })
	return out
}

// Counts returns the total number of links and the number per role.
func (r *Registry) Counts() (int, map[domain.Role]int) {
	total := 0
	byRole := map[domain.Role]int{
		domain.RoleUnset:       0,
		domain.RoleBroadcaster: 0,
		domain.RoleObserver:    0,
	}
	for _, s := range r.shards {
		s.mu.RLock()
		for _, e := range s.conns {
			total++
			byRole[e.Conn.Role]++
		}
		s.mu.RUnlock()
	}
	return total, byRole
}
