package app

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dkeye/fieldcast/internal/domain"
	"github.com/rs/zerolog/log"
)

const sessionShards = 16

type sessionShard struct {
	mu       sync.RWMutex
	sessions map[domain.Identity]*domain.Session
}

// Sessions is the Session Registry, keyed by broadcaster identity.
// It reads the connection registry only to check who may start.
type Sessions struct {
	conns  *Registry
	shards [sessionShards]*sessionShard
	now    func() time.Time
}

func NewSessions(conns *Registry) *Sessions {
	s := &Sessions{conns: conns, now: time.Now}
	for i := range s.shards {
		s.shards[i] = &sessionShard{sessions: make(map[domain.Identity]*domain.Session)}
	}
	return s
}

func (s *Sessions) shard(id domain.Identity) *sessionShard {
	return s.shards[xxhash.Sum64String(string(id))%sessionShards]
}

// Start creates the session for identity, replacing a live one. A replaced
// session does not carry its listener count over.
func (s *Sessions) Start(identity domain.Identity, connID domain.ConnID, info json.RawMessage) (domain.Session, bool, error) {
	conn, err := s.conns.Get(connID)
	if err != nil || conn.Role != domain.RoleBroadcaster || conn.Identity != identity {
		return domain.Session{}, false, fmt.Errorf("start %s from %s: %w", identity, connID, domain.ErrUnauthorized)
	}

	sh := s.shard(identity)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	_, replaced := sh.sessions[identity]
	sess := &domain.Session{
		Identity:  identity,
		ConnID:    connID,
		Info:      info,
		IsLive:    true,
		StartedAt: s.now(),
	}
	sh.sessions[identity] = sess
	log.Info().Str("module", "app.sessions").Str("identity", string(identity)).
		Str("conn_id", string(connID)).Bool("replaced", replaced).Msg("session started")
	return *sess, replaced, nil
}

// Stop removes the session. Stopping an absent session is not an error.
func (s *Sessions) Stop(identity domain.Identity) (domain.Session, bool) {
	sh := s.shard(identity)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sess, ok := sh.sessions[identity]
	if !ok {
		return domain.Session{}, false
	}
	delete(sh.sessions, identity)
	log.Info().Str("module", "app.sessions").Str("identity", string(identity)).Msg("session stopped")
	return *sess, true
}

func (s *Sessions) Get(identity domain.Identity) (domain.Session, error) {
	sh := s.shard(identity)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	if sess, ok := sh.sessions[identity]; ok {
		return *sess, nil
	}
	return domain.Session{}, fmt.Errorf("session %s: %w", identity, domain.ErrNotFound)
}

func (s *Sessions) IncrementListeners(identity domain.Identity) int {
	return s.adjust(identity, 1)
}

// DecrementListeners floors at zero.
func (s *Sessions) DecrementListeners(identity domain.Identity) int {
	return s.adjust(identity, -1)
}

func (s *Sessions) adjust(identity domain.Identity, delta int) int {
	sh := s.shard(identity)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sess, ok := sh.sessions[identity]
	if !ok {
		return 0
	}
	sess.ListenerCount = max(sess.ListenerCount+delta, 0)
	return sess.ListenerCount
}

// ListActive returns live sessions, oldest first.
func (s *Sessions) ListActive() []domain.Session {
	out := make([]domain.Session, 0)
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, sess := range sh.sessions {
			if sess.IsLive {
				out = append(out, *sess)
			}
		}
		sh.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].Identity < out[j].Identity
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}
