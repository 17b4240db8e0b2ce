package app

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/dkeye/fieldcast/internal/core"
	"github.com/dkeye/fieldcast/internal/domain"
)

// fakeSignal records every frame it accepts.
type fakeSignal struct {
	mu     sync.Mutex
	frames []core.Frame
	full   bool
	closed bool
}

func (f *fakeSignal) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full {
		return core.ErrBackpressure
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeSignal) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeSignal) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.frames))
	for _, fr := range f.frames {
		var env struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(fr, &env)
		out = append(out, env.Type)
	}
	return out
}

func (f *fakeSignal) last(t *testing.T, v any) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.frames) == 0 {
		t.Fatal("no frames received")
	}
	if err := json.Unmarshal(f.frames[len(f.frames)-1], v); err != nil {
		t.Fatalf("unmarshal last frame: %v", err)
	}
}

type fixture struct {
	reg      *Registry
	sessions *Sessions
	rooms    *Rooms
	relay    *Relay
	sigs     map[domain.ConnID]*fakeSignal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := NewRegistry()
	sessions := NewSessions(reg)
	rooms := NewRooms(reg, sessions)
	return &fixture{
		reg:      reg,
		sessions: sessions,
		rooms:    rooms,
		relay:    NewRelay(reg, sessions, rooms),
		sigs:     make(map[domain.ConnID]*fakeSignal),
	}
}

func (f *fixture) connect(t *testing.T, id domain.ConnID, role domain.Role, identity domain.Identity) *fakeSignal {
	t.Helper()
	sig := &fakeSignal{}
	f.reg.Bind(id, sig, "token-"+string(id))
	if role != domain.RoleUnset {
		if err := f.reg.Register(id, role, identity); err != nil {
			t.Fatalf("Register(%s) error = %v", id, err)
		}
	}
	f.sigs[id] = sig
	return sig
}

func (f *fixture) live(t *testing.T, id domain.ConnID, identity domain.Identity) {
	t.Helper()
	f.connect(t, id, domain.RoleBroadcaster, identity)
	if _, _, err := f.sessions.Start(identity, id, nil); err != nil {
		t.Fatalf("Start(%s) error = %v", identity, err)
	}
}
