package app

import (
	"errors"
	"testing"

	"github.com/dkeye/fieldcast/internal/domain"
)

func TestRoomsJoin(t *testing.T) {
	f := newFixture(t)
	f.live(t, "b1", "alice")
	f.connect(t, "o1", domain.RoleObserver, "bob")
	f.connect(t, "o2", domain.RoleObserver, "carol")
	f.connect(t, "b2", domain.RoleBroadcaster, "dave")

	tests := []struct {
		name      string
		conn      domain.ConnID
		target    domain.Identity
		wantErr   error
		wantCount int
	}{
		{"first observer", "o1", "alice", nil, 1},
		{"second observer", "o2", "alice", nil, 2},
		{"rejoin is no-op", "o1", "alice", nil, 2},
		{"broadcaster cannot join", "b2", "alice", domain.ErrUnauthorized, 0},
		{"no live session", "o1", "dave", domain.ErrStreamUnavailable, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, err := f.rooms.Join(tt.conn, tt.target)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Join() error = %v, want %v", err, tt.wantErr)
			}
			if err == nil && sess.ListenerCount != tt.wantCount {
				t.Errorf("listener_count = %d, want %d", sess.ListenerCount, tt.wantCount)
			}
		})
	}

	if got := f.rooms.Members("alice"); len(got) != 2 || got[0] != "o1" || got[1] != "o2" {
		t.Errorf("Members() = %v, want [o1 o2]", got)
	}
	if c, _ := f.reg.Get("o1"); c.ListeningTo != "alice" {
		t.Errorf("o1 listening_to = %q, want alice", c.ListeningTo)
	}
}

func TestRoomsLeave(t *testing.T) {
	f := newFixture(t)
	f.live(t, "b1", "alice")
	f.connect(t, "o1", domain.RoleObserver, "bob")
	f.connect(t, "o2", domain.RoleObserver, "carol")
	_, _ = f.rooms.Join("o1", "alice")

	if f.rooms.Leave("o2", "alice") {
		t.Error("Leave() by non-member = true, want false")
	}
	if s, _ := f.sessions.Get("alice"); s.ListenerCount != 1 {
		t.Errorf("listener_count = %d, want 1 after no-op leave", s.ListenerCount)
	}
	if !f.rooms.Leave("o1", "alice") {
		t.Error("Leave() by member = false, want true")
	}
	if s, _ := f.sessions.Get("alice"); s.ListenerCount != 0 {
		t.Errorf("listener_count = %d, want 0", s.ListenerCount)
	}
	if c, _ := f.reg.Get("o1"); c.ListeningTo != "" {
		t.Errorf("listening_to = %q, want empty", c.ListeningTo)
	}
	if f.rooms.Leave("o1", "alice") {
		t.Error("second Leave() = true, want false")
	}
}

func TestRoomsCloseClearsBackRefs(t *testing.T) {
	f := newFixture(t)
	f.live(t, "b1", "alice")
	for _, id := range []domain.ConnID{"o1", "o2", "o3"} {
		f.connect(t, id, domain.RoleObserver, domain.Identity("obs-"+id))
		if _, err := f.rooms.Join(id, "alice"); err != nil {
			t.Fatalf("Join(%s) error = %v", id, err)
		}
	}

	got := f.rooms.Close("alice")
	if len(got) != 3 {
		t.Fatalf("Close() = %v, want 3 members", got)
	}
	for _, id := range got {
		if c, _ := f.reg.Get(id); c.ListeningTo != "" {
			t.Errorf("%s listening_to = %q, want empty", id, c.ListeningTo)
		}
	}
	if m := f.rooms.Members("alice"); len(m) != 0 {
		t.Errorf("Members() after close = %v, want empty", m)
	}
}

func TestRoomsBroadcastToRoomSkipsSlowMembers(t *testing.T) {
	f := newFixture(t)
	f.live(t, "b1", "alice")
	fast := f.connect(t, "o1", domain.RoleObserver, "bob")
	slow := f.connect(t, "o2", domain.RoleObserver, "carol")
	outsider := f.connect(t, "o3", domain.RoleObserver, "eve")
	_, _ = f.rooms.Join("o1", "alice")
	_, _ = f.rooms.Join("o2", "alice")
	slow.full = true

	res := f.rooms.BroadcastToRoom("alice", []byte(`{"type":"offer"}`))
	if res.SendTo != 1 {
		t.Errorf("SendTo = %d, want 1", res.SendTo)
	}
	if len(res.Dropped) != 1 || res.Dropped[0] != "o2" {
		t.Errorf("Dropped = %v, want [o2]", res.Dropped)
	}
	if len(fast.types()) != 1 {
		t.Errorf("fast member got %d frames, want 1", len(fast.types()))
	}
	if len(outsider.types()) != 0 {
		t.Errorf("outsider got %d frames, want 0", len(outsider.types()))
	}
}

func TestRoomsBroadcastGlobalSkipsUnregistered(t *testing.T) {
	f := newFixture(t)
	a := f.connect(t, "b1", domain.RoleBroadcaster, "alice")
	o := f.connect(t, "o1", domain.RoleObserver, "bob")
	anon := f.connect(t, "u1", domain.RoleUnset, "")

	res := f.rooms.BroadcastGlobal([]byte(`{"type":"stream_started"}`))
	if res.SendTo != 2 {
		t.Errorf("SendTo = %d, want 2", res.SendTo)
	}
	if len(a.types()) != 1 || len(o.types()) != 1 || len(anon.types()) != 0 {
		t.Errorf("frames = %d/%d/%d, want 1/1/0", len(a.types()), len(o.types()), len(anon.types()))
	}
}

func TestRoomsSendToUnknown(t *testing.T) {
	f := newFixture(t)
	if err := f.rooms.SendTo("ghost", []byte(`{}`)); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("SendTo(unknown) error = %v, want ErrNotFound", err)
	}
}
